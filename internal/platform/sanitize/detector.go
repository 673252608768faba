// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package sanitize

import (
	"regexp"
)

// signature is one named attack pattern.
type signature struct {
	tag     string
	pattern *regexp.Regexp
}

// signatures covers the classes of attack traffic worth tagging for audit:
// SQL injection probes, shell command injection, path traversal, template
// injection, and well-known scanner user agents. Matching is advisory only.
var signatures = []signature{
	{"sqli_union", regexp.MustCompile(`(?i)\bunion\b[\s/*]+\bselect\b`)},
	{"sqli_comment", regexp.MustCompile(`(?i)('|\b)(or|and)\b\s+[\w'"]+\s*=\s*[\w'"]+\s*(--|#|/\*)`)},
	{"sqli_sleep", regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep|waitfor\s+delay)\s*\(`)},
	{"sqli_stacked", regexp.MustCompile(`(?i);\s*(drop|delete|truncate|insert|update)\b`)},
	{"cmd_injection", regexp.MustCompile("(?i)[;&|`]\\s*(cat|ls|id|whoami|wget|curl|nc|bash|sh|cmd|powershell)\\b")},
	{"path_traversal", regexp.MustCompile(`(\.\./|\.\.\\){2,}`)},
	{"template_injection", regexp.MustCompile(`\{\{.*\}\}|\$\{.*\}`)},
	{"scanner_ua", regexp.MustCompile(`(?i)\b(sqlmap|nikto|nessus|nmap|masscan|acunetix|dirbuster|gobuster|wpscan|hydra)\b`)},
}

// Detector scans request material against the fixed signature list.
//
// It is stateless and safe for concurrent use.
type Detector struct{}

// NewDetector returns the shared signature scanner.
func NewDetector() *Detector { return &Detector{} }

// Scan matches every provided section (method, path, query, body, user agent)
// against all signatures and returns the distinct tags that hit.
//
// A non-empty result is a logging signal only — the request proceeds.
func (d *Detector) Scan(sections ...string) []string {
	var tags []string
	seen := make(map[string]bool)

	for _, section := range sections {
		if section == "" {
			continue
		}
		for _, sig := range signatures {
			if seen[sig.tag] {
				continue
			}
			if sig.pattern.MatchString(section) {
				seen[sig.tag] = true
				tags = append(tags, sig.tag)
			}
		}
	}

	return tags
}
