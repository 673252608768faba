// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

/*
Package sanitize implements the input defense layer.

Two independent mechanisms run before validation on every request:

  - Clean: a recursive, MUTATING sanitizer that strips query-operator and
    script payloads out of decoded JSON trees and query strings. Defense in
    depth — field validation remains the primary correctness mechanism.
  - Detector: a NON-mutating signature scanner that tags requests matching
    known attack patterns purely for security logging. It never blocks.
*/
package sanitize

import (
	"regexp"
	"strings"
)

// operatorSubstrings are NoSQL query operators stripped from string values.
// Longer operators come first so "$gte" is removed before "$gt" would split it.
var operatorSubstrings = []string{
	"$where", "$regex", "$exists", "$search",
	"$gte", "$lte", "$nin", "$and", "$not", "$mod", "$text", "$type",
	"$ne", "$gt", "$lt", "$in", "$or",
}

var (
	scriptTagPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script[^>]*>`)
	javascriptURIPattern = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	allowedKeyPattern    = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

/*
lowerASCII folds only the ASCII letters of value. Unlike strings.ToLower it
never changes the byte length, so indexes found in the folded copy stay valid
in the original even when multi-byte runes surround an operator.
*/
func lowerASCII(value string) string {
	folded := []byte(value)
	for index, char := range folded {
		if char >= 'A' && char <= 'Z' {
			folded[index] = char + ('a' - 'A')
		}
	}
	return string(folded)
}

// CleanString strips NoSQL operators, script tags, javascript: URIs, and
// inline event-handler attributes from a single string value.
func CleanString(value string) string {
	cleaned := scriptTagPattern.ReplaceAllString(value, "")
	cleaned = javascriptURIPattern.ReplaceAllString(cleaned, "")
	cleaned = eventHandlerPattern.ReplaceAllString(cleaned, "")

	// The operator list is pure ASCII, so ASCII-only folding is enough for
	// case-insensitive matching and keeps both strings the same length.
	lower := lowerASCII(cleaned)
	for _, operator := range operatorSubstrings {
		for {
			index := strings.Index(lower, operator)
			if index < 0 {
				break
			}
			cleaned = cleaned[:index] + cleaned[index+len(operator):]
			lower = lower[:index] + lower[index+len(operator):]
		}
	}

	return cleaned
}

// Clean recursively sanitizes a decoded JSON tree.
//
// # Behavior
//
//   - strings: scrubbed via [CleanString]
//   - maps: keys outside [A-Za-z0-9_.-] are DROPPED; values sanitized recursively
//   - slices: sanitized element-wise
//   - all other scalars: passed through untouched
func Clean(value any) any {
	switch typed := value.(type) {
	case string:
		return CleanString(typed)

	case map[string]any:
		cleaned := make(map[string]any, len(typed))
		for key, child := range typed {
			if !allowedKeyPattern.MatchString(key) {
				continue
			}
			cleaned[key] = Clean(child)
		}
		return cleaned

	case []any:
		cleaned := make([]any, len(typed))
		for index, child := range typed {
			cleaned[index] = Clean(child)
		}
		return cleaned

	default:
		return value
	}
}
