// Copyright (c) 2026 AppForge. All rights reserved.
// Author: tran.vu.dev@gmail.com

package sanitize

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tranvu/appforge/internal/platform/audit"
	"github.com/tranvu/appforge/internal/platform/ctxutil"
)

// maxBodyBytes bounds how much of a request body the defense layer will
// buffer. Larger bodies are rejected upstream by the server's read limits.
const maxBodyBytes = 1 << 20

// Middleware runs the input defense on every request before validation:
// the body and query string are sanitized in place, and the signature
// detector tags the request for audit correlation.
//
// The detector scans the ORIGINAL material (pre-sanitization) so that audit
// entries describe what the caller actually sent.
func Middleware(detector *Detector, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Buffer the body so it can be scanned, sanitized, and replayed.
			var rawBody []byte
			if request.Body != nil {
				rawBody, _ = io.ReadAll(io.LimitReader(request.Body, maxBodyBytes))
				_ = request.Body.Close()
			}

			rawQuery, _ := url.QueryUnescape(request.URL.RawQuery)

			// 2. Signature scan over the untouched request material.
			tags := detector.Scan(
				request.Method,
				request.URL.Path,
				rawQuery,
				string(rawBody),
				request.UserAgent(),
			)

			ctx := request.Context()
			if len(tags) > 0 {
				ctx = ctxutil.WithThreatTags(ctx, tags)
				auditLog.Emit(ctx, audit.Event{
					Kind:       audit.EventSuspiciousInput,
					Identifier: request.RemoteAddr,
					Endpoint:   request.URL.Path,
					UserAgent:  request.UserAgent(),
					Tags:       tags,
				})
			}

			// 3. Sanitize the query string element-wise.
			request.URL.RawQuery = cleanQuery(request.URL.Query())

			// 4. Sanitize JSON bodies structurally; non-JSON bodies are
			// replayed untouched (validation rejects unexpected content types).
			sanitizedBody := rawBody
			if len(rawBody) > 0 {
				var tree any
				if err := json.Unmarshal(rawBody, &tree); err == nil {
					if encoded, err := json.Marshal(Clean(tree)); err == nil {
						sanitizedBody = encoded
					}
				}
			}

			request.Body = io.NopCloser(bytes.NewReader(sanitizedBody))
			request.ContentLength = int64(len(sanitizedBody))
			request.Header.Set("Content-Length", strconv.Itoa(len(sanitizedBody)))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// cleanQuery sanitizes every query key and value, dropping disallowed keys.
func cleanQuery(values url.Values) string {
	cleaned := url.Values{}
	for key, entries := range values {
		if !allowedKeyPattern.MatchString(key) {
			continue
		}
		for _, entry := range entries {
			cleaned.Add(key, CleanString(entry))
		}
	}
	return cleaned.Encode()
}
