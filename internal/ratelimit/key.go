package ratelimit

import (
	"net/http"
	"strings"
)

// AnonymousClientID is the shared bucket for requests that carry no address headers.
const AnonymousClientID = "anonymous"

// ClientIDFromHeaders derives the limiter key from proxy headers: the first entry of
// X-Forwarded-For, else X-Real-IP, else AnonymousClientID.
func ClientIDFromHeaders(header http.Header) string {
	if header == nil {
		return AnonymousClientID
	}
	if forwarded := header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return AnonymousClientID
}
