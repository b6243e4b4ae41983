// Package server constructs the Parley HTTP server and enforces the
// configured origin allow-list for WebSocket upgrades.
package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/parley-chat/parley/internal/logger"
)

// OriginPolicy validates upgrade-request origins against a normalized
// allow-list. A bare "*" entry allows every origin.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy normalizes the configured origins, dropping entries that
// do not parse as scheme://host.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warnf("ignoring invalid origin in configuration: %q", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}
	return p
}

// Check reports whether the request's Origin header is allowed. It has the
// signature expected by the WebSocket upgrader.
func (p *OriginPolicy) Check(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		// Non-browser clients send no Origin; the credential check is
		// what gates them.
		return true
	}
	if p.allowAll {
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}
	if _, exists := p.allowed[normalized]; exists {
		return true
	}

	logger.Warnf("blocked WebSocket connection from disallowed origin: %q", originHeader)
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
