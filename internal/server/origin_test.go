package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "http://gateway.test/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicyCheck(t *testing.T) {
	policy := NewOriginPolicy([]string{"https://app.example.com", " HTTP://Localhost:5173 ", "not a url", ""})

	cases := []struct {
		name   string
		origin string
		want   bool
	}{
		{"allowed origin", "https://app.example.com", true},
		{"case-insensitive match", "HTTPS://APP.EXAMPLE.COM", true},
		{"second allowed entry", "http://localhost:5173", true},
		{"different scheme blocked", "http://app.example.com", false},
		{"different port blocked", "http://localhost:3000", false},
		{"unknown origin blocked", "https://evil.example.com", false},
		{"unparseable origin blocked", "://", false},
		{"no origin header allowed", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Check(requestWithOrigin(tc.origin)); got != tc.want {
				t.Errorf("Check(%q) = %v, want %v", tc.origin, got, tc.want)
			}
		})
	}
}

func TestOriginPolicyWildcardAllowsEverything(t *testing.T) {
	policy := NewOriginPolicy([]string{"*"})
	if !policy.Check(requestWithOrigin("https://anywhere.example.com")) {
		t.Error("wildcard policy must allow any origin")
	}
}

func TestOriginPolicyEmptyListBlocksBrowsers(t *testing.T) {
	policy := NewOriginPolicy(nil)
	if policy.Check(requestWithOrigin("https://app.example.com")) {
		t.Error("empty allow-list must block browser origins")
	}
	if !policy.Check(requestWithOrigin("")) {
		t.Error("non-browser clients without an Origin header pass")
	}
}
