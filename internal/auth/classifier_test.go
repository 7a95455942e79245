// ABOUTME: Tests for the credential classifier
// ABOUTME: Covers all five kinds, totality over arbitrary input, and session token extraction

package auth

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClassify_Kinds(t *testing.T) {
	longToken := strings.Repeat("x", 200)

	tests := []struct {
		name       string
		authHeader string
		wantKind   Kind
		wantRaw    string
	}{
		{name: "no header", authHeader: "", wantKind: KindNone},
		{name: "not bearer", authHeader: "Basic dXNlcjpwYXNz", wantKind: KindNone},
		{name: "lowercase bearer is not bearer", authHeader: "bearer abc", wantKind: KindNone},
		{name: "bearer with empty value", authHeader: "Bearer ", wantKind: KindNone},
		{name: "local admin sentinel", authHeader: "Bearer local-admin-token", wantKind: KindSentinelLocalAdmin, wantRaw: SentinelLocalAdmin},
		{name: "cookie auth sentinel", authHeader: "Bearer cookie-auth", wantKind: KindSentinelCookieAuth, wantRaw: SentinelCookieAuth},
		{name: "short token is a nonce", authHeader: "Bearer short-nonce-123", wantKind: KindBearerShort, wantRaw: "short-nonce-123"},
		{name: "49 chars is still short", authHeader: "Bearer " + strings.Repeat("a", 49), wantKind: KindBearerShort, wantRaw: strings.Repeat("a", 49)},
		{name: "50 chars is long", authHeader: "Bearer " + strings.Repeat("a", 50), wantKind: KindBearerLong, wantRaw: strings.Repeat("a", 50)},
		{name: "jwt-style token is long", authHeader: "Bearer " + longToken, wantKind: KindBearerLong, wantRaw: longToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := Classify(tt.authHeader, "")
			if cred.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", cred.Kind, tt.wantKind)
			}
			if cred.Raw != tt.wantRaw {
				t.Errorf("Raw = %q, want %q", cred.Raw, tt.wantRaw)
			}
		})
	}
}

// TestClassify_Total feeds arbitrary header garbage through Classify and
// checks that every input lands on exactly one known kind without panicking.
func TestClassify_Total(t *testing.T) {
	known := map[Kind]bool{
		KindNone:               true,
		KindBearerShort:        true,
		KindBearerLong:         true,
		KindSentinelLocalAdmin: true,
		KindSentinelCookieAuth: true,
	}

	rng := rand.New(rand.NewSource(1))
	alphabet := "Bearer \x00\xff{}[]=;,:\"'\\\n\r\tabcdefghijklmnopqrstuvwxyz0123456789"

	for i := 0; i < 2000; i++ {
		n := rng.Intn(300)
		var sb strings.Builder
		for j := 0; j < n; j++ {
			sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		header := sb.String()

		cred := Classify(header, header)
		if !known[cred.Kind] {
			t.Fatalf("input %q classified to unknown kind %q", header, cred.Kind)
		}
	}
}

func TestClassify_RetainsCookieHeader(t *testing.T) {
	cred := Classify("Bearer "+strings.Repeat("t", 80), "wordpress_logged_in=abc; other=1")
	if cred.CookieHeader != "wordpress_logged_in=abc; other=1" {
		t.Errorf("CookieHeader = %q", cred.CookieHeader)
	}

	// Cookie header is retained even when no bearer is present.
	cred = Classify("", "wordpress_logged_in=abc")
	if cred.Kind != KindNone || cred.CookieHeader != "wordpress_logged_in=abc" {
		t.Errorf("cred = %+v", cred)
	}
}

func TestClassify_SessionTokenFromCookie(t *testing.T) {
	cred := Classify("Bearer local-admin-token", "studio_session=tok123; theme=dark")
	if cred.SessionToken != "tok123" {
		t.Errorf("SessionToken = %q, want tok123", cred.SessionToken)
	}

	// Malformed cookie headers must not break classification.
	cred = Classify("Bearer local-admin-token", ";;;=;;;")
	if cred.Kind != KindSentinelLocalAdmin || cred.SessionToken != "" {
		t.Errorf("cred = %+v", cred)
	}
}

func TestClassifyRequest_SessionHeaderFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer local-admin-token")
	req.Header.Set(SessionHeader, "header-token")

	cred := ClassifyRequest(req)
	if cred.SessionToken != "header-token" {
		t.Errorf("SessionToken = %q, want header-token", cred.SessionToken)
	}

	// The cookie wins over the header when both are present.
	req.Header.Set("Cookie", "studio_session=cookie-token")
	cred = ClassifyRequest(req)
	if cred.SessionToken != "cookie-token" {
		t.Errorf("SessionToken = %q, want cookie-token", cred.SessionToken)
	}
}
