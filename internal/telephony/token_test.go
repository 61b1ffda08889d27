package telephony

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("ACxxxx", "SKxxxx", "test-secret", "APxxxx", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("agent-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	identity, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity != "agent-42" {
		t.Errorf("identity = %q, want agent-42", identity)
	}
}

func TestTokenIssuer_ClaimsShape(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("agent-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var claims accessTokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := parsed.Header["cty"]; got != tokenContentType {
		t.Errorf("cty header = %v, want %q", got, tokenContentType)
	}
	if claims.Issuer != "SKxxxx" || claims.Subject != "ACxxxx" {
		t.Errorf("iss = %q, sub = %q", claims.Issuer, claims.Subject)
	}
	if !strings.HasPrefix(claims.ID, "SKxxxx-") {
		t.Errorf("jti = %q", claims.ID)
	}
	voice, ok := claims.Grants["voice"].(map[string]any)
	if !ok {
		t.Fatalf("grants = %+v", claims.Grants)
	}
	outgoing, ok := voice["outgoing"].(map[string]any)
	if !ok || outgoing["application_sid"] != "APxxxx" {
		t.Errorf("voice grant = %+v", voice)
	}
}

func TestTokenIssuer_RejectsForeignToken(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewTokenIssuer("ACxxxx", "SKxxxx", "other-secret", "", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, err := other.Issue("agent-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := issuer.Verify(token); err == nil {
		t.Error("Verify accepted a token signed with a different secret")
	}
}

func TestTokenIssuer_Validation(t *testing.T) {
	if _, err := NewTokenIssuer("", "SK", "secret", "", 0); err == nil {
		t.Error("NewTokenIssuer accepted empty account SID")
	}

	issuer := newTestIssuer(t)
	if _, err := issuer.Issue(""); err == nil {
		t.Error("Issue accepted empty identity")
	}
}
