package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newVerifier(t *testing.T, secret string, leeway time.Duration, now time.Time) *HMACTokenVerifier {
	t.Helper()
	verifier, err := NewHMACTokenVerifier(secret, leeway)
	if err != nil {
		t.Fatalf("NewHMACTokenVerifier: %v", err)
	}
	verifier.WithClock(func() time.Time { return now })
	return verifier
}

func TestHMACTokenVerifierValidToken(t *testing.T) {
	fixedNow := time.Unix(1700000000, 0)
	verifier := newVerifier(t, "secret", time.Second, fixedNow)
	token, err := verifier.Issue("booth-7", 30*time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "booth-7" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(fixedNow.Add(30 * time.Second)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestHMACTokenVerifierRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0)
	issuer := newVerifier(t, "secret", 0, issuedAt)
	token, err := issuer.Issue("booth-7", time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	verifier := newVerifier(t, "secret", 0, issuedAt.Add(time.Minute))
	if _, err := verifier.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestHMACTokenVerifierRejectsInvalidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token, err := newVerifier(t, "other-secret", 0, now).Issue("booth-7", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newVerifier(t, "secret", time.Second, now).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACTokenVerifierRejectsForeignTokens(t *testing.T) {
	now := time.Unix(1700000000, 0)
	verifier := newVerifier(t, "secret", 0, now)
	sign := func(method jwt.SigningMethod, claims jwt.RegisteredClaims, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	expiry := jwt.NewNumericDate(now.Add(time.Minute))

	cases := map[string]string{
		"wrong audience": sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "a", Audience: jwt.ClaimStrings{"other"}, ExpiresAt: expiry}, []byte("secret")),
		"no expiry":      sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "a", Audience: jwt.ClaimStrings{SpectatorAudience}}, []byte("secret")),
		"no subject":     sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Audience: jwt.ClaimStrings{SpectatorAudience}, ExpiresAt: expiry}, []byte("secret")),
		"hs512":          sign(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "a", Audience: jwt.ClaimStrings{SpectatorAudience}, ExpiresAt: expiry}, []byte("secret")),
		"garbage":        "not.a.token",
		"empty":          "  ",
	}
	for name, token := range cases {
		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestHMACTokenVerifierRequiresSecret(t *testing.T) {
	if _, err := NewHMACTokenVerifier("   ", time.Second); err == nil {
		t.Fatal("expected an error for an empty secret")
	}
	var verifier *HMACTokenVerifier
	if _, err := verifier.Issue("a", time.Minute); err == nil {
		t.Fatal("nil verifier should refuse to issue")
	}
	verifier = newVerifier(t, "secret", 0, time.Unix(0, 0))
	if _, err := verifier.Issue(" ", time.Minute); err == nil {
		t.Fatal("empty subject should be refused")
	}
}
