package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueParseRoundTrip(t *testing.T) {
	j := &JWTer{Secret: []byte("s3cret"), Issuer: "pickfast", TTL: time.Hour}
	tok, err := j.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	c, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.UID != "user-1" || c.Role != "admin" {
		t.Errorf("claims mismatch: %+v", c)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	j := &JWTer{Secret: []byte("s3cret"), Issuer: "pickfast", TTL: time.Minute,
		Now: func() time.Time { return issued }}
	tok, err := j.Issue("user-1", "user")
	if err != nil {
		t.Fatal(err)
	}
	j.Now = func() time.Time { return issued.Add(10 * time.Minute) }
	if _, err := j.Parse(tok); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignIssuerAndSecret(t *testing.T) {
	j := &JWTer{Secret: []byte("s3cret"), Issuer: "pickfast", TTL: time.Hour}

	other := &JWTer{Secret: []byte("s3cret"), Issuer: "someone-else", TTL: time.Hour}
	tok, _ := other.Issue("u", "user")
	if _, err := j.Parse(tok); err == nil {
		t.Error("expected issuer mismatch to fail")
	}

	forged := &JWTer{Secret: []byte("guess"), Issuer: "pickfast", TTL: time.Hour}
	tok, _ = forged.Issue("u", "admin")
	if _, err := j.Parse(tok); err == nil {
		t.Error("expected signature mismatch to fail")
	}
}

func TestParseRejectsNoneAlg(t *testing.T) {
	j := &JWTer{Secret: []byte("s3cret"), Issuer: "pickfast", TTL: time.Hour}
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UID: "u", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "pickfast"}})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Parse(s); err == nil {
		t.Error("expected alg none to be rejected")
	}
}
