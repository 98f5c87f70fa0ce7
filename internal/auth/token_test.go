package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	tk := NewTokens("test-secret")

	signed, err := tk.Mint(42, "alice")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if strings.Count(signed, ".") != 2 {
		t.Errorf("token %q is not a three-part JWT", signed)
	}

	sub, err := tk.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Errorf("subject = %q, want alice", sub)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, _ := NewTokens("secret-a").Mint(1, "alice")

	if _, err := NewTokens("secret-b").Verify(signed); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestVerifyExpired(t *testing.T) {
	tk := NewTokens("test-secret")
	claims := jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := tk.Verify(signed); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	tk := NewTokens("test-secret")
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := tk.Verify(signed); err == nil {
		t.Error("expected error for alg=none token")
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	tk := NewTokens("test-secret")
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))

	if _, err := tk.Verify(signed); err == nil {
		t.Error("expected error for token without subject")
	}
}
