package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	tok, err := NewAccessToken(secret, 42, "sales", 15)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"].(float64) != 42 {
		t.Errorf("sub = %v, want 42", claims["sub"])
	}
	if claims["role"] != "sales" {
		t.Errorf("role = %v, want sales", claims["role"])
	}
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("right", 1, "admin", 15)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("wrong"), nil
	})
	if err == nil && parsed.Valid {
		t.Error("token validated with the wrong secret")
	}
}

func TestRefreshTokenUniqueAndHashed(t *testing.T) {
	a, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Raw == b.Raw {
		t.Error("two refresh tokens are identical")
	}
	if len(a.Raw) != 96 {
		t.Errorf("raw length = %d, want 96", len(a.Raw))
	}
	if HashRefreshRaw(a.Raw) == a.Raw {
		t.Error("hash equals raw token")
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) {
		t.Error("hash is not deterministic")
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" {
		t.Error("password stored in clear")
	}
	if !VerifyPassword(hash, "s3cret!") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
