package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyToken(t *testing.T) {
	token := "s3cr3t-api-token"

	hash, err := HashTokenWithCost(token, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost() error = %v", err)
	}
	if hash == token {
		t.Fatal("hash must not equal the token itself")
	}

	if err := VerifyToken(token, hash); err != nil {
		t.Errorf("VerifyToken() with correct token error = %v", err)
	}

	if err := VerifyToken("wrong-token", hash); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("VerifyToken() with wrong token error = %v, want ErrTokenMismatch", err)
	}
}

func TestHashTokenValidation(t *testing.T) {
	if _, err := HashToken(""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("HashToken(\"\") error = %v, want ErrEmptyToken", err)
	}

	long := strings.Repeat("x", MaxTokenLength+1)
	if _, err := HashToken(long); !errors.Is(err, ErrTokenTooLong) {
		t.Errorf("HashToken(long) error = %v, want ErrTokenTooLong", err)
	}
}

func TestVerifyTokenValidation(t *testing.T) {
	if err := VerifyToken("", "some-hash"); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("VerifyToken with empty token error = %v, want ErrEmptyToken", err)
	}

	if err := VerifyToken("token", ""); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("VerifyToken with empty hash error = %v, want ErrInvalidHash", err)
	}

	if err := VerifyToken("token", "not-a-bcrypt-hash"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("VerifyToken with garbage hash error = %v, want ErrInvalidHash", err)
	}
}

func TestCheckTokenMatch(t *testing.T) {
	hash, err := HashTokenWithCost("token", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost() error = %v", err)
	}

	if !CheckTokenMatch("token", hash) {
		t.Error("CheckTokenMatch() with correct token = false")
	}
	if CheckTokenMatch("other", hash) {
		t.Error("CheckTokenMatch() with wrong token = true")
	}
}

func TestGetHashCost(t *testing.T) {
	hash, err := HashTokenWithCost("token", 6)
	if err != nil {
		t.Fatalf("HashTokenWithCost() error = %v", err)
	}

	cost, err := GetHashCost(hash)
	if err != nil {
		t.Fatalf("GetHashCost() error = %v", err)
	}
	if cost != 6 {
		t.Errorf("GetHashCost() = %d, want 6", cost)
	}

	if _, err := GetHashCost(""); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("GetHashCost(\"\") error = %v, want ErrInvalidHash", err)
	}
}
