package auth

import (
	"errors"
	"testing"
	"time"

	"equilo/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testManager() *JWTManager {
	return NewJWTManager(testSecret, 15*time.Minute, 24*time.Hour)
}

func TestTokenPairRoundTrip(t *testing.T) {
	m := testManager()
	user := &core.User{ID: 7, Username: "alice"}

	pair, err := m.GeneratePair(user)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" || pair.Access == pair.Refresh {
		t.Fatal("expected two distinct non-empty tokens")
	}

	claims, err := m.ValidateAccess(pair.Access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}

	refresh, err := m.ValidateRefresh(pair.Refresh)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if refresh.UserID != 7 {
		t.Errorf("refresh claims = %+v", refresh)
	}
}

func TestTokenTypeEnforced(t *testing.T) {
	m := testManager()
	pair, err := m.GeneratePair(&core.User{ID: 1, Username: "bob"})
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	if _, err := m.ValidateAccess(pair.Refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, err := m.ValidateRefresh(pair.Access); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
}

func TestValidateRejectsTampering(t *testing.T) {
	m := testManager()
	pair, _ := m.GeneratePair(&core.User{ID: 1, Username: "bob"})

	if _, err := m.ValidateAccess(pair.Access + "x"); err == nil {
		t.Error("tampered token accepted")
	}

	other := NewJWTManager("another-secret-another-secret-32", 15*time.Minute, 24*time.Hour)
	if _, err := other.ValidateAccess(pair.Access); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute, -time.Minute)
	pair, err := m.GeneratePair(&core.User{ID: 1, Username: "bob"})
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if _, err := m.ValidateAccess(pair.Access); err == nil {
		t.Error("expired token accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("password stored in clear")
	}

	if err := CheckPassword(hash, "correct horse battery"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: %v", err)
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}
