package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"equilo/internal/auth"
	"equilo/internal/core"
	"equilo/internal/storage"
	"equilo/internal/storage/storagetest"
)

func newAuthService() (*AuthService, *storagetest.MemStore) {
	store := storagetest.New()
	jwt := auth.NewJWTManager("0123456789abcdef0123456789abcdef", 15*time.Minute, 24*time.Hour)
	return NewAuthService(store, jwt), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice", "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Error("registered user has no ID")
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in clear")
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Error("registration must issue a token pair")
	}

	login, err := svc.Login(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Access == "" {
		t.Error("login issued no access token")
	}

	me, err := svc.Me(ctx, user.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Username != "alice" || me.Email != "alice@example.com" {
		t.Errorf("Me = %+v", me)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"empty username", "  ", "a@example.com", "long enough", core.ErrEmptyName},
		{"email without at sign", "bob", "not-an-email", "long enough", core.ErrInvalidEmail},
		{"empty email", "bob", "", "long enough", core.ErrInvalidEmail},
		{"weak password", "bob", "bob@example.com", "short", auth.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "long enough"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, _, err := svc.Register(ctx, "alice", "other@example.com", "long enough")
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate username: %v, want conflict", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "long enough"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown user and wrong password must be indistinguishable.
	_, errUnknown := svc.Login(ctx, "nobody", "long enough")
	_, errWrong := svc.Login(ctx, "alice", "wrong password")
	if !errors.Is(errUnknown, auth.ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", errUnknown)
	}
	if !errors.Is(errWrong, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", errWrong)
	}
}

func TestRefresh(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "alice", "alice@example.com", "long enough")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	fresh, err := svc.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if fresh.Access == "" || fresh.Refresh == "" {
		t.Error("refresh issued an incomplete pair")
	}

	if _, err := svc.Refresh(ctx, pair.Access); !errors.Is(err, auth.ErrWrongTokenType) {
		t.Errorf("access token accepted for refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); err == nil {
		t.Error("garbage refresh token accepted")
	}
}
