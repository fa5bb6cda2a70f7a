package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"zooops/backend/internal/domain"
	"zooops/backend/internal/store/memory"
)

func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("round-trip-secret", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "Manager", Password: "manager123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "manager" {
		t.Fatalf("expected role manager, got %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "manager" || actor.Role != "manager" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := NewAuthManager("tamper-secret", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "cashier123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tampered := resp.AccessToken[:len(resp.AccessToken)-2] + "xx"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour, memory.NewSeeded())
	verifier := NewAuthManager("secret-two", time.Hour, memory.NewSeeded())

	resp, err := issuer.Login(domain.LoginRequest{Username: "keeper", Password: "keeper123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("expiry-secret", time.Hour, memory.NewSeeded())

	token, err := auth.sign("manager", "manager", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := memory.NewSeeded()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username: "former",
		Password: mustHashPassword(t, "former123"),
		Role:     "keeper",
		Active:   false,
	}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	auth := NewAuthManager("inactive-secret", time.Hour, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "former", Password: "former123"}); err == nil {
		t.Fatal("expected inactive account login to fail")
	}
}

func TestLoginUpgradesPlainTextPassword(t *testing.T) {
	repo := memory.NewSeeded()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username: "legacy",
		Password: "legacy-pass",
		Role:     "guide",
		Active:   true,
	}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	auth := NewAuthManager("legacy-secret", time.Hour, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "legacy-pass"}); err != nil {
		t.Fatalf("login with plain-text stored password failed: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	for _, user := range users {
		if user.Username == "legacy" {
			if !strings.HasPrefix(user.Password, "$2") {
				t.Fatalf("expected stored password to be upgraded to bcrypt, got %q", user.Password)
			}
			return
		}
	}
	t.Fatal("legacy user not found")
}

func TestVerifyPasswordRejectsPlainStored(t *testing.T) {
	if verifyPassword("plain-text", "plain-text") {
		t.Fatal("plain-text stored credentials must never verify")
	}
	if verifyPassword("", "anything") {
		t.Fatal("empty stored credential must never verify")
	}
}
