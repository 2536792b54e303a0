package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/auth"
)

func newTestAuthService(t *testing.T, repo *fakeUserRepo, superUsers ...string) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	isSuper := func(email string) bool {
		for _, s := range superUsers {
			if s == email {
				return true
			}
		}
		return false
	}
	ledger := NewCreditLedger(newFakeLogoRepo(), newFakeOrderRepo(), defaultCredits(), testLogger())
	users := NewUserService(repo, ledger, isSuper, testLogger())
	return NewAuthService(users, ts, testLogger())
}

// =========================================================================
// LoginGitHub TESTS
// =========================================================================

func TestLoginGitHub_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	result, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Email:     "octocat@github.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}

	if result.Token == "" {
		t.Fatal("LoginGitHub() returned empty Token")
	}
	if result.User.ID != "gh_42" {
		t.Errorf("User.ID = %q, want gh_42", result.User.ID)
	}
	if result.User.Login != "octocat" {
		t.Errorf("User.Login = %q, want octocat", result.User.Login)
	}
	if _, err := repo.GetUserByID(context.Background(), "gh_42"); err != nil {
		t.Errorf("user not persisted: %v", err)
	}
}

func TestLoginGitHub_ExistingUserGetsUpdatedProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.LoginGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "old-login", Email: "old@email.com"}); err != nil {
		t.Fatalf("first login error: %v", err)
	}
	result, err := svc.LoginGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "new-login", Email: "new@email.com"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if result.User.Login != "new-login" {
		t.Errorf("User.Login after update = %q, want new-login", result.User.Login)
	}
	stored, _ := repo.GetUserByID(ctx, "gh_99")
	if stored.Email != "new@email.com" {
		t.Errorf("stored Email = %q, want new@email.com", stored.Email)
	}
}

func TestLoginGitHub_TokenCarriesIdentity(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	result, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "testuser", Email: "t@example.com"})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}

	id, err := svc.tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if id.Subject != result.User.ID || id.Email != "t@example.com" || id.Login != "testuser" {
		t.Errorf("identity = %+v, want subject %s", id, result.User.ID)
	}
}

func TestLoginGitHub_SuperUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, "boss@example.com")

	result, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "boss", Email: "boss@example.com"})
	if err != nil {
		t.Fatalf("LoginGitHub() error = %v", err)
	}
	if !result.User.SuperUser {
		t.Error("SuperUser = false, want true")
	}
}

func TestLoginGitHub_NilGitHubUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.LoginGitHub(context.Background(), nil)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("LoginGitHub() error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginGitHub_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errBoom
	svc := newTestAuthService(t, repo)

	_, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("LoginGitHub() error = %v, want repository error", err)
	}
}
