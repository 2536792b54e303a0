package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
)

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{ID: "gh_1", GitHubID: 1, Login: "octo", Email: "octo@example.com", SuperUser: true}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := db.GetUserByID(ctx, "gh_1")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Login != "octo" || got.Email != "octo@example.com" || got.GitHubID != 1 {
		t.Errorf("GetUserByID() = %+v", got)
	}
	if !got.SuperUser {
		t.Error("SuperUser flag was not persisted")
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "gh_1")

	err := db.CreateUser(context.Background(), &model.User{ID: "gh_1"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() duplicate error = %v, want ErrConflict", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "gh_404")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "gh_1")

	u.Login = "renamed"
	u.AvatarURL = "https://avatars.example.com/1"
	if err := db.UpdateUserProfile(ctx, u); err != nil {
		t.Fatalf("UpdateUserProfile() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, "gh_1")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Login != "renamed" || got.AvatarURL != "https://avatars.example.com/1" {
		t.Errorf("profile not updated: %+v", got)
	}

	err = db.UpdateUserProfile(ctx, &model.User{ID: "gh_404"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUserProfile() missing user error = %v, want ErrNotFound", err)
	}
}
