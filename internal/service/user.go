package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/repository"
)

// UserService resolves identities to local accounts, creating them on
// first use.
type UserService struct {
	users     repository.UserRepository
	ledger    *CreditLedger
	superUser func(email string) bool
	logger    *slog.Logger
}

// NewUserService takes the privileged-user rule as a predicate so the
// source of the list (config, database) stays outside the service.
func NewUserService(
	users repository.UserRepository,
	ledger *CreditLedger,
	superUser func(email string) bool,
	logger *slog.Logger,
) *UserService {
	if superUser == nil {
		superUser = func(string) bool { return false }
	}
	return &UserService{
		users:     users,
		ledger:    ledger,
		superUser: superUser,
		logger:    logger,
	}
}

// EnsureUser returns the account for id, creating it if needed. Profile
// fields are refreshed when the identity carries newer values.
func (s *UserService) EnsureUser(ctx context.Context, id model.Identity) (*model.User, error) {
	if id.Subject == "" {
		return nil, apperror.Unauthorized()
	}

	user, err := s.users.GetUserByID(ctx, id.Subject)
	if err == nil {
		s.refreshProfile(ctx, user, id)
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	user = &model.User{
		ID:        id.Subject,
		GitHubID:  id.GitHubID,
		Login:     id.Login,
		Email:     id.Email,
		AvatarURL: id.AvatarURL,
		SuperUser: s.superUser(id.Email),
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// A concurrent request created it first.
		return s.users.GetUserByID(ctx, id.Subject)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("user_id", user.ID),
		slog.Bool("super_user", user.SuperUser),
	)
	return user, nil
}

func (s *UserService) refreshProfile(ctx context.Context, user *model.User, id model.Identity) {
	if user.Login == id.Login && user.Email == id.Email && user.AvatarURL == id.AvatarURL {
		return
	}
	user.Login = id.Login
	user.Email = id.Email
	user.AvatarURL = id.AvatarURL
	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		// Stale profile data is harmless; keep serving the request.
		s.logger.Warn("refreshing user profile",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// UserInfo returns the caller's profile with the current balance.
func (s *UserService) UserInfo(ctx context.Context, id model.Identity) (*model.UserInfo, error) {
	user, err := s.EnsureUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.UserInfo{
		User:    *user,
		Credits: s.ledger.UserCredits(ctx, user.ID),
	}, nil
}
