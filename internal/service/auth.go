package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/auth"
	"github.com/sakif/ailogo/internal/model"
)

// AuthService turns a completed GitHub login into a session.
type AuthService struct {
	users  *UserService
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users *UserService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the account and the signed session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginGitHub ensures an account exists for the GitHub user and issues a
// session token carrying its identity.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, apperror.Unauthorized()
	}
	id := gh.Identity()

	user, err := s.users.EnsureUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	token, err := s.tokens.Generate(id)
	if err != nil {
		return nil, fmt.Errorf("login: issuing token: %w", err)
	}

	s.logger.Info("user authenticated",
		slog.String("user_id", user.ID),
		slog.String("login", user.Login),
	)
	return &AuthResult{User: user, Token: token}, nil
}
