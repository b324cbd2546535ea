package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/kpressOrg/user-service/internal/repository"
	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/logging"
	"github.com/kpressOrg/user-service/shared/models"
	"github.com/kpressOrg/user-service/shared/token"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is a bcrypt hash (cost 10) compared against when the username is
// unknown, so both failure paths cost one comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z0vZ1bY6aX0iY0yQ1uJ1eV6W"

type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type PasswordVerifier interface {
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(sub token.Subject) (string, error)
	Verify(tokenString string) (*token.Claims, error)
}

// AuthQueryService handles login and token verification. Neither mutates
// stored state, so there is no command counterpart.
type AuthQueryService struct {
	users    UserFinder
	verifier PasswordVerifier
	tokens   TokenIssuer
}

func NewAuthQueryService(users UserFinder, verifier PasswordVerifier, tokens TokenIssuer) *AuthQueryService {
	return &AuthQueryService{users: users, verifier: verifier, tokens: tokens}
}

func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (*cqrs.LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, cmd.Username)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		s.verifier.Verify(cmd.Password, dummyHash)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.verifier.Verify(cmd.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(token.Subject{ID: user.ID, Username: user.Username})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("user logged in", "user_id", user.ID)
	return &cqrs.LoginResult{Token: signed, UserID: user.ID}, nil
}

// VerifyToken returns the identity carried by a token issued by Login.
func (s *AuthQueryService) VerifyToken(_ context.Context, cmd cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error) {
	claims, err := s.tokens.Verify(cmd.Token)
	if err != nil {
		return nil, err
	}
	identity := &cqrs.TokenIdentity{UserID: claims.ID, Username: claims.Username}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
