package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kpressOrg/user-service/internal/repository"
	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/models"
	"github.com/kpressOrg/user-service/shared/token"
	"github.com/kpressOrg/user-service/shared/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ---- mock implementations ----

type mockFinder struct {
	findFn func(context.Context, string) (*models.User, error)
}

func (m *mockFinder) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findFn != nil {
		return m.findFn(ctx, username)
	}
	return nil, errors.New("not configured")
}

// countingVerifier records every hash it was asked to compare against.
type countingVerifier struct {
	utils.PasswordHasher
	hashes []string
}

func (v *countingVerifier) Verify(password, hash string) bool {
	v.hashes = append(v.hashes, hash)
	return v.PasswordHasher.Verify(password, hash)
}

// ---- helpers ----

func storedAlice(t *testing.T) *models.User {
	t.Helper()
	hash, err := utils.PasswordHasher{Cost: bcrypt.MinCost}.Hash("secret1")
	require.NoError(t, err)
	return &models.User{ID: "6f1c2a52-9d7e-4b1e-8a43-3f0f5d2c9b10", Username: "alice", PasswordHash: hash}
}

func finderFor(users ...*models.User) *mockFinder {
	return &mockFinder{findFn: func(_ context.Context, username string) (*models.User, error) {
		for _, u := range users {
			if u.Username == username {
				return u, nil
			}
		}
		return nil, repository.ErrUserNotFound
	}}
}

// ---- tests ----

func TestLogin(t *testing.T) {
	alice := storedAlice(t)
	issuer := token.NewIssuer("test-secret", time.Hour)
	svc := NewAuthQueryService(finderFor(alice), utils.PasswordHasher{}, issuer)

	res, err := svc.Login(context.Background(), cqrs.LoginCommand{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, alice.ID, res.UserID)

	claims, err := issuer.Verify(res.Token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, claims.ID)
	require.Equal(t, "alice", claims.Username)
	require.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	alice := storedAlice(t)
	verifier := &countingVerifier{}
	svc := NewAuthQueryService(finderFor(alice), verifier, token.NewIssuer("test-secret", 0))

	_, errWrongPassword := svc.Login(context.Background(), cqrs.LoginCommand{Username: "alice", Password: "nope"})
	_, errUnknownUser := svc.Login(context.Background(), cqrs.LoginCommand{Username: "bob", Password: "secret1"})

	require.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownUser, ErrInvalidCredentials)
	require.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())

	// one comparison per attempt, the unknown user against the dummy hash
	require.Equal(t, []string{alice.PasswordHash, dummyHash}, verifier.hashes)
}

func TestLogin_StorageError(t *testing.T) {
	svc := NewAuthQueryService(&mockFinder{findFn: func(context.Context, string) (*models.User, error) {
		return nil, errors.New("connection reset")
	}}, utils.PasswordHasher{}, token.NewIssuer("test-secret", 0))

	_, err := svc.Login(context.Background(), cqrs.LoginCommand{Username: "alice", Password: "pw"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorContains(t, err, "connection reset")
}

func TestLogin_MissingSecret(t *testing.T) {
	svc := NewAuthQueryService(finderFor(storedAlice(t)), utils.PasswordHasher{}, token.NewIssuer("", 0))
	_, err := svc.Login(context.Background(), cqrs.LoginCommand{Username: "alice", Password: "secret1"})
	require.ErrorIs(t, err, token.ErrMissingSecret)
}

func TestVerifyToken(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	svc := NewAuthQueryService(finderFor(), utils.PasswordHasher{}, issuer)

	signed, err := issuer.Issue(token.Subject{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	identity, err := svc.VerifyToken(context.Background(), cqrs.VerifyTokenCommand{Token: signed})
	require.NoError(t, err)
	require.Equal(t, "u-1", identity.UserID)
	require.Equal(t, "alice", identity.Username)
	require.WithinDuration(t, time.Now().Add(time.Hour), identity.ExpiresAt, 5*time.Second)

	other := token.NewIssuer("other-secret", time.Hour)
	forged, err := other.Issue(token.Subject{ID: "u-1", Username: "alice"})
	require.NoError(t, err)
	_, err = svc.VerifyToken(context.Background(), cqrs.VerifyTokenCommand{Token: forged})
	require.ErrorIs(t, err, token.ErrInvalidToken)
}
