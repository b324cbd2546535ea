package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("test-secret", 0)

	signed, err := iss.Issue(Subject{ID: "8d3c1e7a-0000-4000-8000-000000000001", Username: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := iss.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "8d3c1e7a-0000-4000-8000-000000000001", claims.ID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, claims.ID, claims.Subject)
	require.WithinDuration(t, claims.IssuedAt.Add(DefaultTTL), claims.ExpiresAt.Time, time.Second)
}

func TestIssue_MissingSecret(t *testing.T) {
	iss := NewIssuer("", time.Hour)

	_, err := iss.Issue(Subject{ID: "1", Username: "alice"})
	require.ErrorIs(t, err, ErrMissingSecret)

	_, err = iss.Verify("anything")
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerify_Rejects(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	good, err := iss.Issue(Subject{ID: "1", Username: "alice"})
	require.NoError(t, err)

	expired := NewIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(Subject{ID: "1", Username: "alice"})
	require.NoError(t, err)

	other, err := NewIssuer("other-secret", time.Hour).Issue(Subject{ID: "1", Username: "alice"})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "1", Username: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	mallory, err := iss.Issue(Subject{ID: "2", Username: "mallory"})
	require.NoError(t, err)
	gp, mp := strings.Split(good, "."), strings.Split(mallory, ".")
	tampered := strings.Join([]string{gp[0], mp[1], gp[2]}, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"expired", old},
		{"wrong secret", other},
		{"alg none", none},
		{"tampered", tampered},
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"truncated", strings.SplitN(good, ".", 2)[0]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Verify(tt.token)
			require.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}
