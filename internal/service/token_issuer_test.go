package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_AccessTokenRoundTrip(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	token, err := f.services.Tokens.IssueAccessToken(userID, time.Minute)
	require.NoError(t, err)

	got, err := f.services.Tokens.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenIssuer_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	valid, err := f.services.Tokens.IssueAccessToken(userID, time.Minute)
	require.NoError(t, err)

	expired, err := f.services.Tokens.IssueAccessToken(userID, -time.Minute)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID.String()}).
		SignedString([]byte("test-jwt-secret-key-for-testing-only"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-jwt-secret-key-for-testing-only"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"tampered", tamper(valid)},
		{"other secret", otherSecret},
		{"alg none", unsigned},
		{"no expiry", noExpiry},
		{"subject not a uuid", badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.services.Tokens.VerifyAccessToken(tt.token)
			assert.ErrorIs(t, err, domain.ErrPleaseAuthenticate)
		})
	}
}

func TestTokenIssuer_IssueRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "refresh@example.com")

	issued, err := f.services.Tokens.IssueRefreshToken(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, issued.Record.UserID)
	assert.WithinDuration(t, time.Now().Add(200*24*time.Hour), issued.Record.ExpiresAt, time.Minute)
	assert.NotEmpty(t, issued.Token)

	stored, err := f.repos.RefreshToken.GetByID(ctx, issued.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.Record.ID, stored.ID)
}

func TestTokenIssuer_ExchangeRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "exchange@example.com")

	t.Run("valid record yields a short-lived token", func(t *testing.T) {
		issued, err := f.services.Tokens.IssueRefreshToken(ctx, user.ID)
		require.NoError(t, err)

		token, err := f.services.Tokens.ExchangeRefreshToken(ctx, issued.Record.ID.String())
		require.NoError(t, err)

		claims := &jwt.RegisteredClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject)
		assert.WithinDuration(t, time.Now().Add(15*time.Second), claims.ExpiresAt.Time, 2*time.Second)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := f.services.Tokens.ExchangeRefreshToken(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrRefreshTokenNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.services.Tokens.ExchangeRefreshToken(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrRefreshTokenNotFound)
	})

	t.Run("record whose user is gone", func(t *testing.T) {
		orphan, err := f.repos.RefreshToken.Generate(ctx, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = f.services.Tokens.ExchangeRefreshToken(ctx, orphan.ID.String())
		assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
	})

	t.Run("expired record is swept and rejected", func(t *testing.T) {
		stale, err := f.repos.RefreshToken.Generate(ctx, user.ID, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		_, err = f.services.Tokens.ExchangeRefreshToken(ctx, stale.ID.String())
		assert.ErrorIs(t, err, domain.ErrRefreshTokenNotFound)

		_, err = f.repos.RefreshToken.GetByID(ctx, stale.ID)
		assert.Error(t, err)
	})
}

// tamper swaps one character in the middle of the signature segment.
func tamper(token string) string {
	b := []byte(token)
	i := len(b) - 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
