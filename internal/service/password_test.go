package service_test

import (
	"strings"
	"testing"

	"github.com/dom/task-manager/internal/config"
	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher(t *testing.T) {
	for _, name := range []string{config.HasherBcrypt, config.HasherArgon2id} {
		t.Run(name, func(t *testing.T) {
			cfg := testutil.TestConfig()
			cfg.PasswordHasher = name

			hasher, err := service.NewPasswordHasher(cfg)
			require.NoError(t, err)

			hash, err := hasher.Hash("correct horse")
			require.NoError(t, err)
			assert.NotEqual(t, "correct horse", hash)

			ok, err := hasher.Compare(hash, "correct horse")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = hasher.Compare(hash, "wrong horse")
			require.NoError(t, err)
			assert.False(t, ok)

			again, err := hasher.Hash("correct horse")
			require.NoError(t, err)
			assert.NotEqual(t, hash, again, "hashes should be salted")
		})
	}
}

func TestPasswordHasher_Argon2idFormat(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.PasswordHasher = config.HasherArgon2id

	hasher, err := service.NewPasswordHasher(cfg)
	require.NoError(t, err)

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
}

func TestNewPasswordHasher_Invalid(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.PasswordHasher = "md5"
	_, err := service.NewPasswordHasher(cfg)
	assert.Error(t, err)

	cfg = testutil.TestConfig()
	cfg.BcryptCost = 99
	_, err = service.NewPasswordHasher(cfg)
	assert.Error(t, err)
}
