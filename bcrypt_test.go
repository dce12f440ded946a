package accounts_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := accounts.NewBcryptHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{name: "short", password: "secret"},
		{name: "unicode", password: "contraseña-segura"},
		{name: "at bcrypt limit", password: strings.Repeat("a", 72)},
		{name: "over bcrypt limit", password: strings.Repeat("b", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := h.Hash(tt.password)
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, digest)
			assert.True(t, h.Verify(tt.password, digest))
			assert.False(t, h.Verify(tt.password+"x", digest))
		})
	}
}

func TestBcryptHasherDistinguishesLongPasswords(t *testing.T) {
	h := accounts.NewBcryptHasher(bcrypt.MinCost)

	base := strings.Repeat("z", 80)
	digest, err := h.Hash(base + "1")
	require.NoError(t, err)

	assert.False(t, h.Verify(base+"2", digest))
}

func TestBcryptHasherSaltsEachDigest(t *testing.T) {
	h := accounts.NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("secret")
	require.NoError(t, err)
	b, err := h.Hash("secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBcryptHasherRejectsGarbageDigest(t *testing.T) {
	h := accounts.NewBcryptHasher(0)
	assert.False(t, h.Verify("secret", "not-a-digest"))
	assert.False(t, h.Verify("secret", ""))
}

func TestArgon2Hasher(t *testing.T) {
	params := accounts.DefaultArgon2Params
	params.Memory = 8 * 1024
	params.Iterations = 1

	h, err := accounts.NewArgon2Hasher(params)
	require.NoError(t, err)

	digest, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"))

	assert.True(t, h.Verify("correct horse", digest))
	assert.False(t, h.Verify("wrong horse", digest))
	assert.False(t, h.Verify("correct horse", "$argon2id$broken"))
}
