package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytes(t *testing.T) {
	for _, n := range []int{1, 16, 32} {
		b, err := RandomBytes(n)
		require.NoError(t, err)
		assert.Len(t, b, n)
	}

	b, err := RandomBytes(0)
	require.NoError(t, err)
	assert.Nil(t, b)

	b1, _ := RandomBytes(32)
	b2, _ := RandomBytes(32)
	assert.False(t, bytes.Equal(b1, b2))
}

func TestRandomSecretKey(t *testing.T) {
	sk, err := RandomSecretKey()
	require.NoError(t, err)
	defer sk.Close()
	assert.Equal(t, SecretKeySize, sk.Len())

	pub, err := PublicKey(sk)
	require.NoError(t, err)
	assert.Len(t, pub, 33)
}

func TestParseSecretKey(t *testing.T) {
	valid := strings.Repeat("01", 32)

	sk, err := ParseSecretKey("0x" + valid)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{1}, 32), sk.Data())

	_, err = ParseSecretKey(valid[:62])
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = ParseSecretKey(strings.Repeat("zz", 32))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = ParseSecretKey(strings.Repeat("00", 32))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	sk.Close()
	_, err = PublicKey(sk)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}
