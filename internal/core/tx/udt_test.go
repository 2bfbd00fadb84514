package tx

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestUint128Layout(t *testing.T) {
	b, err := EncodeUint128(big.NewInt(0x0102))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, b)

	_, err = EncodeUint128(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrUdtAmountRange)
	_, err = EncodeUint128(new(big.Int).Lsh(big.NewInt(1), 128))
	assert.ErrorIs(t, err, ErrUdtAmountRange)

	_, err = DecodeUdtAmount(make([]byte, 15))
	assert.ErrorIs(t, err, ErrInvalidUdtData)

	withTail := append(b, 0xff, 0xff)
	v, err := DecodeUdtAmount(withTail)
	require.NoError(t, err)
	assert.Equal(t, int64(0x0102), v.Int64())
}

func TestUint128RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hi := rapid.Uint64().Draw(t, "hi").(uint64)
		lo := rapid.Uint64().Draw(t, "lo").(uint64)
		v := new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64)
		v.Or(v, new(big.Int).SetUint64(lo))
		b, err := EncodeUint128(v)
		if err != nil {
			t.Fatalf("encode %s: %v", v, err)
		}
		if got := DecodeUint128(b); got.Cmp(v) != 0 {
			t.Fatalf("round trip %s -> %s", v, got)
		}
	})
}
