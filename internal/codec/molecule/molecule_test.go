package molecule

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBytes(t *testing.T) {
	require.Equal(t, "00000000", hex.EncodeToString(Bytes(nil)))
	require.Equal(t, "03000000010203", hex.EncodeToString(Bytes([]byte{1, 2, 3})))
}

func TestDynVecEmpty(t *testing.T) {
	require.Equal(t, "04000000", hex.EncodeToString(DynVec(nil)))

	items, err := UnpackDynVec(DynVec(nil))
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestTableLayout(t *testing.T) {
	// table { a: byte, b: Bytes } with a = 0x01, b = [0xaa]
	got := Table([]byte{0x01}, Bytes([]byte{0xaa}))
	require.Equal(t, "120000000c0000000d00000001"+"01000000aa", hex.EncodeToString(got))
}

func TestOption(t *testing.T) {
	require.Empty(t, Option(nil))
	require.Equal(t, []byte{1}, Option([]byte{1}))
}

func TestUnpackTableFieldCount(t *testing.T) {
	_, err := UnpackTable(Table([]byte{1}), 2)
	require.ErrorIs(t, err, ErrFieldCount)
}

func TestUnpackRejectsCorruption(t *testing.T) {
	good := Table([]byte{1, 2}, []byte{3})

	_, err := UnpackDynVec(good[:len(good)-1])
	require.ErrorIs(t, err, ErrInvalidHeader)

	_, err = UnpackDynVec([]byte{1, 2})
	require.ErrorIs(t, err, ErrTruncated)

	_, err = UnpackBytes([]byte{5, 0, 0, 0, 1})
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDynVecRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n").(int)
		items := make([][]byte, n)
		for i := range items {
			items[i] = rapid.SliceOfN(rapid.Byte(), 0, 40).Draw(t, "item").([]byte)
		}
		got, err := UnpackDynVec(DynVec(items))
		require.NoError(t, err)
		require.Len(t, got, n)
		for i := range items {
			require.Equal(t, len(items[i]), len(got[i]))
			if len(items[i]) > 0 {
				require.Equal(t, items[i], got[i])
			}
		}
	})
}

func TestBytesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.SliceOfN(rapid.Byte(), 0, 100).Draw(t, "b").([]byte)
		got, err := UnpackBytes(Bytes(b))
		require.NoError(t, err)
		require.Equal(t, len(b), len(got))
		if len(b) > 0 {
			require.Equal(t, b, got)
		}
	})
}
