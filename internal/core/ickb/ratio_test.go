package ickb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

func headerAt(ar uint64) cell.Header {
	return cell.Header{Dao: cell.DaoField(0, ar, 0, 0)}
}

func TestRatioAt(t *testing.T) {
	r := RatioAt(headerAt(AR0), false)
	assert.Equal(t, Ratio{CkbScale: AR0, UdtScale: AR0}, r)

	r = RatioAt(headerAt(AR0), true)
	assert.Equal(t, AR0, r.CkbScale)
	assert.Equal(t, AR0+8_200_000_000_000, r.UdtScale)
	assert.True(t, r.IsPopulated())
	assert.True(t, Ratio{}.IsEmpty())
}

func TestConvert(t *testing.T) {
	r := Ratio{CkbScale: AR0, UdtScale: AR0 * 11 / 10}
	ckb := big.NewInt(1_100)
	assert.Equal(t, big.NewInt(1_000), Convert(true, ckb, r))
	assert.Equal(t, big.NewInt(1_100), Convert(false, big.NewInt(1_000), r))
	assert.Equal(t, int64(0), Convert(true, ckb, Ratio{}).Int64())
}

func TestDepositValue(t *testing.T) {
	cases := []struct {
		name       string
		unoccupied ckbamount.Shannons
		ar         uint64
		expected   int64
	}{
		{"genesis", ckbamount.FromCKB(1_000), AR0, 1_000 * 100_000_000},
		{"at soft cap", ckbamount.FromCKB(100_000), AR0, SoftCap},
		{"above soft cap", ckbamount.FromCKB(200_000), AR0, 190_000 * 100_000_000},
		{"later block", ckbamount.FromCKB(1_100), AR0 * 11 / 10, 1_000 * 100_000_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, big.NewInt(tc.expected), DepositValue(tc.unoccupied, headerAt(tc.ar)))
		})
	}
}

func TestDepositValueNeverExceedsCKB(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Uint64Range(1, 1<<50).Draw(t, "amount").(uint64)
		ar := rapid.Uint64Range(AR0, 2*AR0).Draw(t, "ar").(uint64)
		v := DepositValue(ckbamount.Shannons(amount), headerAt(ar))
		if v.Cmp(new(big.Int).SetUint64(amount)) > 0 {
			t.Fatalf("value %s exceeds deposit %d", v, amount)
		}
	})
}

func TestConvertRoundTripLoses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := new(big.Int).SetUint64(rapid.Uint64().Draw(t, "amount").(uint64))
		ar := rapid.Uint64Range(AR0, 3*AR0).Draw(t, "ar").(uint64)
		r := RatioAt(headerAt(ar), rapid.Bool().Draw(t, "account").(bool))
		back := Convert(false, Convert(true, amount, r), r)
		if back.Cmp(amount) > 0 {
			t.Fatalf("round trip gained: %s -> %s", amount, back)
		}
	})
}

func TestReceiptCodec(t *testing.T) {
	r := ReceiptData{Quantity: 3, Amount: ckbamount.FromCKB(1_000)}
	b := r.Encode()
	require.Len(t, b, 12)
	assert.Equal(t, []byte{3, 0, 0, 0}, b[:4])

	decoded, err := DecodeReceipt(b)
	require.NoError(t, err)
	assert.Equal(t, r, decoded)

	_, err = DecodeReceipt(b[:11])
	assert.ErrorIs(t, err, ErrInvalidReceipt)
	_, err = DecodeReceipt(ReceiptData{Amount: 1}.Encode())
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestOwnerCodec(t *testing.T) {
	b := EncodeOwner(-2)
	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, b)
	offset, err := DecodeOwner(append(b, 0xaa))
	require.NoError(t, err)
	assert.Equal(t, int32(-2), offset)

	_, err = DecodeOwner([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidOwner)
}
