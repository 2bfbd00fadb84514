package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

func headerAt(ar uint64) cell.Header {
	return cell.Header{Dao: cell.DaoField(0, ar, 0, 0)}
}

func TestInterest(t *testing.T) {
	capacity := ckbamount.FromCKB(1000)
	occupied := ckbamount.FromCKB(102)
	h := headerAt(10_000_000_000_000_000)

	assert.Zero(t, Interest(capacity, occupied, h, h))

	// 1% growth on 898 counted CKB.
	later := headerAt(10_100_000_000_000_000)
	assert.Equal(t, ckbamount.FromCKB(898)/100, Interest(capacity, occupied, h, later))
	assert.Equal(t, capacity+ckbamount.FromCKB(898)/100, WithdrawnCapacity(capacity, occupied, h, later))

	// A rate going backwards never yields negative interest.
	assert.Zero(t, Interest(capacity, occupied, later, h))
}

func TestInterestMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := ckbamount.Shannons(rapid.Uint64Range(102e8, 1e17).Draw(t, "capacity").(uint64))
		ar0 := rapid.Uint64Range(1e16, 2e16).Draw(t, "ar0").(uint64)
		step1 := rapid.Uint64Range(0, 1e15).Draw(t, "step1").(uint64)
		step2 := rapid.Uint64Range(0, 1e15).Draw(t, "step2").(uint64)

		deposit := headerAt(ar0)
		mid := headerAt(ar0 + step1)
		end := headerAt(ar0 + step1 + step2)
		occupied := ckbamount.FromCKB(102)
		a := Interest(capacity, occupied, deposit, mid)
		b := Interest(capacity, occupied, deposit, end)
		if a > b {
			t.Fatalf("interest decreased: %s then %s", a, b)
		}
	})
}

func TestMaturity(t *testing.T) {
	deposit := cell.Epoch{Number: 10, Index: 5, Length: 10}
	tests := []struct {
		name    string
		request cell.Epoch
		want    cell.Epoch
	}{
		{"same epoch earlier index", cell.Epoch{Number: 10, Index: 3, Length: 10}, cell.Epoch{Number: 190, Index: 5, Length: 10}},
		{"exactly one cycle", cell.Epoch{Number: 190, Index: 5, Length: 10}, cell.Epoch{Number: 190, Index: 5, Length: 10}},
		{"just past one cycle", cell.Epoch{Number: 190, Index: 6, Length: 10}, cell.Epoch{Number: 370, Index: 5, Length: 10}},
		{"different lengths", cell.Epoch{Number: 100, Index: 1, Length: 1000}, cell.Epoch{Number: 190, Index: 5, Length: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Maturity(deposit, tt.request))
		})
	}
}

func TestMaturityNeverBeforeRequest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.Uint64Range(1, 1800).Draw(t, "length").(uint64)
		deposit := cell.Epoch{
			Number: rapid.Uint64Range(0, 10000).Draw(t, "dn").(uint64),
			Index:  rapid.Uint64Range(0, length-1).Draw(t, "di").(uint64),
			Length: length,
		}
		request := cell.Epoch{
			Number: deposit.Number + rapid.Uint64Range(0, 2000).Draw(t, "gap").(uint64),
			Index:  rapid.Uint64Range(0, length-1).Draw(t, "ri").(uint64),
			Length: length,
		}
		m := Maturity(deposit, request)
		if m.Compare(request) < 0 {
			t.Fatalf("maturity %s before request %s", m, request)
		}
		if (m.Number-deposit.Number)%CycleLength != 0 || m.Index != deposit.Index {
			t.Fatalf("maturity %s not cycle aligned with %s", m, deposit)
		}
	})
}

func TestRequestDataCodec(t *testing.T) {
	b := EncodeRequestData(0x0102)
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, b)
	n, err := DecodeRequestData(b)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x0102), n)

	_, err = DecodeRequestData([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.Equal(t, make([]byte, 8), DepositData())
}
