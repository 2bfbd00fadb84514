package ickb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LeJamon/goickb/internal/core/ckbamount"
)

const (
	receiptSize = 12
	ownerSize   = 4
)

var (
	// ErrInvalidReceipt indicates receipt data that is not 12 bytes or holds no deposits.
	ErrInvalidReceipt = errors.New("invalid receipt data")

	// ErrInvalidOwner indicates owner data shorter than its offset.
	ErrInvalidOwner = errors.New("invalid owner data")
)

// ReceiptData is the payload of a receipt: quantity deposits of Amount
// unoccupied capacity each.
type ReceiptData struct {
	Quantity uint32
	Amount   ckbamount.Shannons
}

func (r ReceiptData) Encode() []byte {
	b := binary.LittleEndian.AppendUint32(make([]byte, 0, receiptSize), r.Quantity)
	return binary.LittleEndian.AppendUint64(b, uint64(r.Amount))
}

func DecodeReceipt(b []byte) (ReceiptData, error) {
	if len(b) != receiptSize {
		return ReceiptData{}, fmt.Errorf("%w: %d bytes", ErrInvalidReceipt, len(b))
	}
	r := ReceiptData{
		Quantity: binary.LittleEndian.Uint32(b),
		Amount:   ckbamount.Shannons(binary.LittleEndian.Uint64(b[4:])),
	}
	if r.Quantity == 0 {
		return ReceiptData{}, fmt.Errorf("%w: zero quantity", ErrInvalidReceipt)
	}
	return r, nil
}

// EncodeOwner returns owner data pointing offset outputs away from the owner.
func EncodeOwner(offset int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(offset))
}

// DecodeOwner reads the offset prefix of owner data.
func DecodeOwner(b []byte) (int32, error) {
	if len(b) < ownerSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidOwner, len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}
