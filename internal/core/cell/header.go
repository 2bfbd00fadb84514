package cell

import "encoding/binary"

// Header is the subset of a block header the protocol reads.
type Header struct {
	Hash       Hash
	ParentHash Hash
	Number     uint64
	Epoch      Epoch
	Timestamp  uint64
	Dao        [32]byte
}

// AR returns the DAO accumulated rate stored in bytes 8..16 of the dao field.
func (h Header) AR() uint64 {
	return binary.LittleEndian.Uint64(h.Dao[8:16])
}

// DaoField assembles a dao field from its four components. Only the
// accumulated rate is used by the protocol; the other slots are carried
// for fidelity.
func DaoField(c, ar, s, u uint64) [32]byte {
	var d [32]byte
	binary.LittleEndian.PutUint64(d[0:], c)
	binary.LittleEndian.PutUint64(d[8:], ar)
	binary.LittleEndian.PutUint64(d[16:], s)
	binary.LittleEndian.PutUint64(d[24:], u)
	return d
}
