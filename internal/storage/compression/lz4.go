package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4"
)

// maxBlockSize bounds the decoded size a block may announce.
const maxBlockSize = 64 << 20

// None stores blocks as they are.
type None struct{}

func (None) Name() string { return "none" }

func (None) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (None) Decompress(block []byte) ([]byte, error) {
	return append([]byte(nil), block...), nil
}

// LZ4 stores an LZ4 block prefixed with the uvarint decoded size. Input
// that does not compress is stored raw behind a zero size.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(data []byte) ([]byte, error) {
	out := binary.AppendUvarint(nil, uint64(len(data)))
	if len(data) == 0 {
		return out, nil
	}
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 || n >= len(data) {
		out = binary.AppendUvarint(out[:0], 0)
		return append(out, data...), nil
	}
	return append(out, buf[:n]...), nil
}

func (LZ4) Decompress(block []byte) ([]byte, error) {
	size, n := binary.Uvarint(block)
	if n <= 0 || size > maxBlockSize {
		return nil, fmt.Errorf("%w: bad size prefix", ErrCorrupt)
	}
	body := block[n:]
	if size == 0 {
		return append([]byte(nil), body...), nil
	}
	out := make([]byte, size)
	m, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if uint64(m) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", ErrCorrupt, m, size)
	}
	return out, nil
}
