// Package compression provides the block compressors used by the stores.
package compression

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrCorrupt is returned when compressed data cannot be decoded.
var ErrCorrupt = errors.New("corrupt compressed data")

// Compressor compresses self-contained blocks.
type Compressor interface {
	// Name returns the name of the compression algorithm.
	Name() string

	// Compress returns a block that Decompress restores to data.
	Compress(data []byte) ([]byte, error)

	Decompress(block []byte) ([]byte, error)
}

// Factory creates a compressor.
type Factory func() Compressor

var (
	mu          sync.RWMutex
	compressors = make(map[string]Factory)
)

func init() {
	Register("none", func() Compressor { return None{} })
	Register("lz4", func() Compressor { return LZ4{} })
}

// Register makes a compressor available under name.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	compressors[name] = factory
}

// Get returns a new compressor registered under name.
func Get(name string) (Compressor, error) {
	mu.RLock()
	factory, ok := compressors[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown compressor: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(compressors))
	for name := range compressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
