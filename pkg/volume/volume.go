// Package volume holds image buffers for the lifetime of a run and
// persists them after repair.
package volume

import (
	"strings"

	"github.com/weberc2/fsck/pkg/types"
)

// Volume is a fixed-size, byte-addressable image buffer.
type Volume interface {
	// Bytes returns the whole image. Writes to the slice reach the volume
	// once `Flush` returns.
	Bytes() []byte

	// Flush synchronously persists the buffer. A read-only volume has
	// nothing to persist.
	Flush() error

	Close() error
}

const EmptyErr types.ConstError = "volume is empty"

const objectScheme = "s3://"

// ParseObjectURL splits `s3://bucket/key` into its bucket and key.
func ParseObjectURL(ref string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(ref, objectScheme) {
		return "", "", false
	}
	bucket, key, ok = strings.Cut(strings.TrimPrefix(ref, objectScheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Memory is a volume backed by a plain byte slice.
type Memory struct {
	data    []byte
	Flushes int
}

func NewMemory(data []byte) *Memory { return &Memory{data: data} }

func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) Flush() error {
	m.Flushes++
	return nil
}

func (m *Memory) Close() error { return nil }

var (
	_ Volume = (*Memory)(nil)
	_ Volume = (*File)(nil)
	_ Volume = (*Object)(nil)
)
