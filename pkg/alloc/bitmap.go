package alloc

import (
	"github.com/weberc2/fsck/pkg/math"
)

const bitsPerByte = 8

// Bitmap is a bit-per-item usage map. Bit `i` lives in byte `i/8` at bit
// position `i%8`, least-significant bit first.
type Bitmap struct {
	bytes []byte
}

func New(bits uint64) Bitmap {
	return Bitmap{make([]byte, math.DivRoundUp(bits, bitsPerByte))}
}

// FromBytes returns a bitmap backed by `bytes`. Writes through the bitmap
// modify `bytes`.
func FromBytes(bytes []byte) Bitmap { return Bitmap{bytes} }

// Len returns the number of bits the bitmap can hold.
func (bm Bitmap) Len() uint64 { return uint64(len(bm.bytes)) * bitsPerByte }

func (bm Bitmap) IsSet(value uint64) bool {
	if value >= bm.Len() {
		return false
	}
	return !byteIsZero(bm.bytes[value/bitsPerByte], uint8(value%bitsPerByte))
}

func (bm Bitmap) Alloc() (uint64, bool) {
	i, bit, ok := bytesFirstZero(bm.bytes)
	if !ok {
		return 0, false
	}
	bm.bytes[i] = byteSetHigh(bm.bytes[i], bit)
	return uint64(i*bitsPerByte) + uint64(bit), true
}

func (bm Bitmap) Free(value uint64) {
	b := &bm.bytes[value/bitsPerByte]
	*b = byteSetLow(*b, uint8(value%bitsPerByte))
}

func (bm Bitmap) Reserve(value uint64) {
	b := &bm.bytes[value/bitsPerByte]
	*b = byteSetHigh(*b, uint8(value%bitsPerByte))
}

// Set returns every set bit in ascending order.
func (bm Bitmap) Set() []uint64 {
	var set []uint64
	for i, byt := range bm.bytes {
		if byt == 0 {
			continue
		}
		for bit := uint8(0); bit < bitsPerByte; bit++ {
			if !byteIsZero(byt, bit) {
				set = append(set, uint64(i*bitsPerByte)+uint64(bit))
			}
		}
	}
	return set
}

func (bm Bitmap) Bytes() []byte { return bm.bytes }

func bytesFirstZero(bytes []byte) (int, uint8, bool) {
	for i, byt := range bytes {
		if bit := byteFirstZero(byt); bit != 0xff {
			return i, bit, true
		}
	}
	return 0, 0, false
}

func byteIsZero(byt byte, bit uint8) bool {
	return byt&(1<<bit) == 0
}

func byteSetHigh(byt byte, bit uint8) byte {
	return byt | (1 << bit)
}

func byteSetLow(byt byte, bit uint8) byte {
	return byt & ^(1 << bit)
}

func byteFirstZero(byt byte) uint8 {
	if byt == 0xff {
		return 0xff
	}
	for bit := uint8(0); bit < bitsPerByte; bit++ {
		if byteIsZero(byt, bit) {
			return bit
		}
	}
	return 0xff
}
