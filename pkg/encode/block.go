package encode

import (
	"encoding/binary"

	. "github.com/weberc2/fsck/pkg/types"
)

func EncodeBlock(b Block, p *[BlockPointerSize]byte) {
	binary.LittleEndian.PutUint32((*p)[:], uint32(b))
}

func DecodeBlock(p *[BlockPointerSize]byte) Block {
	return Block(binary.LittleEndian.Uint32((*p)[:]))
}

// DecodeIndirectTable decodes the block numbers held by an indirect block.
func DecodeIndirectTable(table []Block, b *[BlockSize]byte) {
	for i := range table {
		start := Byte(i) * BlockPointerSize
		table[i] = DecodeBlock((*[BlockPointerSize]byte)(b[start:]))
	}
}

func EncodeIndirectTable(table []Block, b *[BlockSize]byte) {
	for i, block := range table {
		start := Byte(i) * BlockPointerSize
		EncodeBlock(block, (*[BlockPointerSize]byte)(b[start:]))
	}
}
