package encode

import (
	. "github.com/weberc2/fsck/pkg/types"
)

func EncodeSuperblock(sb *Superblock, b *[SuperblockSize]byte) {
	p := b[:]
	putU32(p, superblockSizeStart, uint32(sb.Size))
	putU32(p, superblockNBlocksStart, uint32(sb.NBlocks))
	putU32(p, superblockNInodesStart, uint32(sb.NInodes))
}

func DecodeSuperblock(sb *Superblock, b *[SuperblockSize]byte) {
	p := b[:]
	*sb = Superblock{
		Size:    Block(getU32(p, superblockSizeStart)),
		NBlocks: Block(getU32(p, superblockNBlocksStart)),
		NInodes: Ino(getU32(p, superblockNInodesStart)),
	}
}

const (
	superblockSizeStart = 0
	superblockSizeSize  = 4
	superblockSizeEnd   = superblockSizeStart + superblockSizeSize

	superblockNBlocksStart = superblockSizeEnd
	superblockNBlocksSize  = 4
	superblockNBlocksEnd   = superblockNBlocksStart + superblockNBlocksSize

	superblockNInodesStart = superblockNBlocksEnd
	superblockNInodesSize  = 4
	superblockNInodesEnd   = superblockNInodesStart + superblockNInodesSize
)
