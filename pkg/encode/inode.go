package encode

import (
	. "github.com/weberc2/fsck/pkg/types"
)

func EncodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]

	putI16(p, inodeTypeStart, int16(inode.Type))
	putI16(p, inodeMajorStart, inode.Major)
	putI16(p, inodeMinorStart, inode.Minor)
	putI16(p, inodeNLinkStart, inode.NLink)
	putU32(p, inodeSizeStart, inode.Size)

	for i := Byte(0); i < DirectBlocksCount; i++ {
		blockPointerStart := inodeDirectBlocksStart + i*BlockPointerSize
		EncodeBlock(
			inode.Direct[i],
			(*[BlockPointerSize]byte)(p[blockPointerStart:]),
		)
	}

	EncodeBlock(
		inode.Indirect,
		(*[BlockPointerSize]byte)(p[inodeIndirectStart:inodeIndirectEnd]),
	)
}

// DecodeInode populates `inode` from `b`. `inode.Ino` is left alone because
// the ino isn't discernible from an encoded inode.
func DecodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]

	// NB: the type is deliberately NOT validated here. Reporting inodes with
	// an invalid type is the checker's job, so decoding has to succeed for
	// them.
	inode.Type = FileType(getI16(p, inodeTypeStart))
	inode.Major = getI16(p, inodeMajorStart)
	inode.Minor = getI16(p, inodeMinorStart)
	inode.NLink = getI16(p, inodeNLinkStart)
	inode.Size = getU32(p, inodeSizeStart)

	for i := Byte(0); i < DirectBlocksCount; i++ {
		blockPointerStart := inodeDirectBlocksStart + i*BlockPointerSize
		inode.Direct[i] = DecodeBlock(
			(*[BlockPointerSize]byte)(p[blockPointerStart:]),
		)
	}

	inode.Indirect = DecodeBlock(
		(*[BlockPointerSize]byte)(p[inodeIndirectStart:inodeIndirectEnd]),
	)
}

const (
	inodeTypeStart = 0
	inodeTypeSize  = 2
	inodeTypeEnd   = inodeTypeStart + inodeTypeSize

	inodeMajorStart = inodeTypeEnd
	inodeMajorSize  = 2
	inodeMajorEnd   = inodeMajorStart + inodeMajorSize

	inodeMinorStart = inodeMajorEnd
	inodeMinorSize  = 2
	inodeMinorEnd   = inodeMinorStart + inodeMinorSize

	inodeNLinkStart = inodeMinorEnd
	inodeNLinkSize  = 2
	inodeNLinkEnd   = inodeNLinkStart + inodeNLinkSize

	inodeSizeStart = inodeNLinkEnd
	inodeSizeSize  = 4
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodeDirectBlocksStart = inodeSizeEnd
	inodeDirectBlocksSize  = DirectBlocksCount * BlockPointerSize
	inodeDirectBlocksEnd   = inodeDirectBlocksStart + inodeDirectBlocksSize

	inodeIndirectStart = inodeDirectBlocksEnd
	inodeIndirectSize  = BlockPointerSize
	inodeIndirectEnd   = inodeIndirectStart + inodeIndirectSize
)
