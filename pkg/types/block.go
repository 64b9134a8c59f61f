package types

// Byte is a size or an offset into an image, in bytes.
type Byte int64

// Block is a block number. Block numbers are stored on disk as 32-bit
// little-endian integers.
type Block uint32

const (
	BlockSize        Byte = 512
	BlockPointerSize Byte = 4

	// BitsPerBlock is the number of blocks whose usage one bitmap block can
	// describe.
	BitsPerBlock Block = Block(BlockSize) * 8

	// PointersPerBlock is the number of block numbers held by an indirect
	// block.
	PointersPerBlock = int(BlockSize / BlockPointerSize)

	BlockNil Block = 0

	// BlockSuperblock is the block holding the superblock. Block 0 is the
	// (unused) boot block.
	BlockSuperblock Block = 1

	// BlockInodeTable is the first block of the inode table.
	BlockInodeTable Block = 2
)

// Offset returns the byte offset of the start of the block.
func (b Block) Offset() Byte { return Byte(b) * BlockSize }
