package types

const SuperblockSize Byte = 12

type Superblock struct {
	// Size is the total number of blocks in the image.
	Size Block `json:"size" yaml:"size"`

	// NBlocks is the number of data blocks.
	NBlocks Block `json:"nblocks" yaml:"nblocks"`

	// NInodes is the number of inodes in the inode table.
	NInodes Ino `json:"ninodes" yaml:"ninodes"`
}
