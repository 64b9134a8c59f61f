package image

import (
	"fmt"

	"github.com/weberc2/fsck/pkg/math"
	. "github.com/weberc2/fsck/pkg/types"
)

// Geometry is the block layout implied by a superblock:
//
//	[0] boot | [1] superblock | inodes | bitmap | data ... | size
type Geometry struct {
	Size         Block `json:"size" yaml:"size"`
	NBlocks      Block `json:"nblocks" yaml:"nblocks"`
	NInodes      Ino   `json:"ninodes" yaml:"ninodes"`
	InodeBlocks  Block `json:"inodeBlocks" yaml:"inodeBlocks"`
	BitmapStart  Block `json:"bitmapStart" yaml:"bitmapStart"`
	BitmapBlocks Block `json:"bitmapBlocks" yaml:"bitmapBlocks"`
	HeaderBlocks Block `json:"headerBlocks" yaml:"headerBlocks"`
}

func NewGeometry(sb *Superblock) (Geometry, error) {
	if sb.NInodes < 1 {
		return Geometry{}, NoInodesErr
	}
	inodeBlocks := Block(math.DivRoundUp(sb.NInodes, InodesPerBlock))
	bitmapStart := BlockInodeTable + inodeBlocks
	// sized by `Size`, not `NBlocks`: every block number in [0, size) has
	// a bit
	bitmapBlocks := math.DivRoundUp(sb.Size, BitsPerBlock)
	g := Geometry{
		Size:         sb.Size,
		NBlocks:      sb.NBlocks,
		NInodes:      sb.NInodes,
		InodeBlocks:  inodeBlocks,
		BitmapStart:  bitmapStart,
		BitmapBlocks: bitmapBlocks,
		HeaderBlocks: bitmapStart + bitmapBlocks,
	}
	if g.HeaderBlocks > g.Size {
		return Geometry{}, fmt.Errorf(
			"header of `%d` blocks in image of `%d` blocks: %w",
			g.HeaderBlocks,
			g.Size,
			HeaderTooLargeErr,
		)
	}
	return g, nil
}

// ValidDataBlock reports whether `b` lies in the data region.
func (g *Geometry) ValidDataBlock(b Block) bool {
	return b >= g.HeaderBlocks && b < g.Size
}

// DataBlocks returns the number of blocks in the data region.
func (g *Geometry) DataBlocks() Block { return g.Size - g.HeaderBlocks }
