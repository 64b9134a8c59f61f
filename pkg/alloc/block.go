package alloc

import . "github.com/weberc2/fsck/pkg/types"

// BlockAllocator hands out block numbers below `Limit`. Bit `b` of the
// underlying allocator tracks block `b`; blocks that must never be handed
// out (the header) should be reserved before the first allocation.
type BlockAllocator struct {
	Allocator
	Limit Block
}

func (ba BlockAllocator) Alloc() (Block, bool) {
	b, ok := ba.Allocator.Alloc()
	if !ok {
		return BlockNil, false
	}
	if b >= uint64(ba.Limit) {
		// the bitmap's tail byte may describe blocks past the end of the
		// image
		ba.Allocator.Free(b)
		return BlockNil, false
	}
	return Block(b), true
}

func (ba BlockAllocator) Free(b Block) { ba.Allocator.Free(uint64(b)) }

func (ba BlockAllocator) Reserve(b Block) { ba.Allocator.Reserve(uint64(b)) }
