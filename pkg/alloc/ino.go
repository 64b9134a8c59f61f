package alloc

import . "github.com/weberc2/fsck/pkg/types"

// InoAllocator hands out inode numbers below `Limit`. Inode 0 is never a
// valid inode and is reserved by `NewInoAllocator`.
type InoAllocator struct {
	Allocator
	Limit Ino
}

func NewInoAllocator(ninodes Ino) InoAllocator {
	bm := New(uint64(ninodes))
	bm.Reserve(uint64(InoNil))
	return InoAllocator{Allocator: bm, Limit: ninodes}
}

func (ia InoAllocator) Alloc() (Ino, bool) {
	ino, ok := ia.Allocator.Alloc()
	if !ok {
		return InoNil, false
	}
	if ino >= uint64(ia.Limit) {
		ia.Allocator.Free(ino)
		return InoNil, false
	}
	return Ino(ino), true
}

func (ia InoAllocator) Free(ino Ino) { ia.Allocator.Free(uint64(ino)) }

func (ia InoAllocator) Reserve(ino Ino) { ia.Allocator.Reserve(uint64(ino)) }
