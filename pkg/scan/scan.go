// Package scan builds the block-reference summaries the consistency checks
// consume.
package scan

import (
	"errors"
	"fmt"

	"github.com/weberc2/fsck/pkg/image"
	. "github.com/weberc2/fsck/pkg/types"
)

// RefKind records how an inode reaches a block.
type RefKind uint8

const (
	// RefDirect is a block named by an inode's address fields, including
	// the indirect table block itself.
	RefDirect RefKind = iota

	// RefIndirect is a block named by an entry of an indirect table.
	RefIndirect
)

func (kind RefKind) String() string {
	if kind == RefIndirect {
		return "indirect"
	}
	return "direct"
}

// Ref is one use of a data block by an inode.
type Ref struct {
	Block Block
	Ino   Ino
	Kind  RefKind
}

type Options struct {
	// Exhaustive makes the scanner skip bad addresses and keep going. The
	// first address error is still returned alongside the references.
	Exhaustive bool
}

// Inodes walks inodes `0..ninodes` and lists every block used by a File or
// Dir inode, in inode order, duplicates included. An address outside
// `{0} ∪ [HeaderBlocks, size)` yields `KindBadDirectAddress` (for inode
// address fields and the indirect table block) or `KindBadIndirectAddress`
// (for indirect table entries).
func Inodes(img *image.Image, opts Options) ([]Ref, error) {
	s := scanner{img: img, opts: opts}
	for ino := InoNil; ino < img.Geometry.NInodes; ino++ {
		inode, err := img.Inode(ino)
		if err != nil {
			return nil, fmt.Errorf("scanning inodes: %w", err)
		}
		if !inode.HasBlocks() {
			continue
		}
		if err := s.inode(&inode); err != nil {
			return nil, err
		}
	}
	return s.refs, s.first
}

type scanner struct {
	img   *image.Image
	opts  Options
	refs  []Ref
	first error
}

// bad records an address error. It returns the error when the scan should
// stop.
func (s *scanner) bad(kind Kind, ino Ino, b Block) error {
	err := &Error{
		Kind:  kind,
		Ino:   ino,
		Block: b,
		Err: fmt.Errorf(
			"address `%d` outside data region [%d, %d)",
			b,
			s.img.Geometry.HeaderBlocks,
			s.img.Geometry.Size,
		),
	}
	if !s.opts.Exhaustive {
		return err
	}
	if s.first == nil {
		s.first = err
	}
	return nil
}

func (s *scanner) inode(inode *Inode) error {
	for _, b := range inode.Direct {
		if b == BlockNil {
			continue
		}
		if !s.img.Geometry.ValidDataBlock(b) {
			if err := s.bad(KindBadDirectAddress, inode.Ino, b); err != nil {
				return err
			}
			continue
		}
		s.refs = append(s.refs, Ref{Block: b, Ino: inode.Ino, Kind: RefDirect})
	}

	if inode.Indirect == BlockNil {
		return nil
	}
	if !s.img.Geometry.ValidDataBlock(inode.Indirect) {
		return s.bad(KindBadDirectAddress, inode.Ino, inode.Indirect)
	}
	s.refs = append(
		s.refs,
		Ref{Block: inode.Indirect, Ino: inode.Ino, Kind: RefDirect},
	)

	table, err := s.img.IndirectTable(inode.Indirect)
	if err != nil {
		return fmt.Errorf("scanning inode `%d`: %w", inode.Ino, err)
	}
	for _, b := range table {
		if b == BlockNil {
			continue
		}
		if !s.img.Geometry.ValidDataBlock(b) {
			if err := s.bad(KindBadIndirectAddress, inode.Ino, b); err != nil {
				return err
			}
			continue
		}
		s.refs = append(
			s.refs,
			Ref{Block: b, Ino: inode.Ino, Kind: RefIndirect},
		)
	}
	return nil
}

// Bitmap returns the blocks in `[0, size)` whose bitmap bit is set, in
// ascending order.
func Bitmap(img *image.Image) []Block {
	bm := img.Bitmap()
	var marked []Block
	for _, bit := range bm.Set() {
		if bit >= uint64(img.Geometry.Size) {
			break
		}
		marked = append(marked, Block(bit))
	}
	return marked
}

// IsAddressErr reports whether `err` came from an out-of-range address.
func IsAddressErr(err error) bool {
	return errors.Is(err, KindBadDirectAddress) ||
		errors.Is(err, KindBadIndirectAddress)
}
