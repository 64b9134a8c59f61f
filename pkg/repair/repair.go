// Package repair relinks allocated but unreachable inodes under the
// lost+found directory.
package repair

import (
	"context"
	"fmt"
	"strconv"

	"github.com/weberc2/fsck/pkg/dirgraph"
	"github.com/weberc2/fsck/pkg/image"
	"github.com/weberc2/fsck/pkg/logger"
	. "github.com/weberc2/fsck/pkg/types"
)

const DefaultLostFoundName = "lost+found"

type Options struct {
	// LostFoundName is the name of the lost+found directory in root.
	// Defaults to `DefaultLostFoundName`.
	LostFoundName string
}

type Result struct {
	LostFound Ino   `json:"lostFound" yaml:"lostFound"`
	Relinked  []Ino `json:"relinked" yaml:"relinked"`
}

// slot is a free directory entry position.
type slot struct {
	block Block
	index int
}

// Run relinks every inode in `[2, ninodes)` that is allocated, is not
// lost+found, has no non-dot entry naming it and whose link count disagrees
// with that. Each gets `nlink = 1` and an entry in lost+found named by its
// inode number; relinked directories also get their `..` pointed at
// lost+found. All slots are found before anything is written, so
// `KindDirectoryFull` leaves the image untouched, as does a candidate whose
// number no directory entry can hold. Persisting the buffer is the
// caller's job.
//
// The image must otherwise pass `check.Run`; other corruption leads to
// unspecified results.
func Run(ctx context.Context, img *image.Image, opts Options) (*Result, error) {
	log := logger.Get(ctx)
	name := opts.LostFoundName
	if name == "" {
		name = DefaultLostFoundName
	}

	graph, err := dirgraph.Build(img)
	if err != nil {
		return nil, fmt.Errorf("repairing: %w", err)
	}
	lostFound, err := FindLostFound(graph, name)
	if err != nil {
		return nil, err
	}

	candidates, err := unreachable(img, graph, lostFound)
	if err != nil {
		return nil, fmt.Errorf("repairing: %w", err)
	}
	if len(candidates) < 1 {
		log.Debug("nothing to relink", "lostFound", lostFound)
		return &Result{LostFound: lostFound}, nil
	}

	slots, err := freeSlots(img, lostFound, len(candidates))
	if err != nil {
		return nil, fmt.Errorf("repairing: %w", err)
	}
	if len(slots) < len(candidates) {
		return nil, &Error{
			Kind: KindDirectoryFull,
			Ino:  lostFound,
			Err: fmt.Errorf(
				"`%d` inodes to relink; `%d` free slots",
				len(candidates),
				len(slots),
			),
		}
	}

	result := Result{LostFound: lostFound}
	for i := range candidates {
		inode := &candidates[i]
		if err := relink(img, graph, lostFound, inode, slots[i]); err != nil {
			return nil, fmt.Errorf("repairing: %w", err)
		}
		log.Info(
			"relinked inode",
			"ino", inode.Ino,
			"type", inode.Type.String(),
			"lostFound", lostFound,
		)
		result.Relinked = append(result.Relinked, inode.Ino)
	}
	return &result, nil
}

// FindLostFound returns the directory called `name` in root.
func FindLostFound(graph *dirgraph.Graph, name string) (Ino, error) {
	entry, ok := graph.Lookup(InoRoot, name)
	if !ok {
		return InoNil, &Error{
			Kind: KindNoLostFound,
			Ino:  InoRoot,
			Err:  fmt.Errorf("no entry `%s` in root", name),
		}
	}
	if !graph.IsDir(entry.Ino) {
		return InoNil, &Error{
			Kind: KindNoLostFound,
			Ino:  entry.Ino,
			Err:  fmt.Errorf("`%s` is not a directory", name),
		}
	}
	return entry.Ino, nil
}

func unreachable(
	img *image.Image,
	graph *dirgraph.Graph,
	lostFound Ino,
) ([]Inode, error) {
	var candidates []Inode
	for ino := InoFirst; ino < img.Geometry.NInodes; ino++ {
		if ino == lostFound {
			continue
		}
		inode, err := img.Inode(ino)
		if err != nil {
			return nil, err
		}
		if inode.Free() {
			continue
		}
		if refs := graph.RefCount(ino); refs == 0 && int(inode.NLink) != refs {
			if ino > MaxDirEntryIno {
				return nil, &Error{
					Kind: KindCorruptImage,
					Ino:  ino,
					Err:  InoUnnameableErr,
				}
			}
			candidates = append(candidates, inode)
		}
	}
	return candidates, nil
}

// freeSlots lists up to `wanted` free entries of `dir`, direct blocks
// first.
func freeSlots(img *image.Image, dir Ino, wanted int) ([]slot, error) {
	inode, err := img.Inode(dir)
	if err != nil {
		return nil, err
	}
	blocks, err := img.DataBlocks(&inode)
	if err != nil {
		return nil, err
	}
	var slots []slot
	for _, b := range blocks {
		entries, err := img.DirEntries(b)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			if entries[i].Free() {
				slots = append(slots, slot{block: b, index: i})
				if len(slots) == wanted {
					return slots, nil
				}
			}
		}
	}
	return slots, nil
}

func relink(
	img *image.Image,
	graph *dirgraph.Graph,
	lostFound Ino,
	inode *Inode,
	s slot,
) error {
	inode.NLink = 1
	if err := img.PutInode(inode); err != nil {
		return err
	}
	entry := DirEntry{Ino: inode.Ino, Name: strconv.Itoa(int(inode.Ino))}
	if err := img.PutDirEntry(s.block, s.index, &entry); err != nil {
		return err
	}
	if inode.Type != FileTypeDir {
		return nil
	}
	if parent, ok := graph.Lookup(inode.Ino, DotDotName); ok {
		return img.PutDirEntry(
			parent.Block,
			parent.Slot,
			&DirEntry{Ino: lostFound, Name: DotDotName},
		)
	}
	return nil
}
