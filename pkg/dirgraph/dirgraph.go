// Package dirgraph summarizes the directory tree of an image: who names
// whom, each directory's `..` parent, and whether `..` chains reach root.
package dirgraph

import (
	"fmt"

	"github.com/weberc2/fsck/pkg/image"
	. "github.com/weberc2/fsck/pkg/types"
)

// Entry is a non-free directory entry and where it lives.
type Entry struct {
	Dir   Ino
	Block Block
	Slot  int

	// Indirect is set when the entry lives in a block reached through the
	// directory's indirect table.
	Indirect bool

	DirEntry
}

type Graph struct {
	ninodes  Ino
	refCount []int
	named    []bool
	dirs     []bool
	entries  []Entry
	byDir    map[Ino][]Entry
}

// Build reads every directory inode's entry blocks (direct then indirect)
// once. Addresses outside the data region are skipped.
func Build(img *image.Image) (*Graph, error) {
	n := img.Geometry.NInodes
	g := Graph{
		ninodes:  n,
		refCount: make([]int, n),
		named:    make([]bool, n),
		dirs:     make([]bool, n),
		byDir:    map[Ino][]Entry{},
	}

	for ino := InoNil; ino < n; ino++ {
		inode, err := img.Inode(ino)
		if err != nil {
			return nil, fmt.Errorf("building directory graph: %w", err)
		}
		if inode.Type != FileTypeDir {
			continue
		}
		g.dirs[ino] = true
		if err := g.addDir(img, &inode); err != nil {
			return nil, fmt.Errorf("building directory graph: %w", err)
		}
	}
	return &g, nil
}

func (g *Graph) addDir(img *image.Image, dir *Inode) error {
	blocks, err := img.DataBlocks(dir)
	if err != nil {
		return err
	}
	direct := map[Block]bool{}
	for _, b := range dir.Direct {
		direct[b] = true
	}

	for _, b := range blocks {
		entries, err := img.DirEntries(b)
		if err != nil {
			return fmt.Errorf("reading directory `%d`: %w", dir.Ino, err)
		}
		for slot := range entries {
			if entries[slot].Free() {
				continue
			}
			g.add(Entry{
				Dir:      dir.Ino,
				Block:    b,
				Slot:     slot,
				Indirect: !direct[b],
				DirEntry: entries[slot],
			})
		}
	}
	return nil
}

func (g *Graph) add(entry Entry) {
	g.entries = append(g.entries, entry)
	g.byDir[entry.Dir] = append(g.byDir[entry.Dir], entry)
	if entry.Ino >= g.ninodes {
		return
	}
	g.named[entry.Ino] = true
	if !entry.IsDot() {
		g.refCount[entry.Ino]++
	}
}

// RefCount returns the number of non-dot entries naming `ino`.
func (g *Graph) RefCount(ino Ino) int {
	if ino >= g.ninodes {
		return 0
	}
	return g.refCount[ino]
}

// Named reports whether any entry, `.` and `..` included, names `ino`.
func (g *Graph) Named(ino Ino) bool {
	return ino < g.ninodes && g.named[ino]
}

// IsDir reports whether `ino` is a directory inode.
func (g *Graph) IsDir(ino Ino) bool {
	return ino < g.ninodes && g.dirs[ino]
}

// Entries returns every non-free entry of every directory in inode order.
func (g *Graph) Entries() []Entry { return g.entries }

// DirEntries returns the non-free entries of directory `dir`.
func (g *Graph) DirEntries(dir Ino) []Entry { return g.byDir[dir] }

// ParentOf returns the target of the first `..` entry of `dir`.
func (g *Graph) ParentOf(dir Ino) (Ino, bool) {
	for _, entry := range g.byDir[dir] {
		if entry.Name == DotDotName {
			return entry.Ino, true
		}
	}
	return InoNil, false
}

// Lookup returns the first entry of `dir` called `name`.
func (g *Graph) Lookup(dir Ino, name string) (Entry, bool) {
	for _, entry := range g.byDir[dir] {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

// FindEntry reports whether any entry of `parent` names `child`.
func (g *Graph) FindEntry(parent, child Ino) bool {
	for _, entry := range g.byDir[parent] {
		if entry.Ino == child {
			return true
		}
	}
	return false
}

type WalkResult uint8

const (
	WalkOK WalkResult = iota

	// WalkCycle means the `..` chain did not reach root within `ninodes`
	// hops.
	WalkCycle

	// WalkBroken means the chain reached a directory without a `..` entry
	// or a `..` that is not a directory.
	WalkBroken
)

func (result WalkResult) String() string {
	switch result {
	case WalkOK:
		return "ok"
	case WalkCycle:
		return "cycle"
	default:
		return "broken"
	}
}

// WalkToRoot follows `..` from directory `ino`. Any chain longer than
// `ninodes` must revisit a directory, so the walk is capped there.
func (g *Graph) WalkToRoot(ino Ino) WalkResult {
	current := ino
	for hops := Ino(0); hops <= g.ninodes; hops++ {
		if current == InoRoot {
			return WalkOK
		}
		if !g.IsDir(current) {
			return WalkBroken
		}
		parent, ok := g.ParentOf(current)
		if !ok {
			return WalkBroken
		}
		current = parent
	}
	return WalkCycle
}
