package testsupport

import (
	"testing"

	"github.com/weberc2/fsck/pkg/image"
	"github.com/weberc2/fsck/pkg/mkfs"
	. "github.com/weberc2/fsck/pkg/types"
)

// DefaultParams is the geometry used by most fixtures: 256 blocks, 32
// inodes, and a `lost+found` directory at inode 2.
var DefaultParams = mkfs.Params{
	Size:          256,
	NInodes:       32,
	LostFoundName: "lost+found",
}

// InoLostFound is the inode `mkfs` gives lost+found.
const InoLostFound Ino = 2

// Fixture wraps `mkfs.Builder` so that every step fails the test instead
// of returning an error.
type Fixture struct {
	Builder *mkfs.Builder
	t       *testing.T
}

func NewFixture(t *testing.T, params *mkfs.Params) *Fixture {
	t.Helper()
	b, err := mkfs.NewBuilder(params)
	if err != nil {
		t.Fatalf("mkfs.NewBuilder(): unexpected err: %v", err)
	}
	return &Fixture{Builder: b, t: t}
}

func (f *Fixture) Dir(parent Ino, name string) Ino {
	f.t.Helper()
	ino, err := f.Builder.MakeDir(parent, name)
	if err != nil {
		f.t.Fatalf("MakeDir(%d, %s): unexpected err: %v", parent, name, err)
	}
	return ino
}

func (f *Fixture) File(parent Ino, name string, blocks int) Ino {
	f.t.Helper()
	ino, err := f.Builder.MakeFile(parent, name, blocks)
	if err != nil {
		f.t.Fatalf("MakeFile(%d, %s): unexpected err: %v", parent, name, err)
	}
	return ino
}

func (f *Fixture) Link(dir Ino, name string, target Ino) {
	f.t.Helper()
	if err := f.Builder.Link(dir, name, target); err != nil {
		f.t.Fatalf("Link(%d, %s, %d): unexpected err: %v", dir, name, target, err)
	}
}

func (f *Fixture) Unlink(dir Ino, name string) {
	f.t.Helper()
	if err := f.Builder.Unlink(dir, name); err != nil {
		f.t.Fatalf("Unlink(%d, %s): unexpected err: %v", dir, name, err)
	}
}

func (f *Fixture) SetParent(dir, parent Ino) {
	f.t.Helper()
	if err := f.Builder.SetParent(dir, parent); err != nil {
		f.t.Fatalf("SetParent(%d, %d): unexpected err: %v", dir, parent, err)
	}
}

// Inode reads an inode from the image under construction.
func (f *Fixture) Inode(ino Ino) Inode {
	f.t.Helper()
	inode, err := f.Builder.Image().Inode(ino)
	if err != nil {
		f.t.Fatalf("Inode(%d): unexpected err: %v", ino, err)
	}
	return inode
}

// Update reads inode `ino`, applies `update` and writes it back.
func (f *Fixture) Update(ino Ino, update func(*Inode)) {
	f.t.Helper()
	inode := f.Inode(ino)
	update(&inode)
	if err := f.Builder.Image().PutInode(&inode); err != nil {
		f.t.Fatalf("PutInode(%d): unexpected err: %v", ino, err)
	}
}

// Image writes the bitmap and returns the finished image. Corruptions
// meant to survive should be applied to the returned image.
func (f *Fixture) Image() *image.Image {
	f.t.Helper()
	img, err := f.Builder.Finish()
	if err != nil {
		f.t.Fatalf("Finish(): unexpected err: %v", err)
	}
	return img
}
