// Package mkfs lays out fresh images: a root directory, an optional
// lost+found directory, and helpers for adding files and directories.
package mkfs

import (
	"fmt"

	"github.com/weberc2/fsck/pkg/alloc"
	"github.com/weberc2/fsck/pkg/image"
	. "github.com/weberc2/fsck/pkg/types"
)

type Params struct {
	Size    Block `yaml:"size"`
	NInodes Ino   `yaml:"ninodes"`

	// LostFoundName names the directory created under root for repair.
	// Empty means no lost+found directory.
	LostFoundName string `yaml:"lostFoundName"`
}

// Builder populates an image. Blocks are tracked in memory and written to
// the image's bitmap by `Finish`.
type Builder struct {
	img    *image.Image
	bitmap alloc.Bitmap
	blocks alloc.BlockAllocator
	inodes alloc.InoAllocator
}

const (
	NoSpaceErr      ConstError = "no free data blocks"
	NoFreeInodesErr ConstError = "no free inodes"
	NotDirErr       ConstError = "not a directory"
	NotFoundErr     ConstError = "entry not found"
)

func NewBuilder(params *Params) (*Builder, error) {
	sb := Superblock{Size: params.Size, NInodes: params.NInodes}
	geometry, err := image.NewGeometry(&sb)
	if err != nil {
		return nil, fmt.Errorf("making file system: %w", err)
	}
	sb.NBlocks = geometry.DataBlocks()

	img, err := image.Format(make([]byte, params.Size.Offset()), &sb)
	if err != nil {
		return nil, fmt.Errorf("making file system: %w", err)
	}

	bitmap := alloc.New(uint64(params.Size))
	b := Builder{
		img:    img,
		bitmap: bitmap,
		blocks: alloc.BlockAllocator{Allocator: bitmap, Limit: params.Size},
		inodes: alloc.NewInoAllocator(params.NInodes),
	}
	for block := BlockNil; block < geometry.HeaderBlocks; block++ {
		b.blocks.Reserve(block)
	}

	root, err := b.AllocInode(FileTypeDir)
	if err != nil {
		return nil, fmt.Errorf("making root directory: %w", err)
	}
	if root.Ino != InoRoot {
		return nil, fmt.Errorf(
			"making root directory: allocated inode `%d`; wanted `%d`",
			root.Ino,
			InoRoot,
		)
	}
	if err := b.initDir(root, InoRoot); err != nil {
		return nil, fmt.Errorf("making root directory: %w", err)
	}

	if params.LostFoundName != "" {
		if _, err := b.MakeDir(InoRoot, params.LostFoundName); err != nil {
			return nil, fmt.Errorf("making lost+found directory: %w", err)
		}
	}
	return &b, nil
}

// Image returns the image being built. The on-disk bitmap is only current
// after `Finish`.
func (b *Builder) Image() *image.Image { return b.img }

// Finish writes the block bitmap and returns the image.
func (b *Builder) Finish() (*image.Image, error) {
	if err := b.img.PutBitmap(b.bitmap); err != nil {
		return nil, fmt.Errorf("writing block bitmap: %w", err)
	}
	return b.img, nil
}

// AllocInode allocates and writes a new inode of type `ft` with no links
// and no blocks.
func (b *Builder) AllocInode(ft FileType) (*Inode, error) {
	ino, ok := b.inodes.Alloc()
	if !ok {
		return nil, NoFreeInodesErr
	}
	inode := Inode{Ino: ino, Type: ft}
	if err := b.img.PutInode(&inode); err != nil {
		return nil, err
	}
	return &inode, nil
}

// AllocBlock allocates a zeroed data block.
func (b *Builder) AllocBlock() (Block, error) {
	block, ok := b.blocks.Alloc()
	if !ok {
		return BlockNil, NoSpaceErr
	}
	start := block.Offset()
	data := b.img.Bytes()[start : start+BlockSize]
	for i := range data {
		data[i] = 0
	}
	return block, nil
}

// AppendBlock allocates a block and adds it to the end of `inode`'s
// address list, allocating the indirect table if the direct addresses are
// exhausted.
func (b *Builder) AppendBlock(inode *Inode) (Block, error) {
	block, err := b.AllocBlock()
	if err != nil {
		return BlockNil, fmt.Errorf(
			"appending block to inode `%d`: %w",
			inode.Ino,
			err,
		)
	}
	if err := b.addAddress(inode, block); err != nil {
		return BlockNil, fmt.Errorf(
			"appending block to inode `%d`: %w",
			inode.Ino,
			err,
		)
	}
	inode.Size += uint32(BlockSize)
	if err := b.img.PutInode(inode); err != nil {
		return BlockNil, err
	}
	return block, nil
}

func (b *Builder) addAddress(inode *Inode, block Block) error {
	for i := range inode.Direct {
		if inode.Direct[i] == BlockNil {
			inode.Direct[i] = block
			return nil
		}
	}

	if inode.Indirect == BlockNil {
		table, err := b.AllocBlock()
		if err != nil {
			return fmt.Errorf("allocating indirect block: %w", err)
		}
		inode.Indirect = table
	}
	table, err := b.img.IndirectTable(inode.Indirect)
	if err != nil {
		return err
	}
	for i := range table {
		if table[i] == BlockNil {
			table[i] = block
			return b.img.PutIndirectTable(inode.Indirect, table)
		}
	}
	return fmt.Errorf("inode `%d` has no free address slots", inode.Ino)
}

func (b *Builder) initDir(dir *Inode, parent Ino) error {
	block, err := b.AppendBlock(dir)
	if err != nil {
		return err
	}
	dir.NLink = 1
	if err := b.img.PutInode(dir); err != nil {
		return err
	}
	if err := b.img.PutDirEntry(
		block,
		0,
		&DirEntry{Ino: dir.Ino, Name: DotName},
	); err != nil {
		return err
	}
	return b.img.PutDirEntry(
		block,
		1,
		&DirEntry{Ino: parent, Name: DotDotName},
	)
}

// MakeDir creates a directory named `name` in `parent`. Directories carry
// a link count of 1.
func (b *Builder) MakeDir(parent Ino, name string) (Ino, error) {
	dir, err := b.AllocInode(FileTypeDir)
	if err != nil {
		return InoNil, fmt.Errorf("making directory `%s`: %w", name, err)
	}
	if err := b.initDir(dir, parent); err != nil {
		return InoNil, fmt.Errorf("making directory `%s`: %w", name, err)
	}
	if err := b.Link(parent, name, dir.Ino); err != nil {
		return InoNil, fmt.Errorf("making directory `%s`: %w", name, err)
	}
	return dir.Ino, nil
}

// MakeFile creates a regular file named `name` in `parent` with `blocks`
// data blocks.
func (b *Builder) MakeFile(parent Ino, name string, blocks int) (Ino, error) {
	file, err := b.AllocInode(FileTypeFile)
	if err != nil {
		return InoNil, fmt.Errorf("making file `%s`: %w", name, err)
	}
	for i := 0; i < blocks; i++ {
		if _, err := b.AppendBlock(file); err != nil {
			return InoNil, fmt.Errorf("making file `%s`: %w", name, err)
		}
	}
	if err := b.Link(parent, name, file.Ino); err != nil {
		return InoNil, fmt.Errorf("making file `%s`: %w", name, err)
	}
	return file.Ino, nil
}

// Link adds the entry `name -> target` to `dir`, growing the directory by
// a block if it is full. A regular file's link count is incremented.
func (b *Builder) Link(dir Ino, name string, target Ino) error {
	parent, err := b.dir(dir)
	if err != nil {
		return fmt.Errorf("linking `%s`: %w", name, err)
	}

	block, slot, err := b.freeSlot(&parent)
	if err != nil {
		return fmt.Errorf("linking `%s`: %w", name, err)
	}
	entry := DirEntry{Ino: target, Name: name}
	if err := b.img.PutDirEntry(block, slot, &entry); err != nil {
		return fmt.Errorf("linking `%s`: %w", name, err)
	}

	inode, err := b.img.Inode(target)
	if err != nil {
		return fmt.Errorf("linking `%s`: %w", name, err)
	}
	if inode.Type == FileTypeFile {
		inode.NLink++
		return b.img.PutInode(&inode)
	}
	return nil
}

// Unlink clears the first entry called `name` in `dir`. Link counts are
// left alone.
func (b *Builder) Unlink(dir Ino, name string) error {
	parent, err := b.dir(dir)
	if err != nil {
		return fmt.Errorf("unlinking `%s`: %w", name, err)
	}
	block, slot, err := b.lookup(&parent, name)
	if err != nil {
		return fmt.Errorf("unlinking `%s`: %w", name, err)
	}
	return b.img.PutDirEntry(block, slot, &DirEntry{})
}

// SetParent points the `..` entry of `dir` at `parent`.
func (b *Builder) SetParent(dir Ino, parent Ino) error {
	inode, err := b.dir(dir)
	if err != nil {
		return fmt.Errorf("setting parent: %w", err)
	}
	block, slot, err := b.lookup(&inode, DotDotName)
	if err != nil {
		return fmt.Errorf("setting parent of `%d`: %w", dir, err)
	}
	return b.img.PutDirEntry(
		block,
		slot,
		&DirEntry{Ino: parent, Name: DotDotName},
	)
}

func (b *Builder) dir(ino Ino) (Inode, error) {
	inode, err := b.img.Inode(ino)
	if err != nil {
		return Inode{}, err
	}
	if inode.Type != FileTypeDir {
		return Inode{}, fmt.Errorf("inode `%d`: %w", ino, NotDirErr)
	}
	return inode, nil
}

func (b *Builder) freeSlot(dir *Inode) (Block, int, error) {
	blocks, err := b.img.DataBlocks(dir)
	if err != nil {
		return BlockNil, 0, err
	}
	for _, block := range blocks {
		entries, err := b.img.DirEntries(block)
		if err != nil {
			return BlockNil, 0, err
		}
		for slot := range entries {
			if entries[slot].Free() {
				return block, slot, nil
			}
		}
	}
	block, err := b.AppendBlock(dir)
	if err != nil {
		return BlockNil, 0, err
	}
	return block, 0, nil
}

func (b *Builder) lookup(dir *Inode, name string) (Block, int, error) {
	blocks, err := b.img.DataBlocks(dir)
	if err != nil {
		return BlockNil, 0, err
	}
	for _, block := range blocks {
		entries, err := b.img.DirEntries(block)
		if err != nil {
			return BlockNil, 0, err
		}
		for slot := range entries {
			if !entries[slot].Free() && entries[slot].Name == name {
				return block, slot, nil
			}
		}
	}
	return BlockNil, 0, fmt.Errorf(
		"looking up `%s` in directory `%d`: %w",
		name,
		dir.Ino,
		NotFoundErr,
	)
}
