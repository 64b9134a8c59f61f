package image

import (
	"fmt"

	"github.com/weberc2/fsck/pkg/alloc"
	"github.com/weberc2/fsck/pkg/encode"
	. "github.com/weberc2/fsck/pkg/types"
)

// Image is a bounds-checked view over an image buffer. Every accessor
// returns a `KindCorruptImage` error rather than reading outside the
// region the superblock declares.
type Image struct {
	data       []byte
	Superblock Superblock
	Geometry   Geometry
}

// New decodes the superblock at block 1 of `data` and derives the geometry.
// The image aliases `data`; `Put*` methods write through to it.
func New(data []byte) (*Image, error) {
	if Byte(len(data)) < BlockSuperblock.Offset()+BlockSize {
		return nil, Corrupt(BlockSuperblock, fmt.Errorf(
			"reading superblock from `%d`-byte image: %w",
			len(data),
			ImageTooSmallErr,
		))
	}

	var sb Superblock
	start := BlockSuperblock.Offset()
	encode.DecodeSuperblock(
		&sb,
		(*[SuperblockSize]byte)(data[start:start+SuperblockSize]),
	)

	if sb.Size.Offset() > Byte(len(data)) {
		return nil, Corrupt(BlockSuperblock, fmt.Errorf(
			"superblock declares `%d` blocks; image holds `%d` bytes: %w",
			sb.Size,
			len(data),
			ImageTooSmallErr,
		))
	}

	geometry, err := NewGeometry(&sb)
	if err != nil {
		return nil, Corrupt(
			BlockSuperblock,
			fmt.Errorf("deriving geometry: %w", err),
		)
	}

	return &Image{data: data, Superblock: sb, Geometry: geometry}, nil
}

// Format writes `sb` to block 1 of `data` and returns the resulting image.
// Nothing else in `data` is touched.
func Format(data []byte, sb *Superblock) (*Image, error) {
	if Byte(len(data)) < BlockSuperblock.Offset()+BlockSize {
		return nil, fmt.Errorf(
			"formatting `%d`-byte buffer: %w",
			len(data),
			ImageTooSmallErr,
		)
	}
	start := BlockSuperblock.Offset()
	encode.EncodeSuperblock(
		sb,
		(*[SuperblockSize]byte)(data[start:start+SuperblockSize]),
	)
	return New(data)
}

func (img *Image) Bytes() []byte { return img.data }

func (img *Image) block(b Block) (*[BlockSize]byte, error) {
	if b >= img.Geometry.Size {
		return nil, Corrupt(b, fmt.Errorf(
			"block `%d` in image of `%d` blocks: %w",
			b,
			img.Geometry.Size,
			BlockOutOfRangeErr,
		))
	}
	start := b.Offset()
	return (*[BlockSize]byte)(img.data[start : start+BlockSize]), nil
}

func (img *Image) inodeBytes(ino Ino) (*[InodeSize]byte, error) {
	if ino >= img.Geometry.NInodes {
		return nil, &Error{
			Kind: KindCorruptImage,
			Ino:  ino,
			Err: fmt.Errorf(
				"inode `%d` in table of `%d` inodes: %w",
				ino,
				img.Geometry.NInodes,
				InoOutOfRangeErr,
			),
		}
	}
	start := BlockInodeTable.Offset() + Byte(ino)*InodeSize
	return (*[InodeSize]byte)(img.data[start : start+InodeSize]), nil
}

// Inode decodes inode `ino`. The type field is not validated.
func (img *Image) Inode(ino Ino) (Inode, error) {
	p, err := img.inodeBytes(ino)
	if err != nil {
		return Inode{}, err
	}
	var inode Inode
	encode.DecodeInode(&inode, p)
	inode.Ino = ino
	return inode, nil
}

func (img *Image) PutInode(inode *Inode) error {
	p, err := img.inodeBytes(inode.Ino)
	if err != nil {
		return fmt.Errorf("writing inode: %w", err)
	}
	encode.EncodeInode(inode, p)
	return nil
}

// DirEntries decodes every slot of directory block `b`, free slots
// included, so that slot indices line up with the on-disk layout.
func (img *Image) DirEntries(b Block) ([]DirEntry, error) {
	p, err := img.block(b)
	if err != nil {
		return nil, fmt.Errorf("reading directory block: %w", err)
	}
	entries := make([]DirEntry, DirEntriesPerBlock)
	for i := range entries {
		start := Byte(i) * DirEntrySize
		encode.DecodeDirEntry(
			&entries[i],
			(*[DirEntrySize]byte)(p[start:start+DirEntrySize]),
		)
	}
	return entries, nil
}

func (img *Image) PutDirEntry(b Block, slot int, entry *DirEntry) error {
	if slot < 0 || slot >= DirEntriesPerBlock {
		return fmt.Errorf(
			"writing directory entry to slot `%d` of block `%d`: slot out "+
				"of range",
			slot,
			b,
		)
	}
	if entry.Ino > MaxDirEntryIno {
		return fmt.Errorf(
			"writing directory entry `%s` -> `%d`: %w",
			entry.Name,
			entry.Ino,
			InoUnnameableErr,
		)
	}
	p, err := img.block(b)
	if err != nil {
		return fmt.Errorf("writing directory entry: %w", err)
	}
	start := Byte(slot) * DirEntrySize
	encode.EncodeDirEntry(
		entry,
		(*[DirEntrySize]byte)(p[start:start+DirEntrySize]),
	)
	return nil
}

// IndirectTable decodes the block numbers held by indirect block `b`.
func (img *Image) IndirectTable(b Block) ([]Block, error) {
	p, err := img.block(b)
	if err != nil {
		return nil, fmt.Errorf("reading indirect block: %w", err)
	}
	table := make([]Block, PointersPerBlock)
	encode.DecodeIndirectTable(table, p)
	return table, nil
}

func (img *Image) PutIndirectTable(b Block, table []Block) error {
	if len(table) > PointersPerBlock {
		return fmt.Errorf(
			"writing `%d` pointers to indirect block `%d`: table holds `%d`",
			len(table),
			b,
			PointersPerBlock,
		)
	}
	p, err := img.block(b)
	if err != nil {
		return fmt.Errorf("writing indirect block: %w", err)
	}
	encode.EncodeIndirectTable(table, p)
	return nil
}

func (img *Image) PutSuperblock(sb *Superblock) error {
	p, err := img.block(BlockSuperblock)
	if err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	encode.EncodeSuperblock(sb, (*[SuperblockSize]byte)(p[:SuperblockSize]))
	img.Superblock = *sb
	return nil
}

func (img *Image) bitmapBytes() []byte {
	start := img.Geometry.BitmapStart.Offset()
	return img.data[start : start+img.Geometry.BitmapBlocks.Offset()]
}

// Bitmap returns a view over the block-usage bitmap. Bits at or beyond
// `Geometry.Size` carry no meaning.
func (img *Image) Bitmap() alloc.Bitmap {
	return alloc.FromBytes(img.bitmapBytes())
}

// PutBitmap overwrites the on-disk bitmap with `bm`.
func (img *Image) PutBitmap(bm alloc.Bitmap) error {
	region := img.bitmapBytes()
	if len(bm.Bytes()) > len(region) {
		return fmt.Errorf(
			"writing `%d`-byte bitmap to `%d`-byte bitmap region",
			len(bm.Bytes()),
			len(region),
		)
	}
	n := copy(region, bm.Bytes())
	for i := range region[n:] {
		region[n+i] = 0
	}
	return nil
}

// DataBlocks returns the data blocks of `inode` in file order: the non-zero
// direct addresses followed by the non-zero entries of the indirect table.
// Addresses outside the data region are skipped; `scan.Inodes` is where they
// are reported.
func (img *Image) DataBlocks(inode *Inode) ([]Block, error) {
	var blocks []Block
	for _, b := range inode.Direct {
		if b != BlockNil && img.Geometry.ValidDataBlock(b) {
			blocks = append(blocks, b)
		}
	}
	if inode.Indirect == BlockNil ||
		!img.Geometry.ValidDataBlock(inode.Indirect) {
		return blocks, nil
	}
	table, err := img.IndirectTable(inode.Indirect)
	if err != nil {
		return nil, fmt.Errorf(
			"listing data blocks for inode `%d`: %w",
			inode.Ino,
			err,
		)
	}
	for _, b := range table {
		if b != BlockNil && img.Geometry.ValidDataBlock(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}
