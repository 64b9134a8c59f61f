package image

import (
	"errors"
	"reflect"
	"testing"

	"github.com/weberc2/fsck/pkg/alloc"
	. "github.com/weberc2/fsck/pkg/types"
)

func TestNewGeometry(t *testing.T) {
	for _, testCase := range []struct {
		name      string
		sb        Superblock
		wanted    Geometry
		wantedErr error
	}{
		{
			name: "xv6-default",
			sb:   Superblock{Size: 1024, NBlocks: 995, NInodes: 200},
			wanted: Geometry{
				Size:         1024,
				NBlocks:      995,
				NInodes:      200,
				InodeBlocks:  25,
				BitmapStart:  27,
				BitmapBlocks: 1,
				HeaderBlocks: 28,
			},
		},
		{
			name: "multi-block-bitmap",
			sb:   Superblock{Size: 5000, NBlocks: 4995, NInodes: 8},
			wanted: Geometry{
				Size:         5000,
				NBlocks:      4995,
				NInodes:      8,
				InodeBlocks:  1,
				BitmapStart:  3,
				BitmapBlocks: 2,
				HeaderBlocks: 5,
			},
		},
		{
			name:      "no-inodes",
			sb:        Superblock{Size: 1024, NInodes: 0},
			wantedErr: NoInodesErr,
		},
		{
			name:      "header-too-large",
			sb:        Superblock{Size: 3, NInodes: 8},
			wantedErr: HeaderTooLargeErr,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			found, err := NewGeometry(&testCase.sb)
			if !errors.Is(err, testCase.wantedErr) {
				t.Fatalf(
					"NewGeometry(): wanted err `%v`; found `%v`",
					testCase.wantedErr,
					err,
				)
			}
			if found != testCase.wanted {
				t.Fatalf(
					"NewGeometry(): wanted `%+v`; found `%+v`",
					testCase.wanted,
					found,
				)
			}
		})
	}
}

func newImage(t *testing.T, size Block, ninodes Ino) *Image {
	t.Helper()
	img, err := Format(
		make([]byte, size.Offset()),
		&Superblock{Size: size, NInodes: ninodes},
	)
	if err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	return img
}

func TestNew_Corrupt(t *testing.T) {
	for _, testCase := range []struct {
		name string
		data func() []byte
	}{
		{
			name: "shorter-than-superblock",
			data: func() []byte { return make([]byte, 700) },
		},
		{
			name: "shorter-than-declared-size",
			data: func() []byte {
				data := newImage(t, 64, 16).Bytes()
				return data[:32*BlockSize]
			},
		},
		{
			name: "zero-inodes",
			data: func() []byte {
				img := newImage(t, 64, 16)
				data := img.Bytes()
				data[BlockSuperblock.Offset()+8] = 0
				data[BlockSuperblock.Offset()+9] = 0
				return data
			},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New(testCase.data())
			if err := KindCorruptImage.CompareErr(err); err != nil {
				t.Fatalf("New(): %v", err)
			}
		})
	}
}

func TestImage_InodeBounds(t *testing.T) {
	img := newImage(t, 64, 16)

	inode := Inode{Ino: 15, Type: FileTypeFile, NLink: 1, Size: 3}
	inode.Direct[0] = 60
	if err := img.PutInode(&inode); err != nil {
		t.Fatalf("PutInode(): unexpected err: %v", err)
	}
	found, err := img.Inode(15)
	if err != nil {
		t.Fatalf("Inode(15): unexpected err: %v", err)
	}
	if found != inode {
		t.Fatalf("Inode(15): wanted `%+v`; found `%+v`", inode, found)
	}

	_, err = img.Inode(16)
	wanted := Error{Kind: KindCorruptImage, Ino: 16}
	if err := wanted.Compare(err); err != nil {
		t.Fatalf("Inode(16): %v", err)
	}
	if !errors.Is(err, InoOutOfRangeErr) {
		t.Fatalf("Inode(16): wanted `%v`; found `%v`", InoOutOfRangeErr, err)
	}
}

func TestImage_PutDirEntry_InoTooLarge(t *testing.T) {
	img := newImage(t, 64, 16)
	before := append([]byte(nil), img.Bytes()...)
	err := img.PutDirEntry(40, 0, &DirEntry{Ino: MaxDirEntryIno + 1, Name: "x"})
	if !errors.Is(err, InoUnnameableErr) {
		t.Fatalf("PutDirEntry(): wanted `%v`; found `%v`", InoUnnameableErr, err)
	}
	if !reflect.DeepEqual(before, img.Bytes()) {
		t.Fatal("PutDirEntry(): wanted image unchanged")
	}

	if err := img.PutDirEntry(
		40,
		0,
		&DirEntry{Ino: MaxDirEntryIno, Name: "x"},
	); err != nil {
		t.Fatalf("PutDirEntry(%d): unexpected err: %v", MaxDirEntryIno, err)
	}
}

func TestImage_DirEntries(t *testing.T) {
	img := newImage(t, 64, 16)
	if err := img.PutDirEntry(40, 31, &DirEntry{Ino: 3, Name: "x"}); err != nil {
		t.Fatalf("PutDirEntry(): unexpected err: %v", err)
	}
	entries, err := img.DirEntries(40)
	if err != nil {
		t.Fatalf("DirEntries(): unexpected err: %v", err)
	}
	if len(entries) != DirEntriesPerBlock {
		t.Fatalf(
			"DirEntries(): wanted `%d` slots; found `%d`",
			DirEntriesPerBlock,
			len(entries),
		)
	}
	if wanted := (DirEntry{Ino: 3, Name: "x"}); entries[31] != wanted {
		t.Fatalf("DirEntries()[31]: wanted `%+v`; found `%+v`", wanted, entries[31])
	}
	if !entries[0].Free() {
		t.Fatalf("DirEntries()[0]: wanted free slot; found `%+v`", entries[0])
	}

	_, err = img.DirEntries(64)
	wanted := Error{Kind: KindCorruptImage, Block: 64}
	if err := wanted.Compare(err); err != nil {
		t.Fatalf("DirEntries(64): %v", err)
	}
}

func TestImage_DataBlocks(t *testing.T) {
	img := newImage(t, 64, 16)
	header := img.Geometry.HeaderBlocks

	table := make([]Block, PointersPerBlock)
	table[0] = header + 5
	table[1] = 2 // header block, skipped
	table[7] = header + 6
	if err := img.PutIndirectTable(header+4, table); err != nil {
		t.Fatalf("PutIndirectTable(): unexpected err: %v", err)
	}

	inode := Inode{Ino: 2, Type: FileTypeFile, Indirect: header + 4}
	inode.Direct[0] = header
	inode.Direct[3] = header + 1
	inode.Direct[4] = 64 // past the end, skipped

	found, err := img.DataBlocks(&inode)
	if err != nil {
		t.Fatalf("DataBlocks(): unexpected err: %v", err)
	}
	wanted := []Block{header, header + 1, header + 5, header + 6}
	if !reflect.DeepEqual(wanted, found) {
		t.Fatalf("DataBlocks(): wanted `%v`; found `%v`", wanted, found)
	}
}

func TestImage_Bitmap(t *testing.T) {
	img := newImage(t, 64, 16)

	bm := alloc.New(64)
	bm.Reserve(0)
	bm.Reserve(9)
	if err := img.PutBitmap(bm); err != nil {
		t.Fatalf("PutBitmap(): unexpected err: %v", err)
	}

	region := img.Geometry.BitmapStart.Offset()
	if found := img.Bytes()[region : region+2]; found[0] != 0x01 ||
		found[1] != 0x02 {
		t.Fatalf("PutBitmap(): wanted `[0x01 0x02]`; found `%#x`", found)
	}

	// writes through the view reach the image
	img.Bitmap().Reserve(20)
	if !img.Bitmap().IsSet(20) {
		t.Fatal("Bitmap().IsSet(20): wanted `true`; found `false`")
	}
}
