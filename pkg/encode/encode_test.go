package encode

import (
	"bytes"
	"testing"

	. "github.com/weberc2/fsck/pkg/types"
)

func TestEncodeInode_Layout(t *testing.T) {
	inode := Inode{
		Type:     FileTypeFile,
		Major:    3,
		Minor:    4,
		NLink:    1,
		Size:     0x01020304,
		Indirect: 0x0a0b0c0d,
	}
	inode.Direct[0] = 40
	inode.Direct[11] = 0xdeadbeef

	var buf [InodeSize]byte
	EncodeInode(&inode, &buf)

	for _, field := range []struct {
		name   string
		offset int
		wanted []byte
	}{
		{name: "type", offset: 0, wanted: []byte{2, 0}},
		{name: "major", offset: 2, wanted: []byte{3, 0}},
		{name: "minor", offset: 4, wanted: []byte{4, 0}},
		{name: "nlink", offset: 6, wanted: []byte{1, 0}},
		{name: "size", offset: 8, wanted: []byte{4, 3, 2, 1}},
		{name: "direct[0]", offset: 12, wanted: []byte{40, 0, 0, 0}},
		{
			name:   "direct[11]",
			offset: 56,
			wanted: []byte{0xef, 0xbe, 0xad, 0xde},
		},
		{
			name:   "indirect",
			offset: 60,
			wanted: []byte{0x0d, 0x0c, 0x0b, 0x0a},
		},
	} {
		found := buf[field.offset : field.offset+len(field.wanted)]
		if !bytes.Equal(field.wanted, found) {
			t.Fatalf(
				"EncodeInode(): field `%s`: wanted `%#x`; found `%#x`",
				field.name,
				field.wanted,
				found,
			)
		}
	}

	var decoded Inode
	DecodeInode(&decoded, &buf)
	if decoded != inode {
		t.Fatalf("DecodeInode(): wanted `%+v`; found `%+v`", inode, decoded)
	}
}

func TestDecodeInode_InvalidType(t *testing.T) {
	// Given an inode whose type field holds garbage
	var buf [InodeSize]byte
	buf[0] = 0x39

	// When it is decoded
	var inode Inode
	DecodeInode(&inode, &buf)

	// Then the raw value should survive so the checker can report it
	if inode.Type != 0x39 {
		t.Fatalf("DecodeInode(): wanted type `0x39`; found `%#x`", inode.Type)
	}
	if err := inode.Type.Validate(); err == nil {
		t.Fatal("Validate(): wanted error; found `nil`")
	}
}

func TestDirEntry(t *testing.T) {
	for _, testCase := range []struct {
		name       string
		entry      DirEntry
		wantedName string
		wantedRaw  []byte
	}{
		{
			name:       "dot",
			entry:      DirEntry{Ino: 1, Name: "."},
			wantedName: ".",
			wantedRaw: []byte{
				1, 0, '.', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
			},
		},
		{
			name:       "full-width",
			entry:      DirEntry{Ino: 0x0102, Name: "abcdefghijklmn"},
			wantedName: "abcdefghijklmn",
			wantedRaw:  append([]byte{2, 1}, "abcdefghijklmn"...),
		},
		{
			name:       "truncated",
			entry:      DirEntry{Ino: 7, Name: "abcdefghijklmnopq"},
			wantedName: "abcdefghijklmn",
			wantedRaw:  append([]byte{7, 0}, "abcdefghijklmn"...),
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			var buf [DirEntrySize]byte
			// dirty the buffer to make sure padding is rewritten
			for i := range buf {
				buf[i] = 0xff
			}
			EncodeDirEntry(&testCase.entry, &buf)
			if !bytes.Equal(testCase.wantedRaw, buf[:]) {
				t.Fatalf(
					"EncodeDirEntry(): wanted `%#x`; found `%#x`",
					testCase.wantedRaw,
					buf[:],
				)
			}

			var found DirEntry
			DecodeDirEntry(&found, &buf)
			if found.Ino != testCase.entry.Ino {
				t.Fatalf(
					"DecodeDirEntry(): ino: wanted `%d`; found `%d`",
					testCase.entry.Ino,
					found.Ino,
				)
			}
			if found.Name != testCase.wantedName {
				t.Fatalf(
					"DecodeDirEntry(): name: wanted `%s`; found `%s`",
					testCase.wantedName,
					found.Name,
				)
			}
		})
	}
}

func TestSuperblock(t *testing.T) {
	var buf [SuperblockSize]byte
	EncodeSuperblock(
		&Superblock{Size: 1024, NBlocks: 995, NInodes: 200},
		&buf,
	)
	wanted := []byte{0, 4, 0, 0, 0xe3, 3, 0, 0, 200, 0, 0, 0}
	if !bytes.Equal(wanted, buf[:]) {
		t.Fatalf("EncodeSuperblock(): wanted `%#x`; found `%#x`", wanted, buf)
	}

	var sb Superblock
	DecodeSuperblock(&sb, &buf)
	if sb.Size != 1024 || sb.NBlocks != 995 || sb.NInodes != 200 {
		t.Fatalf("DecodeSuperblock(): found `%+v`", sb)
	}
}
