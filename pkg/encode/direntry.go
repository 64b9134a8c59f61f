package encode

import (
	"bytes"

	. "github.com/weberc2/fsck/pkg/types"
)

// EncodeDirEntry writes `entry` into `b`. Names longer than `DirNameSize`
// are truncated; shorter names are NUL-padded.
func EncodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	p := b[:]
	putU16(p, dirEntryInoStart, uint16(entry.Ino))
	name := p[dirEntryNameStart:dirEntryNameEnd]
	n := copy(name, entry.Name)
	for i := n; i < len(name); i++ {
		name[i] = 0
	}
}

func DecodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	p := b[:]
	entry.Ino = Ino(getU16(p, dirEntryInoStart))
	name := p[dirEntryNameStart:dirEntryNameEnd]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	entry.Name = string(name)
}

const (
	dirEntryInoStart = 0
	dirEntryInoSize  = 2
	dirEntryInoEnd   = dirEntryInoStart + dirEntryInoSize

	dirEntryNameStart = dirEntryInoEnd
	dirEntryNameSize  = DirNameSize
	dirEntryNameEnd   = dirEntryNameStart + dirEntryNameSize
)
