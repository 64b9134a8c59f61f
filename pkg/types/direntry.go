package types

const (
	DirNameSize        Byte = 14
	DirEntrySize       Byte = 2 + DirNameSize
	DirEntriesPerBlock      = int(BlockSize / DirEntrySize)

	DotName    = "."
	DotDotName = ".."

	// MaxDirEntryIno is the largest inode number a directory entry can
	// hold; entries store it in 16 bits.
	MaxDirEntryIno Ino = 1<<16 - 1
)

type DirEntry struct {
	Ino  Ino    `json:"ino" yaml:"ino"`
	Name string `json:"name" yaml:"name"`
}

// Free reports whether the entry is an unused slot.
func (entry *DirEntry) Free() bool { return entry.Ino == InoNil }

// IsDot reports whether the entry is one of the `.` or `..` self/parent
// links.
func (entry *DirEntry) IsDot() bool {
	return entry.Name == DotName || entry.Name == DotDotName
}
