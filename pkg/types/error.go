package types

import (
	"errors"
	"fmt"
)

type ConstError string

func (err ConstError) Error() string { return string(err) }

// Kind classifies a file system violation. Every consistency check reports
// exactly one kind, and the repair engine adds its own precondition kinds.
type Kind int

const (
	KindNone Kind = iota
	KindCorruptImage
	KindBadInode
	KindBadDirectAddress
	KindBadIndirectAddress
	KindBadRoot
	KindBadDirFormat
	KindUsedNotMarked
	KindMarkedNotUsed
	KindDirectDuplicate
	KindIndirectDuplicate
	KindInodeNotFound
	KindInodeRefFree
	KindBadRefCount
	KindDirLinkedTwice
	KindParentMismatch
	KindOrphanDir
	KindNoLostFound
	KindDirectoryFull
)

var kindNames = [...]string{
	KindNone:               "none",
	KindCorruptImage:       "corrupt-image",
	KindBadInode:           "bad-inode",
	KindBadDirectAddress:   "bad-direct-address",
	KindBadIndirectAddress: "bad-indirect-address",
	KindBadRoot:            "bad-root",
	KindBadDirFormat:       "bad-dir-format",
	KindUsedNotMarked:      "used-not-marked",
	KindMarkedNotUsed:      "marked-not-used",
	KindDirectDuplicate:    "direct-duplicate",
	KindIndirectDuplicate:  "indirect-duplicate",
	KindInodeNotFound:      "inode-not-found",
	KindInodeRefFree:       "inode-ref-free",
	KindBadRefCount:        "bad-ref-count",
	KindDirLinkedTwice:     "dir-linked-twice",
	KindParentMismatch:     "parent-mismatch",
	KindOrphanDir:          "orphan-dir",
	KindNoLostFound:        "no-lost-found",
	KindDirectoryFull:      "directory-full",
}

var kindMessages = [...]string{
	KindNone:               "ERROR: unknown error.",
	KindCorruptImage:       "ERROR: image is corrupt.",
	KindBadInode:           "ERROR: bad inode.",
	KindBadDirectAddress:   "ERROR: bad direct address in inode.",
	KindBadIndirectAddress: "ERROR: bad indirect address in inode.",
	KindBadRoot:            "ERROR: root directory does not exist.",
	KindBadDirFormat:       "ERROR: directory not properly formatted.",
	KindUsedNotMarked:      "ERROR: address used by inode but marked free in bitmap.",
	KindMarkedNotUsed:      "ERROR: bitmap marks block in use but it is not in use.",
	KindDirectDuplicate:    "ERROR: direct address used more than once.",
	KindIndirectDuplicate:  "ERROR: indirect address used more than once.",
	KindInodeNotFound:      "ERROR: inode marked use but not found in a directory.",
	KindInodeRefFree:       "ERROR: inode referred to in directory but marked free.",
	KindBadRefCount:        "ERROR: bad reference count for file.",
	KindDirLinkedTwice:     "ERROR: directory appears more than once in file system.",
	KindParentMismatch:     "ERROR: parent directory mismatch.",
	KindOrphanDir:          "ERROR: inaccessible directory exists.",
	KindNoLostFound:        "ERROR: run in repair mode without lost+found dir.",
	KindDirectoryFull:      "ERROR: directory is already full.",
}

func (k Kind) valid() bool { return k >= KindNone && k <= KindDirectoryFull }

// String returns the short machine-friendly name of the kind, e.g.,
// `bad-inode`.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Message returns the single-line diagnostic for the kind.
func (k Kind) Message() string {
	if !k.valid() {
		return kindMessages[KindNone]
	}
	return kindMessages[k]
}

// Error lets a Kind be used as an `errors.Is` target.
func (k Kind) Error() string { return k.Message() }

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(data []byte) error {
	for i, name := range kindNames {
		if name == string(data) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unmarshaling kind `%s`: %w", data, UnknownKindErr)
}

// Error is a violation found in an image. `Ino` and `Block` locate the
// violation when they are meaningful for the kind (zero otherwise).
type Error struct {
	Kind  Kind
	Ino   Ino
	Block Block
	Err   error
}

func (err *Error) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s: %v", err.Kind.Message(), err.Err)
	}
	return err.Kind.Message()
}

func (err *Error) Unwrap() error { return err.Err }

func (err *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == err.Kind
}

// Detail describes where the violation was found.
func (err *Error) Detail() string {
	return fmt.Sprintf(
		"%s (ino=%d) (block=%d)",
		err.Kind.String(),
		err.Ino,
		err.Block,
	)
}

// Compare returns nil if `other` is (or wraps) an `*Error` with the same
// kind, inode, and block as `err`.
func (err *Error) Compare(other error) error {
	var e *Error
	if !errors.As(other, &e) {
		return fmt.Errorf("wanted `%s`; found `%v`", err.Detail(), other)
	}
	if e.Kind != err.Kind || e.Ino != err.Ino || e.Block != err.Block {
		return fmt.Errorf("wanted `%s`; found `%s`", err.Detail(), e.Detail())
	}
	return nil
}

// CompareErr returns nil if `other` is an error of kind `k`.
func (k Kind) CompareErr(other error) error {
	if k == KindNone {
		if other == nil {
			return nil
		}
		return fmt.Errorf("wanted `nil`; found `%T`: %v", other, other)
	}
	if !errors.Is(other, k) {
		return fmt.Errorf("wanted `%s`; found `%v`", k.String(), other)
	}
	return nil
}

// Corrupt builds a `KindCorruptImage` error.
func Corrupt(block Block, err error) *Error {
	return &Error{Kind: KindCorruptImage, Block: block, Err: err}
}

const (
	BlockOutOfRangeErr ConstError = "block out of range"
	InoOutOfRangeErr   ConstError = "inode number out of range"
	ImageTooSmallErr   ConstError = "image smaller than its superblock claims"
	HeaderTooLargeErr  ConstError = "header region exceeds image size"
	NoInodesErr        ConstError = "superblock declares no inodes"
	UnknownKindErr     ConstError = "unknown error kind"
	InoUnnameableErr   ConstError = "inode number does not fit in a directory entry"
)
