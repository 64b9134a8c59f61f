package check

import (
	"github.com/weberc2/fsck/pkg/dirgraph"
	"github.com/weberc2/fsck/pkg/scan"
	. "github.com/weberc2/fsck/pkg/types"
)

func checkInodeTypes(s *state) error {
	for i := range s.inodes {
		if err := s.inodes[i].Type.Validate(); err != nil {
			return &Error{Kind: KindBadInode, Ino: s.inodes[i].Ino, Err: err}
		}
	}
	return nil
}

func checkRoot(s *state) error {
	if s.img.Geometry.NInodes <= InoRoot {
		return violation(KindBadRoot, InoRoot, BlockNil, "no inode `1`")
	}
	root := &s.inodes[InoRoot]
	if root.Type != FileTypeDir {
		return violation(
			KindBadRoot,
			InoRoot,
			BlockNil,
			"root has type `%s`",
			root.Type,
		)
	}
	first := root.Direct[0]
	if !s.img.Geometry.ValidDataBlock(first) {
		return violation(KindBadRoot, InoRoot, first, "root has no data block")
	}
	entries, err := s.img.DirEntries(first)
	if err != nil {
		return err
	}
	if entries[0] != (DirEntry{Ino: InoRoot, Name: DotName}) ||
		entries[1] != (DirEntry{Ino: InoRoot, Name: DotDotName}) {
		return violation(
			KindBadRoot,
			InoRoot,
			first,
			"root begins with `%s`->`%d`, `%s`->`%d`",
			entries[0].Name,
			entries[0].Ino,
			entries[1].Name,
			entries[1].Ino,
		)
	}
	return nil
}

func checkDirFormat(s *state) error {
	for i := range s.inodes {
		dir := &s.inodes[i]
		if dir.Type != FileTypeDir || dir.Ino == InoRoot {
			continue
		}
		dots, dotdots := 0, 0
		for _, entry := range s.graph.DirEntries(dir.Ino) {
			if entry.Indirect {
				continue
			}
			switch entry.Name {
			case DotName:
				if entry.Ino != dir.Ino {
					return violation(
						KindBadDirFormat,
						dir.Ino,
						entry.Block,
						"`.` names inode `%d`",
						entry.Ino,
					)
				}
				dots++
			case DotDotName:
				dotdots++
			}
		}
		if dots != 1 || dotdots != 1 {
			return violation(
				KindBadDirFormat,
				dir.Ino,
				BlockNil,
				"found `%d` `.` entries and `%d` `..` entries",
				dots,
				dotdots,
			)
		}
	}
	return nil
}

func checkUsedNotMarked(s *state) error {
	bm := s.img.Bitmap()
	for _, ref := range s.refs {
		if !bm.IsSet(uint64(ref.Block)) {
			return violation(
				KindUsedNotMarked,
				ref.Ino,
				ref.Block,
				"block is free in bitmap",
			)
		}
	}
	return nil
}

func checkMarkedNotUsed(s *state) error {
	used := make(map[Block]struct{}, len(s.refs))
	for _, ref := range s.refs {
		used[ref.Block] = struct{}{}
	}
	for _, b := range s.marked {
		if b < s.img.Geometry.HeaderBlocks {
			continue
		}
		if _, ok := used[b]; !ok {
			return violation(
				KindMarkedNotUsed,
				InoNil,
				b,
				"no inode uses block",
			)
		}
	}
	return nil
}

// checkDuplicates reports the first reference, in scan order, to a block
// referenced more than once. The kind follows that first reference's tag.
func checkDuplicates(s *state) error {
	counts := make(map[Block]int, len(s.refs))
	for _, ref := range s.refs {
		counts[ref.Block]++
	}
	for _, ref := range s.refs {
		if counts[ref.Block] < 2 {
			continue
		}
		kind := KindDirectDuplicate
		if ref.Kind == scan.RefIndirect {
			kind = KindIndirectDuplicate
		}
		return violation(
			kind,
			ref.Ino,
			ref.Block,
			"block referenced `%d` times",
			counts[ref.Block],
		)
	}
	return nil
}

func checkInodeNotFound(s *state) error {
	for i := InoRoot; i < Ino(len(s.inodes)); i++ {
		inode := &s.inodes[i]
		if inode.Free() || inode.NLink < 1 {
			continue
		}
		if !s.graph.Named(inode.Ino) {
			return violation(
				KindInodeNotFound,
				inode.Ino,
				BlockNil,
				"`%s` inode with `%d` links is in no directory",
				inode.Type,
				inode.NLink,
			)
		}
	}
	return nil
}

func checkInodeRefFree(s *state) error {
	for _, entry := range s.graph.Entries() {
		if entry.Ino >= Ino(len(s.inodes)) || s.inodes[entry.Ino].Free() {
			return violation(
				KindInodeRefFree,
				entry.Ino,
				entry.Block,
				"entry `%s` in directory `%d`",
				entry.Name,
				entry.Dir,
			)
		}
	}
	return nil
}

func checkRefCount(s *state) error {
	for i := range s.inodes {
		inode := &s.inodes[i]
		if inode.Type != FileTypeFile {
			continue
		}
		if refs := s.graph.RefCount(inode.Ino); int(inode.NLink) != refs {
			return violation(
				KindBadRefCount,
				inode.Ino,
				BlockNil,
				"nlink `%d`; references `%d`",
				inode.NLink,
				refs,
			)
		}
	}
	return nil
}

func checkDirLinkedTwice(s *state) error {
	for i := range s.inodes {
		dir := &s.inodes[i]
		if dir.Type != FileTypeDir {
			continue
		}
		if refs := s.graph.RefCount(dir.Ino); refs > 1 {
			return violation(
				KindDirLinkedTwice,
				dir.Ino,
				BlockNil,
				"directory referenced `%d` times",
				refs,
			)
		}
	}
	return nil
}

func checkParentMismatch(s *state) error {
	for i := range s.inodes {
		dir := &s.inodes[i]
		if dir.Type != FileTypeDir {
			continue
		}
		parent, ok := s.graph.ParentOf(dir.Ino)
		if !ok {
			continue
		}
		if !s.graph.IsDir(parent) || !s.graph.FindEntry(parent, dir.Ino) {
			return violation(
				KindParentMismatch,
				dir.Ino,
				BlockNil,
				"parent `%d` does not name directory",
				parent,
			)
		}
	}
	return nil
}

func checkOrphanDir(s *state) error {
	for i := range s.inodes {
		dir := &s.inodes[i]
		if dir.Type != FileTypeDir {
			continue
		}
		if result := s.graph.WalkToRoot(dir.Ino); result != dirgraph.WalkOK {
			return violation(
				KindOrphanDir,
				dir.Ino,
				BlockNil,
				"walking `..` to root: %s",
				result,
			)
		}
	}
	return nil
}
