// Package check runs the ordered consistency checks over an image.
package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/weberc2/fsck/pkg/dirgraph"
	"github.com/weberc2/fsck/pkg/image"
	"github.com/weberc2/fsck/pkg/logger"
	"github.com/weberc2/fsck/pkg/scan"
	. "github.com/weberc2/fsck/pkg/types"
)

type Options struct {
	// Exhaustive runs every check and returns one violation per failing
	// check, joined with `errors.Join`. A `KindCorruptImage` error still
	// aborts the run.
	Exhaustive bool
}

// state holds the image and the summaries built once per run.
type state struct {
	img    *image.Image
	inodes []Inode
	refs   []scan.Ref
	marked []Block
	graph  *dirgraph.Graph
}

type check struct {
	name string
	run  func(*state) error
}

// checks run in this order after the inode-type and address checks.
var checks = []check{
	{name: "root", run: checkRoot},
	{name: "dir-format", run: checkDirFormat},
	{name: "used-not-marked", run: checkUsedNotMarked},
	{name: "marked-not-used", run: checkMarkedNotUsed},
	{name: "duplicates", run: checkDuplicates},
	{name: "inode-not-found", run: checkInodeNotFound},
	{name: "inode-ref-free", run: checkInodeRefFree},
	{name: "ref-count", run: checkRefCount},
	{name: "dir-linked-twice", run: checkDirLinkedTwice},
	{name: "parent-mismatch", run: checkParentMismatch},
	{name: "orphan-dir", run: checkOrphanDir},
}

// Run checks `img` and returns the first violation, or every violation
// when `opts.Exhaustive` is set. Violations are `*types.Error` values.
func Run(ctx context.Context, img *image.Image, opts Options) error {
	log := logger.Get(ctx)
	var violations []error
	fail := func(err error) error {
		var e *Error
		if errors.As(err, &e) {
			log.Debug("violation", "detail", e.Detail())
		}
		violations = append(violations, err)
		if !opts.Exhaustive || errors.Is(err, KindCorruptImage) {
			return join(violations)
		}
		return nil
	}

	s := state{img: img}
	inodes, err := readInodes(img)
	if err != nil {
		return err
	}
	s.inodes = inodes

	log.Debug("checking", "check", "inode-types")
	if err := checkInodeTypes(&s); err != nil {
		if err := fail(err); err != nil {
			return err
		}
	}

	log.Debug("checking", "check", "addresses")
	refs, err := scan.Inodes(img, scan.Options{Exhaustive: opts.Exhaustive})
	if err != nil {
		if err := fail(err); err != nil {
			return err
		}
	}
	s.refs = refs
	s.marked = scan.Bitmap(img)

	if s.graph, err = dirgraph.Build(img); err != nil {
		// later checks need the graph
		fail(err)
		return join(violations)
	}

	for _, c := range checks {
		log.Debug("checking", "check", c.name)
		if err := c.run(&s); err != nil {
			if err := fail(err); err != nil {
				return err
			}
		}
	}
	return join(violations)
}

// join returns a lone violation unwrapped so fail-fast callers see the
// `*types.Error` itself.
func join(violations []error) error {
	if len(violations) == 1 {
		return violations[0]
	}
	return errors.Join(violations...)
}

func readInodes(img *image.Image) ([]Inode, error) {
	inodes := make([]Inode, img.Geometry.NInodes)
	for ino := range inodes {
		inode, err := img.Inode(Ino(ino))
		if err != nil {
			return nil, fmt.Errorf("reading inodes: %w", err)
		}
		inodes[ino] = inode
	}
	return inodes, nil
}

func violation(kind Kind, ino Ino, block Block, format string, v ...any) error {
	return &Error{
		Kind:  kind,
		Ino:   ino,
		Block: block,
		Err:   fmt.Errorf(format, v...),
	}
}
