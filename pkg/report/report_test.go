package report

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/weberc2/fsck/pkg/testsupport"
	"github.com/weberc2/fsck/pkg/types"
)

var now = time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)

func TestReport_Finish(t *testing.T) {
	for _, testCase := range []struct {
		name          string
		err           error
		relinked      []types.Ino
		wantedOutcome Outcome
		wantedKinds   []types.Kind
	}{
		{name: "clean", wantedOutcome: OutcomeClean},
		{
			name:          "repaired",
			relinked:      []types.Ino{3, 7},
			wantedOutcome: OutcomeRepaired,
		},
		{
			name: "violation",
			err: fmt.Errorf(
				"checking: %w",
				&types.Error{Kind: types.KindOrphanDir, Ino: 4},
			),
			wantedOutcome: OutcomeViolation,
			wantedKinds:   []types.Kind{types.KindOrphanDir},
		},
		{
			name: "joined",
			err: errors.Join(
				&types.Error{Kind: types.KindBadInode},
				&types.Error{Kind: types.KindBadRefCount},
			),
			wantedOutcome: OutcomeViolation,
			wantedKinds: []types.Kind{
				types.KindBadInode,
				types.KindBadRefCount,
			},
		},
		{
			name:          "corrupt",
			err:           types.Corrupt(1, types.ImageTooSmallErr),
			wantedOutcome: OutcomeError,
			wantedKinds:   []types.Kind{types.KindCorruptImage},
		},
		{
			name:          "io",
			err:           errors.New("opening image: permission denied"),
			wantedOutcome: OutcomeError,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			r := New("fs.img", ModeCheck, now)
			r.Finish(testCase.err, testCase.relinked, now.Add(time.Second))
			if r.Outcome != testCase.wantedOutcome {
				t.Fatalf(
					"Outcome: wanted `%s`; found `%s`",
					testCase.wantedOutcome,
					r.Outcome,
				)
			}
			if !reflect.DeepEqual(testCase.wantedKinds, r.Kinds) {
				t.Fatalf(
					"Kinds: wanted `%v`; found `%v`",
					testCase.wantedKinds,
					r.Kinds,
				)
			}
		})
	}
}

func TestObjectStore(t *testing.T) {
	fake := testsupport.ObjectStoreFake{}
	store := ObjectStore{Store: fake, Bucket: "reports", Prefix: "fsck/"}

	first := New("images/My FS.img", ModeCheck, now)
	first.Finish(
		&types.Error{Kind: types.KindInodeNotFound, Ino: 3},
		nil,
		now.Add(time.Second),
	)
	second := New("images/My FS.img", ModeRepair, now.Add(time.Minute))
	second.Finish(nil, []types.Ino{3}, now.Add(2*time.Minute))
	other := New("other.img", ModeCheck, now)
	other.Finish(nil, nil, now)

	// insert out of order
	for _, r := range []*Report{second, other, first} {
		if err := store.Put(r); err != nil {
			t.Fatalf("Put(): unexpected err: %v", err)
		}
	}

	wantedKey := "fsck/images-my-fs-img/" + first.RunID.String() + ".json"
	if key := store.Key(first); key != wantedKey {
		t.Fatalf("Key(): wanted `%s`; found `%s`", wantedKey, key)
	}

	found, err := store.List("images/My FS.img")
	if err != nil {
		t.Fatalf("List(): unexpected err: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("List(): wanted `2` reports; found `%d`", len(found))
	}
	for i, wanted := range []*Report{first, second} {
		if found[i].RunID != wanted.RunID ||
			found[i].Outcome != wanted.Outcome ||
			!reflect.DeepEqual(found[i].Kinds, wanted.Kinds) ||
			!reflect.DeepEqual(found[i].Relinked, wanted.Relinked) ||
			!found[i].Started.Equal(wanted.Started) {
			t.Fatalf(
				"List()[%d]: wanted `%+v`; found `%+v`",
				i,
				*wanted,
				found[i],
			)
		}
	}
}

func TestMemory(t *testing.T) {
	var store Memory
	late := New("fs.img", ModeRepair, now.Add(time.Hour))
	early := New("fs.img", ModeCheck, now)
	other := New("other.img", ModeCheck, now)
	for _, r := range []*Report{late, other, early} {
		if err := store.Put(r); err != nil {
			t.Fatalf("Put(): unexpected err: %v", err)
		}
	}

	found, err := store.List("fs.img")
	if err != nil {
		t.Fatalf("List(): unexpected err: %v", err)
	}
	if len(found) != 2 ||
		found[0].RunID != early.RunID ||
		found[1].RunID != late.RunID {
		t.Fatalf("List(): wanted `[%s %s]`; found `%+v`", early.RunID, late.RunID, found)
	}
}
