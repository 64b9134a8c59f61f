// Package report records the outcome of each checker run.
package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/weberc2/fsck/pkg/types"
)

type Mode string

const (
	ModeCheck  Mode = "check"
	ModeRepair Mode = "repair"
)

type Outcome string

const (
	OutcomeClean     Outcome = "clean"
	OutcomeViolation Outcome = "violation"
	OutcomeRepaired  Outcome = "repaired"
	OutcomeError     Outcome = "error"
)

type Report struct {
	RunID    uuid.UUID    `json:"runId"`
	Image    string       `json:"image"`
	Mode     Mode         `json:"mode"`
	Outcome  Outcome      `json:"outcome"`
	Kinds    []types.Kind `json:"kinds,omitempty"`
	Message  string       `json:"message,omitempty"`
	Relinked []types.Ino  `json:"relinked,omitempty"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

type Store interface {
	Put(*Report) error

	// List returns the reports for `image`, oldest first.
	List(image string) ([]Report, error)
}

const ReportNotFoundErr types.ConstError = "report not found"

func New(image string, mode Mode, started time.Time) *Report {
	return &Report{
		RunID:   uuid.New(),
		Image:   image,
		Mode:    mode,
		Started: started,
	}
}

// Finish records the run's error (nil for success) and the inodes repair
// relinked.
func (r *Report) Finish(err error, relinked []types.Ino, finished time.Time) {
	r.Finished = finished
	r.Relinked = relinked
	if err == nil {
		r.Outcome = OutcomeClean
		if len(relinked) > 0 {
			r.Outcome = OutcomeRepaired
		}
		return
	}

	r.Message = err.Error()
	r.Outcome = OutcomeError
	for _, err := range flatten(err) {
		var e *types.Error
		if errors.As(err, &e) {
			r.Kinds = append(r.Kinds, e.Kind)
			if e.Kind != types.KindCorruptImage {
				r.Outcome = OutcomeViolation
			}
		}
	}
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
