package engine

import (
	"errors"
	"fmt"
)

// Stage is a step of a run.
type Stage int

const (
	StageSelectTarget Stage = iota
	StageClassify           // classify faces and build the split sets
	StageSplit              // request the face split
	StageInterior           // build the interior candidates
	StagePressPull          // request the press-pull
	StageDone
)

var stageNames = [...]string{
	"select-target",
	"classify",
	"split",
	"interior",
	"press-pull",
	"done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name in reports.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Run errors.
var (
	ErrNoTarget        = errors.New("engine: no target body selected")
	ErrNoInteriorFaces = errors.New("engine: no interior faces found")
	ErrRunInProgress   = errors.New("engine: a run is already in progress")
	ErrInternal        = errors.New("engine: internal error")
	ErrNilKernel       = errors.New("engine: nil kernel")
)

// StageError reports the stage at which a run stopped.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// User-facing notices added to a Report.
const (
	NoticeNoTools         = "No tools found for splitting"
	NoticeNoInterior      = "No internal faces found for press-pull"
	NoticePressPullFailed = "Press-pull operation failed"
	NoticeSplitFailed     = "Face split failed"
	NoticeEmptyOccurrence = "The selected component has no bodies"
	NoticeNothingSelected = "No entity selected"
	NoticeUnclassifiable  = "Some faces could not be fully classified"
)
