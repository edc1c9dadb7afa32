package engine

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/kernel"
)

// FaceRow is the classification of one face of the target body.
type FaceRow struct {
	ID          int     `json:"id"`
	Class       string  `json:"class"`
	Orientation string  `json:"orientation"`
	CenterPlane bool    `json:"centerPlane"`
	Interior    bool    `json:"interior"`
	Area        float64 `json:"area"`
	Error       string  `json:"error,omitempty"`
}

// Report describes one run. A report is returned even when the run fails;
// Stage is the last stage entered.
type Report struct {
	RunID      string  `json:"runId"`
	Generation uint64  `json:"generation"`
	DryRun     bool    `json:"dryRun"`
	Body       string  `json:"body"`
	Stage      Stage   `json:"stage"`
	Distance   float64 `json:"distance"`

	Faces     []FaceRow `json:"faces"`
	Targets   []int     `json:"targets"`
	Tools     []int     `json:"tools"`
	Interior  []int     `json:"interior"`
	PressPull []int     `json:"pressPull"`

	Split       bool `json:"split"`
	PressPulled bool `json:"pressPulled"`

	// CandidateArea is the total area of the press-pull candidates.
	CandidateArea float64  `json:"candidateArea"`
	Notices       []string `json:"notices,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func newReport(gen uint64, dry bool, distance float64) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		Generation: gen,
		DryRun:     dry,
		Distance:   distance,
	}
}

func (r *Report) notice(msg string) {
	if !lo.Contains(r.Notices, msg) {
		r.Notices = append(r.Notices, msg)
	}
}

// Class returns the class recorded for face id, or "" if the face is not
// in the report.
func (r *Report) Class(id int) string {
	row, ok := lo.Find(r.Faces, func(row FaceRow) bool { return row.ID == id })
	if !ok {
		return ""
	}
	return row.Class
}

func faceRows(records []classify.Record) []FaceRow {
	return lo.Map(records, func(rec classify.Record, _ int) FaceRow {
		row := FaceRow{
			ID:          rec.Face.TempID(),
			Class:       rec.Class().String(),
			Orientation: rec.Orientation.Orientation.String(),
			CenterPlane: rec.CenterPlane.Match,
			Interior:    rec.Interior.Match,
			Area:        rec.Face.Area(),
		}
		if !rec.Orientation.Classified() {
			row.Orientation = "unclassifiable"
		}
		if err := rec.Err(); err != nil {
			row.Error = err.Error()
		}
		return row
	})
}

func ids(faces []kernel.Face) []int {
	return lo.Map(faces, func(f kernel.Face, _ int) int { return f.TempID() })
}

func totalArea(faces []kernel.Face) float64 {
	return floats.Sum(lo.Map(faces, func(f kernel.Face, _ int) float64 { return f.Area() }))
}
