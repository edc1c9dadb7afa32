package classify

import "github.com/chazu/coping/pkg/kernel"

// FaceClass is the single-label summary of a face used in run reports.
type FaceClass int

const (
	Unclassified FaceClass = iota
	CenterPlane
	InwardFace
	OutwardFace
	Interior // matches only the loose interior test
)

func (c FaceClass) String() string {
	switch c {
	case CenterPlane:
		return "center-plane"
	case InwardFace:
		return "inward"
	case OutwardFace:
		return "outward"
	case Interior:
		return "interior"
	default:
		return "unclassified"
	}
}

// Record holds every test result for one face of one body.
type Record struct {
	Face        kernel.Face
	CenterPlane Result
	Orientation Result
	Interior    Result
}

// Class collapses the record to one label. Center-plane wins, then the
// strict orientation, then the loose interior test.
func (r Record) Class() FaceClass {
	switch {
	case r.CenterPlane.Match:
		return CenterPlane
	case r.Orientation.Is(Inward):
		return InwardFace
	case r.Interior.Match:
		return Interior
	case r.Orientation.Is(Outward):
		return OutwardFace
	default:
		return Unclassified
	}
}

// SplitTarget reports whether the face belongs in the split-target set:
// off the center plane and facing inward.
func (r Record) SplitTarget() bool {
	return !r.CenterPlane.Match && r.Orientation.Is(Inward)
}

// InteriorCandidate reports whether the face may be pressed inward.
func (r Record) InteriorCandidate() bool {
	return !r.CenterPlane.Match && r.Interior.Match
}

// Err returns the first sampling failure recorded for the face, if any.
func (r Record) Err() error {
	for _, res := range []Result{r.CenterPlane, r.Orientation, r.Interior} {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Face runs every test on face.
func (c Classifier) Face(face kernel.Face, body kernel.Body) Record {
	return Record{
		Face:        face,
		CenterPlane: c.IsCenterPlane(face, body),
		Orientation: c.Orientation(face, body),
		Interior:    c.IsInterior(face, body),
	}
}

// Classify returns the summary class of face with the default options.
func Classify(face kernel.Face, body kernel.Body) FaceClass {
	return Classifier{}.Face(face, body).Class()
}
