// Package discovery finds the faces of a body that should be split and the
// faces of neighbouring components that can split them.
//
// A split target is a face of the selected body that is off the body's
// center plane and faces inward. A split tool is an outward face of a solid,
// visible body in some other occurrence whose assembly-space bounding box
// touches the bounding box of a target.
package discovery

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
)

// Policy decides when a candidate tool face touches a target face.
type Policy int

const (
	// BoundingBox accepts a tool whose bounding box overlaps a target's.
	BoundingBox Policy = iota
	// Proximity additionally requires the faces to be within the
	// classifier's proximity tolerance of each other.
	Proximity
)

func (p Policy) String() string {
	switch p {
	case Proximity:
		return "proximity"
	default:
		return "bbox"
	}
}

// ParsePolicy converts a config value to a Policy. The empty string selects
// BoundingBox.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "bbox":
		return BoundingBox, nil
	case "proximity":
		return Proximity, nil
	default:
		return BoundingBox, fmt.Errorf("discovery: unknown policy %q", s)
	}
}

// Options configures tool discovery.
type Options struct {
	Classifier   classify.Classifier
	Policy       Policy
	SpatialIndex bool // use the R-tree broad phase
}

// Result is the outcome of Discover.
type Result struct {
	Targets []kernel.Face
	Tools   []kernel.Face
}

// placedFace is a face together with its assembly-space placement.
type placedFace struct {
	face kernel.Face
	t    geom.Transform
	box  geom.Box
}

func place(face kernel.Face, t geom.Transform) placedFace {
	return placedFace{face: face, t: t, box: t.Box(face.BoundingBox())}
}

// Targets returns the split targets among records, deduplicated by TempID
// and in record order.
func Targets(records []classify.Record) []kernel.Face {
	targets := lo.FilterMap(records, func(r classify.Record, _ int) (kernel.Face, bool) {
		return r.Face, r.SplitTarget()
	})
	return dedupe(targets)
}

// SplitTargets classifies every face of body and returns the split targets.
func SplitTargets(body kernel.Body, c classify.Classifier) []kernel.Face {
	records := lo.Map(body.Faces(), func(f kernel.Face, _ int) classify.Record {
		return c.Face(f, body)
	})
	return Targets(records)
}

// Tools returns the outward faces of other components that touch any of
// targets. Occurrences are scanned in design order and the occurrence
// holding body is skipped. Bodies placed directly in the root component
// are never tools. The result is deduplicated by TempID, first seen wins.
func Tools(design kernel.Design, body kernel.Body, targets []kernel.Face, opts Options) []kernel.Face {
	if len(targets) == 0 {
		return nil
	}
	t := kernel.Placement(body)
	placed := lo.Map(targets, func(f kernel.Face, _ int) placedFace {
		return place(f, t)
	})
	m := newMatcher(placed, opts)

	own := body.AssemblyContext()
	var tools []kernel.Face
	for _, occ := range design.AllOccurrences() {
		if own != nil && occ == own {
			continue
		}
		for _, candidate := range occ.Bodies() {
			if !candidate.IsSolid() || !candidate.IsVisible() {
				continue
			}
			ct := kernel.Placement(candidate)
			for _, f := range candidate.Faces() {
				if !m.touches(place(f, ct)) {
					continue
				}
				if opts.Classifier.Orientation(f, candidate).Is(classify.Outward) {
					tools = append(tools, f)
				}
			}
		}
	}
	return dedupe(tools)
}

// Discover computes both the split targets of body and their tools.
func Discover(design kernel.Design, body kernel.Body, opts Options) Result {
	targets := SplitTargets(body, opts.Classifier)
	return Result{
		Targets: targets,
		Tools:   Tools(design, body, targets, opts),
	}
}

func dedupe(faces []kernel.Face) []kernel.Face {
	return lo.UniqBy(faces, func(f kernel.Face) int { return f.TempID() })
}

// IDs returns the TempIDs of faces in order.
func IDs(faces []kernel.Face) []int {
	return lo.Map(faces, func(f kernel.Face, _ int) int { return f.TempID() })
}
