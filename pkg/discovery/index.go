package discovery

import (
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/geom"
)

// indexPad widens every box handed to the R-tree. The tree treats touching
// rectangles as disjoint and rejects zero-width ones, while BoxesIntersect
// counts touching boxes, so the broad phase must over-report.
const indexPad = 1e-6

// R-tree fan-out.
const (
	minChildren = 2
	maxChildren = 8
)

// matcher answers "does this candidate touch any target" under a Policy,
// by brute force or through an R-tree broad phase. Both paths confirm with
// the same predicate, so they return the same answers.
type matcher struct {
	targets []placedFace
	policy  Policy
	tol     float64
	tree    *rtreego.Rtree
}

// indexedTarget adapts a placed target to rtreego.Spatial.
type indexedTarget struct {
	placedFace
	rect rtreego.Rect
}

func (it *indexedTarget) Bounds() rtreego.Rect { return it.rect }

func newMatcher(targets []placedFace, opts Options) *matcher {
	m := &matcher{
		targets: targets,
		policy:  opts.Policy,
		tol:     opts.Classifier.Options().ProximityTolerance,
	}
	if !opts.SpatialIndex {
		return m
	}

	objs := make([]rtreego.Spatial, 0, len(targets))
	for _, pf := range targets {
		r, err := toRect(geom.Inflate(pf.box, m.reach()+indexPad))
		if err != nil {
			// Fall back to brute force rather than miss a tool.
			return m
		}
		objs = append(objs, &indexedTarget{placedFace: pf, rect: r})
	}
	m.tree = rtreego.NewTree(3, minChildren, maxChildren, objs...)
	return m
}

// reach is how far apart two boxes may be and still be confirmed.
func (m *matcher) reach() float64 {
	if m.policy == Proximity {
		return m.tol
	}
	return 0
}

func (m *matcher) touches(candidate placedFace) bool {
	if m.tree == nil {
		for _, target := range m.targets {
			if m.confirm(target, candidate) {
				return true
			}
		}
		return false
	}

	query, err := toRect(geom.Inflate(candidate.box, indexPad))
	if err != nil {
		return false
	}
	for _, hit := range m.tree.SearchIntersect(query) {
		if m.confirm(hit.(*indexedTarget).placedFace, candidate) {
			return true
		}
	}
	return false
}

// confirm is the exact touch test shared by both search paths.
func (m *matcher) confirm(target, candidate placedFace) bool {
	if !geom.BoxesIntersect(geom.Inflate(target.box, m.reach()), candidate.box) {
		return false
	}
	if m.policy != Proximity {
		return true
	}
	return classify.AreFacesCloseIn(target.face, target.t, candidate.face, candidate.t, m.tol)
}

func toRect(b geom.Box) (rtreego.Rect, error) {
	return rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z},
		rtreego.Point{b.Max.X, b.Max.Y, b.Max.Z},
	)
}
