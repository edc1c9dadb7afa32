// Package selector picks the press-pull candidates from a set of interior
// faces.
package selector

import (
	"sort"

	"github.com/samber/lo"

	"github.com/chazu/coping/pkg/kernel"
)

// Defaults for SmallestFaces.
const (
	DefaultMaxArea = 200.0
	DefaultCount   = 100
)

// SmallestFaces returns up to count faces with area strictly below maxArea,
// smallest first. Faces of equal area keep their input order. The input
// slice is not modified.
func SmallestFaces(faces []kernel.Face, maxArea float64, count int) []kernel.Face {
	if count <= 0 {
		return nil
	}
	small := lo.Filter(faces, func(f kernel.Face, _ int) bool {
		return f.Area() < maxArea
	})
	sort.SliceStable(small, func(i, j int) bool {
		return small[i].Area() < small[j].Area()
	})
	if len(small) > count {
		small = small[:count]
	}
	return small
}

// Defaults applies DefaultMaxArea and DefaultCount.
func Defaults(faces []kernel.Face) []kernel.Face {
	return SmallestFaces(faces, DefaultMaxArea, DefaultCount)
}
