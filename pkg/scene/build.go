package scene

import (
	"errors"
	"fmt"

	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel/memkernel"
)

// ErrInvalid is returned by Build when validation finds errors.
var ErrInvalid = errors.New("scene: invalid scene")

// Build validates sc and turns it into an in-memory design. Findings are
// returned in every case; warnings do not stop the build.
func Build(sc *Scene) (*memkernel.Design, []ValidationError, error) {
	findings := Validate(sc)
	if HasErrors(findings) {
		return nil, findings, fmt.Errorf("%w: %s", ErrInvalid, findings[0])
	}

	d := memkernel.NewDesign()
	for _, o := range sc.Occurrences {
		bodies := make([]*memkernel.Body, 0, len(o.Bodies))
		for _, name := range o.Bodies {
			b, err := instantiate(sc.Body(name))
			if err != nil {
				return nil, findings, fmt.Errorf("scene: occurrence %q: %w", o.Name, err)
			}
			bodies = append(bodies, b)
		}
		occ, err := d.AddOccurrence(o.Name, geom.Placement(o.At, o.Rotate), bodies...)
		if err != nil {
			return nil, findings, fmt.Errorf("scene: %w", err)
		}
		if o.Hidden {
			occ.Hide()
		}
	}
	for _, spec := range sc.RootBodies() {
		b, err := instantiate(spec)
		if err != nil {
			return nil, findings, fmt.Errorf("scene: %w", err)
		}
		if err := d.AddRootBody(b); err != nil {
			return nil, findings, fmt.Errorf("scene: %w", err)
		}
	}
	return d, findings, nil
}

// instantiate builds a fresh body from spec.
func instantiate(spec *BodySpec) (*memkernel.Body, error) {
	b, err := newShape(spec.Name, spec.Shape)
	if err != nil {
		return nil, err
	}
	for _, f := range spec.Features {
		switch f.Kind {
		case FeatureCavity:
			_, err = b.AddCavity(f.Center, f.Radius)
		case FeaturePocket:
			_, err = b.AddPocket(f.Center, f.Radius, f.Into)
		case FeatureWeb:
			b.AddWeb(f.Axis)
		}
		if err != nil {
			return nil, err
		}
	}
	if spec.At != (geom.Vector3{}) || spec.Rotate != (geom.Vector3{}) {
		b.Place(geom.Placement(spec.At, spec.Rotate))
	}
	if spec.Hidden {
		b.Hide()
	}
	return b, nil
}

func newShape(name string, sh Shape) (*memkernel.Body, error) {
	switch sh.Kind {
	case ShapeBox:
		return memkernel.NewBox(name, sh.Size)
	case ShapeCylinder:
		return memkernel.NewCylinder(name, sh.Height, sh.Radius)
	case ShapeTube:
		return memkernel.NewTube(name, sh.Height, sh.Radius, sh.Inner)
	case ShapeSurface:
		return memkernel.NewSurface(name, sh.Origin, sh.U, sh.V)
	}
	return nil, fmt.Errorf("scene: body %q has unknown shape %d", name, sh.Kind)
}
