// Package memkernel is an in-memory implementation of kernel.Kernel. Bodies
// are github.com/deadsy/sdfx solids paired with analytic faces (planes,
// rings, cylinders and sphere zones) whose evaluators are exact.
//
// Split and press-pull requests are validated and recorded rather than
// applied to the geometry, which makes the kernel a faithful stand-in for a
// host CAD application in tests and from the command line.
package memkernel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/chazu/coping/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel  = (*Kernel)(nil)
	_ kernel.Session = (*Session)(nil)
)

// Session errors.
var (
	ErrSessionOpen   = errors.New("memkernel: a session is already open")
	ErrSessionClosed = errors.New("memkernel: session is closed")
	ErrEmptyRequest  = errors.New("memkernel: operation has no faces")
	ErrForeignFace   = errors.New("memkernel: face does not belong to this design")
)

// OpKind identifies a recorded modeling request.
type OpKind int

const (
	OpSplit OpKind = iota
	OpPressPull
)

func (k OpKind) String() string {
	if k == OpPressPull {
		return "press-pull"
	}
	return "split"
}

// Operation is a modeling request the kernel accepted.
type Operation struct {
	Kind     OpKind
	Targets  []int // face TempIDs being split or pressed
	Tools    []int // split tool TempIDs
	Distance float64
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithPick makes every Pick return the entity named name. Names match an
// occurrence, a body, or "occurrence/body". An empty name behaves like a
// cancelled pick.
func WithPick(name string) Option {
	return func(k *Kernel) { k.pick = name }
}

// WithSplitError makes SplitFaces fail with err.
func WithSplitError(err error) Option {
	return func(k *Kernel) { k.splitErr = err }
}

// WithPressPullError makes PressPull fail with err.
func WithPressPullError(err error) Option {
	return func(k *Kernel) { k.pressErr = err }
}

// Kernel serves one design. At most one session may be open at a time.
type Kernel struct {
	design *Design

	pick     string
	splitErr error
	pressErr error

	mu   sync.Mutex
	open bool
	ops  []Operation
}

// New returns a kernel over design.
func New(design *Design, opts ...Option) *Kernel {
	k := &Kernel{design: design}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Open starts a session.
func (k *Kernel) Open(ctx context.Context) (kernel.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.open {
		return nil, ErrSessionOpen
	}
	k.open = true
	return &Session{k: k}, nil
}

// Operations returns the accepted requests in order.
func (k *Kernel) Operations() []Operation {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]Operation(nil), k.ops...)
}

// Design returns the kernel's design.
func (k *Kernel) Design() *Design {
	return k.design
}

// Session is an open handle on a Kernel.
type Session struct {
	k      *Kernel
	mu     sync.Mutex
	closed bool
}

func (s *Session) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Design returns the active design.
func (s *Session) Design() kernel.Design {
	return s.k.design
}

// Pick returns the configured entity if its kind is allowed.
func (s *Session) Pick(prompt string, allowed ...kernel.EntityKind) (kernel.Selection, error) {
	if err := s.check(); err != nil {
		return kernel.Selection{}, err
	}
	return s.k.design.Find(s.k.pick, allowed...)
}

// SplitFaces records a split of targets by tools.
func (s *Session) SplitFaces(targets, tools []kernel.Face) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(targets) == 0 || len(tools) == 0 {
		return fmt.Errorf("split: %w", ErrEmptyRequest)
	}
	if err := s.k.owns(targets, tools); err != nil {
		return fmt.Errorf("split: %w", err)
	}
	if s.k.splitErr != nil {
		return s.k.splitErr
	}
	s.k.record(Operation{Kind: OpSplit, Targets: ids(targets), Tools: ids(tools)})
	return nil
}

// PressPull records an offset of faces by distance.
func (s *Session) PressPull(faces []kernel.Face, distance float64) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(faces) == 0 {
		return fmt.Errorf("press-pull: %w", ErrEmptyRequest)
	}
	if err := s.k.owns(faces); err != nil {
		return fmt.Errorf("press-pull: %w", err)
	}
	if s.k.pressErr != nil {
		return s.k.pressErr
	}
	s.k.record(Operation{Kind: OpPressPull, Targets: ids(faces), Distance: distance})
	return nil
}

// Close ends the session. Closing twice returns ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.k.mu.Lock()
	s.k.open = false
	s.k.mu.Unlock()
	return nil
}

func (k *Kernel) record(op Operation) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ops = append(k.ops, op)
}

// owns checks that every face is a face of this kernel's design.
func (k *Kernel) owns(groups ...[]kernel.Face) error {
	for _, faces := range groups {
		for _, f := range faces {
			mf, ok := f.(*Face)
			if !ok {
				return fmt.Errorf("%w: %T", ErrForeignFace, f)
			}
			if got, ok := k.design.Face(mf.id); !ok || got != mf {
				return fmt.Errorf("%w: %s", ErrForeignFace, mf)
			}
		}
	}
	return nil
}

func ids(faces []kernel.Face) []int {
	return lo.Map(faces, func(f kernel.Face, _ int) int { return f.TempID() })
}

// Find resolves name to a selection. With no kinds given, both occurrences
// and bodies are searched, occurrences first. A name that only matches an
// entity of a kind not in allowed fails with kernel.ErrWrongKind.
func (d *Design) Find(name string, allowed ...kernel.EntityKind) (kernel.Selection, error) {
	if name == "" {
		return kernel.Selection{}, kernel.ErrNoSelection
	}
	if len(allowed) == 0 {
		allowed = []kernel.EntityKind{kernel.KindOccurrence, kernel.KindBody}
	}
	wantOcc := lo.Contains(allowed, kernel.KindOccurrence)
	wantBody := lo.Contains(allowed, kernel.KindBody)

	if occName, bodyName, ok := strings.Cut(name, "/"); ok {
		if !wantBody {
			return kernel.Selection{}, fmt.Errorf("%w: %q", kernel.ErrWrongKind, name)
		}
		for _, o := range d.occurrences {
			if o.name != occName {
				continue
			}
			for _, b := range o.bodies {
				if b.name == bodyName {
					return kernel.BodySelection(b), nil
				}
			}
		}
		return kernel.Selection{}, fmt.Errorf("%w: %q", kernel.ErrNoSelection, name)
	}

	o, occFound := lo.Find(d.occurrences, func(o *Occurrence) bool { return o.name == name })
	if occFound && wantOcc {
		return kernel.OccurrenceSelection(o), nil
	}
	b, bodyFound := lo.Find(d.Bodies(), func(b *Body) bool { return b.name == name })
	if bodyFound && wantBody {
		return kernel.BodySelection(b), nil
	}
	if occFound || bodyFound {
		return kernel.Selection{}, fmt.Errorf("%w: %q", kernel.ErrWrongKind, name)
	}
	return kernel.Selection{}, fmt.Errorf("%w: %q", kernel.ErrNoSelection, name)
}
