// Package engine runs the coping procedure against a kernel: pick a target
// body, classify its faces, split its inward faces by the outward faces of
// neighbouring components, then press the smallest interior faces inward.
//
// A run is a fixed sequence of stages. The first failing stage ends the run
// and is reported as a *StageError; kernel operations that already
// succeeded are not rolled back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/discovery"
	"github.com/chazu/coping/pkg/geom"
	"github.com/chazu/coping/pkg/kernel"
	"github.com/chazu/coping/pkg/selector"
)

// Defaults for Options.
const (
	DefaultDistance = -8.0
	DefaultPrompt   = "Select a body or component"
)

// ErrNoCandidates is returned when every interior face is too large to
// press-pull.
var ErrNoCandidates = errors.New("engine: no interior face is small enough to press-pull")

// Options configures an Engine.
type Options struct {
	Classifier   classify.Classifier
	Policy       discovery.Policy
	SpatialIndex bool

	// MaxArea and Count bound the press-pull candidates.
	MaxArea float64
	Count   int
	// Distance is the signed press-pull offset; negative moves inward.
	Distance float64

	// Workers > 1 classifies faces in parallel.
	Workers int
	Prompt  string
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		Classifier: classify.New(classify.DefaultOptions()),
		Policy:     discovery.BoundingBox,
		MaxArea:    selector.DefaultMaxArea,
		Count:      selector.DefaultCount,
		Distance:   DefaultDistance,
		Workers:    1,
		Prompt:     DefaultPrompt,
	}
}

// Engine runs the procedure. Runs on one Engine are serialized: a Run that
// starts while another is in progress fails with ErrRunInProgress.
type Engine struct {
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	running    bool
	generation uint64
}

// New returns an Engine. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{opts: opts, log: log}
}

// Options returns the engine's settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Run executes every stage against k. The returned report is non-nil
// whenever the run started, including failed runs.
func (e *Engine) Run(ctx context.Context, k kernel.Kernel) (*Report, error) {
	return e.run(ctx, k, false)
}

// Classify performs the read-only stages of a run: it selects the target,
// classifies its faces and computes every candidate set, but requests no
// split or press-pull.
func (e *Engine) Classify(ctx context.Context, k kernel.Kernel) (*Report, error) {
	return e.run(ctx, k, true)
}

func (e *Engine) begin() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return 0, ErrRunInProgress
	}
	e.running = true
	e.generation++
	return e.generation, nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

func (e *Engine) run(ctx context.Context, k kernel.Kernel, dry bool) (rep *Report, err error) {
	if k == nil {
		return nil, ErrNilKernel
	}
	gen, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer e.end()

	rep = newReport(gen, dry, e.opts.Distance)
	log := e.log.With(zap.String("run", rep.RunID), zap.Uint64("generation", gen), zap.Bool("dry", dry))
	defer func() {
		if err != nil {
			rep.Error = err.Error()
			log.Warn("run failed", zap.Stringer("stage", rep.Stage), zap.Error(err))
			return
		}
		log.Info("run complete",
			zap.String("body", rep.Body),
			zap.Int("targets", len(rep.Targets)),
			zap.Int("tools", len(rep.Tools)),
			zap.Int("pressPull", len(rep.PressPull)))
	}()

	sess, err := k.Open(ctx)
	if err != nil {
		return rep, &StageError{Stage: StageSelectTarget, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("closing session", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("engine: close session: %w", cerr)
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: rep.Stage, Err: fmt.Errorf("%w: %v\n%s", ErrInternal, r, debug.Stack())}
		}
	}()

	r := &runner{e: e, sess: sess, rep: rep, log: log, dry: dry}
	return rep, r.execute(ctx)
}

// runner holds the state of one run.
type runner struct {
	e    *Engine
	sess kernel.Session
	rep  *Report
	log  *zap.Logger
	dry  bool
}

func (r *runner) enter(ctx context.Context, s Stage) error {
	r.rep.Stage = s
	r.log.Debug("stage", zap.Stringer("stage", s))
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}
	return nil
}

func (r *runner) fail(err error) error {
	return &StageError{Stage: r.rep.Stage, Err: err}
}

func (r *runner) execute(ctx context.Context) error {
	opts := r.e.opts

	// Select the target body.
	if err := r.enter(ctx, StageSelectTarget); err != nil {
		return err
	}
	body, err := r.selectTarget()
	if err != nil {
		return err
	}

	// Classify every face and build the split sets.
	if err := r.enter(ctx, StageClassify); err != nil {
		return err
	}
	records, err := r.classify(ctx, body)
	if err != nil {
		return r.fail(err)
	}
	targets := discovery.Targets(records)
	tools := discovery.Tools(r.sess.Design(), body, targets, discovery.Options{
		Classifier:   opts.Classifier,
		Policy:       opts.Policy,
		SpatialIndex: opts.SpatialIndex,
	})
	r.rep.Targets = ids(targets)
	r.rep.Tools = ids(tools)
	r.log.Info("split sets built",
		zap.String("body", body.Name()),
		zap.Int("faces", len(records)),
		zap.Int("targets", len(targets)),
		zap.Int("tools", len(tools)))

	// Split the targets by the tools.
	if err := r.enter(ctx, StageSplit); err != nil {
		return err
	}
	switch {
	case len(tools) == 0:
		r.rep.notice(NoticeNoTools)
		r.log.Info("split skipped: no tools")
	case !r.dry:
		if err := r.sess.SplitFaces(targets, tools); err != nil {
			r.rep.notice(NoticeSplitFailed)
			return r.fail(err)
		}
		r.rep.Split = true
	}

	// Build the interior candidates.
	if err := r.enter(ctx, StageInterior); err != nil {
		return err
	}
	if r.rep.Split {
		// The split replaced some faces of the body.
		if records, err = r.classify(ctx, body); err != nil {
			return r.fail(err)
		}
	}
	interior := lo.FilterMap(records, func(rec classify.Record, _ int) (kernel.Face, bool) {
		return rec.Face, rec.InteriorCandidate()
	})
	r.rep.Interior = ids(interior)
	if len(interior) == 0 {
		r.rep.notice(NoticeNoInterior)
		if r.dry {
			r.rep.Stage = StageDone
			return nil
		}
		return r.fail(ErrNoInteriorFaces)
	}
	candidates := selector.SmallestFaces(interior, opts.MaxArea, opts.Count)
	r.rep.PressPull = ids(candidates)
	r.rep.CandidateArea = totalArea(candidates)
	r.log.Info("press-pull candidates",
		zap.Int("interior", len(interior)),
		zap.Int("candidates", len(candidates)),
		zap.Float64("area", r.rep.CandidateArea))

	// Press the candidates inward.
	if err := r.enter(ctx, StagePressPull); err != nil {
		return err
	}
	if len(candidates) == 0 {
		r.rep.notice(NoticePressPullFailed)
		if r.dry {
			r.rep.Stage = StageDone
			return nil
		}
		return r.fail(ErrNoCandidates)
	}
	if !r.dry {
		if err := r.sess.PressPull(candidates, opts.Distance); err != nil {
			r.rep.notice(NoticePressPullFailed)
			return r.fail(err)
		}
		r.rep.PressPulled = true
	}

	r.rep.Stage = StageDone
	return nil
}

func (r *runner) selectTarget() (kernel.Body, error) {
	sel, err := r.sess.Pick(r.e.opts.Prompt, kernel.KindBody, kernel.KindOccurrence)
	if err != nil {
		r.rep.notice(NoticeNothingSelected)
		return nil, r.fail(fmt.Errorf("%w: %w", ErrNoTarget, err))
	}
	body, err := sel.Resolve()
	if err != nil {
		if errors.Is(err, kernel.ErrEmptyOccurrence) {
			r.rep.notice(NoticeEmptyOccurrence)
		}
		return nil, r.fail(fmt.Errorf("%w: %w", ErrNoTarget, err))
	}
	r.rep.Body = body.Name()
	r.log.Debug("target selected", zap.String("body", body.Name()), zap.Stringer("kind", sel.Kind()))
	return body, nil
}

// classify records every face of body and refreshes the report's table.
func (r *runner) classify(ctx context.Context, body kernel.Body) ([]classify.Record, error) {
	records, err := r.e.classifyFaces(ctx, body, body.Faces())
	if err != nil {
		return nil, err
	}
	r.rep.Faces = faceRows(records)
	for _, rec := range records {
		if err := rec.Err(); err != nil {
			r.rep.notice(NoticeUnclassifiable)
			r.log.Debug("face not classified",
				zap.Int("face", rec.Face.TempID()),
				zap.String("center", geom.FormatPoint(geom.BoxCenter(rec.Face.BoundingBox()))),
				zap.Error(err))
		}
	}
	return records, nil
}

// classifyFaces runs the classifier on every face. With more than one
// worker the faces are classified concurrently; each result is written to
// its own slot, so the output order matches faces.
func (e *Engine) classifyFaces(ctx context.Context, body kernel.Body, faces []kernel.Face) ([]classify.Record, error) {
	c := e.opts.Classifier
	records := make([]classify.Record, len(faces))
	if e.opts.Workers <= 1 {
		for i, f := range faces {
			records[i] = c.Face(f, body)
		}
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, f := range faces {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: face %d: %v\n%s", ErrInternal, f.TempID(), r, debug.Stack())
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = c.Face(f, body)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
