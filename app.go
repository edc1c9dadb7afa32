package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/chazu/coping/pkg/config"
	"github.com/chazu/coping/pkg/engine"
	"github.com/chazu/coping/pkg/kernel"
	"github.com/chazu/coping/pkg/kernel/memkernel"
	"github.com/chazu/coping/pkg/scene"
	"github.com/chazu/coping/pkg/tessellate"
)

// classColors assigns a display color to each face class in mesh output.
var classColors = map[string]string{
	"inward":       "#E67E22",
	"outward":      "#4A90D9",
	"center-plane": "#9B59B6",
	"interior":     "#E74C3C",
	"unclassified": "#7F8C8D",
	"tool":         "#2ECC71",
}

// bodyPalette assigns distinct colors to whole-body meshes.
var bodyPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the command backend: it turns scene source into a design, runs
// the engine against the in-memory kernel and converts the outcome for
// output.
type App struct {
	cfg    *config.Config
	loader *scene.Loader
	log    *zap.Logger
}

// MeshData is the JSON mesh format written by --mesh-out.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	FaceID   int       `json:"faceId"`
	PartName string    `json:"partName"`
	Class    string    `json:"class"`
	Color    string    `json:"color"`
}

// EvalErrorData is a scene evaluation error or validation finding.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the outcome of one Evaluate call. Report is nil when the
// scene never reached the engine.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Bodies   []MeshData      `json:"bodies"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Report   *engine.Report  `json:"report,omitempty"`
}

// Request selects what Evaluate does with a scene.
type Request struct {
	// Select names the entity to pick. Empty uses the scene's target.
	Select string
	// DryRun classifies only; no split or press-pull is requested.
	DryRun bool
	// Meshes tessellates the faces of the target body, the split tools
	// and every visible solid body.
	Meshes bool
}

// NewApp creates an App from cfg. A nil logger disables logging.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout, err := cfg.SceneTimeout()
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, loader: scene.NewLoader(timeout), log: log}, nil
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Bodies:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// fatal records an error that stops evaluation.
func (r *EvalResult) fatal(err error) {
	r.Errors = append(r.Errors, EvalErrorData{Message: err.Error()})
}

// Check loads and validates source without running the engine.
func (a *App) Check(source string) EvalResult {
	result := newResult()
	a.load(source, &result)
	return result
}

// load evaluates and validates source. ok is false when result holds an
// error.
func (a *App) load(source string, result *EvalResult) (*scene.Scene, bool) {
	sc, evalErrs, err := a.loader.Load(source)
	if err != nil {
		a.log.Warn("scene load failed", zap.Error(err))
		result.fatal(err)
		return nil, false
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return nil, false
	}

	for _, f := range scene.Validate(sc) {
		data := EvalErrorData{Code: f.Code, Message: f.Error()}
		if f.Severity == scene.SeverityError {
			result.Errors = append(result.Errors, data)
		} else {
			result.Warnings = append(result.Warnings, data)
		}
	}
	return sc, len(result.Errors) == 0
}

// Evaluate loads source, builds its design and runs the engine on the
// selected entity.
func (a *App) Evaluate(ctx context.Context, source string, req Request) EvalResult {
	result := newResult()

	// Step 1: Evaluate and validate the scene.
	sc, ok := a.load(source, &result)
	if !ok {
		return result
	}

	// Step 2: Build the design. Validate already ran, so findings are
	// not reported twice.
	design, _, err := scene.Build(sc)
	if err != nil {
		result.fatal(err)
		return result
	}

	// Step 3: Run the engine against the in-memory kernel.
	pick := lo.Ternary(req.Select != "", req.Select, sc.Target)
	opts, err := a.cfg.EngineOptions()
	if err != nil {
		result.fatal(err)
		return result
	}
	k := memkernel.New(design, memkernel.WithPick(pick))
	eng := engine.New(opts, a.log)

	run := eng.Run
	if req.DryRun {
		run = eng.Classify
	}
	rep, runErr := run(ctx, k)
	result.Report = rep
	if runErr != nil {
		var se *engine.StageError
		if !errors.As(runErr, &se) || rep == nil {
			result.fatal(runErr)
			return result
		}
		// The report carries the stage failure; meshes are still useful.
		result.Errors = append(result.Errors, EvalErrorData{Message: runErr.Error()})
	}
	if rep == nil || rep.Body == "" || !req.Meshes {
		return result
	}

	// Step 4: Tessellate the classified faces and the tools.
	meshes, err := a.meshes(design, rep)
	if err != nil {
		a.log.Warn("tessellation failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Meshes = meshes

	// Step 5: Tessellate the solids for context.
	bodies, err := tessellate.Design(design, a.cfg.Mesh.Cells)
	if err != nil {
		a.log.Warn("body tessellation failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Bodies = lo.Map(bodies, func(m *kernel.Mesh, i int) MeshData {
		return MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.Label,
			Class:    "body",
			Color:    bodyPalette[i%len(bodyPalette)],
		}
	})
	return result
}

// meshes tessellates every face in the report plus the split tools, each
// colored by its class.
func (a *App) meshes(design *memkernel.Design, rep *engine.Report) ([]MeshData, error) {
	placements := tessellate.Placements(design)
	divisions := a.cfg.Mesh.Divisions

	type entry struct {
		id    int
		class string
	}
	entries := lo.Map(rep.Faces, func(row engine.FaceRow, _ int) entry {
		return entry{id: row.ID, class: row.Class}
	})
	entries = append(entries, lo.Map(rep.Tools, func(id int, _ int) entry {
		return entry{id: id, class: "tool"}
	})...)

	out := make([]MeshData, 0, len(entries))
	for _, e := range entries {
		face, ok := design.Face(e.id)
		if !ok {
			return nil, fmt.Errorf("face %d is not in the design", e.id)
		}
		m, err := tessellate.Face(face, placements[e.id], divisions, e.class)
		if err != nil {
			if errors.Is(err, tessellate.ErrEmptyMesh) {
				a.log.Debug("face skipped", zap.Int("face", e.id), zap.Error(err))
				continue
			}
			return nil, err
		}
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			FaceID:   e.id,
			PartName: fmt.Sprintf("%s/%s", face.Body().Name(), face.Label()),
			Class:    e.class,
			Color:    classColors[e.class],
		})
	}
	return out, nil
}
