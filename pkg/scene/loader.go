package scene

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultTimeout is the evaluation limit used when Loader.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Loader errors.
var (
	ErrTimeout    = errors.New("scene: evaluation timed out")
	ErrSuperseded = errors.New("scene: evaluation superseded by newer request")
)

// EvalError is a parse or runtime error in scene source.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Loader evaluates scene source. Each Load runs in a fresh zygomys sandbox,
// so loads are deterministic and safe for concurrent use.
type Loader struct {
	// Timeout bounds a single evaluation. Zero means DefaultTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewLoader returns a Loader with the given timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{Timeout: timeout}
}

// Load evaluates source into a Scene.
//
// Return semantics:
//   - On success: scene + nil errors + nil error
//   - On parse/eval failure: nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
func (l *Loader) Load(source string) (*Scene, []EvalError, error) {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	ch := make(chan loadResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- loadResult{err: fmt.Errorf("scene: panic during evaluation: %v", r)}
			}
		}()
		sc, evalErrs := evaluate(source)
		ch <- loadResult{scene: sc, errors: evalErrs}
	}()

	return l.wait(ch, gen)
}

// LoadFile reads and evaluates the scene at path.
func (l *Loader) LoadFile(path string) (*Scene, []EvalError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("scene: %w", err)
	}
	return l.Load(string(data))
}

func (l *Loader) timeout() time.Duration {
	if l.Timeout <= 0 {
		return DefaultTimeout
	}
	return l.Timeout
}

type loadResult struct {
	scene  *Scene
	errors []EvalError
	err    error
}

// wait returns the result from ch unless the load times out or a newer
// load has started. A timed-out goroutine keeps running; its result is
// dropped into the buffered channel and discarded.
func (l *Loader) wait(ch <-chan loadResult, gen uint64) (*Scene, []EvalError, error) {
	limit := l.timeout()
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		l.mu.Lock()
		current := l.generation
		l.mu.Unlock()
		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}

// evaluate runs source in a fresh sandbox with the scene builtins.
func evaluate(source string) (*Scene, []EvalError) {
	sc := New()
	if strings.TrimSpace(source) == "" {
		return sc, nil
	}

	// Sandbox mode keeps scene code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, sc)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return sc, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
