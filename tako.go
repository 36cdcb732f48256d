// Package tako is the library entry point: Compile wires module loading,
// evaluation, and IR normalization into the single pipeline a caller needs
// (the teacher's main.go wires an HTTP router the same way — here it wires
// a compile pipeline instead of handlers).
package tako

import (
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/config"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/eval"
	"github.com/tako-lang/tako/internal/hash"
	"github.com/tako-lang/tako/internal/ir"
	"github.com/tako-lang/tako/internal/logger"
	"github.com/tako-lang/tako/internal/module"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/token"
	"github.com/tako-lang/tako/internal/value"
	"github.com/tako-lang/tako/stdlib"
)

const irGenerator = "tako"

var (
	sentryOnce sync.Once
	sentryErr  error
)

// CompileRequest names the DSL source to compile.
type CompileRequest struct {
	// EntryPath is the absolute or relative path to the entry .mf file.
	EntryPath string

	// BaseDir bounds non-stdlib import resolution (spec.md §4.3's path
	// safety check). Defaults to EntryPath's directory when empty.
	BaseDir string

	// Export names the top-level binding compiled as the score: a score
	// const or a zero-argument function returning a score. When empty,
	// Compile tries "main" first, then the entry module's exported consts
	// in declaration order, using the first that holds a score.
	Export string
}

// CompileResult is the outcome of one Compile call.
type CompileResult struct {
	// IR holds the canonical JSON record (spec.md §6.3) when compilation
	// produced a score, nil otherwise.
	IR []byte

	// Diagnostics holds every error and warning emitted during
	// compilation, in emission order (spec.md §6.4).
	Diagnostics []diag.Diagnostic

	// TraceID correlates this compilation with Sentry telemetry (§4.8).
	// It never appears in IR, keeping IR output deterministic (spec.md §5).
	TraceID string
}

// Compile loads req.EntryPath and its import graph, evaluates it, and
// normalizes the resulting score into canonical IR. Validation failures
// found during normalization come back as error diagnostics in a
// CompileResult with no IR and a nil error. Load, parse and evaluation
// failures are returned as err with a nil result, so the diagnostics
// gathered up to that point are not returned. A panic is converted into an
// internal_error diagnostic in the returned result.
func Compile(req CompileRequest) (result *CompileResult, err error) {
	cfg := config.Load()
	traceID := uuid.NewString()
	initSentry(cfg)

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger.Error("panic during compile", fmt.Errorf("%v", r), logger.Fields{
				"trace_id": traceID,
				"entry":    req.EntryPath,
			})
			if cfg.SentryDSN != "" {
				sentry.CaptureException(fmt.Errorf("tako: panic: %v\n%s", r, stack))
			}
			diags := diag.NewBuffer()
			diags.Error("internal_error", fmt.Sprintf("internal error: %v", r), nil)
			result = &CompileResult{Diagnostics: diags.All(), TraceID: traceID}
			err = fmt.Errorf("tako: internal error: %v", r)
		}
	}()

	baseDir := req.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(req.EntryPath)
	}

	var loader *module.Loader
	if cfg.StdlibDir != "" {
		loader, err = module.NewLoader(baseDir, cfg.StdlibDir)
	} else {
		loader, err = module.NewLoaderWithEmbeddedStdlib(baseDir, stdlib.Sources())
	}
	if err != nil {
		return nil, err
	}

	graph, err := loader.LoadEntry(req.EntryPath)
	if err != nil {
		return nil, err
	}

	entryAbs, err := filepath.Abs(req.EntryPath)
	if err != nil {
		return nil, err
	}
	entryModule, ok := graph[entryAbs]
	if !ok {
		return nil, fmt.Errorf("tako: entry module %s missing from load graph", entryAbs)
	}

	diags := diag.NewBuffer()
	evaluator := eval.New(diags)
	scopes, err := evaluator.EvalGraph(graph)
	if err != nil {
		return nil, err
	}

	sco, err := entryScore(evaluator, entryModule, scopes[entryAbs], req.Export)
	if err != nil {
		return nil, err
	}

	srcHash, err := hash.SourceHash(graph, loader.LoadOrder())
	if err != nil {
		return nil, err
	}

	normalized := ir.Normalize(sco, cfg.IRVersion, irGenerator, srcHash, diags)
	for _, t := range normalized.TempoMap {
		if t.BPM > cfg.TempoWarnBPM {
			diags.Warn("tempo_high", fmt.Sprintf("tempo %g bpm exceeds %g bpm", t.BPM, cfg.TempoWarnBPM), nil)
		}
	}

	result = &CompileResult{Diagnostics: diags.All(), TraceID: traceID}
	if diags.HasErrors() {
		return result, nil
	}

	out, err := ir.Marshal(normalized)
	if err != nil {
		return result, err
	}
	result.IR = out
	return result, nil
}

// entryScore resolves the score to compile. req.Export, when set, names the
// export to use directly. Otherwise it tries "main" first — spec.md §1's
// "a main function that returns a Score" is the canonical entry point used
// by every scenario in spec.md §8 — then falls back to scanning the entry
// module's exported consts for one that already evaluated to a score.
func entryScore(ev *eval.Evaluator, m *module.Module, sc *scope.Scope, export string) (*value.Score, error) {
	if export != "" {
		return scoreFromExport(ev, sc, export, true)
	}
	if sco, err := scoreFromExport(ev, sc, "main", false); sco != nil || err != nil {
		return sco, err
	}
	for _, d := range m.Program.Body {
		c, ok := d.(*ast.ConstDecl)
		if !ok || !c.Export {
			continue
		}
		if sco, err := scoreFromExport(ev, sc, c.Name, false); sco != nil || err != nil {
			return sco, err
		}
	}
	return nil, fmt.Errorf("tako: no exported score found in %s", m.Path)
}

// scoreFromExport resolves name in sc as either a zero-argument function
// returning a Score (calling it through the evaluator, per internal/eval's
// Call) or a plain score constant. required distinguishes an explicitly
// requested export (wrong kind or missing is a hard error) from a
// best-effort probe (wrong kind or missing just means "keep looking").
func scoreFromExport(ev *eval.Evaluator, sc *scope.Scope, name string, required bool) (*value.Score, error) {
	v, ok := sc.Get(name)
	if !ok {
		if required {
			return nil, fmt.Errorf("tako: export %q not found", name)
		}
		return nil, nil
	}
	switch v.Kind {
	case value.KindFunction:
		result, err := ev.Call(v, &value.Args{}, token.Position{})
		if err != nil {
			return nil, err
		}
		if result.Kind != value.KindScore {
			if required {
				return nil, fmt.Errorf("tako: %s() did not return a score", name)
			}
			return nil, nil
		}
		return result.Score, nil
	case value.KindScore:
		return v.Score, nil
	default:
		if required {
			return nil, fmt.Errorf("tako: export %q is not a score or a score-returning function", name)
		}
		return nil, nil
	}
}

// initSentry installs the process-wide Sentry client at most once, the way
// the teacher's main.go does it at startup — except Compile is a library
// call, not a long-running process, so the Init happens lazily on first use.
func initSentry(cfg *config.Config) {
	if cfg.SentryDSN == "" {
		return
	}
	sentryOnce.Do(func() {
		sentryErr = sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "tako",
		})
	})
	if sentryErr != nil {
		logger.Warn("sentry init failed", logger.Fields{"error": sentryErr.Error()})
	}
}
