// Package module implements the import graph loader: path resolution,
// path-safety enforcement, and module caching (spec.md §4.3).
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/parser"
	"github.com/tako-lang/tako/internal/token"
)

// Module is one loaded, parsed source file plus the canonical path it was
// loaded from.
type Module struct {
	Path    string // canonical absolute path, or "std:<name>" for stdlib
	Program *ast.Program

	// Source holds the raw bytes the module was parsed from, kept around
	// for the deterministic source hash (SPEC_FULL.md §4.10) rather than
	// re-reading every file a second time after loading.
	Source string

	// Resolved maps each import's raw source spec (e.g. "./helper.mf",
	// "std:core") to its canonical path, so a later phase (the evaluator's
	// cross-module binding) need not re-derive resolution rules.
	Resolved map[string]string
}

// Loader resolves imports against a project base directory and a bundled
// standard-library directory, caching modules by canonical path so cycles
// resolve to the same instance (spec.md §4.3 "cycle handling").
type Loader struct {
	baseDir   string
	stdlibDir string
	stdlib    map[string]string // std:<name> -> embedded source, when non-nil
	cache     map[string]*Module
	loadOrder []string // canonical paths in first-visited (import-resolution) order
}

// NewLoader creates a loader rooted at baseDir, resolving "std:<name>"
// imports against stdlibDir. baseDir and stdlibDir are both resolved to
// their real (symlink-free) form up front so later safety checks compare
// like with like.
func NewLoader(baseDir, stdlibDir string) (*Loader, error) {
	realBase, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return nil, diag.NewError(token.Position{}, diag.ErrIO, "resolving project base dir: %v", err)
	}
	realStd := stdlibDir
	if stdlibDir != "" {
		realStd, err = filepath.EvalSymlinks(stdlibDir)
		if err != nil {
			return nil, diag.NewError(token.Position{}, diag.ErrIO, "resolving stdlib dir: %v", err)
		}
	}
	return &Loader{baseDir: realBase, stdlibDir: realStd, cache: map[string]*Module{}}, nil
}

// NewLoaderWithEmbeddedStdlib is like NewLoader but resolves "std:<name>"
// imports against an in-memory source map instead of a directory — used
// to serve the go:embed'd standard library (spec.md §6.2).
func NewLoaderWithEmbeddedStdlib(baseDir string, stdlib map[string]string) (*Loader, error) {
	realBase, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return nil, diag.NewError(token.Position{}, diag.ErrIO, "resolving project base dir: %v", err)
	}
	return &Loader{baseDir: realBase, stdlib: stdlib, cache: map[string]*Module{}}, nil
}

// LoadEntry parses the entry file and recursively loads every module it
// (transitively) imports, returning the complete graph keyed by canonical
// path. The entry itself is keyed by its canonical absolute path.
func (l *Loader) LoadEntry(entryPath string) (map[string]*Module, error) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, diag.NewError(token.Position{}, diag.ErrIO, "resolving entry path: %v", err)
	}
	if _, err := l.load(abs, abs); err != nil {
		return nil, err
	}
	return l.cache, nil
}

// LoadOrder returns the canonical paths of every loaded module in
// first-visited (import-resolution) order, for callers that need a
// deterministic traversal of the graph (e.g. the source hash, §4.10).
func (l *Loader) LoadOrder() []string {
	return l.loadOrder
}

// load fetches and parses the module at canonicalPath (a resolved absolute
// path or a "std:<name>" pseudo-path), recursing into its imports.
// importerPath is used only for diagnostics (spec.md §4.3 "referencing the
// importing module").
func (l *Loader) load(canonicalPath, importerPath string) (*Module, error) {
	if m, ok := l.cache[canonicalPath]; ok {
		return m, nil
	}
	// Seed the cache before parsing so a cycle that imports this module
	// again resolves to this placeholder's eventual value rather than
	// recursing forever.
	placeholder := &Module{Path: canonicalPath}
	l.cache[canonicalPath] = placeholder
	l.loadOrder = append(l.loadOrder, canonicalPath)

	src, err := l.readSource(canonicalPath, importerPath)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(src, canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s (imported from %s): %w", canonicalPath, importerPath, err)
	}
	placeholder.Program = prog
	placeholder.Source = src
	placeholder.Resolved = map[string]string{}

	for _, imp := range prog.Imports {
		resolved, err := l.resolveImportPath(imp.Path, canonicalPath)
		if err != nil {
			return nil, err
		}
		placeholder.Resolved[imp.Path] = resolved
		if _, err := l.load(resolved, canonicalPath); err != nil {
			return nil, err
		}
	}
	return placeholder, nil
}

func (l *Loader) readSource(canonicalPath, importerPath string) (string, error) {
	if strings.HasPrefix(canonicalPath, "std:") {
		name := strings.TrimPrefix(canonicalPath, "std:")
		if l.stdlib != nil {
			src, ok := l.stdlib[name]
			if !ok {
				return "", diag.NewError(token.Position{}, diag.ErrImport, "unknown standard library module %q (imported from %s)", name, importerPath)
			}
			return src, nil
		}
		path := filepath.Join(l.stdlibDir, name+".mf")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", diag.NewError(token.Position{}, diag.ErrIO, "reading standard library module %q: %v", name, err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(canonicalPath)
	if err != nil {
		return "", diag.NewError(token.Position{}, diag.ErrIO, "reading module %s (imported from %s): %v", canonicalPath, importerPath, err)
	}
	return string(data), nil
}

// resolveImportPath turns an import spec into a canonical path, enforcing
// path safety for non-stdlib imports (spec.md §4.3).
func (l *Loader) resolveImportPath(importSpec, importerCanonicalPath string) (string, error) {
	if strings.HasPrefix(importSpec, "std:") {
		return importSpec, nil
	}
	importerDir := filepath.Dir(importerCanonicalPath)
	joined := filepath.Join(importerDir, importSpec)

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		// The target may not exist yet on disk in a symlink sense (e.g. a
		// freshly-written file in a test harness); fall back to the
		// lexically-cleaned path so safety checks can still run.
		resolved = filepath.Clean(joined)
	}

	if !l.withinDir(resolved, l.baseDir) && !(l.stdlibDir != "" && l.withinDir(resolved, l.stdlibDir)) {
		return "", diag.NewError(token.Position{}, diag.ErrSecurity, "import %q from %s escapes the project base directory", importSpec, importerCanonicalPath)
	}
	return resolved, nil
}

func (l *Loader) withinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
