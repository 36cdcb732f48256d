package module

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadEntryWithNoImports(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.mf", `export fn main() -> Score { return score {}; }`)

	l, err := NewLoader(dir, "")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	graph, err := l.LoadEntry(entry)
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if len(graph) != 1 {
		t.Fatalf("want 1 module in graph, got %d", len(graph))
	}
}

func TestLoadEntryResolvesRelativeImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.mf", `export fn melody() -> Clip { return clip {}; }`)
	entry := writeFile(t, dir, "main.mf", `import { melody } from "./helper.mf";
export fn main() -> Score { return score {}; }`)

	l, err := NewLoader(dir, "")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	graph, err := l.LoadEntry(entry)
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if len(graph) != 2 {
		t.Fatalf("want 2 modules in graph, got %d: %v", len(graph), keys(graph))
	}
}

func TestLoadEntryToleratesCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mf", `import { b } from "./b.mf";
export fn a() -> Clip { return clip {}; }`)
	entry := writeFile(t, dir, "b.mf", `import { a } from "./a.mf";
export fn b() -> Clip { return clip {}; }`)

	l, err := NewLoader(dir, "")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	graph, err := l.LoadEntry(entry)
	if err != nil {
		t.Fatalf("LoadEntry with cyclic import should succeed: %v", err)
	}
	if len(graph) != 2 {
		t.Fatalf("want 2 modules in graph, got %d", len(graph))
	}
}

func TestLoadEntryRejectsPathTraversal(t *testing.T) {
	base := t.TempDir()
	projectDir := filepath.Join(base, "project")
	if err := os.Mkdir(projectDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, base, "secret.mf", `export fn leaked() -> Clip { return clip {}; }`)
	entry := writeFile(t, projectDir, "main.mf", `import { leaked } from "../secret.mf";
export fn main() -> Score { return score {}; }`)

	l, err := NewLoader(projectDir, "")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if _, err := l.LoadEntry(entry); err == nil {
		t.Fatal("expected SecurityError for path traversal import")
	}
}

func TestLoadEntryMissingFileIsIOError(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.mf", `import { x } from "./missing.mf";
export fn main() -> Score { return score {}; }`)

	l, err := NewLoader(dir, "")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if _, err := l.LoadEntry(entry); err == nil {
		t.Fatal("expected IOError for missing import target")
	}
}

func TestLoadEntryResolvesStdlib(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.mf", `import { euclid } from "std:patterns";
export fn main() -> Score { return score {}; }`)

	l, err := NewLoaderWithEmbeddedStdlib(dir, map[string]string{
		"patterns": `export fn euclid(steps, pulses) -> array { return []; }`,
	})
	if err != nil {
		t.Fatalf("NewLoaderWithEmbeddedStdlib: %v", err)
	}
	graph, err := l.LoadEntry(entry)
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if _, ok := graph["std:patterns"]; !ok {
		t.Fatalf("want std:patterns in graph, got %v", keys(graph))
	}
}

func keys(m map[string]*Module) []string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
