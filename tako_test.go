package tako

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `
export const piece = score {
  meta { title: "Sample" }
  tempo { 1:1 -> 120bpm; }
  meter { 1:1 -> 4/4; }
  sound "kick" kind drumKit {};
  track "drums" role Drums sound "kick" {
    place 1:1 clip { hit kick() 1/4; hit kick() 1/4; };
  }
};
`

func writeEntry(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mf")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompileProducesIR(t *testing.T) {
	res, err := Compile(CompileRequest{EntryPath: writeEntry(t, sampleSource)})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.TraceID)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, "error", string(d.Severity), d.Message)
	}
	require.NotEmpty(t, res.IR)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(res.IR, &doc))
	header, ok := doc["tako"].(map[string]any)
	require.True(t, ok, "expected a tako header object")
	assert.EqualValues(t, 1, header["irVersion"])
	assert.NotEmpty(t, header["sourceHash"])
}

func TestCompileEvaluatesMinimalMainFunction(t *testing.T) {
	// spec.md §8 scenario 1.
	src := `export fn main() -> Score { return score {}; }`
	res, err := Compile(CompileRequest{EntryPath: writeEntry(t, src)})
	require.NoError(t, err)
	require.NotNil(t, res)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, "error", string(d.Severity), d.Message)
	}
	require.NotEmpty(t, res.IR)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(res.IR, &doc))
	assert.Equal(t, []any{}, doc["tracks"])
	assert.Equal(t, []any{}, doc["sounds"])
}

func TestCompileEvaluatesMainFunctionWithSingleNote(t *testing.T) {
	// spec.md §8 scenario 2.
	src := `
export fn main() -> Score {
  return score {
    meter { 1:1 -> 4/4; } tempo { 1:1 -> 120bpm; }
    sound "s" kind instrument {}
    track "T" role Instrument sound "s" {
      place 1:1 clip { note C4 1/4; };
    }
  };
}
`
	res, err := Compile(CompileRequest{EntryPath: writeEntry(t, src)})
	require.NoError(t, err)
	require.NotNil(t, res)
	for _, d := range res.Diagnostics {
		assert.NotEqual(t, "error", string(d.Severity), d.Message)
	}
	require.NotEmpty(t, res.IR)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(res.IR, &doc))
	tracks, ok := doc["tracks"].([]any)
	require.True(t, ok)
	require.Len(t, tracks, 1)
	track := tracks[0].(map[string]any)
	placements := track["placements"].([]any)
	require.Len(t, placements, 1)
	events := placements[0].(map[string]any)["clip"].(map[string]any)["events"].([]any)
	require.Len(t, events, 1)
	event := events[0].(map[string]any)
	assert.Equal(t, "note", event["type"])
	assert.EqualValues(t, 60, event["pitch"])
}

func TestCompileUsesExplicitExport(t *testing.T) {
	src := `
export const other = 1;
export const main = score {
  meta { title: "Named" }
  tempo { 1:1 -> 100bpm; }
  meter { 1:1 -> 4/4; }
  sound "kick" kind drumKit {};
  track "drums" role Drums sound "kick" {
    place 1:1 clip { hit kick() 1/1; };
  }
};
`
	res, err := Compile(CompileRequest{EntryPath: writeEntry(t, src), Export: "main"})
	require.NoError(t, err)
	require.NotEmpty(t, res.IR)
}

func TestCompileReportsUnknownSound(t *testing.T) {
	src := `
export const piece = score {
  meta { title: "Bad" }
  tempo { 1:1 -> 120bpm; }
  meter { 1:1 -> 4/4; }
  track "drums" role Drums sound "ghost" {
    place 1:1 clip { hit kick() 1/4; };
  }
};
`
	res, err := Compile(CompileRequest{EntryPath: writeEntry(t, src)})
	require.NoError(t, err)
	require.Nil(t, res.IR)
	found := false
	for _, d := range res.Diagnostics {
		if d.Code == "unknown_sound" {
			found = true
		}
	}
	assert.True(t, found, "expected an unknown_sound diagnostic, got %+v", res.Diagnostics)
}

func TestCompileMissingScoreIsAnError(t *testing.T) {
	src := `export const notAScore = 42;`
	_, err := Compile(CompileRequest{EntryPath: writeEntry(t, src)})
	require.Error(t, err)
}
