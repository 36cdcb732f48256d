// Package stdlib embeds the std:* module sources (SPEC_FULL.md §4.12),
// following the teacher's pkg/embedded convention of one //go:embed
// directive per file rather than embedding the whole directory.
package stdlib

import (
	_ "embed"
)

//go:embed src/core.mf
var CoreMF []byte

//go:embed src/theory.mf
var TheoryMF []byte

//go:embed src/drums.mf
var DrumsMF []byte

//go:embed src/patterns.mf
var PatternsMF []byte

//go:embed src/vocal.mf
var VocalMF []byte

// Sources maps each std:<name> import path to its module source, ready
// for module.NewLoaderWithEmbeddedStdlib.
func Sources() map[string]string {
	return map[string]string{
		"core":     string(CoreMF),
		"theory":   string(TheoryMF),
		"drums":    string(DrumsMF),
		"patterns": string(PatternsMF),
		"vocal":    string(VocalMF),
	}
}
