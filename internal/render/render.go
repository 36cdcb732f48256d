// Package render defines the Go-level contract a downstream MIDI renderer
// implements against the compiler's IR, without performing any MIDI byte
// encoding itself (SPEC_FULL.md §4.11). Output-format encoders are an
// explicit Non-goal collaborator (spec.md §1); this package exists only so
// such an encoder can depend on a typed boundary instead of hand-rolling the
// mapping from pitch/IR primitives to MIDI ones.
package render

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/tako-lang/tako/internal/ir"
	"github.com/tako-lang/tako/internal/pitch"
)

// Renderer writes one IR track's placements into an smf.Track. Tako ships
// no implementation; a downstream encoder package provides one.
type Renderer interface {
	RenderTrack(t ir.Track, out *smf.Track) error
}

// MIDIKey validates a pitch against the smf key range (0-127), returning an
// error (not a clamped key) for pitches normalize() should already have caught.
func MIDIKey(p pitch.Pitch) (uint8, error) {
	if p.MIDI < 0 || p.MIDI > 127 {
		return 0, fmt.Errorf("render: pitch MIDI %d out of 0-127 range", p.MIDI)
	}
	return uint8(p.MIDI), nil
}

// MIDIChannel validates a track voice index into the 0-15 MIDI channel
// range used throughout gomidi/midi/v2's NoteOn/NoteOff/ProgramChange calls.
func MIDIChannel(voice int) (uint8, error) {
	if voice < 0 || voice > 15 {
		return 0, fmt.Errorf("render: voice %d out of 0-15 MIDI channel range", voice)
	}
	return uint8(voice), nil
}
