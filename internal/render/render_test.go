package render

import (
	"testing"

	"github.com/tako-lang/tako/internal/pitch"
)

func TestMIDIKeyRejectsOutOfRange(t *testing.T) {
	if _, err := MIDIKey(pitch.Pitch{MIDI: 200}); err == nil {
		t.Fatal("want error for MIDI 200")
	}
	k, err := MIDIKey(pitch.Pitch{MIDI: 60})
	if err != nil || k != 60 {
		t.Fatalf("want 60, nil; got %d, %v", k, err)
	}
}

func TestMIDIChannelRejectsOutOfRange(t *testing.T) {
	if _, err := MIDIChannel(16); err == nil {
		t.Fatal("want error for channel 16")
	}
	if _, err := MIDIChannel(-1); err == nil {
		t.Fatal("want error for negative channel")
	}
	c, err := MIDIChannel(9)
	if err != nil || c != 9 {
		t.Fatalf("want 9, nil; got %d, %v", c, err)
	}
}
