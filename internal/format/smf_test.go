package format

import (
	"testing"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// minimalSMF builds a single-track, format-0 Standard MIDI File with a
// 96-tick division: NoteOn(60) at tick 0, NoteOff(60) at tick 96, then
// end-of-track.
func minimalSMF() []byte {
	header := []byte{
		'M', 'T', 'h', 'd',
		0x00, 0x00, 0x00, 0x06,
		0x00, 0x00, // format 0
		0x00, 0x01, // 1 track
		0x00, 0x60, // division 96
	}

	trackData := []byte{
		0x00, 0x90, 0x3C, 0x64, // delta 0, NoteOn ch0 key60 vel100
		0x60, 0x80, 0x3C, 0x00, // delta 96, NoteOff ch0 key60 vel0
		0x00, 0xFF, 0x2F, 0x00, // delta 0, end of track
	}
	track := append([]byte{'M', 'T', 'r', 'k', 0x00, 0x00, 0x00, byte(len(trackData))}, trackData...)

	return append(header, track...)
}

func TestLoadDispatchesSMFBySignature(t *testing.T) {
	song, err := Load(minimalSMF())
	if err != nil {
		t.Fatalf("Load failed on a well-formed SMF: %v", err)
	}
	if song.Division != 96 {
		t.Fatalf("expected division 96, got %d", song.Division)
	}
	if len(song.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(song.Tracks))
	}
}

func TestParseSMFProducesNoteOnThenOff(t *testing.T) {
	song, err := ParseSMF(minimalSMF())
	if err != nil {
		t.Fatalf("ParseSMF failed: %v", err)
	}

	tr := song.Tracks[0]
	var sawNoteOn, sawNoteOff bool
	for _, row := range tr.Rows {
		for _, ev := range row.Events(song.Bank) {
			switch ev.Main {
			case event.NoteOn:
				sawNoteOn = true
			case event.NoteOff:
				sawNoteOff = true
			}
		}
	}
	if !sawNoteOn || !sawNoteOff {
		t.Fatalf("expected both a NoteOn and a NoteOff event, sawNoteOn=%v sawNoteOff=%v", sawNoteOn, sawNoteOff)
	}
}

func TestBuildTimelineResolvesLengthAtDefaultTempo(t *testing.T) {
	song, err := ParseSMF(minimalSMF())
	if err != nil {
		t.Fatalf("ParseSMF failed: %v", err)
	}
	BuildTimeline(song)

	// 96 ticks at 96 division and the default 500000us/quarter tempo is
	// exactly one quarter note: 0.5s.
	if song.LengthSeconds < 0.49 || song.LengthSeconds > 0.51 {
		t.Fatalf("expected ~0.5s song length, got %f", song.LengthSeconds)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load([]byte("not a score file at all")); err == nil {
		t.Fatalf("expected Load to reject unrecognised data")
	}
}
