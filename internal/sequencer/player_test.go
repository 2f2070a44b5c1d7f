package sequencer

import (
	"testing"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/format"
)

// recordingSynth is a RealtimeSynth double that records every call for
// assertion, plus the optional meta/debug hooks so dispatch coverage can
// be checked end to end.
type recordingSynth struct {
	noteOns  []uint8 // note numbers, in dispatch order
	noteOffs []uint8
	metas    []uint8 // meta subtypes observed
}

func (r *recordingSynth) NoteOn(channel, note, velocity uint8)         { r.noteOns = append(r.noteOns, note) }
func (r *recordingSynth) NoteOff(channel, note uint8)                  { r.noteOffs = append(r.noteOffs, note) }
func (r *recordingSynth) NoteOffVelocity(channel, note, velocity uint8) { r.noteOffs = append(r.noteOffs, note) }
func (r *recordingSynth) NoteAftertouch(channel, note, pressure uint8) {}
func (r *recordingSynth) ChannelAftertouch(channel, pressure uint8)    {}
func (r *recordingSynth) ControllerChange(channel, controller, value uint8) {}
func (r *recordingSynth) PatchChange(channel, program uint8)          {}
func (r *recordingSynth) PitchBend(channel uint8, value int16)        {}
func (r *recordingSynth) SystemExclusive(data []byte)                 {}
func (r *recordingSynth) MetaEvent(trackIndex int, subtype uint8, data []byte) {
	r.metas = append(r.metas, subtype)
}

// buildSimpleSong constructs a one-track song: NoteOn(60) at tick 0,
// NoteOff(60) at tick division (one quarter note later), at the default
// 500000us tempo (120bpm), then BuildTimeline resolves the timing.
func buildSimpleSong(t *testing.T) *format.Song {
	t.Helper()
	const division = 96
	song := format.NewSong(division)
	tr := event.NewTrack()

	sounding := event.NewNoteSounding()
	rb := song.Bank.BeginRow(0)
	rb.Append(event.Event{Main: event.NoteOn, Channel: 0, Payload: [5]byte{60, 100}})
	tr.AppendRow(rb.Finish(sounding))

	rb = song.Bank.BeginRow(division)
	rb.Append(event.Event{Main: event.NoteOff, Channel: 0, Payload: [5]byte{60, 0}})
	tr.AppendRow(rb.Finish(sounding))

	rb = song.Bank.BeginRow(division * 2)
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaEndOfTrack})
	tr.AppendRow(rb.Finish(sounding))

	song.Tracks = append(song.Tracks, tr)
	format.BuildTimeline(song)
	return song
}

func TestPlayerDispatchesNoteOnThenOff(t *testing.T) {
	song := buildSimpleSong(t)
	synth := &recordingSynth{}
	p := NewPlayer(song, synth, Options{})

	// One quarter note at 120bpm is 0.5s; step well past both rows.
	p.Tick(1.0)

	if len(synth.noteOns) != 1 || synth.noteOns[0] != 60 {
		t.Fatalf("expected one NoteOn(60), got %v", synth.noteOns)
	}
	if len(synth.noteOffs) != 1 || synth.noteOffs[0] != 60 {
		t.Fatalf("expected one NoteOff(60), got %v", synth.noteOffs)
	}
}

func TestPlayerTicksIncrementallyWithoutDoubleDispatch(t *testing.T) {
	song := buildSimpleSong(t)
	synth := &recordingSynth{}
	p := NewPlayer(song, synth, Options{})

	// Many small ticks should still deliver exactly one NoteOn and one
	// NoteOff, never more, regardless of step granularity.
	for i := 0; i < 200; i++ {
		p.Tick(0.01)
	}

	if len(synth.noteOns) != 1 {
		t.Fatalf("expected exactly one NoteOn across incremental ticks, got %d", len(synth.noteOns))
	}
	if len(synth.noteOffs) != 1 {
		t.Fatalf("expected exactly one NoteOff across incremental ticks, got %d", len(synth.noteOffs))
	}
}

func TestPlayerFinishesAfterEndOfTrack(t *testing.T) {
	song := buildSimpleSong(t)
	synth := &recordingSynth{}
	p := NewPlayer(song, synth, Options{})

	p.Tick(5.0)

	if !p.Finished() {
		t.Fatalf("expected player to report finished after running past the last row")
	}
}

func TestSeekForwardSkipsNoteOnAndAdvancesPosition(t *testing.T) {
	song := buildSimpleSong(t)
	synth := &recordingSynth{}
	p := NewPlayer(song, synth, Options{})

	p.Seek(0.6, 0.05)

	if len(synth.noteOns) != 0 {
		t.Fatalf("seek must not trigger note-on events, got %v", synth.noteOns)
	}
	if p.AbsoluteSeconds() < 0.5 {
		t.Fatalf("expected seek to land at or after the note-off row, got %f", p.AbsoluteSeconds())
	}
}

// buildLoopingSong builds a two-row loop: loop_start at tick 0 (with a
// NoteOn), loop_end at tick division (with the matching NoteOff), so
// each loop iteration replays exactly one note.
func buildLoopingSong(t *testing.T) *format.Song {
	t.Helper()
	const division = 96
	song := format.NewSong(division)
	tr := event.NewTrack()
	sounding := event.NewNoteSounding()

	rb := song.Bank.BeginRow(0)
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaLoopStart})
	rb.Append(event.Event{Main: event.NoteOn, Channel: 0, Payload: [5]byte{60, 100}})
	tr.AppendRow(rb.Finish(sounding))

	rb = song.Bank.BeginRow(division)
	rb.Append(event.Event{Main: event.NoteOff, Channel: 0, Payload: [5]byte{60, 0}})
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaLoopEnd})
	tr.AppendRow(rb.Finish(sounding))

	song.Tracks = append(song.Tracks, tr)
	format.BuildTimeline(song)
	return song
}

func TestSimpleLoopRepeatsConfiguredCount(t *testing.T) {
	song := buildLoopingSong(t)
	synth := &recordingSynth{}
	p := NewPlayer(song, synth, Options{LoopCount: 2})

	// Run well past what three passes (1 initial + 2 loop repeats) would take.
	for i := 0; i < 50; i++ {
		p.Tick(0.5)
	}

	if len(synth.noteOns) != 3 {
		t.Fatalf("expected 3 NoteOns (1 initial + 2 loop repeats), got %d", len(synth.noteOns))
	}
}

func TestNoLoopDisablesRepeat(t *testing.T) {
	song := buildLoopingSong(t)
	synth := &recordingSynth{}
	p := NewPlayer(song, synth, Options{LoopCount: 0})

	for i := 0; i < 50; i++ {
		p.Tick(0.5)
	}

	if len(synth.noteOns) != 1 {
		t.Fatalf("expected exactly 1 NoteOn with looping disabled, got %d", len(synth.noteOns))
	}
}
