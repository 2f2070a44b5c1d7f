package sequencer

import "github.com/Wohlstand/libADLMIDI-sub000/internal/voice"

// VoiceSynth adapts a *voice.Allocator to RealtimeSynth, the "typical
// integrated configuration" described in §2's data-flow paragraph: the
// sequencer drives the allocator directly instead of a bespoke realtime
// synth implementation.
type VoiceSynth struct {
	alloc *voice.Allocator
}

// NewVoiceSynth wraps alloc as a RealtimeSynth.
func NewVoiceSynth(alloc *voice.Allocator) *VoiceSynth {
	return &VoiceSynth{alloc: alloc}
}

func (v *VoiceSynth) NoteOn(channel, note, velocity uint8) {
	v.alloc.NoteOn(channel, note, velocity)
}

func (v *VoiceSynth) NoteOff(channel, note uint8) {
	v.alloc.NoteOff(channel, note)
}

func (v *VoiceSynth) NoteOffVelocity(channel, note, velocity uint8) {
	// Release velocity doesn't affect OPL3 envelopes; forward to the
	// plain NoteOff path.
	v.alloc.NoteOff(channel, note)
}

func (v *VoiceSynth) NoteAftertouch(channel, note, pressure uint8) {
	v.alloc.NoteAftertouch(channel, note, pressure)
}

func (v *VoiceSynth) ChannelAftertouch(channel, pressure uint8) {
	v.alloc.ChannelAftertouch(channel, pressure)
}

func (v *VoiceSynth) ControllerChange(channel, controller, value uint8) {
	v.alloc.ControllerChange(channel, controller, value)
}

func (v *VoiceSynth) PatchChange(channel, program uint8) {
	v.alloc.PatchChange(channel, program)
}

func (v *VoiceSynth) PitchBend(channel uint8, value int16) {
	v.alloc.PitchBend(channel, value)
}

func (v *VoiceSynth) SystemExclusive(data []byte) {
	// General MIDI / GS / XG system-exclusive reset messages aren't
	// modeled by the voice allocator; silently accept them so the
	// sequencer doesn't need a format-specific special case.
}

// Tick advances the wrapped allocator's time-dependent voice state
// (ageing, vibrato, portamento, arpeggio), matching the allocator's own
// Tick contract so a Player can drive both with one call.
func (v *VoiceSynth) Tick(dt float64) {
	v.alloc.Tick(dt)
}
