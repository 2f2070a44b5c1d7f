// Package sequencer implements Component D, the deadline-driven playback
// runtime: it walks the row timeline internal/format builds, maintains
// the global and per-track loop stacks and branch table, and dispatches
// every live event to a RealtimeSynth a frame at a time.
package sequencer

// RealtimeSynth is the required half of the realtime synth interface
// (§6 "Realtime synth interface"): every event the sequencer can emit
// during ordinary playback. An adapter embedding a *voice.Allocator
// satisfies this directly; see NewVoiceSynth.
type RealtimeSynth interface {
	NoteOn(channel, note, velocity uint8)
	NoteOff(channel, note uint8)
	NoteOffVelocity(channel, note, velocity uint8)
	NoteAftertouch(channel, note, pressure uint8)
	ChannelAftertouch(channel, pressure uint8)
	ControllerChange(channel, controller, value uint8)
	PatchChange(channel, program uint8)
	PitchBend(channel uint8, value int16)
	SystemExclusive(data []byte)
}

// MetaEventHandler is the optional callback a RealtimeSynth can also
// implement to observe meta events (track name, marker text, tempo
// changes) as they are dispatched.
type MetaEventHandler interface {
	MetaEvent(trackIndex int, subtype uint8, data []byte)
}

// DeviceSwitcher lets a RealtimeSynth react to HMI-style device-switch
// meta events, selecting which of its internal devices a track targets.
type DeviceSwitcher interface {
	DeviceSwitch(trackIndex int, deviceMask uint32)
	CurrentDevice(trackIndex int) uint32
}

// RawOPLWriter receives raw_opl meta events (direct register pokes
// embedded in the score) verbatim.
type RawOPLWriter interface {
	RawOPL(chip int, reg uint16, value uint8)
}

// PCMRenderer is implemented by a RealtimeSynth that can also render
// audio. No code in this package calls RenderPCM.
type PCMRenderer interface {
	RenderPCM(frames int) []int16
}

// SongLifecycleHandler observes song-level transitions.
type SongLifecycleHandler interface {
	SongStart()
	LoopStart(iteration int)
	LoopEnd(iteration int)
}

// DebugLogger receives free-form progress messages, mirroring the
// original's debug_message realtime hook.
type DebugLogger interface {
	DebugMessage(msg string)
}

func metaHandler(s RealtimeSynth) (MetaEventHandler, bool) {
	h, ok := s.(MetaEventHandler)
	return h, ok
}

func deviceSwitcher(s RealtimeSynth) (DeviceSwitcher, bool) {
	h, ok := s.(DeviceSwitcher)
	return h, ok
}

func rawOPLWriter(s RealtimeSynth) (RawOPLWriter, bool) {
	h, ok := s.(RawOPLWriter)
	return h, ok
}

func lifecycleHandler(s RealtimeSynth) (SongLifecycleHandler, bool) {
	h, ok := s.(SongLifecycleHandler)
	return h, ok
}

func debugLogger(s RealtimeSynth) (DebugLogger, bool) {
	h, ok := s.(DebugLogger)
	return h, ok
}
