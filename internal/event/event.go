// Package event implements the normalised event store and per-track row
// discipline that every format parser in internal/format fills, and that
// internal/sequencer walks during playback.
package event

// MainType is the tagged main type of an Event.
type MainType uint8

const (
	NoteOff MainType = iota
	NoteOn
	NoteOnDurated
	Aftertouch
	CtrlChange
	PatchChange
	ChannelPressure
	PitchBend
	SysEx
	Meta
)

// MetaSubtype distinguishes Meta-tagged events, including the synthetic
// subtypes that extend the MIDI meta space and are never emitted on the
// wire (loop control, branches, restore-on-loop toggles, raw OPL pokes,
// song-begin hook, callback trigger, device switch).
type MetaSubtype uint8

const (
	MetaNone MetaSubtype = iota
	MetaEndOfTrack
	MetaTempoChange
	MetaMarkerText
	MetaTrackName
	MetaLoopStart
	MetaLoopEnd
	MetaLoopStackBegin
	MetaLoopStackEnd
	MetaLoopStackBreak
	MetaLoopStackBeginLocal
	MetaLoopStackEndLocal
	MetaLoopStackBreakLocal
	MetaBranchLocation
	MetaBranchTo
	MetaRestoreCCEnable
	MetaRestoreCCDisable
	MetaRawOPL
	MetaSongBeginHook
	MetaCallbackTrigger
	MetaDeviceSwitch
)

// ArenaRef is a half-open {offset, length} reference into a Bank's shared
// byte arena, used for variable-length payloads (SysEx, text, markers)
// that don't fit in an Event's inline bytes.
type ArenaRef struct {
	Offset int
	Length int
}

// Event is a tagged record for one normalised MIDI or synthetic event.
// Payload holds up to 5 inline bytes (two-byte MIDI, or three-byte HMI
// duration appended after a two-byte MIDI payload for NoteOnDurated);
// anything larger lives in the Bank's byte arena and is addressed by Ref.
type Event struct {
	Main    MainType
	Sub     MetaSubtype
	Channel uint8
	Payload [5]byte
	Ref     ArenaRef
}

// Key returns the note-number payload byte, used for NoteOn/NoteOff
// lookups in the sounding-note bitset.
func (e Event) Key() uint8 { return e.Payload[0] }

// Velocity returns the velocity payload byte for NoteOn/NoteOff.
func (e Event) Velocity() uint8 { return e.Payload[1] }

// priority implements the §4.B row-sort discipline: lower runs first.
func priority(ev Event) int {
	switch ev.Main {
	case SysEx:
		return 0
	case NoteOff:
		return 1
	case Meta:
		switch ev.Sub {
		case MetaSongBeginHook:
			return -1
		case MetaEndOfTrack:
			return 20
		default:
			return 2
		}
	case Aftertouch, CtrlChange, PatchChange, ChannelPressure, PitchBend:
		return 3
	case NoteOn, NoteOnDurated:
		return 4
	default:
		return 2
	}
}
