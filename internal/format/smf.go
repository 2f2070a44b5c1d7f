package format

import (
	"bytes"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// loopCCScheme tracks which CC-based loop convention a track has
// committed to, per §4.C: "Controller IDs 110 and 111 map into loop
// start/end...unless the file has already shown a CC111 alone (RPG-Maker
// style, loop-start only at 111) or CC113 (EMIDI, disables the CC-based
// loop scheme)."
type loopCCScheme struct {
	sawCC110     bool
	sawCC111Only bool
	disabledByCC113 bool
}

// ParseSMF reads a Standard MIDI File byte stream into a Song, using
// gitlab.com/gomidi/midi/v2/smf for chunk/running-status decoding (the
// same library the teacher's pkg/engine/midi_player.go uses), then
// re-walking the decoded messages for the loop/marker/synthetic-event
// machinery the library itself has no notion of.
func ParseSMF(data []byte) (*Song, error) {
	sm, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	division, ok := sm.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: non-metric SMF time format", ErrUnsupportedFormat)
	}

	song := NewSong(uint64(division))
	for trackIdx, track := range sm.Tracks {
		tr := event.NewTrack()
		song.Tracks = append(song.Tracks, tr)
		convertSMFTrack(song, tr, trackIdx, track)
	}
	return song, nil
}

func convertSMFTrack(song *Song, tr *event.Track, trackIdx int, track smf.Track) {
	var scheme loopCCScheme
	var absTick uint64
	sounding := event.NewNoteSounding()

	rb := song.Bank.BeginRow(0)
	rowHasContent := false

	flush := func(nextTick uint64) {
		if rowHasContent {
			row := rb.Finish(sounding)
			tr.AppendRow(row)
		}
		rb = song.Bank.BeginRow(nextTick)
		rowHasContent = false
	}

	if trackIdx == 0 {
		rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
		rowHasContent = true
	}

	for _, te := range track {
		if te.Delta > 0 {
			flush(absTick)
		}
		absTick += uint64(te.Delta)

		ev, ok := convertSMFMessage(song, &scheme, te.Message, trackIdx, absTick)
		if ok {
			rb.Append(ev)
			rowHasContent = true
		}

		if te.Message.GetMetaEndOfTrack() {
			break
		}
	}
	flush(absTick)
}

// convertSMFMessage classifies one decoded midi.Message into our internal
// Event representation, synthesising loop/marker events where the bytes
// match the documented text/CC conventions from §4.C.
func convertSMFMessage(song *Song, scheme *loopCCScheme, msg midi.Message, trackIdx int, absTick uint64) (event.Event, bool) {
	var ch, key, vel, ctrl, val8, prog, pressure uint8
	var val uint16
	var bendRel int16
	var sysex []byte

	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return event.Event{Main: event.NoteOn, Channel: ch, Payload: [5]byte{key, vel}}, true

	case msg.GetNoteOff(&ch, &key, &vel):
		return event.Event{Main: event.NoteOff, Channel: ch, Payload: [5]byte{key, vel}}, true

	case msg.GetPolyAfterTouch(&ch, &key, &pressure):
		return event.Event{Main: event.Aftertouch, Channel: ch, Payload: [5]byte{key, pressure}}, true

	case msg.GetAfterTouch(&ch, &pressure):
		return event.Event{Main: event.ChannelPressure, Channel: ch, Payload: [5]byte{pressure}}, true

	case msg.GetControlChange(&ch, &ctrl, &val8):
		return convertSMFControlChange(scheme, ch, ctrl, val8, song, trackIdx, absTick)

	case msg.GetProgramChange(&ch, &prog):
		return event.Event{Main: event.PatchChange, Channel: ch, Payload: [5]byte{prog}}, true

	case msg.GetPitchBend(&ch, &bendRel, &val):
		// val carries the absolute 14-bit value split across payload[0..1]
		lsb := uint8(val & 0x7F)
		msb := uint8((val >> 7) & 0x7F)
		return event.Event{Main: event.PitchBend, Channel: ch, Payload: [5]byte{lsb, msb}}, true

	case msg.GetSysEx(&sysex):
		ref := song.Bank.AppendBytes(sysex)
		return event.Event{Main: event.SysEx, Ref: ref}, true

	default:
		return convertSMFMeta(song, msg, trackIdx, absTick)
	}
}

func convertSMFControlChange(scheme *loopCCScheme, ch, ctrl, val uint8, song *Song, trackIdx int, absTick uint64) (event.Event, bool) {
	switch ctrl {
	case 113: // EMIDI: disables CC-based loop scheme entirely
		scheme.disabledByCC113 = true
	case 111:
		if !scheme.sawCC110 {
			scheme.sawCC111Only = true
		}
		if !scheme.disabledByCC113 {
			if scheme.sawCC110 {
				return event.Event{Main: event.Meta, Sub: event.MetaLoopEnd, Channel: ch}, true
			}
			return event.Event{Main: event.Meta, Sub: event.MetaLoopStart, Channel: ch}, true
		}
	case 110:
		if !scheme.sawCC111Only {
			scheme.sawCC110 = true
			if !scheme.disabledByCC113 {
				return event.Event{Main: event.Meta, Sub: event.MetaLoopStart, Channel: ch}, true
			}
		}
	}
	return event.Event{Main: event.CtrlChange, Channel: ch, Payload: [5]byte{ctrl, val}}, true
}

func convertSMFMeta(song *Song, msg midi.Message, trackIdx int, absTick uint64) (event.Event, bool) {
	var bpm float64
	var text string

	switch {
	case msg.GetMetaTempo(&bpm):
		micros := uint64(60000000.0 / bpm)
		song.TempoEvents = append(song.TempoEvents, TempoChange{AbsTick: absTick, MicrosPerQuarter: micros})
		return event.Event{Main: event.Meta, Sub: event.MetaTempoChange, Payload: u64payload(micros)}, true

	case msg.GetMetaEndOfTrack():
		return event.Event{Main: event.Meta, Sub: event.MetaEndOfTrack}, true

	case msg.GetMetaMarker(&text), msg.GetMetaText(&text), msg.GetMetaLyric(&text):
		return convertLoopMarkerText(song, text, trackIdx, absTick)

	case msg.GetMetaTrackName(&text):
		ref := song.Bank.AppendBytes([]byte(text))
		return event.Event{Main: event.Meta, Sub: event.MetaTrackName, Ref: ref}, true

	default:
		return event.Event{}, false
	}
}

// convertLoopMarkerText implements the marker-text loop convention from
// §4.C/§6: `loopstart`, `loopend`, `loopstart=<n>`, `loopend=`.
func convertLoopMarkerText(song *Song, text string, trackIdx int, absTick uint64) (event.Event, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "loopstart" || strings.HasPrefix(lower, "loopstart="):
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStart}, true
	case lower == "loopend" || strings.HasPrefix(lower, "loopend="):
		return event.Event{Main: event.Meta, Sub: event.MetaLoopEnd}, true
	default:
		ref := song.Bank.AppendBytes([]byte(text))
		song.Markers = append(song.Markers, Marker{TrackIndex: trackIdx, AbsTick: absTick, Text: decodeLegacyText([]byte(text))})
		return event.Event{Main: event.Meta, Sub: event.MetaMarkerText, Ref: ref}, true
	}
}

func u64payload(v uint64) [5]byte {
	return [5]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), byte(v >> 32)}
}
