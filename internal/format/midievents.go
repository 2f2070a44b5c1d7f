package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// decodeStatusEvent decodes one channel-voice, sysex, or meta event from
// data starting at pos, honouring MIDI running status. It is the
// low-level walker behind parseRawTrack, used by the formats whose track
// data is plain MIDI bytes without a container the gomidi/midi/v2 smf
// package understands (GMF, RSXX, CMF) — unlike SMF/RMI, which have a
// real MThd/MTrk/RIFF container and so go through smf.ReadFrom instead.
// XMI and HMI/HMP have their own event decoders.
//
// running is read and updated in place. ok is false for meta/status bytes
// that produce no internal Event (unknown meta types are skipped, not
// errors). song.TempoEvents is appended whenever a tempo meta is decoded.
func decodeStatusEvent(song *Song, data []byte, pos int, running *uint8, trackIdx int, absTick uint64) (ev event.Event, ok bool, next int, err error) {
	if pos >= len(data) {
		return event.Event{}, false, pos, fmt.Errorf("%w: event runs past end of track data", ErrTruncated)
	}

	status := data[pos]
	if status&0x80 != 0 {
		*running = status
		pos++
	} else {
		status = *running
	}

	if status == 0 {
		return event.Event{}, false, pos, fmt.Errorf("%w: running status used before any status byte seen", ErrMalformed)
	}

	channel := status & 0x0F
	switch status & 0xF0 {
	case 0x80:
		return takeTwo(data, pos, event.NoteOff, channel)
	case 0x90:
		return takeTwo(data, pos, event.NoteOn, channel)
	case 0xA0:
		return takeTwo(data, pos, event.Aftertouch, channel)
	case 0xB0:
		return takeTwo(data, pos, event.CtrlChange, channel)
	case 0xC0:
		return takeOne(data, pos, event.PatchChange, channel)
	case 0xD0:
		return takeOne(data, pos, event.ChannelPressure, channel)
	case 0xE0:
		return takeTwo(data, pos, event.PitchBend, channel)
	}

	switch status {
	case 0xF0, 0xF7:
		length, p2, err := readVarLenSMF(data, pos)
		if err != nil {
			return event.Event{}, false, pos, err
		}
		if p2+int(length) > len(data) {
			return event.Event{}, false, pos, fmt.Errorf("%w: sysex length runs past end of track data", ErrTruncated)
		}
		ref := song.Bank.AppendBytes(data[p2 : p2+int(length)])
		return event.Event{Main: event.SysEx, Ref: ref}, true, p2 + int(length), nil

	case 0xFF:
		return decodeMetaEvent(song, data, pos, trackIdx, absTick)
	}

	return event.Event{}, false, pos, fmt.Errorf("%w: unrecognised status byte 0x%02X", ErrMalformed, status)
}

func takeTwo(data []byte, pos int, main event.MainType, channel uint8) (event.Event, bool, int, error) {
	if pos+2 > len(data) {
		return event.Event{}, false, pos, fmt.Errorf("%w: channel event runs past end of track data", ErrTruncated)
	}
	return event.Event{Main: main, Channel: channel, Payload: [5]byte{data[pos] & 0x7F, data[pos+1] & 0x7F}}, true, pos + 2, nil
}

func takeOne(data []byte, pos int, main event.MainType, channel uint8) (event.Event, bool, int, error) {
	if pos+1 > len(data) {
		return event.Event{}, false, pos, fmt.Errorf("%w: channel event runs past end of track data", ErrTruncated)
	}
	return event.Event{Main: main, Channel: channel, Payload: [5]byte{data[pos] & 0x7F}}, true, pos + 1, nil
}

func decodeMetaEvent(song *Song, data []byte, pos int, trackIdx int, absTick uint64) (event.Event, bool, int, error) {
	if pos+1 > len(data) {
		return event.Event{}, false, pos, fmt.Errorf("%w: meta event runs past end of track data", ErrTruncated)
	}
	metaType := data[pos]
	pos++

	length, p2, err := readVarLenSMF(data, pos)
	if err != nil {
		return event.Event{}, false, pos, err
	}
	if p2+int(length) > len(data) {
		return event.Event{}, false, pos, fmt.Errorf("%w: meta event length runs past end of track data", ErrTruncated)
	}
	payload := data[p2 : p2+int(length)]
	next := p2 + int(length)

	switch metaType {
	case 0x2F:
		return event.Event{Main: event.Meta, Sub: event.MetaEndOfTrack}, true, next, nil

	case 0x51:
		if len(payload) != 3 {
			return event.Event{}, false, pos, fmt.Errorf("%w: tempo meta must be 3 bytes", ErrMalformed)
		}
		micros := uint64(payload[0])<<16 | uint64(payload[1])<<8 | uint64(payload[2])
		song.TempoEvents = append(song.TempoEvents, TempoChange{AbsTick: absTick, MicrosPerQuarter: micros})
		return event.Event{Main: event.Meta, Sub: event.MetaTempoChange, Payload: u64payload(micros)}, true, next, nil

	case 0x01, 0x06: // text, marker
		ev, ok := convertLoopMarkerText(song, decodeLegacyText(payload), trackIdx, absTick)
		return ev, ok, next, nil

	case 0x03: // track name
		ref := song.Bank.AppendBytes(payload)
		return event.Event{Main: event.Meta, Sub: event.MetaTrackName, Ref: ref}, true, next, nil

	default:
		return event.Event{}, false, next, nil
	}
}
