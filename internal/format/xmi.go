package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// xmiDivision is the fixed ticks-per-quarter-note rate XMI's EVNT stream
// assumes: at the default 500000us-per-quarter tempo it gives a 120Hz
// clock. A tempo meta carried in the stream changes the rate as usual.
const xmiDivision = 60

// readVarLenXMI reads XMI's interval-count encoding, used both for
// delta-times and for note durations: a run of 0x7F bytes each adding 127,
// terminated by one final byte in [0, 0x7F) adding its own value. Unlike
// SMF's VLQ this is unbounded in byte count — the loop below stops after
// 256 bytes to guard against a corrupt non-terminating stream.
func readVarLenXMI(data []byte, pos int) (value uint32, next int, err error) {
	for i := 0; i < 256; i++ {
		if pos >= len(data) {
			return 0, pos, fmt.Errorf("%w: XMI interval count runs past end of data", ErrTruncated)
		}
		b := data[pos]
		pos++
		value += uint32(b)
		if b != 0x7F {
			return value, pos, nil
		}
	}
	return 0, pos, fmt.Errorf("%w: XMI interval count exceeds sane bound", ErrMalformed)
}

// iffChunk is one IFF FORM/CAT/leaf chunk as found by walking big-endian
// length-prefixed records; container chunks (FORM, CAT ) carry a 4-byte
// form-type ID as their first 4 payload bytes.
type iffChunk struct {
	id   string
	data []byte
}

func walkIFFChunks(data []byte) []iffChunk {
	var chunks []iffChunk
	pos := 0
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		length := int(u32be(data[pos+4 : pos+8]))
		start := pos + 8
		end := start + length
		if end > len(data) {
			break
		}
		chunks = append(chunks, iffChunk{id: id, data: data[start:end]})
		pos = end
		if pos%2 == 1 {
			pos++ // IFF chunks are word-aligned
		}
	}
	return chunks
}

// ParseXMI reads an id Software/Human Machine Interfaces XMI file: an IFF
// FORM XDIR wrapper around a CAT XMID list of per-song FORM XMID chunks,
// each carrying an EVNT sub-chunk with the actual event stream. This port
// loads the first song only (m_loadTrackNumber in original_source defaults
// to 0); XMI's own NoteOnDurated events are preserved as a distinct event
// type rather than being split into separate Note On/Note Off pairs, since
// a down-stream timed-note cache needs the duration to auto-release notes
// whose explicit Note Off XMI never encodes.
func ParseXMI(data []byte) (*Song, error) {
	if len(data) < 12 || string(data[:4]) != "FORM" || string(data[8:12]) != "XDIR" {
		return nil, fmt.Errorf("%w: XMI FORM XDIR signature not found", ErrUnsupportedFormat)
	}

	top := walkIFFChunks(data[12:])
	var catBody []byte
	for _, c := range top {
		if c.id == "CAT " {
			catBody = c.data
			break
		}
	}
	if catBody == nil || len(catBody) < 4 || string(catBody[:4]) != "XMID" {
		return nil, fmt.Errorf("%w: XMI CAT XMID list not found", ErrMalformed)
	}

	songs := walkIFFChunks(catBody[4:])
	var evnt []byte
	for _, s := range songs {
		if s.id != "FORM" || len(s.data) < 4 || string(s.data[:4]) != "XMID" {
			continue
		}
		for _, c := range walkIFFChunks(s.data[4:]) {
			if c.id == "EVNT" {
				evnt = c.data
				break
			}
		}
		if evnt != nil {
			break
		}
	}
	if evnt == nil {
		return nil, fmt.Errorf("%w: XMI song has no EVNT chunk", ErrMalformed)
	}

	song := NewSong(xmiDivision)
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)

	if err := buildXMITrack(song, tr, evnt); err != nil {
		return nil, err
	}
	return song, nil
}

func buildXMITrack(song *Song, tr *event.Track, body []byte) error {
	sounding := event.NewNoteSounding()
	var absTick uint64
	var running uint8
	pos := 0

	rb := song.Bank.BeginRow(0)
	rowHasContent := false
	flush := func(next uint64) {
		if rowHasContent {
			tr.AppendRow(rb.Finish(sounding))
		}
		rb = song.Bank.BeginRow(next)
		rowHasContent = false
	}

	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
	rowHasContent = true

	for pos < len(body) {
		// a run of delay bytes (high bit clear) precedes every status byte
		var delay uint32
		for pos < len(body) && body[pos] < 0x80 {
			d, next, err := readVarLenXMI(body, pos)
			if err != nil {
				return err
			}
			delay += d
			pos = next
		}
		if delay > 0 {
			flush(absTick)
			absTick += uint64(delay)
		}
		if pos >= len(body) {
			break
		}

		status := body[pos]
		if status&0x80 != 0 {
			running = status
			pos++
		} else {
			status = running
		}
		channel := status & 0x0F

		switch status & 0xF0 {
		case 0x90: // note on, durated
			if pos+2 > len(body) {
				return fmt.Errorf("%w: XMI note-on runs past end of data", ErrTruncated)
			}
			key := body[pos] & 0x7F
			vel := body[pos+1] & 0x7F
			pos += 2
			duration, next, err := readVarLenXMI(body, pos)
			if err != nil {
				return err
			}
			pos = next
			ev := event.Event{Main: event.NoteOnDurated, Channel: channel, Payload: [5]byte{key, vel, byte(duration), byte(duration >> 8), byte(duration >> 16)}}
			rb.Append(ev)
			rowHasContent = true
			tr.AddTimedNote(event.TimedNote{TTLTicks: int64(duration), Channel: channel, Key: key, Velocity: vel})

		case 0x80:
			ev, ok, next, err := takeTwo(body, pos, event.NoteOff, channel)
			if err != nil {
				return err
			}
			pos = next
			if ok {
				rb.Append(ev)
				rowHasContent = true
			}

		case 0xA0:
			ev, ok, next, err := takeTwo(body, pos, event.Aftertouch, channel)
			if err != nil {
				return err
			}
			pos = next
			if ok {
				rb.Append(ev)
				rowHasContent = true
			}

		case 0xB0:
			if pos+2 > len(body) {
				return fmt.Errorf("%w: XMI controller event runs past end of data", ErrTruncated)
			}
			ctrl := body[pos] & 0x7F
			val := body[pos+1] & 0x7F
			pos += 2
			ev, ok := convertXMIController(channel, ctrl, val)
			if ok {
				rb.Append(ev)
				rowHasContent = true
			}

		case 0xC0:
			ev, ok, next, err := takeOne(body, pos, event.PatchChange, channel)
			if err != nil {
				return err
			}
			pos = next
			if ok {
				rb.Append(ev)
				rowHasContent = true
			}

		case 0xD0:
			ev, ok, next, err := takeOne(body, pos, event.ChannelPressure, channel)
			if err != nil {
				return err
			}
			pos = next
			if ok {
				rb.Append(ev)
				rowHasContent = true
			}

		case 0xE0:
			ev, ok, next, err := takeTwo(body, pos, event.PitchBend, channel)
			if err != nil {
				return err
			}
			pos = next
			if ok {
				rb.Append(ev)
				rowHasContent = true
			}

		default:
			if status == 0xFF {
				ev, ok, next, err := decodeMetaEvent(song, body, pos+1, 0, absTick)
				if err != nil {
					return err
				}
				pos = next
				if ok {
					rb.Append(ev)
					rowHasContent = true
					if ev.Main == event.Meta && ev.Sub == event.MetaEndOfTrack {
						flush(absTick)
						return nil
					}
				}
			} else if status == 0xF0 {
				length, next, err := readVarLenSMF(body, pos+1)
				if err != nil {
					return err
				}
				if next+int(length) > len(body) {
					return fmt.Errorf("%w: XMI sysex length runs past end of data", ErrTruncated)
				}
				ref := song.Bank.AppendBytes(body[next : next+int(length)])
				rb.Append(event.Event{Main: event.SysEx, Ref: ref})
				rowHasContent = true
				pos = next + int(length)
			} else {
				return fmt.Errorf("%w: unrecognised XMI status byte 0x%02X", ErrMalformed, status)
			}
		}
	}

	flush(absTick)
	return nil
}

// convertXMIController maps XMI's loop/callback controller extensions
// (CC116 loop start, CC117 loop end, CC119 callback trigger) onto the
// synthetic meta events the sequencer's loop stack understands, per the
// XMI loop-by-controller convention; every other controller passes
// through unchanged.
func convertXMIController(channel, ctrl, val uint8) (event.Event, bool) {
	switch ctrl {
	case 116:
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStackBeginLocal, Channel: channel, Payload: [5]byte{val}}, true
	case 117:
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStackEndLocal, Channel: channel, Payload: [5]byte{val}}, true
	case 119:
		return event.Event{Main: event.Meta, Sub: event.MetaCallbackTrigger, Channel: channel, Payload: [5]byte{val}}, true
	default:
		return event.Event{Main: event.CtrlChange, Channel: channel, Payload: [5]byte{ctrl, val}}, true
	}
}
