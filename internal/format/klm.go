package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// klmOpMap maps KLM's 6 melodic channels onto (modulator, carrier)
// operator offset pairs, ported verbatim from read_klm_impl.hpp's op_map.
var klmOpMap = [12]uint8{
	0x00, 0x03,
	0x01, 0x04,
	0x02, 0x05,
	0x08, 0x0B,
	0x09, 0x0C,
	0x0A, 0x0D,
}

// klmRhythmMap maps KLM's 5 rhythm-mode channels (6-10) onto operator
// offsets; 0xFF marks the half that rhythm mode's shared operators don't
// have (ported from rm_map).
var klmRhythmMap = [10]uint8{
	0x10, 0x13,
	0xFF, 0x14,
	0x12, 0xFF,
	0xFF, 0x15,
	0x11, 0xFF,
}

// klmRhythmVolMap maps the rhythm channels onto their single active
// volume register offset (ported from rm_vol_map).
var klmRhythmVolMap = [5]uint8{0x13, 0x14, 0x12, 0x15, 0x11}

// ParseKLM reads a KLM file: a 5-byte header giving a fixed playback rate
// and the song-body offset, an embedded bank of 11-byte raw OPL2
// instrument fragments, and a compact command stream that expands
// directly into OPL register writes rather than MIDI-shaped events —
// note on/off, volume, and instrument-select commands are each ported
// from read_klm_impl.hpp's per-command register math, emitting MetaRawOPL
// events exactly as the original writes to its emulated chip.
func ParseKLM(data []byte) (*Song, error) {
	const headerSize = 5
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: KLM header truncated", ErrTruncated)
	}

	tempo := uint64(u16le(data[0:2]))
	musOffset := int(u16le(data[3:5]))
	if musOffset >= len(data) {
		return nil, fmt.Errorf("%w: KLM song offset past end of file", ErrTruncated)
	}
	if tempo == 0 {
		return nil, fmt.Errorf("%w: KLM declares zero tempo", ErrMalformed)
	}

	if (musOffset-headerSize)%11 != 0 {
		return nil, fmt.Errorf("%w: KLM instrument bank is not a multiple of 11 bytes", ErrMalformed)
	}
	insCount := (musOffset - headerSize) / 11
	instruments := make([][11]byte, insCount)
	for i := 0; i < insCount; i++ {
		off := headerSize + i*11
		copy(instruments[i][:], data[off:off+11])
	}

	// See imfMicrosPerTick: division = tempo*2 with a 1-second-per-quarter
	// tempo event reproduces the original's prescaled 1/(tempo*2) base
	// tick, given every raw delay byte is doubled before use below.
	song := NewSong(tempo * 2)
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)
	song.TempoEvents = append(song.TempoEvents, TempoChange{AbsTick: 0, MicrosPerQuarter: 1000000})

	if err := buildKLMTrack(song, tr, data[musOffset:], instruments); err != nil {
		return nil, err
	}
	return song, nil
}

func buildKLMTrack(song *Song, tr *event.Track, body []byte, instruments [][11]byte) error {
	sounding := event.NewNoteSounding()
	var absTick uint64
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

	emit := func(port, value uint8) {
		rb.Append(event.Event{Main: event.Meta, Sub: event.MetaRawOPL, Payload: [5]byte{port, value}})
		rowHasContent = true
	}

	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
	rowHasContent = true

	var regBD uint8 = 0x20
	var regB0 [11]uint8
	var reg43 [11]uint8
	emit(0xBD, regBD)

	rhythmA0 := [3]uint8{0x57, 0x03, 0x57}
	rhythmB0 := [3]uint8{0x0A, 0x0A, 0x09}
	for c := 6; c <= 8; c++ {
		emit(0xA0+uint8(c), rhythmA0[c-6])
		regB0[c] = rhythmB0[c-6] & 0xDF
		emit(0xB0+uint8(c), regB0[c])
	}

	setBD := func(chan_ uint8, on bool) {
		var bit uint8
		switch chan_ {
		case 6:
			bit = 0x10
		case 7:
			bit = 0x08
		case 8:
			bit = 0x04
		case 9:
			bit = 0x02
		case 0x0A:
			bit = 0x01
		}
		if on {
			regBD |= bit
		} else {
			regBD &^= bit
		}
		emit(0xBD, regBD)
	}

	for pos < len(body) {
		cmd := body[pos]
		pos++
		chNum := cmd & 0x0F

		if cmd&0xF0 != 0xF0 && chNum >= 11 {
			return fmt.Errorf("%w: KLM channel out of range", ErrMalformed)
		}

		switch cmd & 0xF0 {
		case 0x00: // note off
			if chNum <= 5 {
				regB0[chNum] &^= 0x20
				emit(0xB0+chNum, regB0[chNum])
			} else {
				setBD(chNum, false)
			}

		case 0x10: // note on with frequency
			if chNum > 6 {
				setBD(chNum, true)
				break
			}
			if pos+2 > len(body) {
				return fmt.Errorf("%w: KLM note-on frequency data truncated", ErrTruncated)
			}
			fnumLo, fnumHi := body[pos], body[pos+1]
			pos += 2
			emit(0xA0+chNum, fnumLo)
			if chNum < 6 {
				regB0[chNum] = (fnumHi & 0xDF) | 0x20
			} else {
				regB0[chNum] = fnumHi & 0xDF
			}
			emit(0xB0+chNum, regB0[chNum])

		case 0x20: // volume
			if pos >= len(body) {
				return fmt.Errorf("%w: KLM volume data truncated", ErrTruncated)
			}
			vol := body[pos]
			pos++
			reg43[chNum] = (reg43[chNum] & 0xC0) | (0x3F & ((127 - vol) / 2))
			var opOff uint8
			if chNum < 6 {
				opOff = klmOpMap[chNum*2+1]
			} else if chNum <= 11 {
				opOff = klmRhythmVolMap[chNum-6]
			}
			emit(0x40+opOff, reg43[chNum])

		case 0x30: // set instrument
			if pos >= len(body) {
				return fmt.Errorf("%w: KLM instrument-select data truncated", ErrTruncated)
			}
			sel := body[pos]
			pos++
			if int(sel) >= len(instruments) {
				return fmt.Errorf("%w: KLM instrument index out of range", ErrMalformed)
			}
			ins := instruments[sel]

			var modOff, carOff uint8
			if chNum < 6 {
				modOff, carOff = klmOpMap[chNum*2], klmOpMap[chNum*2+1]
			} else {
				modOff, carOff = klmRhythmMap[(chNum-6)*2], klmRhythmMap[(chNum-6)*2+1]
			}

			if modOff != 0xFF {
				emit(0x40+modOff, ins[0])
				emit(0x60+modOff, ins[2])
				emit(0x80+modOff, ins[4])
				emit(0x20+modOff, ins[6])
				emit(0xE0+modOff, ins[8])
			}
			if carOff != 0xFF {
				reg43[chNum] = ins[1]
				emit(0x40+carOff, reg43[chNum])
				emit(0x60+carOff, ins[3])
				emit(0x80+carOff, ins[5])
				emit(0x20+carOff, ins[7])
				emit(0xE0+carOff, ins[9])
			}
			if chNum <= 6 {
				emit(0xC0+chNum, ins[10]|0x30)
			}

		case 0x40: // note on without frequency
			if chNum < 6 {
				regB0[chNum] |= 0x20
				emit(0xB0+chNum, regB0[chNum])
			} else {
				setBD(chNum, true)
			}

		case 0xF0: // special
			switch cmd {
			case 0xFD: // short delay
				if pos >= len(body) {
					return fmt.Errorf("%w: KLM short delay data truncated", ErrTruncated)
				}
				delay := uint64(body[pos]) * 2
				pos++
				if delay > 0 {
					flush(absTick)
					absTick += delay
				}

			case 0xFE: // long delay
				if pos+2 > len(body) {
					return fmt.Errorf("%w: KLM long delay data truncated", ErrTruncated)
				}
				delay := (uint64(body[pos]) + uint64(body[pos+1])<<8) * 2
				pos += 2
				if delay > 0 {
					flush(absTick)
					absTick += delay
				}

			case 0xFF: // song end
				flush(absTick)
				return nil

			default:
				return fmt.Errorf("%w: unsupported KLM special command 0x%02X", ErrMalformed, cmd)
			}

		default:
			return fmt.Errorf("%w: unsupported KLM command 0x%02X", ErrMalformed, cmd)
		}
	}

	flush(absTick)
	return nil
}
