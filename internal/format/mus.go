package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// DMX MUS (id Software "MUS\x1A") has no tempo field of its own; its
// sequencer clock runs at a fixed 140Hz, which this port expresses the
// same way every other format's tempo is expressed: a division (ticks
// per quarter note) paired with a microseconds-per-quarter tempo event,
// here chosen so one tick is exactly 1/140 second.
const (
	musDivision         = 140
	musMicrosPerQuarter = 1000000
)

// musControllerMap translates MUS's compact system/controller indices
// into real MIDI CC numbers, ported verbatim from read_mus_impl.hpp's
// controller_map.
var musControllerMap = [15]uint8{
	0x00, 0x00, 0x01, 0x07, 0x0A,
	0x0B, 0x5B, 0x5D, 0x40, 0x43,
	0x78, 0x7B, 0x7E, 0x7F, 0x79,
}

// ParseMUS reads a DMX MUS file: a 16-byte header giving the song's
// length and offset, its declared channel count, and an instrument
// number table, followed by a single compact event stream using its
// own channel-assignment and variable-length-delay conventions.
func ParseMUS(data []byte) (*Song, error) {
	const headerSize = 16
	if len(data) < headerSize || string(data[:4]) != "MUS\x1A" {
		return nil, fmt.Errorf("%w: MUS signature not found", ErrUnsupportedFormat)
	}

	lenSong := int(u16le(data[4:6]))
	offSong := int(u16le(data[6:8]))
	channels1 := int(u16le(data[8:10]))
	numInstr := int(u16le(data[14:16]))

	if headerSize+numInstr*2 > offSong {
		return nil, fmt.Errorf("%w: MUS instrument list overruns song offset", ErrMalformed)
	}
	if offSong < 0 || lenSong < 0 || offSong+lenSong > len(data) {
		return nil, fmt.Errorf("%w: MUS song body runs past end of file", ErrTruncated)
	}
	if channels1 > 15 {
		return nil, fmt.Errorf("%w: MUS declares more than 15 primary channels", ErrMalformed)
	}

	instrs := make([]uint16, numInstr)
	for i := 0; i < numInstr; i++ {
		off := headerSize + i*2
		instrs[i] = u16le(data[off : off+2])
	}

	song := NewSong(musDivision)
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)

	if err := buildMUSTrack(song, tr, data[offSong:offSong+lenSong], instrs); err != nil {
		return nil, err
	}
	return song, nil
}

func buildMUSTrack(song *Song, tr *event.Track, body []byte, instrs []uint16) error {
	var channelMap [16]int8
	var channelVolume [16]uint8
	for i := range channelMap {
		channelMap[i] = -1
		channelVolume[i] = 0x40
	}
	channelMap[15] = 9 // DMX's fixed percussion channel
	nextChannel := uint8(0)

	sounding := event.NewNoteSounding()
	var absTick uint64
	pos := 0

	rb := song.Bank.BeginRow(0)

	// HACK (ported from read_mus_impl.hpp): begin every MUS track with a
	// reset hook and a loud percussion channel, since MUS never carries
	// its own controller defaults.
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaTempoChange, Payload: u64payload(musMicrosPerQuarter)})
	song.TempoEvents = append(song.TempoEvents, TempoChange{AbsTick: 0, MicrosPerQuarter: musMicrosPerQuarter})
	rb.Append(event.Event{Main: event.CtrlChange, Channel: 9, Payload: [5]byte{7, 100}})

	for pos < len(body) {
		musEvent := body[pos]
		pos++
		musChannel := musEvent & 0x0F

		if channelMap[musChannel] < 0 {
			rb.Append(event.Event{Main: event.CtrlChange, Channel: nextChannel, Payload: [5]byte{7, 100}})
			channelMap[musChannel] = int8(nextChannel)
			nextChannel++
			if nextChannel == 9 {
				nextChannel++
			}
		}
		channel := uint8(channelMap[musChannel])

		endOfTrack := false

		switch (musEvent >> 4) & 0x07 {
		case 0: // note off
			if pos >= len(body) {
				return fmt.Errorf("%w: MUS note-off runs past end of data", ErrTruncated)
			}
			key := body[pos] & 0x7F
			pos++
			rb.Append(event.Event{Main: event.NoteOff, Channel: channel, Payload: [5]byte{key, 0}})

		case 1: // note on
			if pos >= len(body) {
				return fmt.Errorf("%w: MUS note-on runs past end of data", ErrTruncated)
			}
			b0 := body[pos]
			pos++
			key := b0 & 0x7F
			if b0&0x80 != 0 {
				if pos >= len(body) {
					return fmt.Errorf("%w: MUS note-on velocity runs past end of data", ErrTruncated)
				}
				channelVolume[channel] = body[pos] & 0x7F
				pos++
			}
			rb.Append(event.Event{Main: event.NoteOn, Channel: channel, Payload: [5]byte{key, channelVolume[channel]}})

		case 2: // pitch bend
			if pos >= len(body) {
				return fmt.Errorf("%w: MUS pitch bend runs past end of data", ErrTruncated)
			}
			b0 := body[pos]
			pos++
			rb.Append(event.Event{Main: event.PitchBend, Channel: channel, Payload: [5]byte{(b0 & 1) >> 6, b0 >> 1}})

		case 3: // system event
			if pos >= len(body) {
				return fmt.Errorf("%w: MUS system event runs past end of data", ErrTruncated)
			}
			b0 := body[pos]
			pos++
			if b0&0x7F < 15 {
				rb.Append(event.Event{Main: event.CtrlChange, Channel: channel, Payload: [5]byte{musControllerMap[b0&0x7F], 0}})
			}

		case 4: // controller change / patch change
			if pos+2 > len(body) {
				return fmt.Errorf("%w: MUS controller event runs past end of data", ErrTruncated)
			}
			ctrl := body[pos] & 0x7F
			val := body[pos+1] & 0x7F
			pos += 2
			if ctrl < 15 {
				if ctrl == 0 {
					if len(instrs) > 0 {
						found := false
						for _, inst := range instrs {
							if uint16(val) == inst {
								found = true
								break
							}
						}
						if !found {
							return fmt.Errorf("%w: MUS instrument number not in instrument list", ErrMalformed)
						}
					}
					rb.Append(event.Event{Main: event.PatchChange, Channel: channel, Payload: [5]byte{val}})
				} else {
					rb.Append(event.Event{Main: event.CtrlChange, Channel: channel, Payload: [5]byte{musControllerMap[ctrl], val}})
				}
			}

		case 5: // end of measure: no event

		case 6: // end of track
			rb.Append(event.Event{Main: event.Meta, Sub: event.MetaEndOfTrack})
			endOfTrack = true

		case 7: // unused: no event
		}

		var delay uint32
		if musEvent&0x80 != 0 {
			for {
				if pos >= len(body) {
					return fmt.Errorf("%w: MUS delay byte runs past end of data", ErrTruncated)
				}
				b := body[pos]
				pos++
				delay = delay*128 + uint32(b&0x7F)
				if b&0x80 == 0 {
					break
				}
			}
		}

		if delay > 0 || endOfTrack || pos >= len(body) {
			tr.AppendRow(rb.Finish(sounding))
			absTick += uint64(delay)
			rb = song.Bank.BeginRow(absTick)
		}
		if endOfTrack {
			break
		}
	}

	return nil
}
