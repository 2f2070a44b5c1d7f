package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// imfMicrosPerTick is IMF's fixed ~700Hz clock (1,000,000/1428 ≈ 700.28Hz),
// expressed in this module's division=1/tempo-event model exactly as
// original_source's parseIMF seeds it (deltaTicks=1, tempo event bytes
// {0x00,0x05,0x94} = 1428).
const imfMicrosPerTick = 1428

// ParseIMF reads an id Software Id Music Format stream: an optional
// 2-byte little-endian length prefix (IMF "type 1"), or none at all
// ("type 0", read until end of buffer), followed by 4-byte raw OPL
// register-poke records {port, value, delayLo, delayHi}.
func ParseIMF(data []byte) (*Song, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: IMF header truncated", ErrTruncated)
	}

	imfEnd := int(data[0]) + 256*int(data[1])

	pos := 0
	if imfEnd > 0 {
		pos = 2
	} else {
		// Type 0: read until end of the in-memory buffer, since there is
		// no length prefix and no file handle to stat here.
		imfEnd = len(data)
	}
	if imfEnd > len(data) {
		imfEnd = len(data)
	}

	song := NewSong(1)
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)

	sounding := event.NewNoteSounding()
	var absTick uint64

	rb := song.Bank.BeginRow(0)
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
	rb.Append(event.Event{Main: event.Meta, Sub: event.MetaTempoChange, Payload: u64payload(imfMicrosPerTick)})
	song.TempoEvents = append(song.TempoEvents, TempoChange{AbsTick: 0, MicrosPerQuarter: imfMicrosPerTick})
	rowHasContent := true

	for pos+4 <= imfEnd {
		port := data[pos]
		value := data[pos+1]
		delay := uint64(data[pos+2]) + 256*uint64(data[pos+3])
		pos += 4

		rb.Append(event.Event{Main: event.Meta, Sub: event.MetaRawOPL, Payload: [5]byte{port, value}})
		rowHasContent = true

		if delay > 0 {
			tr.AppendRow(rb.Finish(sounding))
			absTick += delay
			rb = song.Bank.BeginRow(absTick)
			rowHasContent = false
		}
	}

	if rowHasContent {
		tr.AppendRow(rb.Finish(sounding))
	}
	return song, nil
}
