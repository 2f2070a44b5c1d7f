package format

import "github.com/Wohlstand/libADLMIDI-sub000/internal/event"

// deltaReader reads one variable-length delay value, differing between
// SMF-style (big-endian, MSB continuation) and HMP-style (little-endian,
// inverted continuation bit) encodings — see readVarLenSMF/readVarLenHMP.
type deltaReader func(data []byte, pos int) (uint32, int, error)

// parseRawTrack walks one track's worth of plain "delta-time + MIDI/meta
// event" bytes (no MThd/MTrk container) using the SMF variable-length
// delay encoding, for formats whose only header work is a short preamble
// before a single undifferentiated event stream (GMF, RSXX, CMF's song
// body).
func parseRawTrack(song *Song, tr *event.Track, trackIdx int, data []byte) error {
	return parseRawTrackWithDelta(song, tr, trackIdx, data, readVarLenSMF)
}

// parseRawTrackWithDelta is parseRawTrack generalised over the
// delta-time encoding; parseRawTrack is its only caller. HMI/HMP and XMI
// build their tracks with their own loops (buildHMITrack, xmi.go).
func parseRawTrackWithDelta(song *Song, tr *event.Track, trackIdx int, data []byte, readDelta deltaReader) error {
	var absTick uint64
	var running uint8
	sounding := event.NewNoteSounding()
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

	if trackIdx == 0 {
		rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
		rowHasContent = true
	}

	for pos < len(data) {
		delta, next, err := readDelta(data, pos)
		if err != nil {
			return err
		}
		pos = next

		if delta > 0 {
			flush(absTick)
		}
		absTick += uint64(delta)

		ev, ok, next2, err := decodeStatusEvent(song, data, pos, &running, trackIdx, absTick)
		if err != nil {
			return err
		}
		pos = next2

		if ok {
			rb.Append(ev)
			rowHasContent = true
			if ev.Main == event.Meta && ev.Sub == event.MetaEndOfTrack {
				break
			}
		}
	}
	flush(absTick)
	return nil
}
