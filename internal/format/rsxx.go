package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// rsxxDivision is RSXX's fixed ticks-per-quarter-note division
// (original_source's parseRSXX hardcodes deltaTicks=60).
const rsxxDivision = 60

// ParseRSXX locates the `rsxx}u` signature by the offset convention
// described in §4.C ("rsxx}u located by first-byte offset"): the file's
// first byte gives the signature's own file offset plus 0x10, and the
// single raw MIDI-event track begins right after the signature.
func ParseRSXX(data []byte) (*Song, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("%w: RSXX header truncated", ErrTruncated)
	}

	start := int(data[0])
	if start < 0x5D {
		return nil, fmt.Errorf("%w: RSXX song too short", ErrMalformed)
	}

	sigPos := start - 0x10
	if sigPos < 0 || sigPos+6 > len(data) || string(data[sigPos:sigPos+6]) != "rsxx}u" {
		return nil, fmt.Errorf("%w: rsxx}u signature not found", ErrUnsupportedFormat)
	}
	if start > len(data) {
		return nil, fmt.Errorf("%w: RSXX track offset past end of file", ErrTruncated)
	}

	song := NewSong(rsxxDivision)
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)

	if err := parseRawTrack(song, tr, 0, data[start:]); err != nil {
		return nil, err
	}
	return song, nil
}
