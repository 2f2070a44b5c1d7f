package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// gmfDivision is the fixed ticks-per-quarter-note GMF always uses; the
// format carries no division field of its own (original_source's
// read_gmf_impl.hpp hardcodes deltaTicks=192).
const gmfDivision = 192

// ParseGMF reads a GMF (id Software "Game Music Format") byte stream: a
// 4-byte "GMF\x1" signature, then — per original_source's parseGMF, which
// seeks to absolute offset 7 after the header read — three bytes this
// implementation treats as reserved, followed by one raw MIDI track with
// no further chunking. There is no SMF container here (unlike RMI), so
// the shared decodeStatusEvent walker is used directly instead of
// gomidi/midi/v2/smf.
func ParseGMF(data []byte) (*Song, error) {
	if len(data) < 7 || string(data[:4]) != "GMF\x01" {
		return nil, fmt.Errorf("%w: GMF signature not found", ErrUnsupportedFormat)
	}

	song := NewSong(gmfDivision)
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)

	if err := parseRawTrack(song, tr, 0, data[7:]); err != nil {
		return nil, err
	}
	return song, nil
}
