package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// CMFInstrument is one 16-byte raw OPL2 patch entry from a CMF file's
// embedded instrument bank, carried through unconverted: voice allocation
// decodes the operator/feedback/waveform fields per §4.E's patch model.
type CMFInstrument struct {
	Data [16]byte
}

const cmfHeaderSize = 14

// ParseCMF reads a Creative Music Format file: a CTMF header naming the
// instrument-bank and song-body offsets plus a fixed playback rate, an
// embedded OPL2 instrument bank, and a song body that uses the exact same
// delta-time/running-status encoding as plain SMF track bytes (confirmed
// by original_source's parseCMF, which calls the same per-track builder
// it uses for real SMF data) — so the song body goes through the shared
// decodeStatusEvent walker exactly like GMF/RSXX.
func ParseCMF(data []byte) (*Song, error) {
	if len(data) < cmfHeaderSize || string(data[:4]) != "CTMF" {
		return nil, fmt.Errorf("%w: CMF signature not found", ErrUnsupportedFormat)
	}

	verMajor := data[4]
	verMinor := data[5]
	if verMajor != 0x01 || (verMinor != 0x00 && verMinor != 0x01) {
		return nil, fmt.Errorf("%w: unsupported CMF version %d.%d", ErrUnsupportedFormat, verMajor, verMinor)
	}

	insStart := int(u16le(data[6:8]))
	musStart := int(u16le(data[8:10]))
	ticksPerSecond := int(u16le(data[12:14]))

	pos := cmfHeaderSize + 6 // title/author/remarks offsets, unused
	pos += 16                // channels-in-use table

	var insCount int
	var instruments []CMFInstrument

	if verMinor == 0x00 {
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: CMF instrument count truncated", ErrTruncated)
		}
		insCount = int(data[pos])
		pos++
	} else {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: CMF instrument count/tempo truncated", ErrTruncated)
		}
		insCount = int(u16le(data[pos : pos+2]))
		// the following 2 bytes are an alternate tempo field CMF 1.1
		// carries but never uses in preference to CMF_OFFSET_TICKS_PER_S
	}

	if insStart+insCount*16 > len(data) {
		return nil, fmt.Errorf("%w: CMF instrument bank runs past end of file", ErrTruncated)
	}
	instruments = make([]CMFInstrument, insCount)
	for i := 0; i < insCount; i++ {
		copy(instruments[i].Data[:], data[insStart+i*16:insStart+i*16+16])
	}

	if musStart > len(data) {
		return nil, fmt.Errorf("%w: CMF song body offset past end of file", ErrTruncated)
	}

	division := uint64(ticksPerSecond)
	if division == 0 {
		division = 192
	}

	song := NewSong(division)
	song.CMFInstruments = instruments
	tr := event.NewTrack()
	song.Tracks = append(song.Tracks, tr)

	if err := parseRawTrack(song, tr, 0, data[musStart:]); err != nil {
		return nil, err
	}
	return song, nil
}
