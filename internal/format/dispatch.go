package format

import (
	"bytes"
	"fmt"
)

// Load sniffs data's format signature and dispatches to the matching
// parser, in the order the original reader probes them: containerised
// formats first (SMF, RMI), then each raw-track format by its own fixed
// signature or offset convention, falling back to the two formats with
// no signature byte of their own (IMF, KLM) only once every other match
// has failed.
func Load(data []byte) (*Song, error) {
	switch {
	case hasPrefix(data, []byte("MThd\x00\x00\x00\x06")):
		return ParseSMF(data)

	case hasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("RMID")):
		return ParseRMI(data)

	case hasPrefix(data, []byte("GMF\x01")):
		return ParseGMF(data)

	case hasPrefix(data, []byte("MUS\x1A")):
		return ParseMUS(data)

	case hasPrefix(data, []byte("HMI-MIDISONG061595")), hasPrefix(data, []byte("HMIMIDIP")):
		return ParseHMI(data)

	case hasPrefix(data, []byte("FORM")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("XDIR")):
		return ParseXMI(data)

	case hasPrefix(data, []byte("CTMF")):
		return ParseCMF(data)

	case looksLikeRSXX(data):
		return ParseRSXX(data)

	case looksLikeKLM(data):
		return ParseKLM(data)

	case looksLikeIMF(data):
		return ParseIMF(data)
	}

	return nil, fmt.Errorf("%w: no recognised score signature", ErrUnsupportedFormat)
}

func hasPrefix(data, prefix []byte) bool {
	return len(data) >= len(prefix) && bytes.Equal(data[:len(prefix)], prefix)
}

// looksLikeRSXX probes the rsxx}u signature at the offset its own first
// byte names, without committing to a full parse.
func looksLikeRSXX(data []byte) bool {
	if len(data) < 14 {
		return false
	}
	start := int(data[0])
	if start < 0x5D {
		return false
	}
	sigPos := start - 0x10
	return sigPos >= 0 && sigPos+6 <= len(data) && string(data[sigPos:sigPos+6]) == "rsxx}u"
}

// looksLikeKLM has no magic signature to key off; it is recognised by the
// header's internal consistency — a plausible song offset whose
// instrument bank (musOffset-5) divides evenly by the 11-byte patch size
// and whose tempo field is nonzero.
func looksLikeKLM(data []byte) bool {
	const headerSize = 5
	if len(data) < headerSize {
		return false
	}
	tempo := u16le(data[0:2])
	musOffset := int(u16le(data[3:5]))
	if tempo == 0 || musOffset < headerSize || musOffset >= len(data) {
		return false
	}
	return (musOffset-headerSize)%11 == 0
}

// looksLikeIMF is the last-resort probe: a 2-byte length prefix that
// either names the whole remaining file ("type 1") or is zero ("type 0",
// read to EOF), and whose body length is a multiple of the 4-byte record
// size. This is the weakest signature of the ten and so is tried last.
func looksLikeIMF(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	imfEnd := int(data[0]) + 256*int(data[1])
	if imfEnd == 0 {
		return len(data)%4 == 0 && len(data) > 0
	}
	return imfEnd+2 == len(data) && (imfEnd%4 == 0)
}
