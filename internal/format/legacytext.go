package format

import (
	"golang.org/x/text/encoding/charmap"
)

// decodeLegacyText converts a legacy single-byte DOS text payload to
// UTF-8. It is applied to text and marker meta events (SMF marker/text/
// lyric metas, and the text/marker metas of GMF, RSXX, CMF and XMI); MUS
// and HMI text, track names, and CMF title/author/remarks blocks are not
// decoded.
// These formats predate any encoding declaration; CP437 is the code page
// DOS-era tools in this family actually used.
func decodeLegacyText(raw []byte) string {
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
