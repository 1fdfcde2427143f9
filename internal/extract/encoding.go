package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbackEncodings are tried, in order, when the payload is not valid UTF-8.
var fallbackEncodings = []encoding.Encoding{
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// DecodeText turns plain-text bytes into a trimmed string. UTF-8 is tried
// first, then the single-byte fallbacks; if every decoder fails the bytes are
// read as UTF-8 with invalid sequences dropped. It never fails.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimSpace(string(bytes.TrimPrefix(data, utf8BOM)))
	}
	for _, enc := range fallbackEncodings {
		if s, ok := decodeStrict(enc, data); ok {
			return strings.TrimSpace(s)
		}
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}

// decodeStrict treats a byte the charmap cannot represent (decoded as
// U+FFFD) as a failed decode.
func decodeStrict(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
