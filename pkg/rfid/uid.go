package rfid

import (
	"encoding/hex"
	"strings"
)

// EncodeUID - renders the tag identifier as two uppercase hex digits per byte,
// in the order reported by the reader, without separators
func EncodeUID(uid []byte) string {
	return strings.ToUpper(hex.EncodeToString(uid))
}

// DecodeUID - parses a hex UID, tolerating ':', '-' and whitespace between byte pairs
func DecodeUID(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	return hex.DecodeString(clean)
}
