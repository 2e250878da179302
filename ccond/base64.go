package ccond

import (
	"encoding/base64"
	"strings"
)

// Fingerprints and payloads use unpadded base64url.
var b64 = base64.RawURLEncoding

func encodeB64(b []byte) string { return b64.EncodeToString(b) }

// decodeB64 accepts unpadded base64url; padded input is tolerated when
// lenient is set.
func decodeB64(s string, lenient bool) ([]byte, error) {
	if lenient {
		s = strings.TrimRight(s, "=")
	}
	return b64.DecodeString(s)
}
