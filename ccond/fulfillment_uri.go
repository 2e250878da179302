package ccond

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var fulfillmentURIRE = regexp.MustCompile(`^cf:([0-9]+):([1-9a-f][0-9a-f]{0,2}):([A-Za-z0-9_-]+)$`)

// FulfillmentURI returns the cf:1: form of f: the type bit in hex and the
// base64url legacy payload.
func FulfillmentURI(f Fulfillment) (string, error) {
	payload, err := legacyPayload(f)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cf:1:%x:%s", f.Type().Bit(), encodeB64(payload)), nil
}

// MarshalFulfillment returns the DER encoding of f.
func MarshalFulfillment(f Fulfillment) ([]byte, error) {
	return marshalFulfillment(f)
}

func parseFulfillmentURI(s string, d *decoder) (Fulfillment, error) {
	if !strings.HasPrefix(s, "cf:") {
		return nil, newError(KindPrefix, "CC-FURI-001", "fulfillment URI must start with cf:")
	}
	m := fulfillmentURIRE.FindStringSubmatch(s)
	if m == nil {
		if strings.HasPrefix(s, "cf:1:") {
			return nil, newError(KindParse, "CC-FURI-003", "malformed fulfillment URI")
		}
		return nil, newError(KindPrefix, "CC-FURI-002", "unsupported fulfillment URI version")
	}
	if m[1] != "1" {
		return nil, newError(KindPrefix, "CC-FURI-002", fmt.Sprintf("unsupported fulfillment URI version %s", m[1]))
	}
	bit, err := strconv.ParseUint(m[2], 16, 32)
	if err != nil {
		return nil, wrapError(KindUnsupportedType, "CC-TYPE-001", "fulfillment bitmask out of range", err)
	}
	info, err := d.reg.LookupBitmask(bit)
	if err != nil {
		return nil, err
	}
	if uint64(info.ID.Bit()) != bit {
		return nil, newError(KindParse, "CC-FURI-004", fmt.Sprintf("fulfillment bitmask %s must name a single type", m[2]))
	}
	payload, err := decodeB64(m[3], false)
	if err != nil {
		return nil, wrapError(KindParse, "CC-FURI-005", "invalid fulfillment payload encoding", err)
	}
	f, err := readPayloadAs(info, payload, d)
	if err != nil {
		return nil, err
	}
	if d.strict() {
		again, err := FulfillmentURI(f)
		if err != nil {
			return nil, err
		}
		if again != s {
			return nil, newError(KindParse, "CC-FURI-006", "strict mode: fulfillment URI is not canonical")
		}
	}
	return f, nil
}
