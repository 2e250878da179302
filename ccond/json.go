package ccond

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// fulfillmentJSON is the JSON convenience form. Binary fields are
// unpadded base64url.
type fulfillmentJSON struct {
	Type string `json:"type"`

	Preimage *string `json:"preimage,omitempty"`

	Prefix           *string          `json:"prefix,omitempty"`
	MaxMessageLength *uint32          `json:"maxMessageLength,omitempty"`
	Subfulfillment   *fulfillmentJSON `json:"subfulfillment,omitempty"`
	Subcondition     *string          `json:"subcondition,omitempty"`

	Threshold       *uint32            `json:"threshold,omitempty"`
	Subfulfillments []*fulfillmentJSON `json:"subfulfillments,omitempty"`
	Subconditions   []string           `json:"subconditions,omitempty"`

	Modulus   *string `json:"modulus,omitempty"`
	PublicKey *string `json:"publicKey,omitempty"`
	Signature *string `json:"signature,omitempty"`
}

// ToJSON renders f in the JSON convenience form.
func ToJSON(f Fulfillment) ([]byte, error) {
	j, err := toJSON(f)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(j)
	if err != nil {
		return nil, wrapError(KindInternal, "CC-JSON-001", "marshal fulfillment json", err)
	}
	return out, nil
}

func b64p(b []byte) *string {
	s := encodeB64(b)
	return &s
}

func toJSON(f Fulfillment) (*fulfillmentJSON, error) {
	j := &fulfillmentJSON{Type: f.Type().Name()}
	switch v := f.(type) {
	case *PreimageSha256:
		j.Preimage = b64p(v.preimage)
	case *PrefixSha256:
		j.Prefix = b64p(v.prefix)
		n := v.maxMessageLength
		j.MaxMessageLength = &n
		if v.sub.hasFulfillment() {
			sub, err := toJSON(v.sub.fulfillment)
			if err != nil {
				return nil, err
			}
			j.Subfulfillment = sub
		} else {
			c, err := v.sub.conditionOrDerive()
			if err != nil {
				return nil, err
			}
			uri := c.URI()
			j.Subcondition = &uri
		}
	case *ThresholdSha256:
		n := v.threshold
		j.Threshold = &n
		for _, c := range v.children {
			if c.hasFulfillment() {
				sub, err := toJSON(c.fulfillment)
				if err != nil {
					return nil, err
				}
				j.Subfulfillments = append(j.Subfulfillments, sub)
				continue
			}
			cond, err := c.conditionOrDerive()
			if err != nil {
				return nil, err
			}
			j.Subconditions = append(j.Subconditions, cond.URI())
		}
	case *RsaSha256:
		j.Modulus = b64p(v.modulus)
		j.Signature = b64p(v.signature)
	case *Ed25519Sha256:
		j.PublicKey = b64p(v.publicKey)
		j.Signature = b64p(v.signature)
	default:
		return nil, newError(KindUnsupportedType, "CC-JSON-002", fmt.Sprintf("unsupported fulfillment %T", f))
	}
	return j, nil
}

func parseJSON(data []byte, d *decoder) (Fulfillment, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if d.strict() {
		dec.DisallowUnknownFields()
	}
	var j fulfillmentJSON
	if err := dec.Decode(&j); err != nil {
		return nil, wrapError(KindParse, "CC-JSON-010", "invalid fulfillment json", err)
	}
	if dec.More() {
		return nil, newError(KindParse, "CC-JSON-011", "trailing data after fulfillment json")
	}
	return fromJSON(&j, d)
}

func requireB64(field string, v *string, d *decoder) ([]byte, error) {
	if v == nil {
		return nil, newError(KindMissingData, "CC-JSON-020", fmt.Sprintf("missing %q", field))
	}
	b, err := decodeB64(*v, !d.strict())
	if err != nil {
		return nil, wrapError(KindParse, "CC-JSON-021", fmt.Sprintf("invalid base64url in %q", field), err)
	}
	return b, nil
}

func fromJSON(j *fulfillmentJSON, d *decoder) (Fulfillment, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	info, err := d.reg.LookupName(j.Type)
	if err != nil {
		return nil, err
	}
	switch info.ID {
	case TypePreimageSha256:
		b, err := requireB64("preimage", j.Preimage, d)
		if err != nil {
			return nil, err
		}
		return &PreimageSha256{preimage: b}, nil

	case TypePrefixSha256:
		prefix, err := requireB64("prefix", j.Prefix, d)
		if err != nil {
			return nil, err
		}
		if j.MaxMessageLength == nil {
			return nil, newError(KindMissingData, "CC-JSON-020", `missing "maxMessageLength"`)
		}
		p := &PrefixSha256{prefix: prefix, maxMessageLength: *j.MaxMessageLength}
		switch {
		case j.Subfulfillment != nil && j.Subcondition != nil:
			return nil, newError(KindParse, "CC-JSON-022", "prefix takes a subfulfillment or a subcondition, not both")
		case j.Subfulfillment != nil:
			sub, err := fromJSON(j.Subfulfillment, d)
			if err != nil {
				return nil, err
			}
			p.SetSubfulfillment(sub)
		case j.Subcondition != nil:
			c, err := parseConditionURI(*j.Subcondition, d)
			if err != nil {
				return nil, err
			}
			p.SetSubcondition(c)
		default:
			return nil, newError(KindMissingData, "CC-JSON-020", `missing "subfulfillment"`)
		}
		return p, nil

	case TypeThresholdSha256:
		if j.Threshold == nil {
			return nil, newError(KindMissingData, "CC-JSON-020", `missing "threshold"`)
		}
		t := NewThresholdSha256(*j.Threshold)
		for _, sj := range j.Subfulfillments {
			if sj == nil {
				return nil, newError(KindParse, "CC-JSON-023", "null subfulfillment")
			}
			sub, err := fromJSON(sj, d)
			if err != nil {
				return nil, err
			}
			t.AddSubfulfillment(sub)
		}
		for _, uri := range j.Subconditions {
			c, err := parseConditionURI(uri, d)
			if err != nil {
				return nil, err
			}
			t.AddSubcondition(c)
		}
		if err := t.checkThreshold(); err != nil {
			return nil, err
		}
		return t, nil

	case TypeRsaSha256:
		m, err := requireB64("modulus", j.Modulus, d)
		if err != nil {
			return nil, err
		}
		s, err := requireB64("signature", j.Signature, d)
		if err != nil {
			return nil, err
		}
		return NewRsaSha256(m, s)

	case TypeEd25519Sha256:
		pub, err := requireB64("publicKey", j.PublicKey, d)
		if err != nil {
			return nil, err
		}
		sig, err := requireB64("signature", j.Signature, d)
		if err != nil {
			return nil, err
		}
		return NewEd25519Sha256(pub, sig)
	}
	return nil, newError(KindUnsupportedType, "CC-JSON-002", fmt.Sprintf("unsupported type %q", j.Type))
}
