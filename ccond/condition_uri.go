package ccond

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"xdao.co/ccond/codec"
)

const (
	niPrefix      = "ni:///sha-256;"
	niShortPrefix = "ni:sha-256;"
)

var legacyConditionRE = regexp.MustCompile(`^cc:([0-9]+):([1-9a-f][0-9a-f]*):([A-Za-z0-9_-]+)$`)

// URI returns the RFC 6920 named-information form of c:
//
//	ni:///sha-256;<fingerprint>?fpt=<type>&cost=<n>[&subtypes=<types>]
func (c Condition) URI() string {
	var sb strings.Builder
	sb.WriteString(niPrefix)
	sb.WriteString(encodeB64(c.fingerprint))
	sb.WriteString("?fpt=")
	sb.WriteString(c.typ.Name())
	sb.WriteString("&cost=")
	sb.WriteString(strconv.FormatUint(c.cost, 10))
	if c.typ.Compound() && !c.subtypes.Empty() {
		sb.WriteString("&subtypes=")
		sb.WriteString(c.subtypes.String())
	}
	return sb.String()
}

// legacyBitmask is the condition's own bit combined with its subtype bits.
func (c Condition) legacyBitmask() uint32 {
	return c.typ.Bit() | uint32(c.subtypes)
}

// LegacyURI returns the cc:1: form of c.
func (c Condition) LegacyURI() (string, error) {
	if c.IsZero() {
		return "", newError(KindMissingData, "CC-CND-000", "condition is empty")
	}
	buf := codec.NewBuffer()
	writeLegacyCondition(buf, c)
	payload, err := buf.Bytes()
	if err != nil {
		return "", wrapCodec("CC-LEG-001", "encode legacy condition", err)
	}
	return fmt.Sprintf("cc:1:%x:%s", c.legacyBitmask(), encodeB64(payload)), nil
}

// writeLegacyCondition writes the varint binary form of c:
// varuint type, varuint subtype mask, varbytes fingerprint, varuint cost.
func writeLegacyCondition(w codec.Writer, c Condition) {
	w.WriteVarUint(uint64(c.typ))
	w.WriteVarUint(uint64(c.subtypes))
	w.WriteVarBytes(c.fingerprint)
	w.WriteVarUint(c.cost)
}

func readLegacyCondition(r *codec.Reader, d *decoder) (Condition, error) {
	id, err := r.ReadVarUint()
	if err != nil {
		return Condition{}, wrapCodec("CC-LEG-010", "read condition type", err)
	}
	info, err := d.reg.Lookup(id)
	if err != nil {
		return Condition{}, err
	}
	mask, err := r.ReadVarUint()
	if err != nil {
		return Condition{}, wrapCodec("CC-LEG-011", "read condition subtypes", err)
	}
	if mask > math.MaxUint32 {
		return Condition{}, newError(KindUnsupportedType, "CC-TYPE-001", fmt.Sprintf("subtype mask %#x out of range", mask))
	}
	fp, err := r.ReadVarBytes()
	if err != nil {
		return Condition{}, wrapCodec("CC-LEG-012", "read condition fingerprint", err)
	}
	cost, err := r.ReadVarUint()
	if err != nil {
		return Condition{}, wrapCodec("CC-LEG-013", "read condition cost", err)
	}
	c := Condition{typ: info.ID, subtypes: TypeSet(mask), fingerprint: fp, cost: cost}
	if err := c.validate(d.reg); err != nil {
		return Condition{}, err
	}
	return c, nil
}

func parseConditionURI(s string, d *decoder) (Condition, error) {
	var rest string
	switch {
	case strings.HasPrefix(s, niPrefix):
		rest = s[len(niPrefix):]
	case strings.HasPrefix(s, niShortPrefix):
		if d.strict() {
			return Condition{}, newError(KindPrefix, "CC-URI-002", "strict mode: condition URI must use ni:///sha-256;")
		}
		rest = s[len(niShortPrefix):]
	case strings.HasPrefix(s, "cc:"):
		return parseLegacyConditionURI(s, d)
	default:
		return Condition{}, newError(KindPrefix, "CC-URI-001", "condition URI must start with ni:///sha-256;")
	}

	fpPart, query, ok := strings.Cut(rest, "?")
	if !ok {
		return Condition{}, newError(KindParse, "CC-URI-003", "condition URI has no query")
	}
	fp, err := decodeB64(fpPart, !d.strict())
	if err != nil {
		return Condition{}, wrapError(KindParse, "CC-URI-004", "invalid fingerprint encoding", err)
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return Condition{}, wrapError(KindParse, "CC-URI-005", "invalid condition URI query", err)
	}

	fpt, err := singleParam(params, "fpt", true)
	if err != nil {
		return Condition{}, err
	}
	info, err := d.reg.LookupName(fpt)
	if err != nil {
		return Condition{}, err
	}
	costStr, err := singleParam(params, "cost", true)
	if err != nil {
		return Condition{}, err
	}
	cost, err := strconv.ParseUint(costStr, 10, 64)
	if err != nil {
		return Condition{}, wrapError(KindParse, "CC-URI-007", "invalid cost", err)
	}
	c := Condition{typ: info.ID, fingerprint: fp, cost: cost}

	subs, err := singleParam(params, "subtypes", false)
	if err != nil {
		return Condition{}, err
	}
	if subs != "" {
		for _, name := range strings.Split(subs, ",") {
			t, err := d.reg.LookupName(name)
			if err != nil {
				return Condition{}, err
			}
			c.subtypes = c.subtypes.Add(t.ID)
		}
	}

	if d.strict() {
		for k := range params {
			if k != "fpt" && k != "cost" && k != "subtypes" {
				return Condition{}, newError(KindParse, "CC-URI-008", fmt.Sprintf("strict mode: unknown condition URI parameter %q", k))
			}
		}
	}
	if err := c.validate(d.reg); err != nil {
		return Condition{}, err
	}
	if d.strict() && c.URI() != s {
		return Condition{}, newError(KindParse, "CC-URI-009", "strict mode: condition URI is not canonical")
	}
	return c, nil
}

func singleParam(params url.Values, key string, required bool) (string, error) {
	vs := params[key]
	switch {
	case len(vs) == 0 && required:
		return "", newError(KindParse, "CC-URI-006", fmt.Sprintf("condition URI missing %q", key))
	case len(vs) > 1:
		return "", newError(KindParse, "CC-URI-006", fmt.Sprintf("condition URI repeats %q", key))
	case len(vs) == 0:
		return "", nil
	}
	return vs[0], nil
}

func parseLegacyConditionURI(s string, d *decoder) (Condition, error) {
	if d.strict() {
		return Condition{}, newError(KindPrefix, "CC-URI-011", "strict mode: legacy cc: condition URIs are not accepted")
	}
	m := legacyConditionRE.FindStringSubmatch(s)
	if m == nil {
		if strings.HasPrefix(s, "cc:1:") {
			return Condition{}, newError(KindParse, "CC-URI-012", "malformed legacy condition URI")
		}
		return Condition{}, newError(KindPrefix, "CC-URI-010", "unsupported condition URI version")
	}
	if m[1] != "1" {
		return Condition{}, newError(KindPrefix, "CC-URI-010", fmt.Sprintf("unsupported condition URI version %s", m[1]))
	}
	mask, err := strconv.ParseUint(m[2], 16, 32)
	if err != nil {
		return Condition{}, wrapError(KindUnsupportedType, "CC-TYPE-001", "condition bitmask out of range", err)
	}
	payload, err := decodeB64(m[3], false)
	if err != nil {
		return Condition{}, wrapError(KindParse, "CC-URI-013", "invalid condition payload encoding", err)
	}

	r := codec.NewReader(payload)
	c, err := readLegacyCondition(r, d)
	if err != nil {
		return Condition{}, err
	}
	if !r.Empty() {
		return Condition{}, newError(KindParse, "CC-URI-014", "trailing data in condition payload")
	}
	if uint64(c.legacyBitmask()) != mask {
		return Condition{}, newError(KindParse, "CC-URI-015", fmt.Sprintf("bitmask %x does not match condition type and subtypes", mask))
	}
	return c, nil
}
