package ccond

import (
	"bytes"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/ccond/cidutil"
)

// Condition is the public commitment a fulfillment satisfies: a type, a
// SHA-256 fingerprint, a cost bound and, for compound types, the set of
// types used by its children.
//
// Condition is an immutable value. The zero Condition is not valid.
type Condition struct {
	typ         TypeID
	subtypes    TypeSet
	fingerprint []byte
	cost        uint64
}

// NewCondition builds a condition from its parts and validates it against
// DefaultRegistry.
func NewCondition(t TypeID, fingerprint []byte, cost uint64, subtypes TypeSet) (Condition, error) {
	c := Condition{
		typ:         t,
		subtypes:    subtypes,
		fingerprint: bytes.Clone(fingerprint),
		cost:        cost,
	}
	if err := c.validate(DefaultRegistry); err != nil {
		return Condition{}, err
	}
	return c, nil
}

func (c Condition) Type() TypeID { return c.typ }

func (c Condition) Subtypes() TypeSet { return c.subtypes }

func (c Condition) Cost() uint64 { return c.cost }

// Fingerprint returns a copy of the fingerprint.
func (c Condition) Fingerprint() []byte { return bytes.Clone(c.fingerprint) }

// IsZero reports whether c is the zero Condition.
func (c Condition) IsZero() bool { return c.fingerprint == nil }

// Equal reports whether c and o have the same type, subtypes, fingerprint
// and cost.
func (c Condition) Equal(o Condition) bool {
	return c.typ == o.typ &&
		c.subtypes == o.subtypes &&
		c.cost == o.cost &&
		bytes.Equal(c.fingerprint, o.fingerprint)
}

// Validate checks c against DefaultRegistry.
func (c Condition) Validate() error { return c.validate(DefaultRegistry) }

func (c Condition) validate(reg *Registry) error {
	if c.IsZero() {
		return newError(KindMissingData, "CC-CND-000", "condition is empty")
	}
	if !reg.has(c.typ) {
		return newError(KindUnsupportedType, "CC-CND-001", fmt.Sprintf("unsupported condition type %d", c.typ))
	}
	if len(c.fingerprint) != HashSize {
		return newError(KindValidation, "CC-CND-002", fmt.Sprintf("fingerprint must be %d bytes, got %d", HashSize, len(c.fingerprint)))
	}
	if c.cost > MaxCost {
		return newError(KindValidation, "CC-CND-003", fmt.Sprintf("cost %d exceeds maximum %d", c.cost, MaxCost))
	}
	if !c.typ.Compound() && !c.subtypes.Empty() {
		return newError(KindValidation, "CC-CND-004", "simple condition must not have subtypes")
	}
	for _, t := range c.subtypes.Types() {
		if !reg.has(t) {
			return newError(KindUnsupportedType, "CC-CND-005", fmt.Sprintf("unsupported subtype %d", t))
		}
	}
	return nil
}

// Multihash returns the fingerprint as a sha2-256 multihash.
func (c Condition) Multihash() (multihash.Multihash, error) {
	if c.IsZero() {
		return nil, newError(KindMissingData, "CC-CND-000", "condition is empty")
	}
	mh, err := cidutil.FingerprintMultihash(c.fingerprint)
	if err != nil {
		return nil, wrapError(KindInternal, "CC-CID-001", "encode fingerprint multihash", err)
	}
	return mh, nil
}

// CID returns a CIDv1 (raw codec) addressing the fingerprint contents.
func (c Condition) CID() (cid.Cid, error) {
	if c.IsZero() {
		return cid.Undef, newError(KindMissingData, "CC-CND-000", "condition is empty")
	}
	id, err := cidutil.ConditionCID(c.fingerprint)
	if err != nil {
		return cid.Undef, wrapError(KindInternal, "CC-CID-002", "build condition CID", err)
	}
	return id, nil
}

// String returns the condition URI.
func (c Condition) String() string {
	if c.IsZero() {
		return "<empty condition>"
	}
	return c.URI()
}
