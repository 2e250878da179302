package ccond

import (
	"fmt"
	"math"
)

// TypeInfo describes one registered condition type.
type TypeInfo struct {
	ID       TypeID
	Name     string
	Compound bool

	newFulfillment func() Fulfillment
}

var builtinTypes = map[TypeID]func() Fulfillment{
	TypePreimageSha256:  func() Fulfillment { return &PreimageSha256{} },
	TypePrefixSha256:    func() Fulfillment { return &PrefixSha256{} },
	TypeThresholdSha256: func() Fulfillment { return &ThresholdSha256{} },
	TypeRsaSha256:       func() Fulfillment { return &RsaSha256{} },
	TypeEd25519Sha256:   func() Fulfillment { return &Ed25519Sha256{} },
}

// Registry is an immutable table of the condition types a Codec accepts.
//
// It is built once and is safe for concurrent use.
type Registry struct {
	types []TypeInfo // ascending TypeID
	byID  map[TypeID]int
}

// DefaultRegistry accepts all five SHA-256 condition types.
var DefaultRegistry = MustNewRegistry(
	TypePreimageSha256,
	TypePrefixSha256,
	TypeThresholdSha256,
	TypeRsaSha256,
	TypeEd25519Sha256,
)

// NewRegistry returns a registry restricted to ids. Each id must be a known
// type and appear at most once.
func NewRegistry(ids ...TypeID) (*Registry, error) {
	r := &Registry{byID: make(map[TypeID]int, len(ids))}
	for _, id := range ids {
		ctor, ok := builtinTypes[id]
		if !ok {
			return nil, fmt.Errorf("ccond: unknown type id %d", id)
		}
		if _, exists := r.byID[id]; exists {
			return nil, fmt.Errorf("ccond: type %q already registered", id.Name())
		}
		r.byID[id] = -1
		r.types = append(r.types, TypeInfo{
			ID:             id,
			Name:           id.Name(),
			Compound:       id.Compound(),
			newFulfillment: ctor,
		})
	}
	// Insertion sort keeps the table in TypeID order for stable bitmask scans.
	for i := 1; i < len(r.types); i++ {
		for j := i; j > 0 && r.types[j].ID < r.types[j-1].ID; j-- {
			r.types[j], r.types[j-1] = r.types[j-1], r.types[j]
		}
	}
	for i, t := range r.types {
		r.byID[t.ID] = i
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(ids ...TypeID) *Registry {
	r, err := NewRegistry(ids...)
	if err != nil {
		panic(err)
	}
	return r
}

// Types returns the registered types in TypeID order.
func (r *Registry) Types() []TypeInfo {
	out := make([]TypeInfo, len(r.types))
	copy(out, r.types)
	return out
}

// Lookup returns the type registered under id.
func (r *Registry) Lookup(id uint64) (TypeInfo, error) {
	if id > maxTypeID {
		return TypeInfo{}, newError(KindUnsupportedType, "CC-TYPE-001", fmt.Sprintf("type id %d out of range", id))
	}
	i, ok := r.byID[TypeID(id)]
	if !ok {
		return TypeInfo{}, newError(KindUnsupportedType, "CC-TYPE-002", fmt.Sprintf("unsupported condition type %d", id))
	}
	return r.types[i], nil
}

// LookupName returns the type registered under a name such as "rsa-sha-256".
func (r *Registry) LookupName(name string) (TypeInfo, error) {
	if id, ok := typeIDByName(name); ok {
		if i, ok := r.byID[id]; ok {
			return r.types[i], nil
		}
	}
	return TypeInfo{}, newError(KindUnsupportedType, "CC-TYPE-003", fmt.Sprintf("unsupported condition type %q", name))
}

// LookupBitmask resolves a legacy feature bitmask. Simple types match only
// their own bit exactly; compound types match when their bit is set. The
// first match in TypeID order wins.
func (r *Registry) LookupBitmask(mask uint64) (TypeInfo, error) {
	if mask > math.MaxUint32 {
		return TypeInfo{}, newError(KindUnsupportedType, "CC-TYPE-001", fmt.Sprintf("bitmask %#x out of range", mask))
	}
	for _, t := range r.types {
		bit := uint64(t.ID.Bit())
		if t.Compound && mask&bit != 0 {
			return t, nil
		}
		if !t.Compound && mask == bit {
			return t, nil
		}
	}
	return TypeInfo{}, newError(KindUnsupportedType, "CC-TYPE-004", fmt.Sprintf("no registered type matches bitmask %#x", mask))
}

func (r *Registry) has(id TypeID) bool {
	_, ok := r.byID[id]
	return ok
}

// newFulfillment returns an empty fulfillment of a registered type.
func (r *Registry) newFulfillment(id uint64) (Fulfillment, error) {
	t, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return t.newFulfillment(), nil
}
