package ccond

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"golang.org/x/crypto/cryptobyte"

	"xdao.co/ccond/codec"
)

// ThresholdSha256 is fulfilled when at least Threshold of its children are
// fulfilled. Children may be held as fulfillments or as bare conditions.
//
// The derived condition does not depend on the order children were added.
type ThresholdSha256 struct {
	threshold uint32
	children  []child
}

func NewThresholdSha256(threshold uint32) *ThresholdSha256 {
	return &ThresholdSha256{threshold: threshold}
}

func (t *ThresholdSha256) Type() TypeID { return TypeThresholdSha256 }

func (t *ThresholdSha256) Threshold() uint32 { return t.threshold }

func (t *ThresholdSha256) SetThreshold(n uint32) { t.threshold = n }

// AddSubfulfillment adds a child whose proof is in hand.
func (t *ThresholdSha256) AddSubfulfillment(f Fulfillment) {
	t.children = append(t.children, child{fulfillment: f})
}

// AddSubcondition adds a child known only by its condition.
func (t *ThresholdSha256) AddSubcondition(c Condition) {
	t.children = append(t.children, child{condition: c})
}

// AddSubconditionURI parses uri and adds it as a subcondition.
func (t *ThresholdSha256) AddSubconditionURI(uri string) error {
	c, err := ParseConditionURI(uri)
	if err != nil {
		return err
	}
	t.AddSubcondition(c)
	return nil
}

// Len returns the number of children.
func (t *ThresholdSha256) Len() int { return len(t.children) }

// Subfulfillments returns the children held as fulfillments, in insertion
// order.
func (t *ThresholdSha256) Subfulfillments() []Fulfillment {
	var out []Fulfillment
	for _, c := range t.children {
		if c.hasFulfillment() {
			out = append(out, c.fulfillment)
		}
	}
	return out
}

// Subconditions returns the condition of every child, in insertion order.
func (t *ThresholdSha256) Subconditions() ([]Condition, error) {
	out := make([]Condition, 0, len(t.children))
	for _, c := range t.children {
		cond, err := c.conditionOrDerive()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func (t *ThresholdSha256) checkThreshold() error {
	if t.threshold == 0 {
		return newError(KindMissingData, "CC-THR-001", "threshold is not set")
	}
	if int(t.threshold) > len(t.children) {
		return newError(KindValidation, "CC-THR-002",
			fmt.Sprintf("threshold %d exceeds %d subconditions", t.threshold, len(t.children)))
	}
	return nil
}

func (t *ThresholdSha256) Subtypes() (TypeSet, error) {
	var s TypeSet
	for _, c := range t.children {
		cs, err := c.typeSet()
		if err != nil {
			return 0, err
		}
		s = s.Union(cs)
	}
	return s.Remove(TypeThresholdSha256), nil
}

// Cost is the worst case over which children get revealed: the threshold
// most expensive children as fulfillments, every other child as a condition.
func (t *ThresholdSha256) Cost() (uint64, error) {
	if err := t.checkThreshold(); err != nil {
		return 0, err
	}
	costs := make([]uint64, len(t.children))
	for i, c := range t.children {
		sc, err := c.cost()
		if err != nil {
			return 0, err
		}
		costs[i] = sc
	}
	// Revealing a child adds its own cost over the condition-only case, so
	// ranking by marginal cost is ranking by subcost.
	slices.SortFunc(costs, func(a, b uint64) int { return cmp.Compare(b, a) })

	var total uint64
	for i, sc := range costs {
		if i < int(t.threshold) {
			total += sc + childCostOverhead
		} else {
			total += childCostOverhead
		}
	}
	return total, nil
}

func (t *ThresholdSha256) Condition() (Condition, error) { return conditionOf(t) }

// Validate requires at least Threshold children held as fulfillments, and
// every fulfillment held must prove message.
func (t *ThresholdSha256) Validate(message []byte) error {
	if err := t.checkThreshold(); err != nil {
		return wrapError(KindValidation, "CC-THR-100", "invalid threshold", err)
	}
	var n uint32
	for i, c := range t.children {
		if !c.hasFulfillment() {
			continue
		}
		if err := c.fulfillment.Validate(message); err != nil {
			return wrapError(KindValidation, "CC-THR-102", fmt.Sprintf("subfulfillment %d is invalid", i), err)
		}
		n++
	}
	if n < t.threshold {
		return newError(KindValidation, "CC-THR-101",
			fmt.Sprintf("threshold not met: %d of %d subfulfillments present", n, t.threshold))
	}
	return nil
}

func (t *ThresholdSha256) writeFingerprint(w codec.Writer) error {
	if err := t.checkThreshold(); err != nil {
		return err
	}
	conds := make([][]byte, len(t.children))
	for i, c := range t.children {
		cond, err := c.conditionOrDerive()
		if err != nil {
			return err
		}
		if conds[i], err = cond.MarshalBinary(); err != nil {
			return err
		}
	}
	set := sortedSetOf(conds)
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(sequenceTag, func(b *cryptobyte.Builder) {
		b.AddASN1Int64WithTag(int64(t.threshold), implicitTag(0))
		b.AddASN1(constructedTag(1), func(b *cryptobyte.Builder) { b.AddBytes(set) })
	})
	contents, err := b.Bytes()
	if err != nil {
		return wrapError(KindInternal, "CC-THR-003", "encode fingerprint contents", err)
	}
	w.WriteBytes(contents)
	return nil
}

// reveal picks which children a serialized fulfillment opens: the threshold
// smallest fulfillments in hand, ties kept in insertion order. Every other
// child is written as its condition. This is greedy per level and does not
// search across nested thresholds. size is called once per fulfillment in
// hand.
func (t *ThresholdSha256) reveal(size func(i int) (int, error)) ([]bool, error) {
	if err := t.checkThreshold(); err != nil {
		return nil, err
	}
	type candidate struct {
		index int
		size  int
	}
	var cands []candidate
	for i, c := range t.children {
		if !c.hasFulfillment() {
			continue
		}
		n, err := size(i)
		if err != nil {
			return nil, err
		}
		cands = append(cands, candidate{index: i, size: n})
	}
	if len(cands) < int(t.threshold) {
		return nil, newError(KindMissingData, "CC-THR-004",
			fmt.Sprintf("need %d subfulfillments, have %d", t.threshold, len(cands)))
	}
	slices.SortStableFunc(cands, func(a, b candidate) int { return cmp.Compare(a.size, b.size) })

	open := make([]bool, len(t.children))
	for _, c := range cands[:t.threshold] {
		open[c.index] = true
	}
	return open, nil
}

// legacySize ranks children by the length of their nested legacy encoding.
func (t *ThresholdSha256) legacySize(i int) (int, error) {
	return nestedSize(t.children[i].fulfillment)
}

// writePayload writes varuint threshold, varuint count, then for each child
// varbytes(fulfillment) and varbytes(condition) with exactly one non-empty.
func (t *ThresholdSha256) writePayload(w codec.Writer) error {
	// Each child is encoded once; ranking and output share the bytes.
	nested := make([][]byte, len(t.children))
	open, err := t.reveal(func(i int) (int, error) {
		b, err := nestedBytes(t.children[i].fulfillment)
		if err != nil {
			return 0, err
		}
		nested[i] = b
		return len(b), nil
	})
	if err != nil {
		return err
	}
	w.WriteVarUint(uint64(t.threshold))
	w.WriteVarUint(uint64(len(t.children)))
	for i, c := range t.children {
		if open[i] {
			w.WriteVarBytes(nested[i])
			w.WriteVarBytes(nil)
			continue
		}
		cond, err := c.conditionOrDerive()
		if err != nil {
			return err
		}
		entry := codec.NewBuffer()
		writeLegacyCondition(entry, cond)
		b, err := entry.Bytes()
		if err != nil {
			return wrapCodec("CC-THR-005", "encode threshold entry", err)
		}
		w.WriteVarBytes(nil)
		w.WriteVarBytes(b)
	}
	return nil
}

func (t *ThresholdSha256) readPayload(r *codec.Reader, d *decoder) error {
	threshold, err := r.ReadVarUint()
	if err != nil {
		return wrapCodec("CC-THR-010", "read threshold", err)
	}
	count, err := r.ReadVarUint()
	if err != nil {
		return wrapCodec("CC-THR-011", "read subcondition count", err)
	}
	// Each entry takes at least two bytes.
	if count > uint64(r.Remaining()/2) {
		return newError(KindUnderflow, "CC-THR-012", fmt.Sprintf("subcondition count %d exceeds payload", count))
	}
	if threshold == 0 || threshold > math.MaxUint32 || threshold > count {
		return newError(KindParse, "CC-THR-013", fmt.Sprintf("invalid threshold %d for %d subconditions", threshold, count))
	}

	children := make([]child, 0, count)
	for i := uint64(0); i < count; i++ {
		fb, err := r.ReadVarBytes()
		if err != nil {
			return wrapCodec("CC-THR-014", "read subfulfillment", err)
		}
		cb, err := r.ReadVarBytes()
		if err != nil {
			return wrapCodec("CC-THR-015", "read subcondition", err)
		}
		switch {
		case len(fb) > 0 && len(cb) == 0:
			er := codec.NewReader(fb)
			f, err := readNested(er, d)
			if err != nil {
				return err
			}
			if !er.Empty() {
				return newError(KindParse, "CC-THR-016", "trailing data in subfulfillment")
			}
			children = append(children, child{fulfillment: f})
		case len(cb) > 0 && len(fb) == 0:
			er := codec.NewReader(cb)
			c, err := readLegacyCondition(er, d)
			if err != nil {
				return err
			}
			if !er.Empty() {
				return newError(KindParse, "CC-THR-016", "trailing data in subcondition")
			}
			children = append(children, child{condition: c})
		default:
			return newError(KindParse, "CC-THR-017", "threshold entry must hold exactly one of fulfillment or condition")
		}
	}
	t.threshold = uint32(threshold)
	t.children = children
	return nil
}

func (t *ThresholdSha256) derBody() ([]byte, error) {
	open, err := t.reveal(t.legacySize)
	if err != nil {
		return nil, err
	}
	var fuls, conds [][]byte
	for i, c := range t.children {
		if open[i] {
			der, err := marshalFulfillment(c.fulfillment)
			if err != nil {
				return nil, err
			}
			fuls = append(fuls, der)
			continue
		}
		cond, err := c.conditionOrDerive()
		if err != nil {
			return nil, err
		}
		der, err := cond.MarshalBinary()
		if err != nil {
			return nil, err
		}
		conds = append(conds, der)
	}
	fulSet, condSet := sortedSetOf(fuls), sortedSetOf(conds)
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(constructedTag(0), func(b *cryptobyte.Builder) { b.AddBytes(fulSet) })
	b.AddASN1(constructedTag(1), func(b *cryptobyte.Builder) { b.AddBytes(condSet) })
	return b.Bytes()
}

func (t *ThresholdSha256) readDER(body *cryptobyte.String, d *decoder) error {
	var fs, cs cryptobyte.String
	if !body.ReadASN1(&fs, constructedTag(0)) {
		return derError(*body, "CC-THR-020", "malformed subfulfillments")
	}
	if !body.ReadASN1(&cs, constructedTag(1)) {
		return derError(*body, "CC-THR-021", "malformed subconditions")
	}
	var children []child
	for !fs.Empty() {
		f, err := readFulfillmentDER(&fs, d)
		if err != nil {
			return err
		}
		children = append(children, child{fulfillment: f})
	}
	if len(children) == 0 {
		return newError(KindParse, "CC-THR-022", "threshold fulfillment has no subfulfillments")
	}
	threshold := len(children)
	for !cs.Empty() {
		c, err := readConditionDER(&cs, d)
		if err != nil {
			return err
		}
		children = append(children, child{condition: c})
	}
	t.threshold = uint32(threshold)
	t.children = children
	return nil
}
