package bitvector

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitvector is a set of document indices, represented as a bitmap with
// Lsb0 ordering: bit i set means DocIndex i is present. Absent positions
// are false; there is no notion of an explicit "length" beyond the
// highest set bit.
type Bitvector struct {
	bm *roaring.Bitmap
}

// New returns an empty Bitvector.
func New() *Bitvector {
	return &Bitvector{bm: roaring.New()}
}

// FromBytes decodes a Bitvector previously produced by Bytes. An empty or
// nil input decodes to an empty Bitvector so that "empty" and "absent"
// read back the same way.
func FromBytes(data []byte) (*Bitvector, error) {
	bv := New()
	if len(data) == 0 {
		return bv, nil
	}
	if _, err := bv.bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return bv, nil
}

// Bytes serializes the Bitvector to roaring's stable binary format.
func (b *Bitvector) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.bm.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns an independent copy.
func (b *Bitvector) Clone() *Bitvector {
	return &Bitvector{bm: b.bm.Clone()}
}

// Set sets bit i, extending the vector if necessary.
func (b *Bitvector) Set(i uint32) {
	b.bm.Add(i)
}

// Clear unsets bit i. No-op if i was already unset or out of range.
func (b *Bitvector) Clear(i uint32) {
	b.bm.Remove(i)
}

// Test reports whether bit i is set.
func (b *Bitvector) Test(i uint32) bool {
	return b.bm.Contains(i)
}

// PopCount returns the number of set bits.
func (b *Bitvector) PopCount() uint64 {
	return b.bm.GetCardinality()
}

// IsEmpty reports whether no bits are set.
func (b *Bitvector) IsEmpty() bool {
	return b.bm.IsEmpty()
}

// Span returns one past the highest set bit (0 for an empty vector). It
// stands in for the source's notion of bitvector "length", used only to
// pick which operand of And/Or accumulates in place.
func (b *Bitvector) Span() uint32 {
	if b.bm.IsEmpty() {
		return 0
	}
	return b.bm.Maximum() + 1
}

// AndAssign intersects other into b in place.
func (b *Bitvector) AndAssign(other *Bitvector) {
	b.bm.And(other.bm)
}

// OrAssign unions other into b in place.
func (b *Bitvector) OrAssign(other *Bitvector) {
	b.bm.Or(other.bm)
}

// And returns the bigger-accumulator intersection of a and b, following
// the evaluator's "choose the larger-length operand as accumulator"
// strategy to avoid reallocation.
func And(a, b *Bitvector) *Bitvector {
	biggest, smallest := orderBySpan(a, b)
	result := biggest.Clone()
	result.AndAssign(smallest)
	return result
}

// Or returns the bigger-accumulator union of a and b.
func Or(a, b *Bitvector) *Bitvector {
	biggest, smallest := orderBySpan(a, b)
	result := biggest.Clone()
	result.OrAssign(smallest)
	return result
}

// Not returns (NOT b) AND universe: the complement of b restricted to the
// set of currently live indices. This guarantees recycled and
// never-issued indices are excluded from negation results.
func Not(b, universe *Bitvector) *Bitvector {
	result := universe.Clone()
	result.bm.AndNot(b.bm)
	return result
}

func orderBySpan(a, b *Bitvector) (biggest, smallest *Bitvector) {
	if a.Span() >= b.Span() {
		return a, b
	}
	return b, a
}

// ToSlice returns the set bit positions in ascending order.
func (b *Bitvector) ToSlice() []uint32 {
	return b.bm.ToArray()
}
