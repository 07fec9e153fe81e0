package version

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Vector is an immutable ordered sequence of segments with an optional pad.
// When compared against a longer vector the pad stands in for every missing
// position; without a pad missing positions count as MinValue.
type Vector struct {
	elements []Segment
	pad      Segment
}

// NewVector returns a vector holding a copy of elements. A zero pad means no pad.
// Zero segments inside elements are not allowed and are dropped.
func NewVector(elements []Segment, pad Segment) *Vector {
	v := &Vector{pad: pad, elements: make([]Segment, 0, len(elements))}
	for _, e := range elements {
		if !e.IsZero() {
			v.elements = append(v.elements, e)
		}
	}
	return v
}

// Len returns the number of elements
func (v *Vector) Len() int {
	if v == nil {
		return 0
	}
	return len(v.elements)
}

// At returns the element at index i, or the zero Segment if i is out of range
func (v *Vector) At(i int) Segment {
	if i < 0 || i >= v.Len() {
		return Segment{}
	}
	return v.elements[i]
}

// Elements returns a copy of the elements
func (v *Vector) Elements() []Segment {
	if v == nil {
		return nil
	}
	return append([]Segment(nil), v.elements...)
}

// Pad returns the pad segment and whether one is set
func (v *Vector) Pad() (Segment, bool) {
	if v == nil {
		return Segment{}, false
	}
	return v.pad, !v.pad.IsZero()
}

// effective returns the segment used for position i during comparison
func (v *Vector) effective(i int) Segment {
	if i < v.Len() {
		return v.elements[i]
	}
	if v != nil && !v.pad.IsZero() {
		return v.pad
	}
	return MinValue
}

// Compare returns -1, 0 or 1. Positions up to the longer length are compared
// pairwise with missing positions replaced by the pad or MinValue.
func (v *Vector) Compare(o *Vector) int {
	n := max(v.Len(), o.Len())
	for i := 0; i < n; i++ {
		if c := v.effective(i).Compare(o.effective(i)); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether both vectors compare equal
func (v *Vector) Equal(o *Vector) bool {
	return v.Compare(o) == 0
}

// Hash returns a hash consistent with Equal. Equality only looks at positions
// present in at least one vector, so only the first effective segment is hashed.
func (v *Vector) Hash() uint64 {
	d := xxhash.New()
	hashSegment(d, v.effective(0))
	return d.Sum64()
}

func hashSegment(d *xxhash.Digest, s Segment) {
	var buf [9]byte
	buf[0] = byte(s.kind)
	switch s.kind {
	case KindInteger:
		binary.LittleEndian.PutUint64(buf[1:], uint64(s.num))
		_, _ = d.Write(buf[:])
	case KindText:
		_, _ = d.Write(buf[:1])
		_, _ = d.WriteString(s.text)
	case KindVector:
		binary.LittleEndian.PutUint64(buf[1:], s.vec.Hash())
		_, _ = d.Write(buf[:])
	default:
		_, _ = d.Write(buf[:1])
	}
}

// String returns the canonical raw text of the vector
func (v *Vector) String() string {
	var b strings.Builder
	v.appendRaw(&b, false)
	return b.String()
}

// AppendTo writes the canonical raw text to b. With rangeSafe, characters that
// are reserved in version range literals are escaped inside strings.
func (v *Vector) AppendTo(b *strings.Builder, rangeSafe bool) {
	v.appendRaw(b, rangeSafe)
}

func (v *Vector) appendRaw(b *strings.Builder, rangeSafe bool) {
	if v == nil {
		return
	}
	for i, e := range v.elements {
		if i > 0 {
			b.WriteByte('.')
		}
		e.appendRaw(b, rangeSafe)
	}
	if !v.pad.IsZero() {
		b.WriteByte('p')
		v.pad.appendRaw(b, rangeSafe)
	}
}

// removeRedundantTrail drops trailing elements equal to the pad, or to
// MinValue without a pad. The first element is always kept.
func removeRedundantTrail(elements []Segment, pad Segment) []Segment {
	trail := pad
	if trail.IsZero() {
		trail = MinValue
	}
	n := len(elements)
	for n > 1 && elements[n-1].Equal(trail) {
		n--
	}
	return elements[:n]
}
