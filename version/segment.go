package version

import (
	"strconv"
	"strings"
)

// Kind identifies the type of a Segment. Kinds are declared in ascending
// order so that cross-kind comparison is a comparison of the kinds.
type Kind int

const (
	// KindMin is the MinValue sentinel. It sorts below everything else.
	KindMin Kind = iota + 1
	// KindText is a string segment compared by code point.
	KindText
	// KindMaxText is the MaxStringValue sentinel. It sorts above every text.
	KindMaxText
	// KindVector is a nested vector produced by an array group.
	KindVector
	// KindInteger is a numeric segment.
	KindInteger
	// KindMax is the MaxValue sentinel. It sorts above everything else.
	KindMax
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindMin:
		return "min"
	case KindText:
		return "text"
	case KindMaxText:
		return "max-text"
	case KindVector:
		return "vector"
	case KindInteger:
		return "integer"
	case KindMax:
		return "max"
	default:
		return "none"
	}
}

// Segment is one typed element of a Vector. The zero Segment is "absent";
// it is used for unset pads and defaults and never appears inside a vector.
type Segment struct {
	kind Kind
	num  int64
	text string
	vec  *Vector
}

var (
	// MaxValue compares greater than any other segment
	MaxValue = Segment{kind: KindMax}
	// MinValue compares less than any other segment
	MinValue = Segment{kind: KindMin}
	// MaxStringValue compares greater than any text but less than vectors and integers
	MaxStringValue = Segment{kind: KindMaxText}
)

// Int returns an integer segment
func Int(n int64) Segment {
	return Segment{kind: KindInteger, num: n}
}

// Text returns a text segment
func Text(s string) Segment {
	return Segment{kind: KindText, text: s}
}

// Nested returns a segment wrapping a vector. A nil vector yields an empty one.
func Nested(v *Vector) Segment {
	if v == nil {
		v = &Vector{}
	}
	return Segment{kind: KindVector, vec: v}
}

// Kind returns the kind of the segment, or 0 for the zero Segment
func (s Segment) Kind() Kind {
	return s.kind
}

// IsZero reports whether the segment is absent
func (s Segment) IsZero() bool {
	return s.kind == 0
}

// Integer returns the numeric value if the segment is an integer
func (s Segment) Integer() (int64, bool) {
	return s.num, s.kind == KindInteger
}

// Text returns the string value if the segment is a text
func (s Segment) Text() (string, bool) {
	return s.text, s.kind == KindText
}

// Vector returns the nested vector if the segment is a vector
func (s Segment) Vector() (*Vector, bool) {
	return s.vec, s.kind == KindVector
}

// Compare returns -1, 0 or 1. Segments of different kinds are ordered
// MaxValue > Integer > Vector > MaxStringValue > Text > MinValue.
func (s Segment) Compare(o Segment) int {
	if s.kind != o.kind {
		if s.kind < o.kind {
			return -1
		}
		return 1
	}

	switch s.kind {
	case KindInteger:
		switch {
		case s.num < o.num:
			return -1
		case s.num > o.num:
			return 1
		}
		return 0
	case KindText:
		return strings.Compare(s.text, o.text)
	case KindVector:
		return s.vec.Compare(o.vec)
	}
	return 0
}

// Equal reports whether both segments compare equal
func (s Segment) Equal(o Segment) bool {
	return s.Compare(o) == 0
}

// String returns the raw text form of the segment
func (s Segment) String() string {
	var b strings.Builder
	s.appendRaw(&b, false)
	return b.String()
}

func (s Segment) appendRaw(b *strings.Builder, rangeSafe bool) {
	switch s.kind {
	case KindInteger:
		b.WriteString(strconv.FormatInt(s.num, 10))
	case KindText:
		appendQuoted(b, s.text, rangeSafe)
	case KindVector:
		b.WriteByte('<')
		s.vec.appendRaw(b, rangeSafe)
		b.WriteByte('>')
	case KindMax:
		b.WriteByte('M')
	case KindMin:
		b.WriteString("-M")
	case KindMaxText:
		b.WriteByte('m')
	}
}

// appendQuoted writes s as a quoted raw string. Single quotes are used unless
// s contains one and no double quote.
func appendQuoted(b *strings.Builder, s string, rangeSafe bool) {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	b.WriteRune(quote)
	for _, c := range s {
		switch {
		case c == quote || c == '\\':
			b.WriteByte('\\')
		case rangeSafe && rangeReserved(c):
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteRune(quote)
}

// rangeReserved reports characters that have a meaning in version range literals
func rangeReserved(c rune) bool {
	switch c {
	case '[', '(', ']', ')', ',':
		return true
	}
	return c <= ' '
}
