package version

import (
	"sort"
	"strconv"
	"strings"
)

type fragmentKind int

const (
	fragLiteral fragmentKind = iota
	fragDelimiter
	fragNumber
	fragString
	fragAuto
	fragQuoted
	fragRaw
	fragPad
	fragGroup
	fragArray
)

// unbounded is the upper bound of * and + qualifiers and of ={m,}; ranges
const unbounded = int(^uint32(0) >> 1)

// qualifier holds the occurrence bounds of a fragment
type qualifier struct {
	min int
	max int
}

var (
	exactlyOne = qualifier{1, 1}
	zeroOrOne  = qualifier{0, 1}
)

func (q qualifier) appendTo(b *strings.Builder) {
	switch {
	case q == exactlyOne:
	case q == zeroOrOne:
		b.WriteByte('?')
	case q.min == 0 && q.max == unbounded:
		b.WriteByte('*')
	case q.min == 1 && q.max == unbounded:
		b.WriteByte('+')
	default:
		b.WriteByte('{')
		appendBounds(b, q.min, q.max)
		b.WriteByte('}')
	}
}

func appendBounds(b *strings.Builder, lo, hi int) {
	b.WriteString(strconv.Itoa(lo))
	switch hi {
	case lo:
	case unbounded:
		b.WriteByte(',')
	default:
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(hi))
	}
}

type runeRange struct {
	lo rune
	hi rune
}

// charClass is a set of allowed characters, possibly inverted
type charClass struct {
	ranges   []runeRange
	inverted bool
}

func newCharClass(ranges []runeRange, inverted bool) *charClass {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].lo < ranges[j].lo })
	merged := make([]runeRange, 0, len(ranges))
	for _, r := range ranges {
		if n := len(merged); n > 0 && r.lo <= merged[n-1].hi+1 {
			if r.hi > merged[n-1].hi {
				merged[n-1].hi = r.hi
			}
			continue
		}
		merged = append(merged, r)
	}
	return &charClass{ranges: merged, inverted: inverted}
}

func (c *charClass) contains(r rune) bool {
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].hi >= r })
	in := i < len(c.ranges) && c.ranges[i].lo <= r
	return in != c.inverted
}

func (c *charClass) appendTo(b *strings.Builder) {
	b.WriteByte('[')
	if c.inverted {
		b.WriteByte('^')
	}
	for _, r := range c.ranges {
		appendClassRune(b, r.lo)
		if r.hi != r.lo {
			b.WriteByte('-')
			appendClassRune(b, r.hi)
		}
	}
	b.WriteByte(']')
}

func appendClassRune(b *strings.Builder, r rune) {
	switch r {
	case '\\', ']', '^', '-':
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}

// instructions are the =...; clauses attached to a fragment
type instructions struct {
	class    *charClass
	hasRange bool
	rangeMin int
	rangeMax int
	ignore   bool
	def      Segment
	pad      Segment
}

func (in *instructions) empty() bool {
	return in.class == nil && !in.hasRange && !in.ignore && in.def.IsZero() && in.pad.IsZero()
}

func (in *instructions) appendTo(b *strings.Builder) {
	if in.class != nil {
		b.WriteByte('=')
		in.class.appendTo(b)
		b.WriteByte(';')
	}
	if in.hasRange {
		b.WriteString("={")
		appendBounds(b, in.rangeMin, in.rangeMax)
		b.WriteString("};")
	}
	if in.ignore {
		b.WriteString("=!;")
	}
	if !in.def.IsZero() {
		b.WriteByte('=')
		in.def.appendRaw(b, false)
		b.WriteByte(';')
	}
	if !in.pad.IsZero() {
		b.WriteString("=p")
		in.pad.appendRaw(b, false)
		b.WriteByte(';')
	}
}

// fragment is one node of a compiled format. Leaf kinds use the fields they
// need; groups and arrays own their children.
type fragment struct {
	kind     fragmentKind
	q        qualifier
	ins      instructions
	literal  []rune
	signed   bool
	anyChar  bool
	children []*fragment
}

// allowed reports whether the character class of the fragment admits c
func (f *fragment) allowed(c rune) bool {
	return f.ins.class == nil || f.ins.class.contains(c)
}

// limit returns the end position after applying the range maximum
func (f *fragment) limit(pos, end int) int {
	if f.ins.hasRange && f.ins.rangeMax != unbounded && pos+f.ins.rangeMax < end {
		return pos + f.ins.rangeMax
	}
	return end
}

// fitsRange reports whether n characters satisfy the range minimum
func (f *fragment) fitsRange(n int) bool {
	return !f.ins.hasRange || n >= f.ins.rangeMin
}

func (f *fragment) appendTo(b *strings.Builder) {
	switch f.kind {
	case fragLiteral:
		appendLiteral(b, f.literal)
	case fragDelimiter:
		b.WriteByte('d')
	case fragNumber:
		if f.signed {
			b.WriteByte('N')
		} else {
			b.WriteByte('n')
		}
	case fragString:
		if f.anyChar {
			b.WriteByte('S')
		} else {
			b.WriteByte('s')
		}
	case fragAuto:
		b.WriteByte('a')
	case fragQuoted:
		b.WriteByte('q')
	case fragRaw:
		b.WriteByte('r')
	case fragPad:
		b.WriteByte('p')
	case fragGroup:
		if f.q == zeroOrOne {
			b.WriteByte('[')
			appendFragments(b, f.children)
			b.WriteByte(']')
			f.ins.appendTo(b)
			return
		}
		b.WriteByte('(')
		appendFragments(b, f.children)
		b.WriteByte(')')
	case fragArray:
		b.WriteByte('<')
		appendFragments(b, f.children)
		b.WriteByte('>')
	}
	f.ins.appendTo(b)
	f.q.appendTo(b)
}

func appendFragments(b *strings.Builder, frags []*fragment) {
	for _, f := range frags {
		f.appendTo(b)
	}
}

func appendLiteral(b *strings.Builder, lit []rune) {
	if len(lit) == 1 {
		if grammarReserved(lit[0]) {
			b.WriteByte('\\')
		}
		b.WriteRune(lit[0])
		return
	}

	b.WriteByte('\'')
	for _, c := range lit {
		if c == '\'' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteByte('\'')
}

// grammarReserved reports characters that cannot appear unescaped as a literal
func grammarReserved(c rune) bool {
	if isLetterOrDigit(c) {
		return true
	}
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '?', '*', '+', '=', ';', '\\', '\'':
		return true
	}
	return false
}
