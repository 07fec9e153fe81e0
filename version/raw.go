package version

import (
	"strconv"
	"unicode"
)

// Raw elements are the literal value syntax shared by raw version text,
// the r and p fragments and =default; / =pad; instructions:
//
//	123        integer
//	-M  M  m   MinValue, MaxValue, MaxStringValue
//	'a' "b"    quoted text with backslash escapes, adjacent quotes concatenate
//	abc        bare text, must start with a letter; M and m before p are sentinels
//	<1.2p0>    nested vector with optional pad
//	p4  <p0>   vector holding only a pad

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c rune) bool {
	return unicode.IsLetter(c)
}

func isLetterOrDigit(c rune) bool {
	return isDigit(c) || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// scanRawElement reads one raw element from in[pos:end]
func scanRawElement(in []rune, pos, end int) (Segment, int, bool) {
	if pos >= end {
		return Segment{}, pos, false
	}

	c := in[pos]
	switch {
	case c == '-':
		if pos+1 < end && in[pos+1] == 'M' {
			return MinValue, pos + 2, true
		}
		n, p, ok := scanInteger(in, pos+1, end)
		if !ok {
			return Segment{}, pos, false
		}
		return Int(-n), p, true
	case isDigit(c):
		n, p, ok := scanInteger(in, pos, end)
		if !ok {
			return Segment{}, pos, false
		}
		return Int(n), p, true
	case c == '\'' || c == '"':
		var text []rune
		p := pos
		for p < end && (in[p] == '\'' || in[p] == '"') {
			s, next, ok := scanQuoted(in, p, end)
			if !ok {
				return Segment{}, pos, false
			}
			text = append(text, s...)
			p = next
		}
		return Text(string(text)), p, true
	case c == '<':
		v, p, ok := scanRawVector(in, pos+1, end)
		if !ok || p >= end || in[p] != '>' {
			return Segment{}, pos, false
		}
		return Nested(v), p + 1, true
	case c == 'M' || c == 'm':
		if pos+1 >= end || !isLetterOrDigit(in[pos+1]) || in[pos+1] == 'p' {
			if c == 'M' {
				return MaxValue, pos + 1, true
			}
			return MaxStringValue, pos + 1, true
		}
	}

	if !isLetter(c) {
		return Segment{}, pos, false
	}
	p := pos + 1
	for p < end && isLetterOrDigit(in[p]) {
		p++
	}
	return Text(string(in[pos:p])), p, true
}

func scanInteger(in []rune, pos, end int) (int64, int, bool) {
	p := pos
	for p < end && isDigit(in[p]) {
		p++
	}
	if p == pos {
		return 0, pos, false
	}
	n, err := strconv.ParseInt(string(in[pos:p]), 10, 64)
	if err != nil {
		return 0, pos, false
	}
	return n, p, true
}

// scanQuoted reads a single quoted string starting at the quote in in[pos]
func scanQuoted(in []rune, pos, end int) ([]rune, int, bool) {
	quote := in[pos]
	var text []rune
	for p := pos + 1; p < end; p++ {
		c := in[p]
		switch c {
		case quote:
			return text, p + 1, true
		case '\\':
			p++
			if p >= end {
				return nil, pos, false
			}
			c = in[p]
		}
		text = append(text, c)
	}
	return nil, pos, false
}

// scanRawVector reads dot separated raw elements and an optional pad. A
// vector holding only a pad starts with p, see scanPadOnly.
func scanRawVector(in []rune, pos, end int) (*Vector, int, bool) {
	if pad, next, ok := scanPadOnly(in, pos, end); ok {
		return NewVector(nil, pad), next, true
	}

	var elements []Segment
	p := pos
	for {
		seg, next, ok := scanRawElement(in, p, end)
		if !ok {
			return nil, pos, false
		}
		elements = append(elements, seg)
		p = next
		if p < end && in[p] == '.' {
			p++
			continue
		}
		break
	}

	var pad Segment
	if p < end && in[p] == 'p' {
		seg, next, ok := scanRawElement(in, p+1, end)
		if !ok {
			return nil, pos, false
		}
		pad = seg
		p = next
	}
	return NewVector(elements, pad), p, true
}

// scanPadOnly reads p followed by an element that is not bare text, as in
// p4, p'x', p<1> or pM. Text such as pre or p4a stays bare text.
func scanPadOnly(in []rune, pos, end int) (Segment, int, bool) {
	if pos+1 >= end || in[pos] != 'p' {
		return Segment{}, pos, false
	}
	seg, next, ok := scanRawElement(in, pos+1, end)
	if !ok || (next < end && isLetterOrDigit(in[next])) {
		return Segment{}, pos, false
	}
	if isLetter(in[pos+1]) && seg.Kind() != KindMax && seg.Kind() != KindMaxText {
		return Segment{}, pos, false
	}
	return seg, next, true
}
