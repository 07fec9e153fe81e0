package version

// checkpoint is a saved matcher state taken before a greedy occurrence
type checkpoint struct {
	pos  int
	segs int
	pad  Segment
	frag *fragment
}

// matcher holds the state of one parse. It is never shared.
type matcher struct {
	in    []rune
	end   int
	pos   int
	segs  []Segment
	pad   Segment
	stack []checkpoint
}

func newMatcher(in []rune) *matcher {
	return &matcher{in: in, end: len(in), segs: make([]Segment, 0, 8)}
}

func (m *matcher) push(f *fragment) {
	m.stack = append(m.stack, checkpoint{pos: m.pos, segs: len(m.segs), pad: m.pad, frag: f})
}

// pop restores the most recent checkpoint of f and discards everything above it
func (m *matcher) pop(f *fragment) {
	for i := len(m.stack) - 1; i >= 0; i-- {
		cp := m.stack[i]
		if cp.frag != f {
			continue
		}
		m.pos = cp.pos
		m.segs = m.segs[:cp.segs]
		m.pad = cp.pad
		m.stack = m.stack[:i]
		return
	}
}

func (m *matcher) emit(f *fragment, s Segment) {
	if !f.ins.ignore {
		m.segs = append(m.segs, s)
	}
}

// match runs root over the whole input
func (m *matcher) match(root *fragment) bool {
	return m.sequence([]*fragment{root}, 0, true) && m.pos == m.end
}

// sequence matches frags[idx:] in order. Each fragment first takes its minimum
// number of occurrences, then as many more as it can up to its maximum. When
// the rest of the sequence fails the last greedy occurrence is given back and
// the rest is retried. With anchored the sequence must end at m.end.
func (m *matcher) sequence(frags []*fragment, idx int, anchored bool) bool {
	f := frags[idx]
	last := idx+1 == len(frags)
	inner := anchored && last && f.q.max == 1

	n := 0
	for ; n < f.q.min; n++ {
		if !m.parseOne(f, inner) {
			return false
		}
	}
	for ; n < f.q.max; n++ {
		m.push(f)
		at := m.pos
		if !m.parseOne(f, inner) || (f.q.max == unbounded && m.pos == at) {
			m.pop(f)
			break
		}
	}
	parsed := n

	for {
		if f.q.max != unbounded {
			for ; n < f.q.max; n++ {
				m.setDefaults(f)
			}
		}

		if last {
			if !anchored || m.pos == m.end {
				return true
			}
		} else if m.sequence(frags, idx+1, anchored) {
			return true
		}

		if parsed <= f.q.min {
			return false
		}
		m.pop(f)
		parsed--
		n = parsed
	}
}

// setDefaults appends the default values of f for one unparsed occurrence
func (m *matcher) setDefaults(f *fragment) {
	if !f.ins.def.IsZero() {
		m.segs = append(m.segs, f.ins.def)
		return
	}

	switch f.kind {
	case fragGroup:
		for _, c := range f.children {
			m.setDefaults(c)
		}
	case fragArray:
		start := len(m.segs)
		for _, c := range f.children {
			m.setDefaults(c)
		}
		if len(m.segs) == start {
			return
		}
		elements := append([]Segment(nil), m.segs[start:]...)
		m.segs = m.segs[:start]
		m.segs = append(m.segs, Nested(NewVector(removeRedundantTrail(elements, f.ins.pad), f.ins.pad)))
	}
}

// parseOne matches a single occurrence of f at the current position
func (m *matcher) parseOne(f *fragment, anchored bool) bool {
	switch f.kind {
	case fragLiteral:
		return m.parseLiteral(f)
	case fragDelimiter:
		return m.parseDelimiter(f)
	case fragNumber:
		return m.parseNumber(f, f.signed)
	case fragString:
		return m.parseString(f, f.anyChar)
	case fragAuto:
		if m.pos >= m.end {
			return false
		}
		c := m.in[m.pos]
		if isDigit(c) {
			return m.parseNumber(f, false)
		}
		if isLetter(c) {
			return m.parseString(f, false)
		}
		return false
	case fragQuoted:
		return m.parseQuoted(f)
	case fragRaw:
		return m.parseRaw(f)
	case fragPad:
		return m.parsePad()
	case fragGroup:
		return m.parseGroup(f, anchored)
	case fragArray:
		return m.parseArray(f, anchored)
	}
	return false
}

func (m *matcher) parseLiteral(f *fragment) bool {
	if m.pos+len(f.literal) > m.end {
		return false
	}
	for i, c := range f.literal {
		if m.in[m.pos+i] != c {
			return false
		}
	}
	m.pos += len(f.literal)
	return true
}

func (m *matcher) parseDelimiter(f *fragment) bool {
	if m.pos >= m.end {
		return false
	}
	c := m.in[m.pos]
	if f.ins.class != nil {
		if !f.ins.class.contains(c) {
			return false
		}
	} else if isLetterOrDigit(c) {
		return false
	}
	m.pos++
	return true
}

func (m *matcher) parseNumber(f *fragment, signed bool) bool {
	p := m.pos
	neg := false
	if signed && p < m.end && m.in[p] == '-' {
		neg = true
		p++
	}

	start := p
	lim := f.limit(start, m.end)
	for p < lim && isDigit(m.in[p]) && f.allowed(m.in[p]) {
		p++
	}
	if p == start || !f.fitsRange(p-start) {
		return false
	}

	n, _, ok := scanInteger(m.in, start, p)
	if !ok {
		return false
	}
	if neg {
		n = -n
	}
	m.emit(f, Int(n))
	m.pos = p
	return true
}

func (m *matcher) parseString(f *fragment, anyChar bool) bool {
	p := m.pos
	lim := f.limit(p, m.end)
	for p < lim && f.allowed(m.in[p]) && (anyChar || isLetter(m.in[p])) {
		p++
	}
	if p == m.pos || !f.fitsRange(p-m.pos) {
		return false
	}
	m.emit(f, Text(string(m.in[m.pos:p])))
	m.pos = p
	return true
}

func (m *matcher) parseQuoted(f *fragment) bool {
	if m.pos >= m.end {
		return false
	}

	var closer rune
	switch open := m.in[m.pos]; open {
	case '<':
		closer = '>'
	case '{':
		closer = '}'
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	default:
		if isLetterOrDigit(open) {
			return false
		}
		closer = open
	}

	start := m.pos + 1
	lim := f.limit(start, m.end)
	p := start
	for p < lim && m.in[p] != closer {
		if !f.allowed(m.in[p]) {
			return false
		}
		p++
	}
	if p >= m.end || m.in[p] != closer || !f.fitsRange(p-start) {
		return false
	}
	m.emit(f, Text(string(m.in[start:p])))
	m.pos = p + 1
	return true
}

func (m *matcher) parseRaw(f *fragment) bool {
	seg, p, ok := scanRawElement(m.in, m.pos, f.limit(m.pos, m.end))
	if !ok || !f.fitsRange(p-m.pos) {
		return false
	}
	m.emit(f, seg)
	m.pos = p
	return true
}

func (m *matcher) parsePad() bool {
	if m.pos >= m.end || m.in[m.pos] != 'p' {
		return false
	}
	seg, p, ok := scanRawElement(m.in, m.pos+1, m.end)
	if !ok {
		return false
	}
	m.pad = seg
	m.pos = p
	return true
}

// span narrows m.end to the range of f and reports the previous end
func (m *matcher) span(f *fragment) int {
	end := m.end
	m.end = f.limit(m.pos, m.end)
	return end
}

// spanAllowed checks the group constraints on the consumed characters
func (m *matcher) spanAllowed(f *fragment, start int) bool {
	if !f.fitsRange(m.pos - start) {
		return false
	}
	if f.ins.class != nil {
		for _, c := range m.in[start:m.pos] {
			if !f.ins.class.contains(c) {
				return false
			}
		}
	}
	return true
}

func (m *matcher) parseGroup(f *fragment, anchored bool) bool {
	start, segStart := m.pos, len(m.segs)
	end := m.span(f)
	ok := m.sequence(f.children, 0, anchored && m.end == end)
	m.end = end
	if !ok || !m.spanAllowed(f, start) {
		return false
	}

	if f.ins.ignore {
		m.segs = m.segs[:segStart]
	}
	if m.pad.IsZero() && !f.ins.pad.IsZero() {
		m.pad = f.ins.pad
	}
	return true
}

func (m *matcher) parseArray(f *fragment, anchored bool) bool {
	start, segStart := m.pos, len(m.segs)
	outer := m.pad
	m.pad = Segment{}

	end := m.span(f)
	ok := m.sequence(f.children, 0, anchored && m.end == end)
	m.end = end
	if !ok || !m.spanAllowed(f, start) || len(m.segs) == segStart {
		m.pad = outer
		return false
	}

	pad := m.pad
	if pad.IsZero() {
		pad = f.ins.pad
	}
	m.pad = outer

	elements := append([]Segment(nil), m.segs[segStart:]...)
	m.segs = m.segs[:segStart]
	m.emit(f, Nested(NewVector(removeRedundantTrail(elements, pad), pad)))
	return true
}
