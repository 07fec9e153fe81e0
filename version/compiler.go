package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valentin-kaiser/omniversion/apperror"
)

// compiler turns grammar text into a fragment tree
type compiler struct {
	source string
	text   []rune
	pos    int
}

// compileFormat compiles source into the root fragment of a format
func compileFormat(source string) (*fragment, error) {
	c := &compiler{source: source, text: []rune(source)}
	if len(c.text) == 0 {
		return nil, c.fail(0, "fragment", "empty format")
	}

	frags, err := c.parseSequence(0)
	if err != nil {
		return nil, err
	}

	root := &fragment{kind: fragGroup, q: exactlyOne, children: frags}
	for isPlainGroup(root) && len(root.children) == 1 && root.children[0].kind == fragGroup {
		root = root.children[0]
	}
	return root, nil
}

func isPlainGroup(f *fragment) bool {
	return f.kind == fragGroup && f.q == exactlyOne && f.ins.empty()
}

// canonicalText renders the grammar text of a compiled root
func canonicalText(root *fragment) string {
	var b strings.Builder
	if isPlainGroup(root) {
		appendFragments(&b, root.children)
	} else {
		root.appendTo(&b)
	}
	return b.String()
}

func (c *compiler) fail(pos int, expected, msg string) error {
	return apperror.NewErrorf(apperror.KindFormat, "%s at position %d, expected %s", msg, pos, expected).
		AddDetail("position", pos).
		AddDetail("expected", expected).
		AddDetail("format", c.source)
}

func (c *compiler) eof() bool {
	return c.pos >= len(c.text)
}

func (c *compiler) peek() rune {
	return c.text[c.pos]
}

// parseSequence parses fragments up to and including closer, or to the end
// of the text when closer is 0
func (c *compiler) parseSequence(closer rune) ([]*fragment, error) {
	var frags []*fragment
	for {
		if c.eof() {
			if closer == 0 {
				return frags, nil
			}
			return nil, c.fail(c.pos, strconv.QuoteRune(closer), "premature end of format")
		}
		if closer != 0 && c.peek() == closer {
			c.pos++
			return frags, nil
		}

		f, err := c.parseFragment()
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
}

func (c *compiler) parseFragment() (*fragment, error) {
	start := c.pos
	ch := c.text[c.pos]
	c.pos++

	f := &fragment{q: exactlyOne}
	var err error
	switch ch {
	case '(':
		f.kind = fragGroup
		f.children, err = c.parseSequence(')')
	case '[':
		f.kind = fragGroup
		f.q = zeroOrOne
		f.children, err = c.parseSequence(']')
	case '<':
		f.kind = fragArray
		f.children, err = c.parseSequence('>')
	case 'a':
		f.kind = fragAuto
	case 'r':
		f.kind = fragRaw
	case 'n', 'N':
		f.kind = fragNumber
		f.signed = ch == 'N'
	case 's', 'S':
		f.kind = fragString
		f.anyChar = ch == 'S'
	case 'd':
		f.kind = fragDelimiter
	case 'q':
		f.kind = fragQuoted
	case 'p':
		f.kind = fragPad
	case '\'':
		f.kind = fragLiteral
		f.literal, err = c.parseQuotedLiteral(start)
	case '\\':
		if c.eof() {
			return nil, c.fail(c.pos, "escaped character", "premature end of format")
		}
		f.kind = fragLiteral
		f.literal = []rune{c.peek()}
		c.pos++
	default:
		if isLetterOrDigit(ch) || strings.ContainsRune(")]>{}?*+=", ch) {
			return nil, c.fail(start, "fragment", fmt.Sprintf("illegal character %q", ch))
		}
		f.kind = fragLiteral
		f.literal = []rune{ch}
	}
	if err != nil {
		return nil, err
	}

	if (f.kind == fragGroup || f.kind == fragArray) && len(f.children) == 0 {
		return nil, c.fail(start, "fragment", "empty group")
	}

	if err := c.parseInstructions(f); err != nil {
		return nil, err
	}

	if ch == '[' {
		if !c.eof() && strings.ContainsRune("?*+{", c.peek()) {
			return nil, c.fail(c.pos, "fragment", "qualifier not allowed on optional group")
		}
	} else if err := c.parseQualifier(f); err != nil {
		return nil, err
	}

	if err := c.check(f, start); err != nil {
		return nil, err
	}
	return f, nil
}

func (c *compiler) parseQuotedLiteral(start int) ([]rune, error) {
	var lit []rune
	for !c.eof() {
		ch := c.peek()
		c.pos++
		switch ch {
		case '\'':
			if len(lit) == 0 {
				return nil, c.fail(start, "literal text", "empty literal")
			}
			return lit, nil
		case '\\':
			if c.eof() {
				return nil, c.fail(c.pos, "escaped character", "premature end of format")
			}
			ch = c.peek()
			c.pos++
		}
		lit = append(lit, ch)
	}
	return nil, c.fail(c.pos, `"'"`, "premature end of format")
}

func (c *compiler) parseInstructions(f *fragment) error {
	ins := &f.ins
	for !c.eof() && c.peek() == '=' {
		at := c.pos
		c.pos++
		if c.eof() {
			return c.fail(c.pos, "instruction", "premature end of format")
		}

		switch c.peek() {
		case '[':
			if ins.class != nil {
				return c.fail(at, "';'", "duplicate character class")
			}
			class, err := c.parseCharClass()
			if err != nil {
				return err
			}
			ins.class = class
		case '{':
			if ins.hasRange {
				return c.fail(at, "';'", "duplicate range")
			}
			lo, hi, err := c.parseBounds()
			if err != nil {
				return err
			}
			ins.hasRange, ins.rangeMin, ins.rangeMax = true, lo, hi
		case '!':
			if ins.ignore {
				return c.fail(at, "';'", "duplicate ignore")
			}
			c.pos++
			ins.ignore = true
		case 'p':
			if !ins.pad.IsZero() {
				return c.fail(at, "';'", "duplicate pad")
			}
			seg, next, ok := scanRawElement(c.text, c.pos+1, len(c.text))
			if !ok {
				return c.fail(c.pos+1, "raw element", "bad pad value")
			}
			ins.pad, c.pos = seg, next
		default:
			if !ins.def.IsZero() {
				return c.fail(at, "';'", "duplicate default")
			}
			seg, next, ok := scanRawElement(c.text, c.pos, len(c.text))
			if !ok {
				return c.fail(c.pos, "raw element", "bad default value")
			}
			ins.def, c.pos = seg, next
		}

		if c.eof() || c.peek() != ';' {
			return c.fail(c.pos, "';'", "unterminated instruction")
		}
		c.pos++
	}
	return nil
}

func (c *compiler) parseCharClass() (*charClass, error) {
	start := c.pos
	c.pos++ // [
	inverted := false
	if !c.eof() && c.peek() == '^' {
		inverted = true
		c.pos++
	}

	var ranges []runeRange
	for {
		if c.eof() {
			return nil, c.fail(c.pos, "']'", "premature end of format")
		}
		if c.peek() == ']' {
			c.pos++
			break
		}

		lo, err := c.classRune()
		if err != nil {
			return nil, err
		}
		hi := lo
		if c.pos+1 < len(c.text) && c.text[c.pos] == '-' && c.text[c.pos+1] != ']' {
			at := c.pos
			c.pos++
			if hi, err = c.classRune(); err != nil {
				return nil, err
			}
			if hi < lo {
				return nil, c.fail(at, "character range", "negative character range")
			}
		}
		ranges = append(ranges, runeRange{lo: lo, hi: hi})
	}

	if len(ranges) == 0 {
		return nil, c.fail(start, "character class", "empty character class")
	}
	return newCharClass(ranges, inverted), nil
}

func (c *compiler) classRune() (rune, error) {
	ch := c.peek()
	c.pos++
	if ch != '\\' {
		return ch, nil
	}
	if c.eof() {
		return 0, c.fail(c.pos, "escaped character", "premature end of format")
	}
	ch = c.peek()
	c.pos++
	return ch, nil
}

// parseBounds parses {m}, {m,} or {m,n} starting at the opening brace
func (c *compiler) parseBounds() (int, int, error) {
	start := c.pos
	c.pos++ // {
	lo, err := c.parseInt()
	if err != nil {
		return 0, 0, err
	}

	hi := lo
	if !c.eof() && c.peek() == ',' {
		c.pos++
		if !c.eof() && c.peek() == '}' {
			hi = unbounded
		} else if hi, err = c.parseInt(); err != nil {
			return 0, 0, err
		}
	}

	if c.eof() || c.peek() != '}' {
		return 0, 0, c.fail(c.pos, "'}'", "unterminated range")
	}
	c.pos++

	if hi == 0 {
		return 0, 0, c.fail(start, "range", "range max must be greater than zero")
	}
	if hi < lo {
		return 0, 0, c.fail(start, "range", "range max must not be less than min")
	}
	return lo, hi, nil
}

func (c *compiler) parseInt() (int, error) {
	start := c.pos
	for !c.eof() && isDigit(c.peek()) {
		c.pos++
	}
	if start == c.pos {
		return 0, c.fail(c.pos, "number", "missing number")
	}
	n, err := strconv.Atoi(string(c.text[start:c.pos]))
	if err != nil || n > unbounded {
		return 0, c.fail(start, "number", "number out of range")
	}
	return n, nil
}

func (c *compiler) parseQualifier(f *fragment) error {
	if c.eof() {
		return nil
	}
	switch c.peek() {
	case '?':
		c.pos++
		f.q = zeroOrOne
	case '*':
		c.pos++
		f.q = qualifier{0, unbounded}
	case '+':
		c.pos++
		f.q = qualifier{1, unbounded}
	case '{':
		lo, hi, err := c.parseBounds()
		if err != nil {
			return err
		}
		f.q = qualifier{lo, hi}
	}
	return nil
}

// check rejects instruction combinations that a fragment kind cannot honor
func (c *compiler) check(f *fragment, pos int) error {
	ins := &f.ins
	if ins.ignore && (ins.class != nil || ins.hasRange || !ins.def.IsZero() || !ins.pad.IsZero()) {
		return c.fail(pos, "single instruction", "ignore cannot be combined with other instructions")
	}

	switch f.kind {
	case fragLiteral, fragPad:
		if !ins.empty() {
			return c.fail(pos, "qualifier", "fragment does not accept instructions")
		}
	case fragDelimiter:
		if ins.hasRange || ins.ignore || !ins.def.IsZero() || !ins.pad.IsZero() {
			return c.fail(pos, "character class", "delimiter only accepts a character class")
		}
	case fragGroup, fragArray:
		if f.kind == fragArray && ins.class != nil {
			return c.fail(pos, "instruction", "array does not accept a character class")
		}
		if ins.hasRange && ins.rangeMax != unbounded && !ins.pad.IsZero() {
			return c.fail(pos, "instruction", "finite range cannot be combined with a pad value")
		}
	default:
		if !ins.pad.IsZero() {
			return c.fail(pos, "instruction", "pad value only applies to groups and arrays")
		}
	}
	return nil
}
