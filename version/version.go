// Package version implements omni versions: versions represented as vectors
// of typed segments with a total order, parsed by compiled grammars.
//
// A Vector holds integer, text and nested vector segments plus three
// sentinels. Segments of different kinds are ordered
//
//	MaxValue > Integer > Vector > MaxStringValue > Text > MinValue
//
// and a vector may carry a pad that stands in for missing trailing positions
// when it is compared against a longer vector.
//
// A Format is compiled from a compact grammar. The grammar below accepts
// dot separated numbers followed by an optional dash and free text:
//
//	f := version.MustCompile("n(.n)*[-S]")
//	v, err := f.Parse("1.2-beta")
//	// v.String() == "raw:1.2.'beta'/format(n(.n)*[-S]):1.2-beta"
//
// Grammar tokens:
//
//	a r n N s S d q p   auto, raw, number, signed number, letters, any chars,
//	                    delimiter, quoted text, pad
//	(...) <...> [...]   group, array, optional group
//	'text' \c           literals
//	? * + {m} {m,n}     occurrences
//	=[..]; ={m,n}; =!;  character class, length range, ignore
//	=X; =pX;            default value, pad value
//
// Version text is accepted in three forms by Parse:
//
//	raw:1.2.'beta'p0                     a raw vector
//	raw:1.2/format(n.n):1.2              a raw vector tagged with a format and original text
//	format(n(.n)*):1.2.3                 text parsed by an inline grammar
//
// Everything else is parsed with the Raw format.
package version

import (
	"slices"
	"strconv"
	"strings"

	"github.com/valentin-kaiser/omniversion/apperror"
)

const (
	rawPrefix    = "raw:"
	formatPrefix = "format("
)

// Version is an immutable vector with an optional format and original text
type Version struct {
	vector   *Vector
	format   *Format
	original string
	osgi     bool
}

var (
	// Empty is the OSGi version 0.0.0
	Empty = mustOSGi(0, 0, 0, "")
	// Max compares greater than every other version
	Max = newVersion(NewVector([]Segment{MaxValue}, MaxValue), nil, "")
	// Min compares less than every other version
	Min = newVersion(NewVector([]Segment{MinValue}, Segment{}), nil, "")
)

func newVersion(vec *Vector, format *Format, original string) *Version {
	if format.IsRaw() {
		format, original = nil, ""
	}
	if format.IsOSGi() {
		original = ""
	}
	return &Version{
		vector:   vec,
		format:   format,
		original: original,
		osgi:     validateOSGi(vec) == nil,
	}
}

func mustOSGi(major, minor, micro int, qualifier string) *Version {
	v, err := CreateOSGi(major, minor, micro, qualifier)
	if err != nil {
		panic(err)
	}
	return v
}

// CreateOSGi returns the OSGi version major.minor.micro[.qualifier]
func CreateOSGi(major, minor, micro int, qualifier string) (*Version, error) {
	if major < 0 || minor < 0 || micro < 0 {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "negative version component in %d.%d.%d", major, minor, micro)
	}
	if !validQualifier(qualifier) {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "invalid qualifier %q", qualifier).
			AddDetail("qualifier", qualifier)
	}

	elements := []Segment{Int(int64(major)), Int(int64(minor)), Int(int64(micro))}
	if qualifier != "" {
		elements = append(elements, Text(qualifier))
	}
	return newVersion(NewVector(elements, Segment{}), OSGi, ""), nil
}

func validQualifier(q string) bool {
	for _, c := range q {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '_' || c == '-') {
			return false
		}
	}
	return true
}

// Parse parses version text. It returns nil and no error for empty text.
func Parse(text string) (*Version, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	switch {
	case strings.HasPrefix(text, rawPrefix):
		return parseRawText(text)
	case strings.HasPrefix(text, formatPrefix):
		return parseFormatText(text)
	}

	v, err := Raw.Parse(text)
	if err != nil {
		return nil, invalid(text, err)
	}
	return v, nil
}

// MustParse is like Parse but panics on error or empty text
func MustParse(text string) *Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	if v == nil {
		panic("version: empty version text")
	}
	return v
}

// ParseOSGiCompatible parses text like Parse but plain text is read with the
// OSGi format, and empty text or 0.0.0 yield Empty. It never returns nil
// without an error.
func ParseOSGiCompatible(text string) (*Version, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "0.0.0" {
		return Empty, nil
	}
	if strings.HasPrefix(text, rawPrefix) || strings.HasPrefix(text, formatPrefix) {
		return Parse(text)
	}

	v, err := OSGi.Parse(text)
	if err != nil {
		return nil, invalid(text, err)
	}
	return v, nil
}

func invalid(text string, cause error) error {
	return apperror.NewErrorf(apperror.KindInvalidArgument, "invalid version %q", text).AddError(cause)
}

// parseRawText reads raw:<vector>[/format(<grammar>)[:<original>]]
func parseRawText(text string) (*Version, error) {
	in := []rune(text[len(rawPrefix):])
	vec, p, ok := scanRawVector(in, 0, len(in))
	if !ok {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "invalid raw version %q", text).
			AddDetail("position", len(rawPrefix))
	}
	if p == len(in) {
		return newVersion(vec, nil, ""), nil
	}

	rest := string(in[p:])
	if !strings.HasPrefix(rest, "/"+formatPrefix) {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "unexpected %q after raw vector in %q", rest, text)
	}
	rest = rest[1:]

	closing := findFormatEnd(rest)
	if closing < 0 {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "unterminated format in %q", text)
	}
	f, err := Compile(rest[len(formatPrefix):closing])
	if err != nil {
		return nil, invalid(text, err)
	}

	rest = rest[closing+1:]
	original := ""
	if rest != "" {
		if rest[0] != ':' {
			return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "expected ':' after format in %q", text)
		}
		original = rest[1:]
	}
	if f.IsOSGi() {
		if err := validateOSGiText(vec); err != nil {
			return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "raw vector of %q is not an OSGi version", text).
				AddError(err)
		}
	}
	return newVersion(vec, f, original), nil
}

// parseFormatText reads format(<grammar>):<text>
func parseFormatText(text string) (*Version, error) {
	closing := findFormatEnd(text)
	if closing < 0 {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "unterminated format in %q", text)
	}
	if closing+1 >= len(text) || text[closing+1] != ':' {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "expected ':' after format in %q", text)
	}

	f, err := Compile(text[len(formatPrefix):closing])
	if err != nil {
		return nil, invalid(text, err)
	}
	v, err := f.Parse(text[closing+2:])
	if err != nil {
		return nil, invalid(text, err)
	}
	return v, nil
}

// findFormatEnd returns the index of the parenthesis closing the format(
// at the start of s, or -1. Escapes, quoted literals and character classes
// are skipped.
func findFormatEnd(s string) int {
	depth := 0
	for i := len(formatPrefix) - 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'':
			for i++; i < len(s) && s[i] != '\''; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		case '[':
			if i > 0 && s[i-1] == '=' {
				for i++; i < len(s) && s[i] != ']'; i++ {
					if s[i] == '\\' {
						i++
					}
				}
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Vector returns the underlying vector
func (v *Version) Vector() *Vector {
	return v.vector
}

// Format returns the format the version was parsed with, or nil
func (v *Version) Format() *Format {
	return v.format
}

// Original returns the text the version was parsed from, if it was kept
func (v *Version) Original() string {
	return v.original
}

func (v *Version) integerAt(i int, name string) (int, error) {
	n, ok := v.vector.At(i).Integer()
	if !ok {
		return 0, apperror.NewErrorf(apperror.KindUnsupported, "%s is not an integer in %s", name, v).
			AddDetail("index", i)
	}
	return int(n), nil
}

// Major returns the first element if it is an integer
func (v *Version) Major() (int, error) {
	return v.integerAt(0, "major")
}

// Minor returns the second element if it is an integer
func (v *Version) Minor() (int, error) {
	return v.integerAt(1, "minor")
}

// Micro returns the third element if it is an integer
func (v *Version) Micro() (int, error) {
	return v.integerAt(2, "micro")
}

// Qualifier returns the fourth element. The boolean is false if there is no
// fourth element, which keeps an absent qualifier apart from an empty text.
func (v *Version) Qualifier() (string, bool, error) {
	if v.vector.Len() < 4 {
		return "", false, nil
	}
	q, ok := v.vector.At(3).Text()
	if !ok {
		return "", false, apperror.NewErrorf(apperror.KindUnsupported, "qualifier is not a text in %s", v).
			AddDetail("index", 3)
	}
	return q, true, nil
}

// IsOSGiCompatible reports whether the version has the OSGi shape
func (v *Version) IsOSGiCompatible() bool {
	return v.osgi
}

// ValidateOSGi returns a descriptive error if the version does not have the OSGi shape
func (v *Version) ValidateOSGi() error {
	return validateOSGi(v.vector)
}

func validateOSGi(vec *Vector) error {
	if n := vec.Len(); n < 3 || n > 4 {
		return apperror.NewErrorf(apperror.KindInvalidArgument, "expected 3 or 4 elements, got %d", n)
	}
	if _, ok := vec.Pad(); ok {
		return apperror.NewError(apperror.KindInvalidArgument, "an OSGi version has no pad")
	}
	for i := 0; i < 3; i++ {
		if n, ok := vec.At(i).Integer(); !ok || n < 0 {
			return apperror.NewErrorf(apperror.KindInvalidArgument, "element %d is not a non-negative integer", i).
				AddDetail("index", i)
		}
	}
	if vec.Len() == 4 {
		q, ok := vec.At(3).Text()
		if !ok || !validQualifier(q) {
			return apperror.NewError(apperror.KindInvalidArgument, "element 3 is not a valid qualifier").
				AddDetail("index", 3)
		}
	}
	return nil
}

// validateOSGiText is validateOSGi for vectors that are printed in the OSGi
// dotted form, where an empty qualifier cannot be written
func validateOSGiText(vec *Vector) error {
	if err := validateOSGi(vec); err != nil {
		return err
	}
	if q, ok := vec.At(3).Text(); ok && q == "" {
		return apperror.NewError(apperror.KindInvalidArgument, "an OSGi qualifier is not empty").
			AddDetail("index", 3)
	}
	return nil
}

// Compare returns -1, 0 or 1. A nil version sorts first.
func (v *Version) Compare(o *Version) int {
	switch {
	case v == o:
		return 0
	case v == nil:
		return -1
	case o == nil:
		return 1
	}
	return v.vector.Compare(o.vector)
}

// Equal reports whether both versions compare equal
func (v *Version) Equal(o *Version) bool {
	return v.Compare(o) == 0
}

// Hash returns a hash consistent with Equal
func (v *Version) Hash() uint64 {
	return v.vector.Hash()
}

// Compare compares a and b. It can be used with slices.SortFunc.
func Compare(a, b *Version) int {
	return a.Compare(b)
}

// Sort sorts versions in ascending order, keeping equal versions in place
func Sort(versions []*Version) {
	slices.SortStableFunc(versions, Compare)
}

// String returns the version text. OSGi versions print in dotted form,
// all others as raw:<vector>[/format(...)[:<original>]].
func (v *Version) String() string {
	if v == nil {
		return ""
	}
	var b strings.Builder
	v.AppendTo(&b, false)
	return b.String()
}

// AppendTo writes the version text to b. With rangeSafe, characters that are
// reserved in version range literals are escaped.
func (v *Version) AppendTo(b *strings.Builder, rangeSafe bool) {
	if v.format.IsOSGi() {
		v.appendOSGi(b, rangeSafe)
		return
	}

	b.WriteString(rawPrefix)
	v.vector.AppendTo(b, rangeSafe)
	if v.format == nil {
		return
	}
	b.WriteByte('/')
	b.WriteString(v.format.String())
	if v.original == "" {
		return
	}
	b.WriteByte(':')
	for _, c := range v.original {
		if rangeSafe && (c == '\\' || rangeReserved(c)) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
}

func (v *Version) appendOSGi(b *strings.Builder, rangeSafe bool) {
	for i := 0; i < 3; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		n, _ := v.vector.At(i).Integer()
		b.WriteString(strconv.FormatInt(n, 10))
	}
	if q, ok := v.vector.At(3).Text(); ok {
		b.WriteByte('.')
		for _, c := range q {
			if rangeSafe && rangeReserved(c) {
				b.WriteByte('\\')
			}
			b.WriteRune(c)
		}
	}
}

// MarshalText implements encoding.TextMarshaler
func (v *Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It reads the output of
// String, so plain dotted text is parsed with the OSGi format. Formats
// referenced by the text are interned through Compile.
func (v *Version) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return apperror.NewError(apperror.KindInvalidArgument, "empty version text")
	}
	parsed, err := ParseOSGiCompatible(s)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (v *Version) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (v *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return apperror.Wrap(err)
	}
	return v.UnmarshalText([]byte(s))
}
