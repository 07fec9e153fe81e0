package version

import (
	"strings"
	"sync/atomic"

	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/cache"
	"github.com/valentin-kaiser/omniversion/logging"
)

const (
	// OSGiGrammar is the grammar text of the OSGi format
	OSGiGrammar = "n[.n=0;[.n=0;[.S=[A-Za-z0-9_-];]]]"
	// RawGrammar is the grammar text of the raw format
	RawGrammar = "r(.r)*p?"
)

var logger = logging.For("version")

type formatTag int

const (
	tagNone formatTag = iota
	tagOSGi
	tagRaw
)

// Format is a compiled version grammar. Formats are immutable, interned by
// canonical text and safe for concurrent use.
type Format struct {
	root      *fragment
	canonical string
	tag       formatTag
}

// formatCache interns formats by source text and by canonical text
type formatCache struct {
	sources   *cache.Registry[*Format]
	canonical *cache.Registry[*Format]
}

var registry atomic.Pointer[formatCache]

var (
	// OSGi is the predefined OSGi format: major[.minor[.micro[.qualifier]]]
	OSGi = predefined(OSGiGrammar, tagOSGi)
	// Raw is the predefined raw format: dot separated raw elements with an optional pad
	Raw = predefined(RawGrammar, tagRaw)
)

func predefined(text string, tag formatTag) *Format {
	root, err := compileFormat(text)
	if err != nil {
		panic(err)
	}
	f := &Format{root: root, canonical: canonicalText(root), tag: tag}
	seed(currentCache(), f, text)
	return f
}

func newFormatCache(config cache.Config) *formatCache {
	sources := config
	sources.Name = "format-sources"
	canonical := config
	canonical.Name = "formats"
	return &formatCache{
		sources:   cache.NewRegistry[*Format](sources),
		canonical: cache.NewRegistry[*Format](canonical),
	}
}

func currentCache() *formatCache {
	if c := registry.Load(); c != nil {
		return c
	}
	registry.CompareAndSwap(nil, newFormatCache(cache.DefaultConfig()))
	return registry.Load()
}

func seed(c *formatCache, f *Format, source string) {
	c.canonical.LoadOrStore(f.canonical, f)
	c.sources.LoadOrStore(source, f)
	c.sources.LoadOrStore(f.canonical, f)
}

// ConfigureCache replaces the process-wide format cache with an empty one
// using config. The predefined formats are seeded again. Formats compiled
// before the call stay valid but are no longer shared with later compiles.
func ConfigureCache(config cache.Config) {
	c := newFormatCache(config)
	seed(c, OSGi, OSGiGrammar)
	seed(c, Raw, RawGrammar)
	registry.Store(c)
}

// CacheStats returns the counters of the canonical format cache
func CacheStats() cache.Stats {
	return currentCache().canonical.Stats()
}

// Compile compiles grammar text into a Format. Compiling texts with the same
// canonical form returns the same *Format.
func Compile(text string) (*Format, error) {
	c := currentCache()
	return c.sources.Do(text, func() (*Format, error) {
		root, err := compileFormat(text)
		if err != nil {
			return nil, err
		}

		canonical := canonicalText(root)
		f, loaded := c.canonical.LoadOrStore(canonical, &Format{root: root, canonical: canonical})
		if !loaded {
			logger.Debug().Str("format", text).Str("canonical", f.canonical).Msg("compiled format")
		}
		return f, nil
	})
}

// MustCompile is like Compile but panics if the text cannot be compiled
func MustCompile(text string) *Format {
	f, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return f
}

// Canonical returns the canonical grammar text
func (f *Format) Canonical() string {
	return f.canonical
}

// String returns the format in the form used inside version text: format(<canonical>)
func (f *Format) String() string {
	return formatPrefix + f.canonical + ")"
}

// Equal reports whether both formats have the same canonical text
func (f *Format) Equal(o *Format) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.canonical == o.canonical
}

// IsOSGi reports whether f is the predefined OSGi format
func (f *Format) IsOSGi() bool {
	return f != nil && f.tag == tagOSGi
}

// IsRaw reports whether f is the predefined raw format
func (f *Format) IsRaw() bool {
	return f != nil && f.tag == tagRaw
}

// Parse parses text with the format. Versions parsed with the OSGi format do not
// keep the original text. Versions parsed with the raw format are untagged.
func (f *Format) Parse(text string) (*Version, error) {
	vec, err := f.ParseVector(text, 0, len(text))
	if err != nil {
		return nil, err
	}

	switch f.tag {
	case tagRaw:
		return newVersion(vec, nil, ""), nil
	case tagOSGi:
		return newVersion(vec, f, ""), nil
	}
	return newVersion(vec, f, text), nil
}

// ParseVector parses text[start:end] into a vector. The whole span must match.
func (f *Format) ParseVector(text string, start, end int) (*Vector, error) {
	if start < 0 || end > len(text) || start > end {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "span [%d,%d) out of range for %q", start, end, text)
	}

	input := text[start:end]
	m := newMatcher([]rune(input))
	if !m.match(f.root) {
		return nil, f.parseError(input, "does not match")
	}

	pad := m.pad
	if pad.Kind() == KindMin {
		pad = Segment{}
	}
	segs := removeRedundantTrail(m.segs, pad)
	if len(segs) == 0 && pad.IsZero() {
		return nil, f.parseError(input, "yields no segments")
	}
	return NewVector(segs, pad), nil
}

func (f *Format) parseError(input, reason string) error {
	return apperror.NewErrorf(apperror.KindParse, "version %q %s %s", input, reason, f.String()).
		AddDetail("format", f.canonical).
		AddDetail("input", input)
}

// MarshalText implements encoding.TextMarshaler
func (f *Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the format(...)
// form and bare grammar text, and interns the result.
func (f *Format) UnmarshalText(text []byte) error {
	s := string(text)
	if strings.HasPrefix(s, formatPrefix) && strings.HasSuffix(s, ")") {
		s = s[len(formatPrefix) : len(s)-1]
	}
	compiled, err := Compile(s)
	if err != nil {
		return err
	}
	*f = *compiled
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (f *Format) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (f *Format) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return apperror.Wrap(err)
	}
	return f.UnmarshalText([]byte(s))
}
