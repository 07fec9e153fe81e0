// Package config loads the format catalog used by omniversion binaries.
//
// A catalog is a YAML file that gives grammar texts a name, selects the format
// used when none is requested and tunes the process-wide format cache:
//
//	default: maven
//	formats:
//	  maven: "n[.n=0;[.n=0;]][d?S=!;]"
//	  calendar: "n={4};.n={2};.n={2};"
//	cache:
//	  shards: 16
//	  growth_threshold: 1024
//
// The names osgi and raw always resolve to the predefined formats and cannot
// be redefined. Every entry is compiled by Validate, so a catalog returned by
// Load only holds grammars that compile.
//
//	catalog, err := config.Load(config.Path(flag.Path))
//	if err != nil {
//		return err
//	}
//	catalog.Apply()
//	f, err := catalog.Resolve("maven")
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/cache"
	"github.com/valentin-kaiser/omniversion/logging"
	"github.com/valentin-kaiser/omniversion/version"
	"gopkg.in/yaml.v2"
)

// FileName is the name of the catalog file inside the application directory
const FileName = "formats.yaml"

// Names of the predefined formats
const (
	OSGi = "osgi"
	Raw  = "raw"
)

var logger = logging.For("config")

// Catalog maps format names to grammar texts
type Catalog struct {
	Default string            `yaml:"default"`
	Formats map[string]string `yaml:"formats"`
	Cache   cache.Config      `yaml:"cache"`
}

// Default returns a catalog without custom formats and without a default format
func Default() *Catalog {
	return &Catalog{
		Formats: make(map[string]string),
		Cache:   cache.DefaultConfig(),
	}
}

// Path returns the location of the catalog file in dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and validates the catalog at path. A missing file yields the
// default catalog.
func Load(path string) (*Catalog, error) {
	c := Default()

	data, err := os.ReadFile(filepath.Clean(path))
	if os.IsNotExist(err) {
		logger.Debug().Str("path", path).Msg("no format catalog found, using defaults")
		return c, nil
	}
	if err != nil {
		return nil, apperror.NewError(apperror.KindUnknown, "reading format catalog failed").AddError(err)
	}

	err = yaml.UnmarshalStrict(data, c)
	if err != nil {
		return nil, apperror.NewError(apperror.KindInvalidArgument, "unmarshalling format catalog failed").
			AddError(err).
			AddDetail("path", path)
	}
	if c.Formats == nil {
		c.Formats = make(map[string]string)
	}

	err = c.Validate()
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Debug().Str("path", path).Int("formats", len(c.Formats)).Msg("format catalog loaded")
	return c, nil
}

// Write validates c and saves it to path, creating the directory if needed
func Write(path string, c *Catalog) error {
	if c == nil {
		return apperror.NewError(apperror.KindInvalidArgument, "the catalog provided is nil")
	}

	err := c.Validate()
	if err != nil {
		return apperror.Wrap(err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return apperror.NewError(apperror.KindUnknown, "creating catalog directory failed").AddError(err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return apperror.NewError(apperror.KindUnknown, "marshalling format catalog failed").AddError(err)
	}

	err = os.WriteFile(filepath.Clean(path), data, 0600)
	if err != nil {
		return apperror.NewError(apperror.KindUnknown, "writing format catalog failed").AddError(err)
	}
	return nil
}

// Validate compiles every format and checks that the default resolves
func (c *Catalog) Validate() error {
	for _, name := range c.Names() {
		if name == OSGi || name == Raw {
			return apperror.NewErrorf(apperror.KindInvalidArgument, "format name %q is reserved", name)
		}
		if name == "" {
			return apperror.NewError(apperror.KindInvalidArgument, "format name must not be empty")
		}

		_, err := version.Compile(c.Formats[name])
		if err != nil {
			return apperror.NewErrorf(apperror.KindInvalidArgument, "format %q does not compile", name).
				AddError(err).
				AddDetail("grammar", c.Formats[name])
		}
	}

	if c.Default != "" {
		if _, err := c.Lookup(c.Default); err != nil {
			return apperror.NewErrorf(apperror.KindInvalidArgument, "default format %q is not defined", c.Default).AddError(err)
		}
	}

	if c.Cache.Shards < 0 || c.Cache.GrowthThreshold < 0 {
		return apperror.NewError(apperror.KindInvalidArgument, "cache settings must not be negative")
	}
	return nil
}

// Names returns the custom format names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Formats))
	for name := range c.Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the format registered under name
func (c *Catalog) Lookup(name string) (*version.Format, error) {
	switch name {
	case OSGi:
		return version.OSGi, nil
	case Raw:
		return version.Raw, nil
	}

	grammar, ok := c.Formats[name]
	if !ok {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "unknown format %q", name)
	}
	f, err := version.Compile(grammar)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return f, nil
}

// Resolve returns the format for a name or a grammar text. An empty reference
// selects the default format, or OSGi if the catalog has none. A reference
// that names no format is compiled as grammar text.
func (c *Catalog) Resolve(ref string) (*version.Format, error) {
	if ref == "" {
		ref = c.Default
	}
	if ref == "" {
		return version.OSGi, nil
	}

	if _, ok := c.Formats[ref]; ok || ref == OSGi || ref == Raw {
		return c.Lookup(ref)
	}

	f, err := version.Compile(ref)
	if err != nil {
		return nil, apperror.NewErrorf(apperror.KindInvalidArgument, "%q is neither a known format nor a valid grammar", ref).AddError(err)
	}
	return f, nil
}

// Apply installs the cache settings of the catalog as the process-wide format cache
func (c *Catalog) Apply() {
	config := c.Cache
	if config.Shards == 0 {
		config.Shards = cache.DefaultConfig().Shards
	}
	if config.Name == "" {
		config.Name = cache.DefaultConfig().Name
	}
	version.ConfigureCache(config)
}
