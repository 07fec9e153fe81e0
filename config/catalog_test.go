package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/cache"
	"github.com/valentin-kaiser/omniversion/config"
	"github.com/valentin-kaiser/omniversion/version"
)

const catalogYAML = `
default: calendar
formats:
  calendar: "n={4};.n={2};.n={2};"
  dashed: "n(-n)*"
cache:
  shards: 8
  growth_threshold: 64
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := config.Path(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := config.Load(writeCatalog(t, catalogYAML))
	require.NoError(t, err)

	assert.Equal(t, "calendar", c.Default)
	assert.Equal(t, []string{"calendar", "dashed"}, c.Names())
	assert.Equal(t, 8, c.Cache.Shards)
	assert.Equal(t, int64(64), c.Cache.GrowthThreshold)

	f, err := c.Resolve("")
	require.NoError(t, err)
	v, err := f.Parse("2024.01.15")
	require.NoError(t, err)
	assert.Equal(t, "raw:2024.1.15/format(n={4};.n={2};.n={2};):2024.01.15", v.String())
}

func TestLoadMissingFile(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, c.Default)
	assert.Empty(t, c.Formats)
	assert.Equal(t, cache.DefaultConfig(), c.Cache)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"grammar", "formats:\n  broken: \"(n\"\n"},
		{"default", "default: nothing\n"},
		{"reserved", "formats:\n  osgi: \"n\"\n"},
		{"unknown field", "colour: blue\n"},
		{"negative cache", "cache:\n  shards: -1\n"},
		{"yaml", "formats: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := config.Load(writeCatalog(t, tc.content))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, apperror.ErrInvalidArgument), "unexpected error kind: %v", err)
		})
	}
}

func TestResolve(t *testing.T) {
	c := config.Default()
	c.Formats["dashed"] = "n(-n)*"

	f, err := c.Resolve("")
	require.NoError(t, err)
	assert.Same(t, version.OSGi, f)

	f, err = c.Resolve(config.Raw)
	require.NoError(t, err)
	assert.Same(t, version.Raw, f)

	f, err = c.Resolve("dashed")
	require.NoError(t, err)
	assert.Equal(t, "n(-n)*", f.Canonical())

	f, err = c.Resolve("n.n")
	require.NoError(t, err)
	assert.Equal(t, "n.n", f.Canonical())

	_, err = c.Resolve("nothing")
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
	assert.True(t, errors.Is(err, apperror.ErrFormat))

	_, err = c.Lookup("n.n")
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
}

func TestWrite(t *testing.T) {
	c := config.Default()
	c.Formats["dashed"] = "n(-n)*"
	path := filepath.Join(t.TempDir(), "nested", config.FileName)

	require.NoError(t, config.Write(path, c))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Formats, loaded.Formats)
	assert.Equal(t, c.Default, loaded.Default)

	c.Formats["broken"] = "(n"
	assert.Error(t, config.Write(path, c))
	assert.Error(t, config.Write(path, nil))
}

func TestApply(t *testing.T) {
	t.Cleanup(func() { version.ConfigureCache(cache.DefaultConfig()) })

	c := config.Default()
	c.Cache = cache.Config{GrowthThreshold: 10}
	c.Apply()

	f, err := version.Compile(version.OSGiGrammar)
	require.NoError(t, err)
	assert.Same(t, version.OSGi, f)
}

func TestWatch(t *testing.T) {
	config.Debounce = 50 * time.Millisecond
	path := writeCatalog(t, "default: osgi\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mutex sync.Mutex
	var reloaded *config.Catalog
	require.NoError(t, config.Watch(ctx, path, func(c *config.Catalog) {
		mutex.Lock()
		reloaded = c
		mutex.Unlock()
	}))

	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0600))

	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return reloaded != nil && reloaded.Default == "calendar"
	}, 5*time.Second, 20*time.Millisecond)
}
