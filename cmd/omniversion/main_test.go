package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/cache"
	"github.com/valentin-kaiser/omniversion/config"
	"github.com/valentin-kaiser/omniversion/version"
)

func testOptions(t *testing.T, catalog string) options {
	t.Helper()
	t.Cleanup(func() { version.ConfigureCache(cache.DefaultConfig()) })

	path := config.Path(t.TempDir())
	if catalog != "" {
		require.NoError(t, os.WriteFile(path, []byte(catalog), 0600))
	}
	return options{catalog: path}
}

func runCommand(t *testing.T, opts options, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), opts, args, &out)
	return out.String(), err
}

func TestCompileCommand(t *testing.T) {
	out, err := runCommand(t, testOptions(t, ""), "compile", "(n(.n){0,1})")
	require.NoError(t, err)
	assert.Equal(t, "n[.n]\n", out)

	_, err = runCommand(t, testOptions(t, ""), "compile", "(n")
	assert.True(t, errors.Is(err, apperror.ErrFormat))
}

func TestParseCommand(t *testing.T) {
	opts := testOptions(t, "")
	out, err := runCommand(t, opts, "parse", "1.2.3", "raw:1.'a'", "format(n-n):1-2")
	require.NoError(t, err)
	assert.Equal(t, "raw:1.2.3\nraw:1.'a'\nraw:1.2/format(n-n):1-2\n", out)

	opts.format = "osgi"
	out, err = runCommand(t, opts, "parse", "1.2", "3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0\n3.0.0\n", out)

	opts.format = "S"
	opts.rangeSafe = true
	out, err = runCommand(t, opts, "parse", "a,b")
	require.NoError(t, err)
	assert.Equal(t, `raw:'a\,b'/format(S):a\,b`+"\n", out)

	opts = testOptions(t, "")
	_, err = runCommand(t, opts, "parse", "1.2", "1..2")
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
}

func TestCatalogFormats(t *testing.T) {
	opts := testOptions(t, "default: dashed\nformats:\n  dashed: \"n(-n)*\"\n")

	out, err := runCommand(t, opts, "parse", "1-2-3")
	require.NoError(t, err)
	assert.Equal(t, "raw:1.2.3/format(n(-n)*):1-2-3\n", out)

	out, err = runCommand(t, opts, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "osgi\t"+version.OSGi.Canonical())
	assert.Contains(t, out, "raw\tr(.r)*p?")
	assert.Contains(t, out, "dashed (default)\tn(-n)*")

	_, err = runCommand(t, testOptions(t, "formats:\n  bad: \"(\"\n"), "formats")
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
}

func TestCompareCommand(t *testing.T) {
	opts := testOptions(t, "")
	opts.format = "osgi"

	out, err := runCommand(t, opts, "compare", "1.2", "1.10")
	require.NoError(t, err)
	assert.Equal(t, "-1\n", out)

	out, err = runCommand(t, opts, "compare", "1.0.0", "1")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, err = runCommand(t, opts, "compare", "1")
	assert.Error(t, err)
}

func TestSortCommand(t *testing.T) {
	opts := testOptions(t, "")
	opts.format = "osgi"

	out, err := runCommand(t, opts, "sort", "2.0", "1.10", "1.2.3.b", "1.2.3", "1.2")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0\n1.2.3\n1.2.3.b\n1.10.0\n2.0.0\n", out)
}

func TestValidateCommand(t *testing.T) {
	opts := testOptions(t, "")

	out, err := runCommand(t, opts, "validate", "raw:1.2.3", "raw:1.2")
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
	assert.Contains(t, out, "raw:1.2.3: ok\n")
	assert.Contains(t, out, "raw:1.2: ")

	out, err = runCommand(t, opts, "validate", "raw:1.2.3.'x'")
	require.NoError(t, err)
	assert.Equal(t, "raw:1.2.3.'x': ok\n", out)
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCommand(t, testOptions(t, ""), "explode")
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))

	_, err = runCommand(t, testOptions(t, ""))
	assert.Error(t, err)
}

func TestWatchCommandStops(t *testing.T) {
	opts := testOptions(t, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(opts.catalog), 0750))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	assert.NoError(t, execute(ctx, opts, []string{"watch"}, &out))
}
