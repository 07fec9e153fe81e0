package version_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/version"
	"gopkg.in/yaml.v2"
)

func TestCompileCanonical(t *testing.T) {
	tests := []struct {
		grammar   string
		canonical string
	}{
		{"n.n", "n.n"},
		{"(n.n)", "n.n"},
		{"((n))", "n"},
		{"n(.n)*", "n(.n)*"},
		{"n(.n){0,1}", "n[.n]"},
		{"n(.n){1,}", "n(.n)+"},
		{"n(.n){0,}", "n(.n)*"},
		{"n(.n){2,}", "n(.n){2,}"},
		{"n(.n){2,4}", "n(.n){2,4}"},
		{"n{1}", "n"},
		{"s=[a-cb-e];", "s=[a-e];"},
		{"S=[^a-z];", "S=[^a-z];"},
		{"S=[\\]\\-];", "S=[\\-\\]];"},
		{"n={1,};", "n={1,};"},
		{"n={2,2};", "n={2};"},
		{"n={1,3};", "n={1,3};"},
		{"'ab'n", "'ab'n"},
		{"'.'n", ".n"},
		{"\\vn", "\\vn"},
		{"n=0;+", "n=0;+"},
		{"q=abc;", "q='abc';"},
		{"r=M;", "r=M;"},
		{"<n.n>=p0;", "<n.n>=p0;"},
		{"(n)=pM;", "(n)=pM;"},
		{"(n)=p1;?", "[n]=p1;"},
		{"n=!;.n", "n=!;.n"},
		{"a=[a-z];={2,5};", "a=[a-z];={2,5};"},
		{"n={1,2};=[0-5];", "n=[0-5];={1,2};"},
		{version.RawGrammar, "r(.r)*p?"},
		{version.OSGiGrammar, "n[.n=0;[.n=0;[.S=[\\-0-9A-Z_a-z];]]]"},
	}

	for _, tc := range tests {
		t.Run(tc.grammar, func(t *testing.T) {
			f, err := version.Compile(tc.grammar)
			require.NoError(t, err)
			assert.Equal(t, tc.canonical, f.Canonical())
			assert.Equal(t, "format("+tc.canonical+")", f.String())

			again, err := version.Compile(f.Canonical())
			require.NoError(t, err)
			assert.Same(t, f, again)
		})
	}
}

func TestCompileInterning(t *testing.T) {
	a, err := version.Compile("n.n")
	require.NoError(t, err)
	b, err := version.Compile("n.n")
	require.NoError(t, err)
	c, err := version.Compile("(n.n)")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, a, c)
	assert.True(t, a.Equal(c))
	assert.Equal(t, a.String(), b.String())

	va, err := a.Parse("1.2")
	require.NoError(t, err)
	vb, err := b.Parse("1.2")
	require.NoError(t, err)
	assert.True(t, va.Equal(vb))
}

func TestCompilePredefined(t *testing.T) {
	osgi, err := version.Compile(version.OSGiGrammar)
	require.NoError(t, err)
	assert.Same(t, version.OSGi, osgi)
	assert.True(t, osgi.IsOSGi())
	assert.False(t, osgi.IsRaw())

	osgi, err = version.Compile(version.OSGi.Canonical())
	require.NoError(t, err)
	assert.Same(t, version.OSGi, osgi)

	raw, err := version.Compile("(r(.r)*p?)")
	require.NoError(t, err)
	assert.Same(t, version.Raw, raw)
	assert.True(t, raw.IsRaw())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		grammar string
	}{
		{"empty", ""},
		{"unterminated group", "(n"},
		{"unterminated array", "<n"},
		{"unterminated optional", "[n"},
		{"unbalanced", "n)"},
		{"empty group", "()"},
		{"empty array", "<>"},
		{"empty optional", "[]"},
		{"bare letter", "x"},
		{"bare digit", "1"},
		{"bare qualifier", "?"},
		{"bare brace", "}"},
		{"empty literal", "''"},
		{"unterminated literal", "'ab"},
		{"dangling escape", "n\\"},
		{"pad on number", "n=p1;"},
		{"pad on string", "s=p1;"},
		{"pad on raw", "r=p1;"},
		{"pad on auto", "a=p1;"},
		{"pad on quoted", "q=p1;"},
		{"class on array", "<n>=[a];"},
		{"range on delimiter", "d={1};"},
		{"default on delimiter", "d=0;"},
		{"ignore on delimiter", "d=!;"},
		{"pad on delimiter", "d=p0;"},
		{"instruction on literal", ".=!;"},
		{"ignore with default", "n=!;=0;"},
		{"ignore with class", "s=[a];=!;"},
		{"duplicate default", "n=0;=1;"},
		{"duplicate class", "s=[a];=[b];"},
		{"duplicate range", "n={1};={2};"},
		{"duplicate ignore", "(n)=!;=!;"},
		{"duplicate pad", "(n)=p1;=p2;"},
		{"finite range with pad", "(n)=p1;={1,2};"},
		{"finite array range with pad", "<n>={3};=p0;"},
		{"negative range", "s=[z-a];"},
		{"empty class", "s=[];"},
		{"unterminated class", "s=[a-z"},
		{"unterminated instruction", "n=0"},
		{"zero range", "n={0};"},
		{"inverted range", "n={3,2};"},
		{"zero qualifier", "n{0}"},
		{"inverted qualifier", "n{3,2}"},
		{"missing bound", "n{,2}"},
		{"qualifier on optional group", "[n]?"},
		{"bad default", "n=?;"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := version.Compile(tc.grammar)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, apperror.ErrFormat), "unexpected error kind: %v", err)
			assert.Equal(t, apperror.KindFormat, apperror.KindOf(err))
		})
	}
}

func TestCompileErrorDetails(t *testing.T) {
	_, err := version.Compile("(n")
	require.Error(t, err)

	var e apperror.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 2, e.GetDetail("position"))
	assert.Equal(t, "')'", e.GetDetail("expected"))
	assert.Equal(t, "(n", e.GetDetail("format"))
	assert.Contains(t, err.Error(), "')'")

	_, err = version.Compile("n=0;=1;")
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 4, e.GetDetail("position"))
	assert.Contains(t, err.Error(), "duplicate default")
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { version.MustCompile("(") })
	assert.NotPanics(t, func() { version.MustCompile("n") })
}

func TestFormatMarshalling(t *testing.T) {
	f := version.MustCompile("n(.n)*")

	text, err := f.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "format(n(.n)*)", string(text))

	var decoded version.Format
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, f.Equal(&decoded))

	require.NoError(t, decoded.UnmarshalText([]byte("n.n")))
	assert.Equal(t, "n.n", decoded.Canonical())

	type document struct {
		Format *version.Format `yaml:"format"`
	}
	out, err := yaml.Marshal(document{Format: version.OSGi})
	require.NoError(t, err)

	var doc document
	require.NoError(t, yaml.Unmarshal(out, &doc))
	require.NotNil(t, doc.Format)
	assert.True(t, doc.Format.IsOSGi())
	assert.True(t, doc.Format.Equal(version.OSGi))

	assert.Error(t, yaml.Unmarshal([]byte("format: '(n'"), &doc))
}
