package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valentin-kaiser/omniversion/version"
)

func TestSegmentOrder(t *testing.T) {
	ascending := []version.Segment{
		version.MinValue,
		version.Text(""),
		version.Text("a"),
		version.Text("b"),
		version.MaxStringValue,
		version.Nested(version.NewVector([]version.Segment{version.Int(1)}, version.Segment{})),
		version.Nested(version.NewVector([]version.Segment{version.Int(2)}, version.Segment{})),
		version.Int(-1),
		version.Int(0),
		version.Int(10),
		version.MaxValue,
	}

	for i := range ascending {
		for j := range ascending {
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			assert.Equal(t, want, ascending[i].Compare(ascending[j]), "%s vs %s", ascending[i], ascending[j])
		}
	}
}

func TestSegmentAccessors(t *testing.T) {
	n, ok := version.Int(7).Integer()
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = version.Int(7).Text()
	assert.False(t, ok)

	s, ok := version.Text("rc").Text()
	assert.True(t, ok)
	assert.Equal(t, "rc", s)

	v, ok := version.Nested(nil).Vector()
	assert.True(t, ok)
	assert.Equal(t, 0, v.Len())

	assert.True(t, version.Segment{}.IsZero())
	assert.Equal(t, version.KindMax, version.MaxValue.Kind())
}

func TestVectorCompare(t *testing.T) {
	short := version.NewVector([]version.Segment{version.Int(1), version.Int(2)}, version.Segment{})
	long := version.NewVector([]version.Segment{version.Int(1), version.Int(2), version.Int(3)}, version.Segment{})
	padded := version.NewVector([]version.Segment{version.Int(1), version.Int(2)}, version.Int(3))

	assert.Equal(t, -1, short.Compare(long))
	assert.Equal(t, 1, long.Compare(short))
	assert.True(t, padded.Equal(long))
	assert.True(t, long.Equal(padded))
	assert.Equal(t, padded.Hash(), long.Hash())

	maxed := version.NewVector([]version.Segment{version.Int(1)}, version.MaxValue)
	assert.Equal(t, 1, maxed.Compare(long))
}

func TestVectorString(t *testing.T) {
	inner := version.NewVector([]version.Segment{version.Int(2)}, version.Int(0))
	v := version.NewVector([]version.Segment{
		version.Int(1),
		version.Text("a"),
		version.Nested(inner),
		version.MinValue,
		version.MaxStringValue,
	}, version.MaxValue)

	assert.Equal(t, "1.'a'.<2p0>.-M.mpM", v.String())

	pad, ok := v.Pad()
	require.True(t, ok)
	assert.Equal(t, version.MaxValue, pad)
	assert.Equal(t, 5, v.Len())
	assert.True(t, v.At(9).IsZero())
}

func TestVectorStringQuoting(t *testing.T) {
	tests := []struct {
		text      string
		rangeSafe bool
		want      string
	}{
		{"abc", false, "'abc'"},
		{"it's", false, `"it's"`},
		{`say "it's"`, false, `'say "it\'s"'`},
		{`a\b`, false, `'a\\b'`},
		{"a b,c", false, "'a b,c'"},
		{"a b,c", true, `'a\ b\,c'`},
		{"[1)", true, `'\[1\)'`},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			var b strings.Builder
			version.NewVector([]version.Segment{version.Text(tc.text)}, version.Segment{}).AppendTo(&b, tc.rangeSafe)
			assert.Equal(t, tc.want, b.String())
		})
	}
}

func TestVectorStringRoundTrip(t *testing.T) {
	inputs := []string{
		"1.2.3",
		"1.'a'.<2.3>pM",
		"'it\\'s'.-M.m",
		`"don't"`,
		"<1.<2p0>>.3p'x'",
		"p4",
		"p'x'",
		"pM",
		"<p0>.1",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			v, err := version.Parse("raw:" + in)
			require.NoError(t, err)

			again, err := version.Parse("raw:" + v.Vector().String())
			require.NoError(t, err)
			assert.True(t, v.Equal(again))
			assert.Equal(t, v.Vector().String(), again.Vector().String())
		})
	}
}

func TestRawPadOnly(t *testing.T) {
	tests := []struct {
		input  string
		vector string
		length int
	}{
		{"raw:p4", "p4", 0},
		{"raw:p'x'", "p'x'", 0},
		{"raw:pm", "pm", 0},
		{"raw:<p4>", "<p4>", 1},
		{"raw:pre", "'pre'", 1},
		{"raw:p4a", "'p4a'", 1},
		{"raw:pMx", "'pMx'", 1},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			v, err := version.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.vector, v.Vector().String())
			assert.Equal(t, tc.length, v.Vector().Len())
		})
	}

	v, err := version.MustCompile("n?p").Parse("p4")
	require.NoError(t, err)
	assert.Equal(t, "raw:p4/format(n?p):p4", v.String())

	again, err := version.Parse(v.String())
	require.NoError(t, err)
	assert.True(t, v.Equal(again))
	assert.Equal(t, v.String(), again.String())
}
