package version_test

import (
	"testing"

	"github.com/valentin-kaiser/omniversion/version"
)

func BenchmarkCompile(b *testing.B) {
	grammars := []string{
		"n.n",
		"n(.n)*[-S]",
		version.OSGiGrammar,
		"<n.n>=p0;.n",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = version.Compile(grammars[i%len(grammars)])
	}
}

func BenchmarkParseOSGi(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = version.ParseOSGiCompatible("1.2.3.v20240101")
	}
}

func BenchmarkParseRaw(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = version.Parse("raw:1.'a'.<2.3>pM")
	}
}

func BenchmarkParseFormat(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = version.Parse("format(n(.n)*[-S]):1.2.3-beta")
	}
}

func BenchmarkBacktracking(b *testing.B) {
	f := version.MustCompile("n={1};*n={2};")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Parse("12345678")
	}
}

func BenchmarkCompare(b *testing.B) {
	v1 := version.MustParse("raw:1.2.3.'beta'")
	v2 := version.MustParse("raw:1.2p3")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v1.Compare(v2)
	}
}

func BenchmarkString(b *testing.B) {
	v := version.MustParse("format(n(.n)*[-S]):1.2.3-beta")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.String()
	}
}
