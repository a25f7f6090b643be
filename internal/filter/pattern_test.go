package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternTable(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.log", "/var/app.log", true},
		{"*.log", "/var/app.log.bak", false},
		{"*", "/anything/at/all", true},
		{"/src/*", "/src/a/b/c", true},
		{"/src/?.txt", "/src/a.txt", true},
		{"/src/?.txt", "/src/ab.txt", false},
		{"?", "/", true},
		{"/src/[abc].txt", "/src/b.txt", true},
		{"/src/[abc].txt", "/src/d.txt", false},
		{"/src/[!abc].txt", "/src/d.txt", true},
		{"/src/[!abc].txt", "/src/a.txt", false},
		{"/src/[a-c]*", "/src/cat", true},
		{"/src/[]]x", "/src/]x", true},
		{"/src/[^]x", "/src/^x", true},
		{"/src/[unterminated", "/src/[unterminated", true},
		{"/src/a+b(1).txt", "/src/a+b(1).txt", true},
		{"/src/a.txt", "/src/aXtxt", false},
		{"**.go", "/x/y/z.go", true},
		{"*\n*", "/a\n/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			p, err := compilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.match(tt.path))
		})
	}
}

func TestPatternMatchesWholePath(t *testing.T) {
	p, err := compilePattern("a.txt")
	require.NoError(t, err)

	assert.True(t, p.match("a.txt"))
	assert.False(t, p.match("/src/a.txt"))
}

func TestEscape(t *testing.T) {
	raw := "/vol/[old]*backup?"
	assert.Equal(t, "/vol/[[]old][*]backup[?]", Escape(raw))

	p, err := compilePattern(Escape(raw))
	require.NoError(t, err)
	assert.True(t, p.match(raw))
	assert.False(t, p.match("/vol/o*backupX"))

	p, err = compilePattern(Escape(raw) + "/*")
	require.NoError(t, err)
	assert.True(t, p.match(raw+"/job.db"))
}

func TestPatternNonASCII(t *testing.T) {
	p, err := compilePattern("*/Résumé ?.pdf")
	require.NoError(t, err)
	assert.True(t, p.match("/src/docs/Résumé 2.pdf"))
	assert.True(t, p.match("/src/docs/Résumé é.pdf"))
	assert.False(t, p.match("/src/docs/Resume 2.pdf"))
}
