package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// compiledPattern is a shell glob compiled to an anchored regular expression.
type compiledPattern struct {
	re       *regexp.Regexp
	original string
}

// compilePattern converts a shell glob into a matcher over the whole path.
// Unlike rsync-style patterns, * and ? also match the path separator, so
// "*.log" excludes every .log file at any depth and "*cache*" prunes any
// path containing "cache".
func compilePattern(pattern string) (*compiledPattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty exclude pattern")
	}
	re, err := regexp.Compile("^(?s:" + globToRegex(pattern) + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &compiledPattern{re: re, original: pattern}, nil
}

func (cp *compiledPattern) match(path string) bool {
	return cp.re.MatchString(path)
}

// globToRegex converts a glob pattern to a regex string.
//
//nolint:gocyclo,revive // cognitive-complexity: character-by-character glob parser
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			// Collapse runs of stars.
			for i < len(pattern) && pattern[i] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
			i++
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				// Unterminated class is a literal bracket.
				b.WriteString(`\[`)
				i++
				continue
			}
			cls := pattern[i+1 : j]
			neg := strings.HasPrefix(cls, "!")
			if neg {
				cls = cls[1:]
			}
			cls = strings.ReplaceAll(cls, `\`, `\\`)
			cls = strings.ReplaceAll(cls, "[", `\[`)
			cls = strings.ReplaceAll(cls, "]", `\]`)
			if strings.HasPrefix(cls, "^") {
				cls = `\` + cls
			}
			b.WriteByte('[')
			if neg {
				b.WriteByte('^')
			}
			b.WriteString(cls)
			b.WriteByte(']')
			i = j + 1
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
			i++
		}
	}
	return b.String()
}

// Escape quotes the glob metacharacters in s so that it matches only itself.
func Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
