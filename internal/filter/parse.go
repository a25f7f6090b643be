package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadFile adds the patterns listed in the file at path; "-" reads them
// from standard input.
func (c *Chain) LoadFile(path string) error {
	if path == "-" {
		return c.Load(os.Stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()
	return c.Load(f, path)
}

// Load reads one pattern per line from r. Blank lines and lines starting
// with '#' are skipped, and an rsync-style "- " prefix is accepted. name
// labels errors. Nothing is added if any line fails to compile.
func (c *Chain) Load(r io.Reader, name string) error {
	var added []*compiledPattern
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			line = strings.TrimSpace(rest)
		}
		cp, err := compilePattern(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", name, n, err)
		}
		added = append(added, cp)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	c.patterns = append(c.patterns, added...)
	return nil
}
