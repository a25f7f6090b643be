package filter

// Chain holds an ordered list of exclusion patterns. A path is excluded when
// any pattern matches it.
type Chain struct {
	patterns []*compiledPattern
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude adds an exclude rule for the given pattern.
func (c *Chain) AddExclude(pattern string) error {
	cp, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	c.patterns = append(c.patterns, cp)
	return nil
}

// Empty reports whether the chain has no patterns.
func (c *Chain) Empty() bool {
	return c == nil || len(c.patterns) == 0
}

// Patterns returns the source patterns in the order they were added.
func (c *Chain) Patterns() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.patterns))
	for i, cp := range c.patterns {
		out[i] = cp.original
	}
	return out
}

// Excluded reports whether path matches any pattern in the chain. The path is
// tested as given (normally absolute); a nil chain excludes nothing.
func (c *Chain) Excluded(path string) bool {
	if c == nil {
		return false
	}
	for _, cp := range c.patterns {
		if cp.match(path) {
			return true
		}
	}
	return false
}

// Match reports whether path matches any of patterns. Patterns that fail to
// compile never match.
func Match(path string, patterns []string) bool {
	for _, p := range patterns {
		cp, err := compilePattern(p)
		if err != nil {
			continue
		}
		if cp.match(path) {
			return true
		}
	}
	return false
}
