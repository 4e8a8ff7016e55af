package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled glob matched against URL paths.
//
// Syntax: "**" matches any run of characters including '/', "*" matches
// within one path segment and "?" matches a single character. Everything
// else is literal. The whole path must match.
type Pattern struct {
	glob string
	re   *regexp.Regexp
}

// CompilePattern compiles a glob.
func CompilePattern(glob string) (*Pattern, error) {
	if glob == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, glob, err)
	}
	return &Pattern{glob: glob, re: re}, nil
}

// Match reports whether path matches the pattern.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

// String returns the source glob.
func (p *Pattern) String() string {
	return p.glob
}

func compilePatterns(globs []string) ([]*Pattern, error) {
	patterns := make([]*Pattern, 0, len(globs))
	for _, g := range globs {
		p, err := CompilePattern(g)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}
