package policy

import (
	"net/url"
	"strings"
)

// Scope decides whether a URL belongs to the crawl.
//
// Rules, in order:
//  1. the scheme is http or https and the host is one of the seed hosts
//  2. a path matching any exclude pattern is rejected
//  3. when include patterns are configured, the path must match one of them
//  4. otherwise the path must start with the seed's directory
//
// The seed directory is the seed path up to and including its last '/', so
// seeding https://docs.example.com/v2/intro keeps the crawl under /v2/.
type Scope struct {
	hosts   map[string]bool
	prefix  string
	include []*Pattern
	exclude []*Pattern
}

// NewScope returns the scope of a crawl started from seed.
func NewScope(seed *url.URL, include, exclude []string) (*Scope, error) {
	s, err := newScope(include, exclude)
	if err != nil {
		return nil, err
	}
	s.hosts[strings.ToLower(seed.Host)] = true
	s.prefix = seedDirectory(seed.Path)
	return s, nil
}

// NewSeedScope returns the scope of a crawl seeded from an index. Every seed
// host is allowed and the path prefix rule is disabled, since index entries
// routinely live outside the directory of the index itself.
func NewSeedScope(seeds []*url.URL, include, exclude []string) (*Scope, error) {
	s, err := newScope(include, exclude)
	if err != nil {
		return nil, err
	}
	for _, u := range seeds {
		s.hosts[strings.ToLower(u.Host)] = true
	}
	return s, nil
}

func newScope(include, exclude []string) (*Scope, error) {
	inc, err := compilePatterns(include)
	if err != nil {
		return nil, err
	}
	exc, err := compilePatterns(exclude)
	if err != nil {
		return nil, err
	}
	return &Scope{hosts: make(map[string]bool), include: inc, exclude: exc}, nil
}

// Allows reports whether u is in scope.
func (s *Scope) Allows(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !s.hosts[strings.ToLower(u.Host)] {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.exclude {
		if pattern.Match(p) {
			return false
		}
	}
	if len(s.include) > 0 {
		for _, pattern := range s.include {
			if pattern.Match(p) {
				return true
			}
		}
		return false
	}
	return strings.HasPrefix(p, s.prefix)
}

// SameHost reports whether u is on one of the scope's hosts.
func (s *Scope) SameHost(u *url.URL) bool {
	return s.hosts[strings.ToLower(u.Host)]
}

func seedDirectory(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "/"
	}
	return p[:idx+1]
}
