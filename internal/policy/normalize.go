package policy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// normalizeFlags makes equivalent documentation URLs compare equal.
// Trailing slashes are kept: many doc generators serve /guide and /guide/
// as different documents.
const normalizeFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveFragment |
	purell.FlagDecodeUnnecessaryEscapes |
	purell.FlagSortQuery |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveDotSegments

// Normalize parses rawURL and returns its canonical form.
// Only absolute URLs are accepted.
func Normalize(rawURL string) (string, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return "", err
	}
	return NormalizeURL(u), nil
}

// Parse parses an absolute URL.
func Parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s: not absolute", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// NormalizeURL returns the canonical form of u without modifying it.
// An empty path becomes "/".
func NormalizeURL(u *url.URL) string {
	c := *u
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return purell.NormalizeURL(&c, normalizeFlags)
}

// Resolve resolves href against base and returns the normalized result.
func Resolve(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidURL, href, err)
	}
	resolved := base.ResolveReference(ref)
	normalized, err := url.Parse(NormalizeURL(resolved))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidURL, href, err)
	}
	return normalized, nil
}
