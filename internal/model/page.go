package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PageRecord is one stored page of a knowledge base.
//
// Uniqueness: (KBID, URL) and (KBID, StablePath) are each unique. A re-fetch
// overwrites the record instead of adding a new one.
type PageRecord struct {
	// ID identifies the page (UUID). It survives overwrites.
	ID string `json:"id"`

	// KBID is the owning knowledge base.
	KBID string `json:"kb_id"`

	// URL is the normalized URL the page was fetched from.
	URL string `json:"url"`

	// StablePath is the filesystem-friendly identifier derived from URL.
	StablePath string `json:"stable_path"`

	// Title is the page title reported by the adapter.
	Title string `json:"title"`

	// ContentHash is the hex SHA-256 of the clean content.
	ContentHash string `json:"content_hash"`

	// FetchedAt is the time of the last successful fetch.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP status of the last fetch.
	StatusCode int `json:"status_code"`

	// ContentLength is the size of the fetched body in bytes.
	ContentLength int64 `json:"content_length"`

	// AdapterName names the adapter that extracted the content.
	AdapterName string `json:"adapter_name"`

	// Depth is the frontier depth the page was discovered at. Resumed runs
	// continue expansion from here.
	Depth int `json:"depth"`

	// ETag and LastModified are validators for conditional re-fetches.
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// LinkKind classifies an outbound link.
type LinkKind string

// Link kinds.
const (
	// LinkInternal points to another page on the same host.
	LinkInternal LinkKind = "internal"
	// LinkExternal points to a different host.
	LinkExternal LinkKind = "external"
	// LinkAnchor points to a fragment of the same page.
	LinkAnchor LinkKind = "anchor"
)

// LinkRecord is an outbound link of a stored page. Links of a page are
// regenerated whenever the page is re-fetched.
type LinkRecord struct {
	FromPageID string   `json:"from_page_id"`
	ToURL      string   `json:"to_url"`
	Kind       LinkKind `json:"kind"`
}

// ContentHash returns the hex SHA-256 digest of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// pageSuffixes are stripped from the last path segment when deriving a stable path.
var pageSuffixes = []string{".html", ".htm", ".md"}

// StablePath derives a deterministic, filesystem-friendly path from a page URL.
//
// The leading and trailing slashes are trimmed, a trailing .html/.htm/.md
// suffix is removed, accented characters are folded to ASCII and whitespace
// becomes '-'. The site root maps to "index".
//
// Examples:
//   - https://docs.example.com/guide/intro.html -> guide/intro
//   - https://docs.example.com/ -> index
//   - https://docs.example.com/café/ -> cafe
func StablePath(u *url.URL) string {
	p := strings.Trim(u.Path, "/")
	for _, suffix := range pageSuffixes {
		if strings.HasSuffix(strings.ToLower(p), suffix) {
			p = p[:len(p)-len(suffix)]
			break
		}
	}
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return "index"
	}

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		seg = foldASCII(seg)
		seg = strings.Join(strings.Fields(seg), "-")
		segments[i] = seg
	}
	return strings.Join(segments, "/")
}

// Slugify lower-cases s, folds accents and joins alphanumeric runs with '-'.
// It is used for heading-derived table of contents paths.
func Slugify(s string) string {
	folded := strings.ToLower(foldASCII(s))

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// foldASCII removes combining marks after NFD decomposition ("é" -> "e").
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
