package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	// IndexPath is the well-known index location.
	IndexPath = "/llms.txt"

	// ExtendedIndexPath is the well-known location of the full-text variant.
	ExtendedIndexPath = "/llms-full.txt"

	// DefaultTimeout applies to each probe.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRedirects is the redirect cap for each probe.
	DefaultMaxRedirects = 3

	// MaxIndexSize is the exclusive size limit of an accepted index (10MB).
	MaxIndexSize = 10 * 1024 * 1024

	// DefaultUserAgent identifies discovery probes.
	DefaultUserAgent = "docingest (+https://github.com/nao1215/docingest)"
)

// Fetcher performs HTTP GETs. *fetch.HTTPFetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// Resolver probes an origin for an llms.txt index.
type Resolver struct {
	fetcher      Fetcher
	timeout      time.Duration
	maxRedirects int
	userAgent    string
	logger       *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxRedirects sets the per-probe redirect cap.
func WithMaxRedirects(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxRedirects = n
		}
	}
}

// WithUserAgent sets the User-Agent of every probe.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver.
func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:      fetcher,
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
		userAgent:    DefaultUserAgent,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Origin returns scheme://host[:port] of rawURL.
func Origin(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoHost, rawURL)
	}
	return &url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host)}, nil
}

// Resolve probes the origin of rawURL. Both index variants are requested
// concurrently. llms.txt wins when both are accepted; llms-full.txt is used
// alone when it is the only one published.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) model.DiscoveryResult {
	origin, err := Origin(rawURL)
	if err != nil {
		r.logger.Debug("discovery skipped", "url", rawURL, "error", err)
		return model.NotFound()
	}

	indexURL := origin.String() + IndexPath
	extendedURL := origin.String() + ExtendedIndexPath

	var indexText, extendedText string
	var g errgroup.Group
	g.Go(func() error {
		indexText = r.probe(ctx, indexURL)
		return nil
	})
	g.Go(func() error {
		extendedText = r.probe(ctx, extendedURL)
		return nil
	})
	_ = g.Wait()

	acceptedURL, acceptedText := indexURL, indexText
	if acceptedText == "" {
		acceptedURL, acceptedText = extendedURL, extendedText
	}
	if acceptedText == "" {
		r.logger.Debug("no llms.txt index", "origin", origin.String())
		return model.NotFound()
	}

	idx, err := Parse(acceptedText, origin)
	if err != nil {
		r.logger.Debug("llms.txt rejected", "url", acceptedURL, "error", err)
		return model.NotFound()
	}

	r.logger.Info("llms.txt discovered",
		"url", acceptedURL,
		"title", idx.Title,
		"sections", len(idx.Sections),
		"entries", len(idx.Entries),
	)

	return model.DiscoveryResult{
		Found:             true,
		IndexURL:          acceptedURL,
		IndexText:         acceptedText,
		ExtendedIndexText: extendedText,
		Title:             idx.Title,
		Summary:           idx.Summary,
		Sections:          idx.Sections,
		Entries:           idx.Entries,
	}
}

// probe returns the body of an acceptable index at target, or "".
func (r *Resolver) probe(ctx context.Context, target string) string {
	resp, err := r.fetcher.Fetch(ctx, fetch.Request{
		URL:          target,
		Timeout:      r.timeout,
		MaxRedirects: r.maxRedirects,
		UserAgent:    r.userAgent,
	})
	if err != nil {
		r.logger.Debug("index probe failed", "url", target, "error", err)
		return ""
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("index probe status", "url", target, "status", resp.StatusCode)
		return ""
	}
	if len(resp.Body) >= MaxIndexSize {
		r.logger.Debug("index too large", "url", target, "bytes", len(resp.Body))
		return ""
	}
	body := string(resp.Body)
	if !strings.HasPrefix(strings.TrimLeft(body, " \t\r\n\ufeff"), "# ") {
		r.logger.Debug("index does not start with a level-1 heading", "url", target)
		return ""
	}
	return body
}
