package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/docingest/internal/policy"
	"golang.org/x/net/proxy"
)

const (
	// DefaultMaxBodySize is used when no size cap is configured (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024

	// dialTimeout bounds TCP connection setup independently of the request timeout.
	dialTimeout = 10 * time.Second

	acceptHeader = "text/html,application/xhtml+xml,text/markdown;q=0.9,text/plain;q=0.8,*/*;q=0.5"
)

// Request describes one HTTP GET.
type Request struct {
	// URL is the absolute URL to fetch.
	URL string

	// Timeout bounds the whole request including redirects and body read.
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed before giving up.
	MaxRedirects int

	// UserAgent is sent as the User-Agent header.
	UserAgent string

	// ETag and LastModified make the request conditional.
	ETag         string
	LastModified string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FinalURL is the URL of the last request in the redirect chain.
	FinalURL string
}

// NotModified reports whether a conditional request found no change.
func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// ContentType returns the media type without parameters, lower-cased.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// HTTPFetcher performs guarded HTTP requests.
//
// Design decision: one transport is shared by every request so connections
// are pooled per host, while an http.Client is built per request because
// timeout and redirect cap are request parameters.
type HTTPFetcher struct {
	guard        *policy.Guard
	maxBodySize  int64
	proxyAddress string
	headerHost   string
	headers      map[string]string
	transport    http.RoundTripper
	logger       *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithGuard sets the SSRF guard. The default guard blocks private networks.
func WithGuard(guard *policy.Guard) Option {
	return func(f *HTTPFetcher) {
		f.guard = guard
	}
}

// WithMaxBodySize caps the number of bytes read from a response.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithProxy routes all connections through a SOCKS5 proxy at "host:port".
// DNS is then resolved by the proxy, so only the pre-request guard checks apply.
func WithProxy(address string) Option {
	return func(f *HTTPFetcher) {
		f.proxyAddress = address
	}
}

// WithHeaders adds headers to every request sent to host. Other hosts never
// see them, so credentials for one documentation site cannot leak to another.
func WithHeaders(host string, headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.headerHost = strings.ToLower(host)
		f.headers = headers
	}
}

// WithTransport replaces the base transport. Used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *HTTPFetcher) {
		f.transport = rt
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// New creates an HTTPFetcher.
func New(opts ...Option) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		guard:       policy.NewGuard(),
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.transport == nil {
		transport, err := f.newTransport()
		if err != nil {
			return nil, err
		}
		f.transport = transport
	}
	if len(f.headers) > 0 {
		f.transport = &headerInjectingTransport{
			base:    f.transport,
			host:    f.headerHost,
			headers: f.headers,
		}
	}
	return f, nil
}

func (f *HTTPFetcher) newTransport() (*http.Transport, error) {
	direct := &net.Dialer{Timeout: dialTimeout}
	if f.proxyAddress == "" {
		direct.Control = f.guard.Control
	}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           direct.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	if f.proxyAddress != "" {
		if _, _, err := net.SplitHostPort(f.proxyAddress); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyAddress, f.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", f.proxyAddress, nil, direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = contextDialer(dialer)
	}
	return transport, nil
}

// contextDialer adapts a proxy.Dialer. SOCKS5 dialers implement
// proxy.ContextDialer; the fallback gives up waiting on cancellation while
// the underlying dial may continue briefly.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, address)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Fetch performs a GET. Any HTTP response, including non-2xx, is returned
// without error; transport failures, guard rejections and oversized bodies
// return an *Error.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: err}
	}
	if err := f.guard.Check(ctx, target); err != nil {
		if errors.Is(err, policy.ErrBlocked) {
			return nil, &Error{Kind: KindBlocked, URL: req.URL, Err: err}
		}
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: err}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: err}
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}
	httpReq.Header.Set("Accept", acceptHeader)
	if req.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != "" {
		httpReq.Header.Set("If-Modified-Since", req.LastModified)
	}

	client := &http.Client{
		Transport:     f.transport,
		CheckRedirect: f.checkRedirect(req.MaxRedirects),
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, f.classify(req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, f.classify(req.URL, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &Error{
			Kind:       KindTooLarge,
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("body exceeds %d bytes", f.maxBodySize),
		}
	}

	f.logger.Debug("fetched", "url", req.URL, "status", resp.StatusCode, "bytes", len(body))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// checkRedirect enforces the redirect cap and re-checks every hop's URL.
// The hop's resolved address is checked again by the dialer.
func (f *HTTPFetcher) checkRedirect(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(next *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("%w: more than %d", ErrTooManyRedirects, maxRedirects)
		}
		return f.guard.CheckURL(next.URL)
	}
}

func (f *HTTPFetcher) classify(rawURL string, err error) *Error {
	switch {
	case errors.Is(err, policy.ErrBlocked):
		return &Error{Kind: KindBlocked, URL: rawURL, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindNetwork, URL: rawURL, Err: err}
}

// RobotsGetter adapts the fetcher to policy.RobotsGetter.
func (f *HTTPFetcher) RobotsGetter(userAgent string, timeout time.Duration, maxRedirects int) policy.RobotsGetter {
	return func(ctx context.Context, robotsURL string) (int, []byte, error) {
		resp, err := f.Fetch(ctx, Request{
			URL:          robotsURL,
			Timeout:      timeout,
			MaxRedirects: maxRedirects,
			UserAgent:    userAgent,
		})
		if err != nil {
			return 0, nil, err
		}
		return resp.StatusCode, resp.Body, nil
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers into every request sent to one host.
type headerInjectingTransport struct {
	base    http.RoundTripper
	host    string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.host != "" && !strings.EqualFold(req.URL.Host, t.host) {
		return t.base.RoundTrip(req)
	}

	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if strings.EqualFold(key, "Cookie") {
			if existing := clone.Header.Get("Cookie"); existing != "" {
				clone.Header.Set("Cookie", existing+"; "+value)
				continue
			}
		}
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
