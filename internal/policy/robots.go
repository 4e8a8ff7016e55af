package policy

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/benjaminestes/robots"
)

// RobotsGetter fetches a robots.txt URL and returns its status and body.
// A transport failure is reported through err.
type RobotsGetter func(ctx context.Context, robotsURL string) (status int, body []byte, err error)

// RobotsCache evaluates robots.txt rules, fetching each host's file once.
//
// A 4xx response means no rules apply. A transport failure or a 5xx response
// makes the file unreachable, and the unreachable policy decides.
type RobotsCache struct {
	get             RobotsGetter
	agent           string
	denyUnreachable bool
	logger          *slog.Logger

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

type robotsEntry struct {
	mu          sync.Mutex
	loaded      bool
	rules       *robots.Robots
	unreachable bool
}

// RobotsOption configures a RobotsCache.
type RobotsOption func(*RobotsCache)

// WithDenyUnreachable makes an unreachable robots.txt disallow every path.
func WithDenyUnreachable(deny bool) RobotsOption {
	return func(c *RobotsCache) {
		c.denyUnreachable = deny
	}
}

// WithRobotsLogger sets the logger.
func WithRobotsLogger(logger *slog.Logger) RobotsOption {
	return func(c *RobotsCache) {
		c.logger = logger
	}
}

// NewRobotsCache creates a cache that fetches files with get and evaluates
// rules for userAgent.
func NewRobotsCache(get RobotsGetter, userAgent string, opts ...RobotsOption) *RobotsCache {
	c := &RobotsCache{
		get:     get,
		agent:   productToken(userAgent),
		logger:  slog.Default(),
		entries: make(map[string]*robotsEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allowed reports whether rawURL may be fetched.
func (c *RobotsCache) Allowed(ctx context.Context, rawURL string) bool {
	robotsURL, err := robots.Locate(rawURL)
	if err != nil {
		return true
	}

	entry := c.entry(robotsURL)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.loaded {
		c.load(ctx, robotsURL, entry)
	}
	if entry.unreachable {
		return !c.denyUnreachable
	}
	if entry.rules == nil {
		return true
	}
	return c.test(entry.rules, rawURL)
}

func (c *RobotsCache) entry(robotsURL string) *robotsEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[robotsURL]
	if !ok {
		e = &robotsEntry{}
		c.entries[robotsURL] = e
	}
	return e
}

// load fills entry. A cancelled context leaves the entry unloaded so that a
// later call retries.
func (c *RobotsCache) load(ctx context.Context, robotsURL string, entry *robotsEntry) {
	entry.rules, entry.unreachable = nil, false

	status, body, err := c.get(ctx, robotsURL)
	if err != nil {
		if ctx.Err() != nil {
			entry.unreachable = true
			return
		}
		c.logger.Warn("robots.txt unreachable", "url", robotsURL, "error", err)
		entry.loaded, entry.unreachable = true, true
		return
	}
	entry.loaded = true

	if status >= 500 {
		c.logger.Warn("robots.txt unreachable", "url", robotsURL, "status", status)
		entry.unreachable = true
		return
	}
	if status >= 400 {
		return
	}

	entry.rules = c.parse(robotsURL, status, body)
}

func (c *RobotsCache) parse(robotsURL string, status int, body []byte) (rules *robots.Robots) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("panic in robots.txt parsing, assuming allowed", "url", robotsURL, "panic", r)
			rules = nil
		}
	}()

	var err error
	rules, err = robots.From(status, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("failed to parse robots.txt, assuming allowed", "url", robotsURL, "error", err)
		return nil
	}
	return rules
}

func (c *RobotsCache) test(rules *robots.Robots, rawURL string) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			allowed = true
		}
	}()
	return rules.Test(c.agent, rawURL)
}

// productToken returns the product name of a User-Agent header value,
// "docingest" for "docingest/1.0 (+https://...)".
func productToken(userAgent string) string {
	token := userAgent
	if idx := strings.IndexAny(token, "/ "); idx > 0 {
		token = token[:idx]
	}
	return token
}
