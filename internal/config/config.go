package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/docingest/internal/model"
)

// Default configuration values.
// These values follow common documentation-site characteristics: sites are
// shallow, hosted on shared infrastructure and rarely need more than a few
// concurrent requests.
const (
	// DefaultMode tries the llms.txt index first and falls back to crawling.
	DefaultMode = model.ModeAuto

	// DefaultMaxDepth of 3 reaches every page of a typical sidebar-driven site
	// from its landing page.
	DefaultMaxDepth = 3

	// DefaultMaxPages caps a single job. Large references can raise it via --max-pages.
	DefaultMaxPages = 1000

	// DefaultConcurrency is the number of in-flight fetches per job.
	DefaultConcurrency = 5

	// DefaultCrawlDelay is the minimum spacing between two requests to one host.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultTimeout applies to every page request. A timeout is recorded as a
	// per-URL error and never aborts the job.
	DefaultTimeout = 30 * time.Second

	// DefaultDiscoveryTimeout applies to each llms.txt probe.
	DefaultDiscoveryTimeout = 10 * time.Second

	// DefaultMaxRedirects is the redirect cap for page requests.
	DefaultMaxRedirects = 5

	// DefaultDiscoveryMaxRedirects is the redirect cap for index probes.
	DefaultDiscoveryMaxRedirects = 3

	// DefaultMaxBodySize limits the bytes read from one response (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultBatchSize is the number of sources ingested concurrently by `add`.
	DefaultBatchSize = 2

	// DefaultRobotsUnreachable keeps crawling when robots.txt cannot be fetched.
	DefaultRobotsUnreachable = RobotsAllow

	// AppName is the application name used for XDG directory paths.
	AppName = "docingest"

	// DefaultUserAgent identifies docingest in HTTP requests. The CLI replaces
	// it with one tagged with its build version.
	DefaultUserAgent = "docingest (+https://github.com/nao1215/docingest)"
)

// Robots-unreachable policies.
const (
	// RobotsAllow crawls a host whose robots.txt is unreachable.
	RobotsAllow = "allow"
	// RobotsDeny skips every page of a host whose robots.txt is unreachable.
	RobotsDeny = "deny"
)

// Config holds all configuration options for an ingest run.
// It is populated from CLI flags and the configuration file, validated once,
// and then treated as immutable by every component it is passed to.
//
// Design decision: We keep a single flat struct, as the number of options is
// manageable. Per-host overrides live in File and are merged by ForTarget.
type Config struct {
	// Mode selects between discovery and crawling: auto, llms-txt or crawl.
	Mode string

	// MaxDepth is the maximum link distance from a seed. Depth 0 fetches only seeds.
	MaxDepth int

	// MaxPages is the maximum number of pages fetched by one job.
	MaxPages int

	// Concurrency is the number of in-flight fetches per job.
	Concurrency int

	// CrawlDelay is the minimum spacing between requests to the same host.
	CrawlDelay time.Duration

	// Timeout is the per-request timeout for page fetches.
	Timeout time.Duration

	// DiscoveryTimeout is the per-request timeout for llms.txt probes.
	DiscoveryTimeout time.Duration

	// MaxRedirects is the redirect cap for page fetches.
	MaxRedirects int

	// DiscoveryMaxRedirects is the redirect cap for llms.txt probes.
	DiscoveryMaxRedirects int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum number of bytes read from one response.
	MaxBodySize int64

	// IncludePatterns are glob patterns a URL path must match (any of them).
	IncludePatterns []string

	// ExcludePatterns are glob patterns that reject a URL path.
	ExcludePatterns []string

	// RespectRobots enables robots.txt checks.
	RespectRobots bool

	// RobotsUnreachable decides what happens when robots.txt cannot be fetched:
	// RobotsAllow or RobotsDeny.
	RobotsUnreachable string

	// AllowPrivateNetworks lets the crawler reach loopback and private
	// addresses. Scheme restrictions still apply. Intended for local mirrors.
	AllowPrivateNetworks bool

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Headers are extra request headers, usually set per host in the config file.
	Headers map[string]string

	// KBID forces the knowledge base identifier. Only valid with a single target.
	KBID string

	// KBName is a human-readable name for a new knowledge base.
	KBName string

	// Targets are source URLs for add, or knowledge base IDs for update.
	Targets []string

	// Resume continues an interrupted crawl instead of starting over.
	Resume bool

	// Prune deletes pages that disappeared from the source during update.
	Prune bool

	// Force treats every surviving page as changed during update.
	Force bool

	// BatchSize is the number of sources ingested concurrently.
	BatchSize int

	// Verbose enables debug logging and per-page progress lines.
	Verbose bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// File holds the loaded configuration file. Never nil after buildConfig.
	File *File

	// JSONReport and MarkdownReport select the report format. They are
	// mutually exclusive; the default is a human-readable summary.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory of the SQLite database.
	DBDir string

	// DatabaseURL selects PostgreSQL storage when set.
	DatabaseURL string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Mode:                  DefaultMode,
		MaxDepth:              DefaultMaxDepth,
		MaxPages:              DefaultMaxPages,
		Concurrency:           DefaultConcurrency,
		CrawlDelay:            DefaultCrawlDelay,
		Timeout:               DefaultTimeout,
		DiscoveryTimeout:      DefaultDiscoveryTimeout,
		MaxRedirects:          DefaultMaxRedirects,
		DiscoveryMaxRedirects: DefaultDiscoveryMaxRedirects,
		UserAgent:             DefaultUserAgent,
		MaxBodySize:           DefaultMaxBodySize,
		RespectRobots:         true,
		RobotsUnreachable:     DefaultRobotsUnreachable,
		BatchSize:             DefaultBatchSize,
		File:                  NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for docingest.
// On Linux: ~/.local/share/docingest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docingest.
// On Linux: ~/.config/docingest
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for docingest.
// On Linux: ~/.cache/docingest
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// validModes lists the accepted ingest modes.
var validModes = []string{model.ModeAuto, model.ModeLLMSTxt, model.ModeCrawl}

// Validate checks if the configuration is valid and returns the first problem found.
//
// Design decision: We validate once after flag parsing, before any network
// activity, so that contradictions surface as setup errors and no job is started.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if !slices.Contains(validModes, c.Mode) {
		return ErrInvalidMode
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.Timeout <= 0 || c.DiscoveryTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects < 0 || c.DiscoveryMaxRedirects < 0 {
		return ErrInvalidRedirects
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RobotsUnreachable != RobotsAllow && c.RobotsUnreachable != RobotsDeny {
		return ErrInvalidRobotsPolicy
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.KBID != "" && len(c.Targets) > 1 {
		return ErrKBIDWithManyTargets
	}
	if c.Prune && c.Resume {
		return ErrConflictingRunFlags
	}
	if c.ProxyAddress != "" && !isValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}
	return nil
}

// ForTarget returns a copy of c with the configuration-file overrides for the
// host of target applied. Targets that are not URLs get the file defaults.
func (c *Config) ForTarget(target string) (*Config, error) {
	out := *c
	out.Headers = make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		out.Headers[k] = v
	}
	out.IncludePatterns = slices.Clone(c.IncludePatterns)
	out.ExcludePatterns = slices.Clone(c.ExcludePatterns)

	if c.File == nil {
		return &out, nil
	}

	host := ""
	if u, err := url.Parse(target); err == nil {
		host = strings.ToLower(u.Host)
	}
	if err := out.applySite(c.File.SiteFor(host)); err != nil {
		return nil, err
	}
	return &out, nil
}

// applySite overrides c with the non-zero values of site.
func (c *Config) applySite(site SiteConfig) error {
	if site.Depth > 0 {
		c.MaxDepth = site.Depth
	}
	if site.MaxPages > 0 {
		c.MaxPages = site.MaxPages
	}
	if site.Delay != "" {
		d, err := time.ParseDuration(site.Delay)
		if err != nil {
			return ErrInvalidCrawlDelay
		}
		c.CrawlDelay = d
	}
	if len(site.Include) > 0 {
		c.IncludePatterns = slices.Clone(site.Include)
	}
	if len(site.Exclude) > 0 {
		c.ExcludePatterns = slices.Clone(site.Exclude)
	}
	if site.RespectRobots != nil {
		c.RespectRobots = *site.RespectRobots
	}
	for k, v := range site.Headers {
		c.Headers[k] = v
	}
	return nil
}

// isValidProxyAddress checks for a "host:port" address with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	idx := strings.LastIndex(address, ":")
	if idx <= 0 || idx == len(address)-1 {
		return false
	}

	portNum := 0
	for _, c := range address[idx+1:] {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}
	return portNum >= 1
}
