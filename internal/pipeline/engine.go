package pipeline

import (
	"encoding/json"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/policy"
)

// NewSpider builds the crawler for one run from cfg.
//
// Conditional fetch is enabled for updates unless cfg.Force is set. Resume
// only applies to adds: an update must revisit every stored page.
func NewSpider(cfg *config.Config, deps Dependencies, update bool) *crawler.Spider {
	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithMaxRedirects(cfg.MaxRedirects),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithIncludePatterns(cfg.IncludePatterns),
		crawler.WithExcludePatterns(cfg.ExcludePatterns),
		crawler.WithConditionalFetch(update && !cfg.Force),
		crawler.WithResume(cfg.Resume && !update),
		crawler.WithSinks(deps.Sinks...),
		crawler.WithObservers(deps.Observers...),
	}
	if deps.Guard != nil {
		opts = append(opts, crawler.WithGuard(deps.Guard))
	} else {
		opts = append(opts, crawler.WithGuard(policy.NewGuard(policy.WithAllowPrivate(cfg.AllowPrivateNetworks))))
	}
	if cfg.RespectRobots && deps.Fetcher != nil {
		robots := policy.NewRobotsCache(
			deps.Fetcher.RobotsGetter(cfg.UserAgent, cfg.Timeout, cfg.MaxRedirects),
			cfg.UserAgent,
			policy.WithDenyUnreachable(cfg.RobotsUnreachable == config.RobotsDeny),
		)
		opts = append(opts, crawler.WithRobots(robots))
	}
	if deps.Progress != nil {
		opts = append(opts, crawler.WithProgress(deps.Progress))
	}
	if deps.Logger != nil {
		opts = append(opts, crawler.WithLogger(deps.Logger))
	}
	if snapshot, err := json.Marshal(snapshotOf(cfg)); err == nil {
		opts = append(opts, crawler.WithConfigSnapshot(string(snapshot)))
	}
	return crawler.NewSpider(deps.Fetcher, deps.Store, opts...)
}

// snapshotOf is the subset of cfg recorded on every job. Headers and
// connection strings are left out.
func snapshotOf(cfg *config.Config) any {
	return struct {
		Mode              string   `json:"mode"`
		MaxDepth          int      `json:"max_depth"`
		MaxPages          int      `json:"max_pages"`
		Concurrency       int      `json:"concurrency"`
		CrawlDelay        string   `json:"crawl_delay"`
		Timeout           string   `json:"timeout"`
		UserAgent         string   `json:"user_agent"`
		Include           []string `json:"include,omitempty"`
		Exclude           []string `json:"exclude,omitempty"`
		RespectRobots     bool     `json:"respect_robots"`
		RobotsUnreachable string   `json:"robots_unreachable"`
		Force             bool     `json:"force,omitempty"`
		Prune             bool     `json:"prune,omitempty"`
	}{
		Mode:              cfg.Mode,
		MaxDepth:          cfg.MaxDepth,
		MaxPages:          cfg.MaxPages,
		Concurrency:       cfg.Concurrency,
		CrawlDelay:        cfg.CrawlDelay.String(),
		Timeout:           cfg.Timeout.String(),
		UserAgent:         cfg.UserAgent,
		Include:           cfg.IncludePatterns,
		Exclude:           cfg.ExcludePatterns,
		RespectRobots:     cfg.RespectRobots,
		RobotsUnreachable: cfg.RobotsUnreachable,
		Force:             cfg.Force,
		Prune:             cfg.Prune,
	}
}
