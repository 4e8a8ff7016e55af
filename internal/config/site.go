package config

import "maps"

// SiteConfig holds host-specific configuration.
// This allows customizing crawl behavior per documentation site.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this host,
	// for example an Authorization header for private documentation.
	Headers map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty"`

	// Depth overrides the global maximum depth for this host.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty" toml:"depth,omitempty"`

	// MaxPages overrides the global page cap for this host.
	MaxPages int `yaml:"maxPages,omitempty" toml:"maxPages,omitempty"`

	// Delay overrides the per-host request spacing, e.g. "500ms".
	Delay string `yaml:"delay,omitempty" toml:"delay,omitempty"`

	// Include are glob patterns a URL path must match to be crawled.
	Include []string `yaml:"include,omitempty" toml:"include,omitempty"`

	// Exclude are glob patterns that reject a URL path.
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`

	// RespectRobots overrides robots.txt handling when set.
	RespectRobots *bool `yaml:"respectRobots,omitempty" toml:"respectRobots,omitempty"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver,omitempty" toml:"driver,omitempty"`

	// DSN is the PostgreSQL connection string, or the directory of the SQLite
	// database. The --data-dir flag takes precedence for SQLite.
	DSN string `yaml:"dsn,omitempty" toml:"dsn,omitempty"`
}

// KafkaConfig configures the page event publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty" toml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty" toml:"topic,omitempty"`
}

// Enabled reports whether events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// Neo4jConfig configures the link graph writer.
type Neo4jConfig struct {
	URI      string `yaml:"uri,omitempty" toml:"uri,omitempty"`
	Username string `yaml:"username,omitempty" toml:"username,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty"`
}

// Enabled reports whether the link graph should be written.
func (n Neo4jConfig) Enabled() bool {
	return n.URI != ""
}

// RedisConfig configures the job status mirror.
type RedisConfig struct {
	Addr   string `yaml:"addr,omitempty" toml:"addr,omitempty"`
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	// TTL is how long a mirrored status is kept, e.g. "24h". Empty keeps it forever.
	TTL string `yaml:"ttl,omitempty" toml:"ttl,omitempty"`
}

// Enabled reports whether job status should be mirrored.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// SinksConfig groups the optional downstream sinks.
type SinksConfig struct {
	Kafka KafkaConfig `yaml:"kafka,omitempty" toml:"kafka,omitempty"`
	Neo4j Neo4jConfig `yaml:"neo4j,omitempty" toml:"neo4j,omitempty"`
	Redis RedisConfig `yaml:"redis,omitempty" toml:"redis,omitempty"`
}

// File represents the structure of the .docingest configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are host names with an optional port (e.g., "docs.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty" toml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all hosts
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty" toml:"defaults,omitempty"`

	// Storage selects the database.
	Storage StorageConfig `yaml:"storage,omitempty" toml:"storage,omitempty"`

	// Sinks configures optional downstream consumers.
	Sinks SinksConfig `yaml:"sinks,omitempty" toml:"sinks,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// SiteFor returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) SiteFor(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.Delay != "" {
		result.Delay = siteConfig.Delay
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.Include) > 0 {
		result.Include = siteConfig.Include
	}
	if len(siteConfig.Exclude) > 0 {
		result.Exclude = siteConfig.Exclude
	}
	if siteConfig.RespectRobots != nil {
		result.RespectRobots = siteConfig.RespectRobots
	}
	return result
}

// Validate checks the parts of the file that cannot be checked per target.
func (cf *File) Validate() error {
	switch cf.Storage.Driver {
	case "", "sqlite", "postgres":
	default:
		return ErrInvalidStorageDriver
	}
	return nil
}
