// Package config provides configuration structures and utilities for docingest.
// It defines the crawl limits, politeness settings, storage selection and
// report preferences of an ingest run, plus per-host overrides loaded from a
// YAML or TOML configuration file.
package config
