package model

import "time"

// Ingest modes.
const (
	// ModeAuto tries discovery first and falls back to crawling.
	ModeAuto = "auto"
	// ModeLLMSTxt requires a published index.
	ModeLLMSTxt = "llms-txt"
	// ModeCrawl skips discovery.
	ModeCrawl = "crawl"
)

// KnowledgeBase is a documentation source that is ingested once and then updated.
type KnowledgeBase struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SourceURL string    `json:"source_url"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
