package database

import (
	"errors"
	"fmt"

	"github.com/nao1215/docingest/internal/model"
)

var (
	// ErrKBNotFound is returned when no knowledge base has the requested ID.
	// It wraps model.ErrNotFound.
	ErrKBNotFound = fmt.Errorf("knowledge base %w", model.ErrNotFound)

	// ErrPageNotFound is returned by page lookups that match nothing.
	// It wraps model.ErrNotFound.
	ErrPageNotFound = fmt.Errorf("page %w", model.ErrNotFound)

	// ErrJobNotFound is returned when no crawl job has the requested ID.
	// It wraps model.ErrNotFound.
	ErrJobNotFound = fmt.Errorf("crawl job %w", model.ErrNotFound)

	// ErrDatabaseNotFound is returned by Open when CreateIfNotExists is false
	// and the database file is missing.
	ErrDatabaseNotFound = errors.New("database not found")
)
