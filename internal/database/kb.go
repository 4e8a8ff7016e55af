package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/docingest/internal/model"
)

// UpsertKB inserts kb or updates the knowledge base with the same ID.
// An empty ID is filled with a new UUID; zero timestamps are set to now.
func (cdb *CrawlDB) UpsertKB(ctx context.Context, kb *model.KnowledgeBase) error {
	now := time.Now().UTC()
	if kb.ID == "" {
		kb.ID = uuid.NewString()
	}
	if kb.CreatedAt.IsZero() {
		kb.CreatedAt = now
	}
	kb.UpdatedAt = now

	query := `
	INSERT INTO knowledge_bases (id, name, source_url, mode, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		source_url = excluded.source_url,
		mode = excluded.mode,
		updated_at = excluded.updated_at
	`
	_, err := cdb.db.ExecContext(ctx, cdb.rebind(query),
		kb.ID,
		kb.Name,
		kb.SourceURL,
		kb.Mode,
		formatTimestamp(kb.CreatedAt),
		formatTimestamp(kb.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge base: %w", err)
	}
	return nil
}

const kbColumns = `id, name, source_url, mode, created_at, updated_at`

// GetKB retrieves a knowledge base by ID.
func (cdb *CrawlDB) GetKB(ctx context.Context, id string) (*model.KnowledgeBase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_bases WHERE id = ?`
	kb, err := scanKB(cdb.db.QueryRowContext(ctx, cdb.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrKBNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}
	return kb, nil
}

// FindKBBySource returns the most recently updated knowledge base ingested
// from sourceURL.
func (cdb *CrawlDB) FindKBBySource(ctx context.Context, sourceURL string) (*model.KnowledgeBase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_bases WHERE source_url = ? ORDER BY updated_at DESC LIMIT 1`
	kb, err := scanKB(cdb.db.QueryRowContext(ctx, cdb.rebind(query), sourceURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: source %s", ErrKBNotFound, sourceURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find knowledge base: %w", err)
	}
	return kb, nil
}

// ListKBs returns every knowledge base ordered by name.
func (cdb *CrawlDB) ListKBs(ctx context.Context) ([]model.KnowledgeBase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_bases ORDER BY name, id`
	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	defer rows.Close()

	kbs := make([]model.KnowledgeBase, 0)
	for rows.Next() {
		kb, err := scanKB(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
		}
		kbs = append(kbs, *kb)
	}
	return kbs, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanKB(row rowScanner) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	var createdAt, updatedAt string
	if err := row.Scan(&kb.ID, &kb.Name, &kb.SourceURL, &kb.Mode, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	kb.CreatedAt = parseTimestamp(createdAt)
	kb.UpdatedAt = parseTimestamp(updatedAt)
	return &kb, nil
}
