package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nao1215/docingest/internal/model"
)

// UpsertPage inserts page or overwrites the page with the same (kb, url).
// page.ID is set to the persisted identifier, which survives overwrites.
func (cdb *CrawlDB) UpsertPage(ctx context.Context, page *model.PageRecord) error {
	id := page.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
	INSERT INTO pages (id, kb_id, url, stable_path, title, content_hash, fetched_at,
		status_code, content_length, adapter_name, depth, etag, last_modified)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(kb_id, url) DO UPDATE SET
		stable_path = excluded.stable_path,
		title = excluded.title,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at,
		status_code = excluded.status_code,
		content_length = excluded.content_length,
		adapter_name = excluded.adapter_name,
		depth = excluded.depth,
		etag = excluded.etag,
		last_modified = excluded.last_modified
	RETURNING id
	`
	err := cdb.db.QueryRowContext(ctx, cdb.rebind(query),
		id,
		page.KBID,
		page.URL,
		page.StablePath,
		page.Title,
		page.ContentHash,
		formatTimestamp(page.FetchedAt),
		page.StatusCode,
		page.ContentLength,
		page.AdapterName,
		page.Depth,
		page.ETag,
		page.LastModified,
	).Scan(&page.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

const pageColumns = `id, kb_id, url, stable_path, title, content_hash, fetched_at,
	status_code, content_length, adapter_name, depth, etag, last_modified`

// GetPageByPath returns the page of the knowledge base that owns path.
// It returns an error wrapping model.ErrNotFound when none does.
func (cdb *CrawlDB) GetPageByPath(ctx context.Context, kbID, path string) (*model.PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE kb_id = ? AND stable_path = ?`
	return cdb.getPage(ctx, query, kbID, path)
}

// GetPageByURL returns the page of the knowledge base stored under url.
func (cdb *CrawlDB) GetPageByURL(ctx context.Context, kbID, url string) (*model.PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE kb_id = ? AND url = ?`
	return cdb.getPage(ctx, query, kbID, url)
}

func (cdb *CrawlDB) getPage(ctx context.Context, query string, args ...any) (*model.PageRecord, error) {
	page, err := scanPage(cdb.db.QueryRowContext(ctx, cdb.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// ListPages returns every page of the knowledge base ordered by URL.
func (cdb *CrawlDB) ListPages(ctx context.Context, kbID string) ([]model.PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE kb_id = ? ORDER BY url`
	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(query), kbID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.PageRecord, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// PageHashes returns the url to content hash map of the knowledge base.
func (cdb *CrawlDB) PageHashes(ctx context.Context, kbID string) (map[string]string, error) {
	pages, err := cdb.ListPages(ctx, kbID)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(pages))
	for _, p := range pages {
		hashes[p.URL] = p.ContentHash
	}
	return hashes, nil
}

// DeletePage removes the page stored under url together with its links.
// Deleting a missing page returns ErrPageNotFound.
func (cdb *CrawlDB) DeletePage(ctx context.Context, kbID, url string) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, cdb.rebind(`SELECT id FROM pages WHERE kb_id = ? AND url = ?`), kbID, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find page: %w", err)
	}

	if _, err := tx.ExecContext(ctx, cdb.rebind(`DELETE FROM links WHERE from_page_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, cdb.rebind(`DELETE FROM pages WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return tx.Commit()
}

func scanPage(row rowScanner) (*model.PageRecord, error) {
	var p model.PageRecord
	var fetchedAt string
	err := row.Scan(
		&p.ID,
		&p.KBID,
		&p.URL,
		&p.StablePath,
		&p.Title,
		&p.ContentHash,
		&fetchedAt,
		&p.StatusCode,
		&p.ContentLength,
		&p.AdapterName,
		&p.Depth,
		&p.ETag,
		&p.LastModified,
	)
	if err != nil {
		return nil, err
	}
	p.FetchedAt = parseTimestamp(fetchedAt)
	return &p, nil
}

// InsertLink stores one outbound link.
func (cdb *CrawlDB) InsertLink(ctx context.Context, link model.LinkRecord) error {
	query := `INSERT INTO links (from_page_id, to_url, kind) VALUES (?, ?, ?)`
	if _, err := cdb.db.ExecContext(ctx, cdb.rebind(query), link.FromPageID, link.ToURL, string(link.Kind)); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// DeleteLinks removes every outbound link of a page.
func (cdb *CrawlDB) DeleteLinks(ctx context.Context, fromPageID string) error {
	if _, err := cdb.db.ExecContext(ctx, cdb.rebind(`DELETE FROM links WHERE from_page_id = ?`), fromPageID); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	return nil
}

// ListLinks returns the outbound links of a page in insertion order.
func (cdb *CrawlDB) ListLinks(ctx context.Context, fromPageID string) ([]model.LinkRecord, error) {
	query := `SELECT from_page_id, to_url, kind FROM links WHERE from_page_id = ? ORDER BY id`
	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(query), fromPageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]model.LinkRecord, 0)
	for rows.Next() {
		var l model.LinkRecord
		var kind string
		if err := rows.Scan(&l.FromPageID, &l.ToURL, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		l.Kind = model.LinkKind(kind)
		links = append(links, l)
	}
	return links, rows.Err()
}
