package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/docingest/internal/model"
)

// InsertJob stores a new crawl job.
func (cdb *CrawlDB) InsertJob(ctx context.Context, job *model.CrawlJob) error {
	errorsJSON, finishedAt, err := jobColumns(job)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO crawl_jobs (id, kb_id, start_url, config_snapshot, status,
		pages_fetched, pages_skipped, errors, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = cdb.db.ExecContext(ctx, cdb.rebind(query),
		job.ID,
		job.KBID,
		job.StartURL,
		job.ConfigSnapshot,
		job.Status.String(),
		job.PagesFetched,
		job.PagesSkipped,
		errorsJSON,
		formatTimestamp(job.StartedAt),
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert crawl job: %w", err)
	}
	return nil
}

// UpdateJob persists the status, counters and errors of job.
func (cdb *CrawlDB) UpdateJob(ctx context.Context, job *model.CrawlJob) error {
	errorsJSON, finishedAt, err := jobColumns(job)
	if err != nil {
		return err
	}

	query := `
	UPDATE crawl_jobs SET
		status = ?,
		pages_fetched = ?,
		pages_skipped = ?,
		errors = ?,
		finished_at = ?
	WHERE id = ?
	`
	result, err := cdb.db.ExecContext(ctx, cdb.rebind(query),
		job.Status.String(),
		job.PagesFetched,
		job.PagesSkipped,
		errorsJSON,
		finishedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update crawl job: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	return nil
}

func jobColumns(job *model.CrawlJob) (string, sql.NullString, error) {
	errs := job.Errors
	if errs == nil {
		errs = []model.CrawlError{}
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to serialize job errors: %w", err)
	}
	var finished sql.NullString
	if job.FinishedAt != nil {
		finished = sql.NullString{String: formatTimestamp(*job.FinishedAt), Valid: true}
	}
	return string(data), finished, nil
}

const jobSelect = `SELECT id, kb_id, start_url, config_snapshot, status,
	pages_fetched, pages_skipped, errors, started_at, finished_at FROM crawl_jobs`

// GetJob retrieves a crawl job by ID.
func (cdb *CrawlDB) GetJob(ctx context.Context, id string) (*model.CrawlJob, error) {
	job, err := scanJob(cdb.db.QueryRowContext(ctx, cdb.rebind(jobSelect+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl job: %w", err)
	}
	return job, nil
}

// ListJobs returns the jobs of a knowledge base, newest first.
func (cdb *CrawlDB) ListJobs(ctx context.Context, kbID string) ([]model.CrawlJob, error) {
	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(jobSelect+` WHERE kb_id = ? ORDER BY started_at DESC, id`), kbID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.CrawlJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*model.CrawlJob, error) {
	var job model.CrawlJob
	var status, errorsJSON, startedAt string
	var finishedAt sql.NullString
	err := row.Scan(
		&job.ID,
		&job.KBID,
		&job.StartURL,
		&job.ConfigSnapshot,
		&status,
		&job.PagesFetched,
		&job.PagesSkipped,
		&errorsJSON,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = model.ParseJobStatus(status)
	job.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		t := parseTimestamp(finishedAt.String)
		job.FinishedAt = &t
	}

	job.Errors = make([]model.CrawlError, 0)
	if errorsJSON != "" {
		if err := json.Unmarshal([]byte(errorsJSON), &job.Errors); err != nil {
			return nil, fmt.Errorf("failed to parse job errors: %w", err)
		}
	}
	return &job, nil
}
