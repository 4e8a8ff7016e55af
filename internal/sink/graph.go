package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nao1215/docingest/internal/model"
)

// SessionRunner abstracts neo4j.SessionWithContext.
type SessionRunner interface {
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error)
	Close(ctx context.Context) error
}

// DriverSessioner abstracts neo4j.DriverWithContext.
type DriverSessioner interface {
	NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner
	Close(ctx context.Context) error
}

// txRunner is the part of neo4j.ManagedTransaction the writer uses.
type txRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
}

type neo4jDriver struct {
	driver neo4j.DriverWithContext
}

func (d *neo4jDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner {
	return d.driver.NewSession(ctx, config)
}

func (d *neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// GraphWriter mirrors pages and links into Neo4j:
//
//	(:KnowledgeBase {id})-[:CONTAINS]->(:Page {kb_id, url})
//	(:Page)-[:LINKS_TO {kind: "internal"}]->(:Page)
//	(:Page)-[:LINKS_TO {kind: "external"}]->(:External {url})
//
// Anchor links are not mirrored. The outbound links of a page are replaced
// on every event, matching the database.
type GraphWriter struct {
	driver DriverSessioner
	logger *slog.Logger
}

// NewGraphWriter connects to Neo4j with basic auth.
func NewGraphWriter(uri, username, password string) (*GraphWriter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return NewGraphWriterWithDriver(&neo4jDriver{driver: driver}), nil
}

// NewGraphWriterWithDriver builds a writer on a custom driver (tests).
func NewGraphWriterWithDriver(driver DriverSessioner) *GraphWriter {
	return &GraphWriter{driver: driver, logger: slog.Default()}
}

// Close closes the driver.
func (w *GraphWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

// PageStored writes the page node and replaces its outbound links.
func (w *GraphWriter) PageStored(ctx context.Context, event model.PageEvent) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(ctx); err != nil {
			w.logger.Warn("neo4j session close error", "error", err)
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, writePage(ctx, tx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to write page graph: %w", err)
	}
	return nil
}

const (
	pageQuery = "MERGE (k:KnowledgeBase {id: $kb_id}) " +
		"MERGE (p:Page {kb_id: $kb_id, url: $url}) " +
		"SET p.title = $title, p.stable_path = $stable_path, p.content_hash = $content_hash, " +
		"p.adapter = $adapter, p.fetched_at = $fetched_at " +
		"MERGE (k)-[:CONTAINS]->(p) " +
		"WITH p " +
		"OPTIONAL MATCH (p)-[old:LINKS_TO]->() " +
		"DELETE old"

	internalLinksQuery = "MATCH (p:Page {kb_id: $kb_id, url: $url}) " +
		"UNWIND $targets AS target " +
		"MERGE (t:Page {kb_id: $kb_id, url: target}) " +
		"MERGE (p)-[:LINKS_TO {kind: 'internal'}]->(t)"

	externalLinksQuery = "MATCH (p:Page {kb_id: $kb_id, url: $url}) " +
		"UNWIND $targets AS target " +
		"MERGE (t:External {url: target}) " +
		"MERGE (p)-[:LINKS_TO {kind: 'external'}]->(t)"
)

// writePage runs the page statements inside one transaction.
func writePage(ctx context.Context, tx txRunner, event model.PageEvent) error {
	if _, err := tx.Run(ctx, pageQuery, pageParams(event)); err != nil {
		return err
	}

	internal, external := splitLinks(event.Links)
	for _, batch := range []struct {
		query   string
		targets []string
	}{
		{internalLinksQuery, internal},
		{externalLinksQuery, external},
	} {
		if len(batch.targets) == 0 {
			continue
		}
		params := map[string]any{"kb_id": event.KBID, "url": event.URL, "targets": batch.targets}
		if _, err := tx.Run(ctx, batch.query, params); err != nil {
			return err
		}
	}
	return nil
}

func pageParams(event model.PageEvent) map[string]any {
	return map[string]any{
		"kb_id":        event.KBID,
		"url":          event.URL,
		"title":        event.Title,
		"stable_path":  event.StablePath,
		"content_hash": event.ContentHash,
		"adapter":      event.AdapterName,
		"fetched_at":   event.FetchedAt.UTC().Format(time.RFC3339),
	}
}

// splitLinks returns the deduplicated internal and external link targets.
func splitLinks(links []model.LinkRecord) (internal, external []string) {
	seen := make(map[string]bool, len(links))
	internal = make([]string, 0, len(links))
	external = make([]string, 0)
	for _, l := range links {
		key := string(l.Kind) + " " + l.ToURL
		if seen[key] {
			continue
		}
		seen[key] = true
		switch l.Kind {
		case model.LinkInternal:
			internal = append(internal, l.ToURL)
		case model.LinkExternal:
			external = append(external, l.ToURL)
		}
	}
	return internal, external
}
