// Package sqlitestore exports an aggregated report into SQLite for ad-hoc queries and dashboards.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

func InitDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("InitDB: path is empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("InitDB: open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		name           TEXT PRIMARY KEY,
		position       INTEGER NOT NULL,
		positive_count INTEGER NOT NULL DEFAULT 0,
		negative_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS entity_reviews (
		entity    TEXT NOT NULL REFERENCES entities(name),
		review_id INTEGER NOT NULL,
		sentiment TEXT NOT NULL CHECK (sentiment IN ('positive', 'negative')),
		PRIMARY KEY (entity, review_id, sentiment)
	);
	CREATE INDEX IF NOT EXISTS idx_entity_reviews_review ON entity_reviews(review_id);

	CREATE TABLE IF NOT EXISTS reviews (
		id   INTEGER PRIMARY KEY,
		text TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("InitDB: schema: %w", err)
	}
	return db, nil
}

// Export replaces the database contents with store (and the review texts of src, when non-nil)
// in one transaction.
func Export(ctx context.Context, db *sql.DB, store *analysis.Store, src *analysis.ReviewSource) error {
	if db == nil || store == nil {
		return errors.New("Export: db and store are required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Export: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"entity_reviews", "entities", "reviews"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("Export: clear %s: %w", table, err)
		}
	}

	entStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (name, position, positive_count, negative_count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("Export: prepare entities: %w", err)
	}
	defer entStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entity_reviews (entity, review_id, sentiment) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("Export: prepare entity_reviews: %w", err)
	}
	defer linkStmt.Close()

	for pos, e := range store.Entities() {
		if _, err := entStmt.ExecContext(ctx, e.Name, pos, e.PositiveCount(), e.NegativeCount()); err != nil {
			return fmt.Errorf("Export: insert entity %q: %w", e.Name, err)
		}
		for _, id := range e.Positive {
			if _, err := linkStmt.ExecContext(ctx, e.Name, id, string(analysis.Positive)); err != nil {
				return fmt.Errorf("Export: insert link: %w", err)
			}
		}
		for _, id := range e.Negative {
			if _, err := linkStmt.ExecContext(ctx, e.Name, id, string(analysis.Negative)); err != nil {
				return fmt.Errorf("Export: insert link: %w", err)
			}
		}
	}

	if src != nil {
		revStmt, err := tx.PrepareContext(ctx, `INSERT INTO reviews (id, text) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("Export: prepare reviews: %w", err)
		}
		defer revStmt.Close()
		for _, r := range src.Slice(0, src.Len()) {
			if _, err := revStmt.ExecContext(ctx, r.ID, r.Text); err != nil {
				return fmt.Errorf("Export: insert review %d: %w", r.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Export: commit: %w", err)
	}
	return nil
}

type EntityCount struct {
	Name     string
	Positive int
	Negative int
}

// TopEntities returns the n most mentioned entities (ties broken by vocabulary position).
func TopEntities(ctx context.Context, db *sql.DB, n int) ([]EntityCount, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT name, positive_count, negative_count FROM entities
		 ORDER BY positive_count + negative_count DESC, position
		 LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntityCount
	for rows.Next() {
		var e EntityCount
		if err := rows.Scan(&e.Name, &e.Positive, &e.Negative); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UnattendedReviewIDs returns exported reviews that no entity references.
func UnattendedReviewIDs(ctx context.Context, db *sql.DB) ([]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id FROM reviews r
		 WHERE NOT EXISTS (SELECT 1 FROM entity_reviews er WHERE er.review_id = r.id)
		 ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
