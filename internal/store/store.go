// Package store is the sqlite persistence gateway for the ingestion
// pipeline: run tracking, article content, and error logs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SourceName identifies the upstream news source on run records.
const SourceName = "news-search"

// RunStatus is the lifecycle state of a SourceFetchRun. Transitions are
// forward-only: started -> (fetched ->)? completed|error|partial_success.
type RunStatus string

const (
	StatusStarted        RunStatus = "started"
	StatusFetched        RunStatus = "fetched"
	StatusCompleted      RunStatus = "completed"
	StatusError          RunStatus = "error"
	StatusPartialSuccess RunStatus = "partial_success"
)

var statusRank = map[RunStatus]int{
	StatusStarted:        0,
	StatusFetched:        1,
	StatusCompleted:      2,
	StatusError:          2,
	StatusPartialSuccess: 2,
}

// IsTerminal reports whether the status ends a run's lifecycle.
func (s RunStatus) IsTerminal() bool {
	return statusRank[s] == 2
}

var (
	// ErrStatusRegression is returned when an update would move a run
	// backwards in its lifecycle.
	ErrStatusRegression = errors.New("run status may not regress")

	// ErrDuplicateSlug is returned when an article insert hits the slug
	// uniqueness constraint; the caller may regenerate the slug and retry.
	ErrDuplicateSlug = errors.New("duplicate article slug")
)

// Run is one tracked invocation of the ingestion step for a query.
type Run struct {
	ID                string
	Query             string
	Source            string
	Status            RunStatus
	CreatedAt         time.Time
	CompletedAt       *time.Time
	ArticlesGenerated *int
	Metadata          string
}

// Article is the persisted unit of content.
type Article struct {
	ID            int64
	Title         string
	Summary       string
	Content       string
	CoverImageURL string
	SourceURL     string
	Category      string
	Visible       bool
	Tags          []string
	ReadingTime   int
	Author        string
	Slug          string
	CreatedAt     time.Time
}

// ErrorLog is one recorded pipeline failure.
type ErrorLog struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Details   string
	CreatedAt time.Time
}

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer; avoids SQLITE_BUSY between scheduler and API triggers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run in the started state.
func (s *Store) CreateRun(ctx context.Context, query string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Query:     query,
		Source:    SourceName,
		Status:    StatusStarted,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_fetch_runs (id, query, source, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Query, run.Source, string(run.Status), run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return run, nil
}

// MarkFetched records that the source fetch succeeded with itemCount items.
func (s *Store) MarkFetched(ctx context.Context, runID string, itemCount int) error {
	metadata, _ := json.Marshal(map[string]int{"items_fetched": itemCount})
	return s.transition(ctx, runID, StatusFetched, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE source_fetch_runs SET status = ?, metadata = ? WHERE id = ?
		`, string(StatusFetched), string(metadata), runID)
		return err
	})
}

// CompleteRun moves a run to a terminal status with its article count and,
// for failures, an error message stored in the metadata.
func (s *Store) CompleteRun(ctx context.Context, runID string, status RunStatus, articles int, message string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	meta := map[string]any{}
	if message != "" {
		meta["error"] = message
	}
	metadata, _ := json.Marshal(meta)

	return s.transition(ctx, runID, status, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE source_fetch_runs
			SET status = ?, articles_generated = ?, completed_at = ?, metadata = ?
			WHERE id = ?
		`, string(status), articles, time.Now().UTC(), string(metadata), runID)
		return err
	})
}

// transition applies update after verifying the move is forward-only.
func (s *Store) transition(ctx context.Context, runID string, next RunStatus, update func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx,
		"SELECT status FROM source_fetch_runs WHERE id = ?", runID).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("run %s not found", runID)
		}
		return err
	}

	cur := RunStatus(current)
	if cur.IsTerminal() || statusRank[next] <= statusRank[cur] {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, cur, next)
	}

	if err := update(tx); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return tx.Commit()
}

// GetRun fetches a single run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, query, source, status, created_at, completed_at, articles_generated, metadata
		FROM source_fetch_runs WHERE id = ?
	`, runID)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, source, status, created_at, completed_at, articles_generated, metadata
		FROM source_fetch_runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var metadata sql.NullString
	var completedAt sql.NullTime
	var articles sql.NullInt64

	err := row.Scan(&run.ID, &run.Query, &run.Source, &status, &run.CreatedAt,
		&completedAt, &articles, &metadata)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Metadata = metadata.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if articles.Valid {
		n := int(articles.Int64)
		run.ArticlesGenerated = &n
	}
	return &run, nil
}

// InsertArticle persists one article. A slug uniqueness violation is
// reported as ErrDuplicateSlug so the caller can regenerate and retry.
func (s *Store) InsertArticle(ctx context.Context, a Article) error {
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles
			(title, summary, content, cover_image_url, source_url, category,
			 visible, tags, reading_time, author, slug)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Title, a.Summary, a.Content, a.CoverImageURL, a.SourceURL, a.Category,
		a.Visible, string(tags), a.ReadingTime, a.Author, a.Slug)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: articles.slug") {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, a.Slug)
		}
		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// ArticleCount returns the total number of stored articles.
func (s *Store) ArticleCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

// RunCount returns the total number of tracked runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM source_fetch_runs").Scan(&count)
	return count, err
}

// InsertErrorLog records one pipeline failure.
func (s *Store) InsertErrorLog(ctx context.Context, level, category, message string, details map[string]any) error {
	var detailsJSON string
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		detailsJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO error_logs (level, category, message, details) VALUES (?, ?, ?, ?)
	`, level, category, message, detailsJSON)
	if err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}
