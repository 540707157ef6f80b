// Package store persists lesson analyses in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lesson-insights-api/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var ErrNotFound = errors.New("lesson analysis not found")

// LessonAnalysis is one uploaded lesson and, once finished, its results.
type LessonAnalysis struct {
	Job          string    `json:"job"`
	FileName     string    `json:"file_name"`
	AudioHash    string    `json:"audio_hash"`
	LanguageCode string    `json:"language_code"`
	Status       string    `json:"status"`
	Transcript   string    `json:"transcript,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Insights     string    `json:"insights,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully")

	return &Store{db: db, logger: logger}, nil
}

// CreateSchema creates the lesson_analyses table and its indexes if missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lesson_analyses (
			id SERIAL PRIMARY KEY,
			job VARCHAR(64) NOT NULL UNIQUE,
			file_name VARCHAR(255) NOT NULL,
			audio_hash CHAR(64) NOT NULL,
			language_code VARCHAR(35) NOT NULL,
			status VARCHAR(16) NOT NULL,
			transcript TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			insights TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create lesson_analyses table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_lesson_hash_lang ON lesson_analyses(audio_hash, language_code);
		CREATE INDEX IF NOT EXISTS idx_lesson_created_at ON lesson_analyses(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	s.logger.Info("Database schema created successfully")
	return nil
}

// Save inserts a, or overwrites the stored row with the same job.
func (s *Store) Save(ctx context.Context, a *LessonAnalysis) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lesson_analyses
			(job, file_name, audio_hash, language_code, status, transcript, summary, insights, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job) DO UPDATE SET
			status = EXCLUDED.status,
			transcript = EXCLUDED.transcript,
			summary = EXCLUDED.summary,
			insights = EXCLUDED.insights,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`, a.Job, a.FileName, a.AudioHash, a.LanguageCode, a.Status,
		a.Transcript, a.Summary, a.Insights, a.Error, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save lesson %s: %w", a.Job, err)
	}
	return nil
}

const selectColumns = `job, file_name, audio_hash, language_code, status, transcript, summary, insights, error, created_at, updated_at`

func scanAnalysis(row interface{ Scan(...any) error }) (*LessonAnalysis, error) {
	var a LessonAnalysis
	err := row.Scan(&a.Job, &a.FileName, &a.AudioHash, &a.LanguageCode, &a.Status,
		&a.Transcript, &a.Summary, &a.Insights, &a.Error, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns ErrNotFound when no row has the given job.
func (s *Store) Get(ctx context.Context, job string) (*LessonAnalysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM lesson_analyses WHERE job = $1`, job)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson %s: %w", job, err)
	}
	return a, nil
}

// FindCompleted returns the newest completed analysis of the same audio in
// the same language, or ErrNotFound.
func (s *Store) FindCompleted(ctx context.Context, audioHash, languageCode string) (*LessonAnalysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM lesson_analyses
		WHERE audio_hash = $1 AND language_code = $2 AND status = $3
		ORDER BY updated_at DESC LIMIT 1`, audioHash, languageCode, StatusCompleted)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find completed lesson: %w", err)
	}
	return a, nil
}

// List returns the newest analyses first, without the text bodies.
func (s *Store) List(ctx context.Context, limit int) ([]LessonAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job, file_name, audio_hash, language_code, status, error, created_at, updated_at
		FROM lesson_analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	out := []LessonAnalysis{}
	for rows.Next() {
		var a LessonAnalysis
		if err := rows.Scan(&a.Job, &a.FileName, &a.AudioHash, &a.LanguageCode, &a.Status,
			&a.Error, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan lesson row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}
