package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/clausewise/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a unified SQLite-based storage that provides access to
// the metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.clausewise/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".clausewise", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// AnswerCache returns an AnswerCache interface backed by this store.
func (s *Store) AnswerCache() driven.AnswerCache {
	return &answerCache{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, content, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			content = excluded.content,
			chunk_count = excluded.chunk_count,
			created_at = excluded.created_at
	`, doc.ID, doc.Name, doc.Content, doc.ChunkCount, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, content, chunk_count, created_at
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// LatestDocument returns the most recently uploaded document.
func (s *documentStore) LatestDocument(ctx context.Context) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, content, chunk_count, created_at
		FROM documents ORDER BY created_at DESC, rowid DESC LIMIT 1
	`)
	return scanDocument(row)
}

// DeleteDocument removes a document.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var createdAt string

	if err := row.Scan(&doc.ID, &doc.Name, &doc.Content, &doc.ChunkCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.CreatedAt = parseTime(createdAt)

	return &doc, nil
}

// ==================== Answer Cache ====================

// answerCache implements driven.AnswerCache.
type answerCache struct {
	store *Store
}

var _ driven.AnswerCache = (*answerCache)(nil)

// SaveAnswer stores an entry keyed by its normalised question.
// A curated row is only replaced by another curated entry.
func (s *answerCache) SaveAnswer(ctx context.Context, entry *domain.CachedAnswer) error {
	if entry == nil || strings.TrimSpace(entry.Question) == "" {
		return domain.ErrInvalidInput
	}
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO answers (id, question_key, question, answer, clause, clause_reference, confidence, curated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(question_key) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			clause = excluded.clause,
			clause_reference = excluded.clause_reference,
			confidence = excluded.confidence,
			curated = excluded.curated,
			created_at = excluded.created_at
		WHERE answers.curated = 0 OR excluded.curated = 1
	`, id, questionKey(entry.Question), entry.Question, entry.Answer, entry.Clause,
		entry.ClauseReference, entry.Confidence, boolToInt(entry.Curated), formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("saving answer: %w", err)
	}
	return nil
}

// ListAnswers returns every entry, oldest first.
func (s *answerCache) ListAnswers(ctx context.Context) ([]domain.CachedAnswer, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, question, answer, clause, clause_reference, confidence, curated, created_at
		FROM answers ORDER BY created_at, question
	`)
	if err != nil {
		return nil, fmt.Errorf("listing answers: %w", err)
	}
	defer rows.Close()

	var out []domain.CachedAnswer
	for rows.Next() {
		var a domain.CachedAnswer
		var curated int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Question, &a.Answer, &a.Clause, &a.ClauseReference,
			&a.Confidence, &curated, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		a.Curated = curated != 0
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating answers: %w", err)
	}
	return out, nil
}

// PurgeAnswered removes every non-curated entry.
func (s *answerCache) PurgeAnswered(ctx context.Context) (int, error) {
	return s.purge(ctx, false)
}

// PurgeCurated removes every curated entry.
func (s *answerCache) PurgeCurated(ctx context.Context) (int, error) {
	return s.purge(ctx, true)
}

func (s *answerCache) purge(ctx context.Context, curated bool) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM answers WHERE curated = ?", boolToInt(curated))
	if err != nil {
		return 0, fmt.Errorf("purging answers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged answers: %w", err)
	}
	return int(n), nil
}

func questionKey(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// formatTime formats t in UTC with a fixed width.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp. Returns zero time on parse error.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
