package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ScoreCache = (*Store)(nil)

// sqliteTimeLayout matches SQLite's CURRENT_TIMESTAMP text format.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Store is the SQLite-backed score cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite score cache at the specified data directory.
// If dataDir is empty, defaults to ~/.lectern/data/cache.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lectern", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrCacheUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, "cache.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrCacheUnavailable, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrCacheUnavailable, err)
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

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
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
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// scoreTable maps a score kind to its table.
func scoreTable(kind domain.ScoreKind) (string, error) {
	switch kind {
	case domain.ScoreSimilarity:
		return "similarity_scores", nil
	case domain.ScoreRating:
		return "rating_scores", nil
	default:
		return "", fmt.Errorf("%w: score kind %q", domain.ErrInvalidInput, kind)
	}
}

// GetScore returns the cached score of the given kind, or (nil, nil) on a miss.
func (s *Store) GetScore(ctx context.Context, kind domain.ScoreKind, articleID string) (*domain.ScoreRecord, error) {
	table, err := scoreTable(kind)
	if err != nil {
		return nil, err
	}

	query := "SELECT score, created_at FROM " + table + " WHERE article_id = ?"
	args := []any{articleID}
	record := domain.ScoreRecord{ArticleID: articleID, Kind: kind}
	var createdAt string

	if kind == domain.ScoreRating {
		query = "SELECT score, details_json, created_at FROM rating_scores WHERE article_id = ?"
		err = s.db.QueryRowContext(ctx, query, args...).Scan(&record.Score, &record.Details, &createdAt)
	} else {
		err = s.db.QueryRowContext(ctx, query, args...).Scan(&record.Score, &createdAt)
	}

	if err == sql.ErrNoRows {
		logger.Debug("Cache miss: no %s score for %s", kind, articleID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}

	if t, perr := time.Parse(sqliteTimeLayout, createdAt); perr == nil {
		record.CreatedAt = t.UTC()
	}
	logger.Debug("Cache hit: %s score for %s = %g", kind, articleID, record.Score)
	return &record, nil
}

// PutScore stores a score, replacing any prior record of the same kind.
func (s *Store) PutScore(ctx context.Context, kind domain.ScoreKind, articleID string, score float64, details string) error {
	_, err := scoreTable(kind)
	if err != nil {
		return err
	}

	if kind == domain.ScoreRating {
		_, err = s.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO rating_scores (article_id, score, details_json) VALUES (?, ?, ?)",
			articleID, score, details)
	} else {
		_, err = s.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO similarity_scores (article_id, score) VALUES (?, ?)",
			articleID, score)
	}
	if err != nil {
		return fmt.Errorf("storing %s score for %s: %w", kind, articleID, err)
	}

	logger.Debug("Stored %s score for %s: %g", kind, articleID, score)
	return nil
}

// IsProcessed reports whether the article was ever marked processed.
func (s *Store) IsProcessed(ctx context.Context, articleID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM processed_articles WHERE article_id = ?", articleID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying processed_articles: %w", err)
	}
	return true, nil
}

// MarkProcessed permanently excludes the article from reselection.
func (s *Store) MarkProcessed(ctx context.Context, articleID string, metadata string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO processed_articles (article_id, metadata_json) VALUES (?, ?)",
		articleID, metadata)
	if err != nil {
		return fmt.Errorf("marking %s processed: %w", articleID, err)
	}

	logger.Info("Marked article %s as processed", articleID)
	return nil
}

// HashConfig computes a deterministic SHA-256 hash of the configuration.
// The configuration is round-tripped through JSON so that map key order
// never affects the digest: encoding/json emits object keys sorted.
func HashConfig(cfg any) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshalling config: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("normalising config: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalising config: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ReconcileConfig compares the configuration hash against the most recently
// recorded one. On first run it only records the hash. On a change it clears
// both score tables (never processed_articles) before recording the new
// hash. Unchanged configuration is a no-op.
func (s *Store) ReconcileConfig(ctx context.Context, cfg any) error {
	currentHash, err := HashConfig(cfg)
	if err != nil {
		return err
	}

	var lastHash string
	err = s.db.QueryRowContext(ctx,
		"SELECT config_hash FROM config_history ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&lastHash)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("querying config_history: %w", err)
	}

	if lastHash == currentHash {
		logger.Debug("Configuration unchanged, no cache clearing needed")
		return nil
	}

	if lastHash == "" {
		logger.Info("First run, recording configuration hash %s", currentHash)
	} else {
		logger.Info("Configuration changed (was %s, now %s), clearing score caches", lastHash, currentHash)
		if err := s.clearScores(ctx); err != nil {
			return err
		}
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO config_history (config_hash) VALUES (?)", currentHash); err != nil {
		return fmt.Errorf("recording config hash: %w", err)
	}
	return nil
}

// clearScores empties both score tables, preserving processed markers.
func (s *Store) clearScores(ctx context.Context) error {
	for _, table := range []string{"similarity_scores", "rating_scores"} {
		res, err := s.db.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		if deleted, err := res.RowsAffected(); err == nil {
			logger.Info("Cleared %s (%d entries)", table, deleted)
		}
	}
	return nil
}

// Clear empties both score tables. With includeProcessed it also forgets
// delivery history, making every article eligible for reselection.
func (s *Store) Clear(ctx context.Context, includeProcessed bool) error {
	if err := s.clearScores(ctx); err != nil {
		return err
	}
	if includeProcessed {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM processed_articles"); err != nil {
			return fmt.Errorf("clearing processed_articles: %w", err)
		}
		logger.Info("Cleared processed article history")
	}
	return nil
}

// Expire deletes score and processed records older than ttl.
func (s *Store) Expire(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(sqliteTimeLayout)

	total := 0
	for _, table := range []string{"similarity_scores", "rating_scores"} {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE created_at < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("expiring %s: %w", table, err)
		}
		deleted, _ := res.RowsAffected()
		total += int(deleted)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM processed_articles WHERE processed_at < ?", cutoff)
	if err != nil {
		return total, fmt.Errorf("expiring processed_articles: %w", err)
	}
	deleted, _ := res.RowsAffected()
	total += int(deleted)

	if total > 0 {
		logger.Info("Expired %d cache entries older than %s", total, ttl)
	}
	return total, nil
}

// Stats reports record counts and on-disk size.
func (s *Store) Stats(ctx context.Context) (domain.CacheStats, error) {
	var stats domain.CacheStats

	counts := []struct {
		table string
		dest  *int
	}{
		{"similarity_scores", &stats.SimilarityCount},
		{"rating_scores", &stats.RatingCount},
		{"processed_articles", &stats.ProcessedCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return stats, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}
