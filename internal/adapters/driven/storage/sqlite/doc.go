// Package sqlite provides the SQLite-backed score cache.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the ScoreCache port
// through a single database connection holding four tables:
//
//   - similarity_scores: Embedding similarity scores per article
//   - rating_scores: LLM rating scores with per-criterion details
//   - processed_articles: Permanent delivered-article markers
//   - config_history: Append-only configuration hash history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory as .up.sql files.
//
// # Invalidation
//
// ReconcileConfig hashes the effective configuration and, when it differs
// from the most recently recorded hash, clears both score tables while
// preserving processed_articles. Processed markers only leave the database
// through TTL expiry.
//
// # Data Location
//
// By default, the database is stored at ~/.lectern/data/cache.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode; every write is a single-row upsert.
package sqlite
