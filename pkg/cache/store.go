package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// StatsStore persists aggregate cache metrics across process restarts
// using SQLite. On startup the saved counters can be imported back into
// a fresh Metrics tracker.
type StatsStore struct {
	db *sql.DB
}

// OpenStatsStore opens (or creates) the stats database at dbPath.
func OpenStatsStore(dbPath string) (*StatsStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports a single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &StatsStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize stats schema: %w", err)
	}
	return store, nil
}

// initSchema creates the stats table if needed.
func (s *StatsStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_stats (
			model TEXT PRIMARY KEY,
			hits INTEGER NOT NULL DEFAULT 0,
			misses INTEGER NOT NULL DEFAULT 0,
			total_retrieval_ns INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)
	`)
	return err
}

// Save replaces the persisted counters with the given snapshot.
func (s *StatsStore) Save(ctx context.Context, stats Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stats save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_stats`); err != nil {
		return fmt.Errorf("failed to clear stats: %w", err)
	}

	now := time.Now().Unix()
	for model, ms := range stats.PerModel {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cache_stats (model, hits, misses, total_retrieval_ns, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, model, ms.Hits, ms.Misses, int64(ms.TotalRetrievalTime), now)
		if err != nil {
			return fmt.Errorf("failed to save stats for model %s: %w", model, err)
		}
	}

	return tx.Commit()
}

// Load reads the persisted counters.
func (s *StatsStore) Load(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, hits, misses, total_retrieval_ns FROM cache_stats
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{PerModel: make(map[string]ModelStats)}
	for rows.Next() {
		var model string
		var hits, misses, totalNS int64
		if err := rows.Scan(&model, &hits, &misses, &totalNS); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats row: %w", err)
		}
		ms := ModelStats{
			Hits:               hits,
			Misses:             misses,
			TotalRetrievalTime: time.Duration(totalNS),
		}
		stats.PerModel[model] = ms
		stats.Hits += hits
		stats.Misses += misses
		stats.TotalRetrievalTime += ms.TotalRetrievalTime
	}
	return stats, rows.Err()
}

// Close closes the underlying database.
func (s *StatsStore) Close() error {
	return s.db.Close()
}
