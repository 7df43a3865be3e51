package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "stock-academy/internal/errors"
	"stock-academy/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Portfolio snapshots, one row per key
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Flashcard review progress
	CREATE TABLE IF NOT EXISTS review_progress (
		term_id TEXT PRIMARY KEY,
		ease_factor REAL NOT NULL,
		interval_days INTEGER NOT NULL,
		repetitions INTEGER NOT NULL,
		next_review_at INTEGER NOT NULL,
		review_count INTEGER NOT NULL DEFAULT 0,
		last_quality INTEGER NOT NULL DEFAULT 0,
		last_reviewed_at INTEGER
	);

	-- Archive of every executed paper trade
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		shares REAL NOT NULL,
		price_per_share REAL NOT NULL,
		total_value REAL NOT NULL,
		timestamp INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_review_next ON review_progress(next_review_at);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SavePortfolio stores snap as JSON under key, replacing any previous snapshot.
func (s *SQLiteStore) SavePortfolio(ctx context.Context, key string, snap *models.PortfolioSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot for %q", key)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (key, version, payload, updated_at)
		VALUES (?, ?, ?, ?)
	`, key, snap.Version, string(payload), snap.LastUpdated)
	if err != nil {
		return apperrors.NewDataError("snapshot", key, "failed to save", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return nil
}

// LoadPortfolio reads the snapshot saved under key. The payload is decoded but
// not validated; the ledger rejects corrupt snapshots when restoring.
func (s *SQLiteStore) LoadPortfolio(ctx context.Context, key string) (*models.PortfolioSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM snapshots WHERE key = ?
	`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDataError("snapshot", key, "not saved yet", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return nil, apperrors.NewDataError("snapshot", key, "failed to load", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}

	snap := &models.PortfolioSnapshot{}
	if err := json.Unmarshal([]byte(payload), snap); err != nil {
		return nil, apperrors.NewDataError("snapshot", key, "undecodable payload", fmt.Errorf("%w: %v", apperrors.ErrCorruptSnapshot, err))
	}
	return snap, nil
}

// SaveProgress upserts the review progress of one term.
func (s *SQLiteStore) SaveProgress(ctx context.Context, p models.ReviewProgress) error {
	var lastReviewed interface{}
	if !p.LastReviewedAt.IsZero() {
		lastReviewed = p.LastReviewedAt.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO review_progress
			(term_id, ease_factor, interval_days, repetitions, next_review_at, review_count, last_quality, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.TermID, p.EaseFactor, p.Interval, p.Repetitions, p.NextReviewAt.UnixMilli(), p.ReviewCount, p.LastQuality, lastReviewed)
	if err != nil {
		return apperrors.NewDataError("progress", p.TermID, "failed to save", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return nil
}

// GetProgress returns the review progress of one term.
func (s *SQLiteStore) GetProgress(ctx context.Context, termID string) (models.ReviewProgress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT term_id, ease_factor, interval_days, repetitions, next_review_at, review_count, last_quality, last_reviewed_at
		FROM review_progress WHERE term_id = ?
	`, termID)

	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return models.ReviewProgress{}, apperrors.NewDataError("progress", termID, "never reviewed", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return models.ReviewProgress{}, apperrors.NewDataError("progress", termID, "failed to load", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return p, nil
}

// ListProgress returns review progress ordered by next review time.
func (s *SQLiteStore) ListProgress(ctx context.Context, filter ProgressFilter) ([]models.ReviewProgress, error) {
	query := `SELECT term_id, ease_factor, interval_days, repetitions, next_review_at, review_count, last_quality, last_reviewed_at
		FROM review_progress WHERE 1=1`
	args := []interface{}{}

	if !filter.DueBefore.IsZero() {
		query += " AND next_review_at <= ?"
		args = append(args, filter.DueBefore.UnixMilli())
	}

	query += " ORDER BY next_review_at ASC, term_id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var out []models.ReviewProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (models.ReviewProgress, error) {
	var p models.ReviewProgress
	var nextMillis int64
	var lastReviewed sql.NullInt64

	if err := row.Scan(&p.TermID, &p.EaseFactor, &p.Interval, &p.Repetitions, &nextMillis, &p.ReviewCount, &p.LastQuality, &lastReviewed); err != nil {
		return models.ReviewProgress{}, err
	}
	p.NextReviewAt = time.UnixMilli(nextMillis).UTC()
	if lastReviewed.Valid {
		p.LastReviewedAt = time.UnixMilli(lastReviewed.Int64).UTC()
	}
	return p, nil
}

// LogTrade archives an executed trade. Logging the same trade twice is a no-op.
func (s *SQLiteStore) LogTrade(ctx context.Context, t models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trades (id, symbol, type, shares, price_per_share, total_value, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Symbol, string(t.Type), t.Shares, t.PricePerShare, t.TotalValue, t.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to log trade: %w", err)
	}
	return nil
}

// GetTrades returns archived trades, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT id, symbol, type, shares, price_per_share, total_value, timestamp FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate.UnixMilli())
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate.UnixMilli())
	}

	query += " ORDER BY timestamp DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var tradeType string
		var millis int64

		if err := rows.Scan(&t.ID, &t.Symbol, &tradeType, &t.Shares, &t.PricePerShare, &t.TotalValue, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Type = models.TradeType(tradeType)
		t.Timestamp = time.UnixMilli(millis).UTC()
		trades = append(trades, t)
	}

	return trades, rows.Err()
}
