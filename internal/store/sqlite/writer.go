package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"marketfeatures/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/market.db"
}

// Writer loads bars and option chains into SQLite, one transaction per call.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL    NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, interval, ts)
		);

		CREATE TABLE IF NOT EXISTS option_contracts (
			underlying    TEXT    NOT NULL,
			contract      TEXT    NOT NULL DEFAULT '',
			expiration    INTEGER NOT NULL,
			strike        REAL    NOT NULL,
			type          TEXT    NOT NULL,
			volume        REAL    NOT NULL DEFAULT 0,
			open_interest REAL    NOT NULL DEFAULT 0,
			iv            REAL,
			delta         REAL,
			gamma         REAL,
			in_the_money  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (underlying, expiration, type, strike)
		);
	`)
	return err
}

// WriteBars upserts bars for symbol/interval in a single transaction.
func (w *Writer) WriteBars(ctx context.Context, symbol, interval string, bars model.BarSequence) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare bars: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, interval, b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar %s: %w", b.TS.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// WriteChain upserts option contracts for underlying in a single transaction.
// Undefined greeks and implied volatility are stored as NULL.
func (w *Writer) WriteChain(ctx context.Context, underlying string, contracts []model.OptionContract) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO option_contracts
			(underlying, contract, expiration, strike, type, volume, open_interest, iv, delta, gamma, in_the_money)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare contracts: %w", err)
	}
	defer stmt.Close()

	for _, c := range contracts {
		_, err := stmt.ExecContext(ctx, underlying, c.Symbol, c.Expiration.Unix(), c.Strike, string(c.Type),
			c.Volume, c.OpenInterest, nullable(c.ImpliedVolatility), nullable(c.Delta), nullable(c.Gamma), c.InTheMoney)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert contract %s %.2f: %w", c.Type, c.Strike, err)
		}
	}
	return tx.Commit()
}

// LastBarTime returns the newest stored bar timestamp (unix seconds) for
// symbol/interval. Returns 0 if no bars exist.
func (w *Writer) LastBarTime(ctx context.Context, symbol, interval string) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM bars WHERE symbol = ? AND interval = ?`,
		symbol, interval,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

func nullable(v model.Value) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.Float, Valid: v.Valid}
}

func fromNullable(n sql.NullFloat64) model.Value {
	if !n.Valid {
		return model.None()
	}
	return model.Some(n.Float64)
}
