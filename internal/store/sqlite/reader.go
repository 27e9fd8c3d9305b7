package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"marketfeatures/internal/metrics"
	"marketfeatures/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to stored bars and option chains.
// It implements model.BarReader and model.ChainReader.
type Reader struct {
	db   *sql.DB
	prom *metrics.Metrics
}

var (
	_ model.BarReader   = (*Reader)(nil)
	_ model.ChainReader = (*Reader)(nil)
)

// NewReader opens a SQLite connection for reading. prom may be nil.
func NewReader(dbPath string, prom *metrics.Metrics) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db, prom: prom}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars reads bars for symbol/interval ordered by timestamp ascending.
func (r *Reader) ReadBars(ctx context.Context, symbol, interval string) (model.BarSequence, error) {
	defer r.observe(time.Now())

	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ?
		ORDER BY ts ASC
	`, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars model.BarSequence
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadChain reads every stored contract of underlying expiring on or after
// asOf, ordered by expiration then strike.
func (r *Reader) ReadChain(ctx context.Context, underlying string, asOf time.Time) ([]model.OptionContract, error) {
	defer r.observe(time.Now())

	rows, err := r.db.QueryContext(ctx, `
		SELECT contract, expiration, strike, type, volume, open_interest, iv, delta, gamma, in_the_money
		FROM option_contracts
		WHERE underlying = ? AND expiration >= ?
		ORDER BY expiration ASC, strike ASC, type ASC
	`, underlying, asOf.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query option_contracts: %w", err)
	}
	defer rows.Close()

	var out []model.OptionContract
	for rows.Next() {
		var (
			c             model.OptionContract
			expUnix       int64
			typ           string
			iv, dlt, gmma sql.NullFloat64
		)
		if err := rows.Scan(&c.Symbol, &expUnix, &c.Strike, &typ, &c.Volume, &c.OpenInterest, &iv, &dlt, &gmma, &c.InTheMoney); err != nil {
			return nil, fmt.Errorf("sqlite scan option_contracts: %w", err)
		}
		if c.Type, err = model.ParseOptionType(typ); err != nil {
			return nil, fmt.Errorf("sqlite scan option_contracts: %w", err)
		}
		c.Expiration = time.Unix(expUnix, 0).UTC()
		c.ImpliedVolatility = fromNullable(iv)
		c.Delta = fromNullable(dlt)
		c.Gamma = fromNullable(gmma)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Reader) observe(start time.Time) {
	if r.prom != nil {
		r.prom.SQLiteQueryDur.Observe(time.Since(start).Seconds())
	}
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
