// Package clickhouse stores normalized daily contract bars in ClickHouse so
// repeated simulations don't re-parse spreadsheet exports.
package clickhouse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"

	"jollygold-backtest/services/engine"
)

// Config for the bar store. Table rows are keyed by (expiry, trade_date);
// re-ingesting the same file replaces rows instead of duplicating them.
type Config struct {
	Addr     string
	Database string
	Table    string
	Username string
	Password string
}

// FromEnv reads CLICKHOUSE_* settings with local defaults.
func FromEnv() Config {
	return Config{
		Addr:     env("CLICKHOUSE_ADDR", "localhost:9000"),
		Database: env("CLICKHOUSE_DATABASE", "backtest"),
		Table:    env("CLICKHOUSE_TABLE", "daily_bars"),
		Username: env("CLICKHOUSE_USER", "backtest"),
		Password: env("CLICKHOUSE_PASSWORD", "backtest123"),
	}
}

type Store struct {
	conn clickhouse.Conn
	cfg  Config
}

// NewStore connects and pings the server.
func NewStore(cfg Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the database and bar table if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.cfg.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			trade_date Date,
			expiry Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (expiry, trade_date)
		SETTINGS index_granularity = 8192
	`, s.cfg.Database, s.cfg.Table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// InsertBars writes one batch. All rows of a batch share a version, so a
// re-run of the same ingest wins over older rows via ReplacingMergeTree.
func (s *Store) InsertBars(ctx context.Context, bars []engine.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s.%s", s.cfg.Database, s.cfg.Table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	ver := uint64(now.UnixNano())
	for _, b := range bars {
		if err := batch.Append(b.Date, b.Expiry, b.Open, b.High, b.Low, b.Close, now, ver); err != nil {
			return fmt.Errorf("append bar %s: %w", b.Date.Format("2006-01-02"), err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// QueryBars returns bars with trade_date in [from, to], ordered the way the
// engine expects: ascending by date, then expiry. FINAL collapses replaced
// rows.
func (s *Store) QueryBars(ctx context.Context, from, to time.Time) ([]engine.Bar, error) {
	q := fmt.Sprintf(`
		SELECT trade_date, expiry, open, high, low, close
		FROM %s.%s FINAL
		WHERE trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date, expiry
	`, s.cfg.Database, s.cfg.Table)
	rows, err := s.conn.Query(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []engine.Bar
	for rows.Next() {
		var b engine.Bar
		if err := rows.Scan(&b.Date, &b.Expiry, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = midnightUTC(b.Date)
		b.Expiry = midnightUTC(b.Expiry)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// midnightUTC pins a scanned Date column to the engine's UTC-midnight
// convention regardless of the connection's timezone.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
