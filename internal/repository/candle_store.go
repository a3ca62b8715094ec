package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
	applogger "SignalForge/pkg/logger"
)

// CHCandleStore reads one-minute candles from ClickHouse and folds them into
// the requested timeframe on the server.
type CHCandleStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: ch.DB(), database: ch.Database(), l: l}
}

const candleColumns = `
        toStartOfInterval(bucket, INTERVAL %d MINUTE) AS b,
        argMin(open, bucket), max(high), min(low), argMax(close, bucket), sum(vol)`

func (s *CHCandleStore) rangeQuery(minutes int) string {
	return fmt.Sprintf(`
        SELECT`+candleColumns+`
        FROM %s.candles_1m
        WHERE symbol = ? AND bucket >= ? AND bucket < ?
        GROUP BY b
        ORDER BY b ASC`, minutes, s.database)
}

func (s *CHCandleStore) latestQuery(minutes int) string {
	return fmt.Sprintf(`
        SELECT`+candleColumns+`
        FROM %s.candles_1m
        WHERE symbol = ?
        GROUP BY b
        ORDER BY b DESC
        LIMIT ?`, minutes, s.database)
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	minutes := tf.Minutes()
	rows, err := s.db.QueryContext(ctx, s.rangeQuery(minutes), symbol, from, to)
	if err != nil {
		s.logFailure("get_candles", symbol, tf, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	out, err := scanCandles(rows, 1024)
	if err != nil {
		s.logFailure("get_candles", symbol, tf, err)
		return nil, err
	}
	s.l.Debug("clickhouse get_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.latestQuery(tf.Minutes()), symbol, n)
	if err != nil {
		s.logFailure("latest_candles", symbol, tf, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	out, err := scanCandles(rows, n)
	if err != nil {
		s.logFailure("latest_candles", symbol, tf, err)
		return nil, err
	}
	reverseCandles(out)
	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("limit", n),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func scanCandles(rows *sql.Rows, capacity int) ([]models.Candle, error) {
	defer rows.Close()
	out := make([]models.Candle, 0, capacity)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Time = c.Time.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func reverseCandles(c []models.Candle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

func (s *CHCandleStore) logFailure(op, symbol string, tf domrepo.Timeframe, err error) {
	s.l.Error("clickhouse "+op+" error",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Error(err),
	)
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
