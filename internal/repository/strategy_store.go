package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
	applogger "SignalForge/pkg/logger"
)

// Schema returns the idempotent DDL for the candle source and strategy sink.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles_1m (
            symbol LowCardinality(String),
            bucket DateTime64(3, 'UTC'),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            vol Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, bucket)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.strategies (
            run_id String,
            created_at DateTime64(3, 'UTC'),
            rank UInt32,
            coin LowCardinality(String),
            signals Array(LowCardinality(String)),
            regime LowCardinality(String),
            occurrences UInt32,
            successes UInt32,
            success_rate Float64,
            avg_price_move Float64,
            profit_factor Float64,
            median_drawdown Nullable(Float64),
            ttp_p50 Nullable(Int64),
            ttp_p95 Nullable(Int64),
            profitability_score Float64,
            avg_strength Float64,
            composite_strength Float64
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(created_at)
        ORDER BY (coin, run_id, rank)`, database),
	}
}

var strategyColumns = []string{
	"run_id", "created_at", "rank", "coin", "signals", "regime",
	"occurrences", "successes", "success_rate", "avg_price_move", "profit_factor",
	"median_drawdown", "ttp_p50", "ttp_p95",
	"profitability_score", "avg_strength", "composite_strength",
}

// CHStrategyStore writes ranked strategies to ClickHouse in one batch per run.
type CHStrategyStore struct {
	client *pkgch.Client
	l      *applogger.Logger
	now    func() time.Time
}

func NewCHStrategyStore(ch *pkgch.Client, l *applogger.Logger) *CHStrategyStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHStrategyStore{client: ch, l: l, now: time.Now}
}

func (s *CHStrategyStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, Schema(s.client.Database()))
}

func (s *CHStrategyStore) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s.strategies (%s)", s.client.Database(), strings.Join(strategyColumns, ", "))
}

// SaveStrategies inserts strategies in rank order. ClickHouse batches the
// prepared statement and sends it on commit.
func (s *CHStrategyStore) SaveStrategies(ctx context.Context, runID string, strategies []models.Strategy) error {
	if len(strategies) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.insertQuery())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	created := s.now().UTC()
	for i, st := range strategies {
		if _, err := stmt.ExecContext(ctx, strategyRow(runID, created, i+1, st)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append strategy %s: %w", st.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit strategies: %w", err)
	}
	s.l.Info("strategies saved",
		applogger.String("run_id", runID),
		applogger.Int("rows", len(strategies)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *CHStrategyStore) Close() error { return nil }

func strategyRow(runID string, created time.Time, rank int, st models.Strategy) []interface{} {
	signals := make([]string, len(st.Signals))
	for i, t := range st.Signals {
		signals[i] = string(t)
	}
	var p50, p95 sql.NullInt64
	if st.TimeToPeak != nil {
		p50 = sql.NullInt64{Int64: st.TimeToPeak.P50, Valid: true}
		p95 = sql.NullInt64{Int64: st.TimeToPeak.P95, Valid: true}
	}
	var dd sql.NullFloat64
	if st.MedianDrawdown != nil {
		dd = sql.NullFloat64{Float64: *st.MedianDrawdown, Valid: true}
	}
	return []interface{}{
		runID, created, uint32(rank), st.Coin, signals, string(st.Regime),
		uint32(st.Occurrences), uint32(st.Successes), st.SuccessRate, st.AvgPriceMove, st.ProfitFactor,
		dd, p50, p95,
		st.ProfitabilityScore, st.AvgStrength, st.CompositeStrength,
	}
}

var _ domrepo.StrategyStore = (*CHStrategyStore)(nil)
