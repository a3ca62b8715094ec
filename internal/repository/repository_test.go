package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	pkgkafka "SignalForge/pkg/kafka"
)

type fakeProducer struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	f.topic = topic
	f.msgs = append(f.msgs, messages...)
	return f.err
}

func (f *fakeProducer) Close() error { return nil }

func strategies() []models.Strategy {
	dd := -1.25
	return []models.Strategy{
		{Coin: "BTCUSDT", Signals: []models.SignalType{models.SignalMACD, models.SignalRSI}, Regime: models.RegimeUptrend, Occurrences: 4, MedianDrawdown: &dd},
		{Coin: "ETHUSDT", Signals: []models.SignalType{models.SignalADX}, Regime: models.RegimeAll, TimeToPeak: &models.Percentiles{P50: 100, P95: 900}},
	}
}

func TestKafkaStrategyPublisherKeysByCoin(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaStrategyPublisher(fp, "signalforge.strategies")
	if err := p.PublishStrategies(context.Background(), "run-1", strategies()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if fp.topic != "signalforge.strategies" || len(fp.msgs) != 2 {
		t.Fatalf("unexpected publish %s %d", fp.topic, len(fp.msgs))
	}
	if string(fp.msgs[1].Key) != "ETHUSDT" {
		t.Fatalf("expected coin key, got %s", fp.msgs[1].Key)
	}
	msg, ok := fp.msgs[1].Value.(strategyMessage)
	if !ok || msg.Rank != 2 || msg.RunID != "run-1" {
		t.Fatalf("unexpected message %+v", fp.msgs[1].Value)
	}
	if err := p.PublishStrategies(context.Background(), "run-2", nil); err != nil || len(fp.msgs) != 2 {
		t.Fatalf("empty input must not publish")
	}
}

func TestKafkaStrategyPublisherWrapsErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaStrategyPublisher(&fakeProducer{err: boom}, "t")
	if err := p.PublishStrategies(context.Background(), "r", strategies()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestStrategyRowNullables(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := strategies()
	row := strategyRow("r", created, 1, st[0])
	if len(row) != len(strategyColumns) {
		t.Fatalf("row has %d values for %d columns", len(row), len(strategyColumns))
	}
	if sig := row[4].([]string); strings.Join(sig, ",") != "macd,rsi" {
		t.Fatalf("unexpected signals %v", sig)
	}
	if dd := row[11].(sql.NullFloat64); !dd.Valid || dd.Float64 != -1.25 {
		t.Fatalf("unexpected drawdown %+v", dd)
	}
	if p50 := row[12].(sql.NullInt64); p50.Valid {
		t.Fatalf("missing time-to-peak must be null")
	}
	row = strategyRow("r", created, 2, st[1])
	if p95 := row[13].(sql.NullInt64); !p95.Valid || p95.Int64 != 900 {
		t.Fatalf("unexpected p95 %+v", p95)
	}
	if dd := row[11].(sql.NullFloat64); dd.Valid {
		t.Fatalf("missing drawdown must be null")
	}
}

func TestSchemaAndQueries(t *testing.T) {
	stmts := Schema("sf")
	if len(stmts) != 3 || !strings.Contains(stmts[2], "sf.strategies") {
		t.Fatalf("unexpected schema %v", stmts)
	}
	s := &CHCandleStore{database: "sf"}
	q := s.rangeQuery(15)
	if !strings.Contains(q, "INTERVAL 15 MINUTE") || !strings.Contains(q, "FROM sf.candles_1m") {
		t.Fatalf("unexpected range query %s", q)
	}
	if q := s.latestQuery(60); !strings.Contains(q, "ORDER BY b DESC") || !strings.Contains(q, "LIMIT ?") {
		t.Fatalf("unexpected latest query %s", q)
	}
}

func TestReverseCandles(t *testing.T) {
	c := []models.Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	reverseCandles(c)
	if c[0].Close != 3 || c[2].Close != 1 {
		t.Fatalf("unexpected order %+v", c)
	}
}
