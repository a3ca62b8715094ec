package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type capturePublisher struct {
	topic   string
	entries []AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.topic = topic
	p.entries = payload.([]AggregatedLogEntry)
	return nil
}

func newFileLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return l, path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestDiagnosticDeduplicatesThroughCollector(t *testing.T) {
	l, path := newFileLogger(t)
	pub := &capturePublisher{}
	run := l.With(String("run_id", "r1"))
	run.SetCollector(NewCollector(&CollectionConfig{Topic: "diag", Publisher: pub}))

	for i := 0; i < 3; i++ {
		run.Diagnostic("indicator length mismatch", String("indicator", "rsi"))
	}
	run.Diagnostic("indicator length mismatch", String("indicator", "macd"))

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected one line per distinct diagnostic, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], `"run_id":"r1"`) || !strings.Contains(lines[0], `"level":"warn"`) {
		t.Fatalf("unexpected line %s", lines[0])
	}

	snap := run.Collector().Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 aggregated entries, got %d", len(snap))
	}
	counts := map[interface{}]int{}
	for _, e := range snap {
		counts[e.Fields["indicator"]] = e.Count
	}
	if counts["rsi"] != 3 || counts["macd"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	if err := run.Collector().Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if pub.topic != "diag" || len(pub.entries) != 2 {
		t.Fatalf("unexpected publish %s %d", pub.topic, len(pub.entries))
	}
	if len(run.Collector().Snapshot()) != 0 {
		t.Fatalf("flush must reset the collector")
	}
}

func TestDiagnosticWithoutCollectorWarnsEveryTime(t *testing.T) {
	l, path := newFileLogger(t)
	l.Diagnostic("fallback", Error(errors.New("timeout")))
	l.Diagnostic("fallback", Error(errors.New("timeout")))
	l.Debug("hidden")

	lines := readLines(t, path)
	if len(lines) != 2 || !strings.Contains(lines[1], `"error":"timeout"`) {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestCollectorFlushWithoutPublisherKeepsEntries(t *testing.T) {
	c := NewCollector(nil)
	c.Add("warn", "x", nil)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(c.Snapshot()) != 1 {
		t.Fatalf("entries must be kept without a publisher")
	}
	c.Reset()
	if len(c.Snapshot()) != 0 {
		t.Fatalf("reset must drop entries")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
