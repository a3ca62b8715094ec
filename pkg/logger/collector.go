package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	Topic     string    // topic for flushed entries
	Publisher Publisher // optional sink for Flush
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Collector deduplicates repeated diagnostics and counts occurrences.
// One collector belongs to one scorer / backtest run.
type Collector struct {
	config *CollectionConfig
	mu     sync.Mutex
	logMap map[string]*AggregatedLogEntry
	now    func() time.Time
}

func NewCollector(config *CollectionConfig) *Collector {
	if config == nil {
		config = &CollectionConfig{}
	}
	return &Collector{
		config: config,
		logMap: make(map[string]*AggregatedLogEntry),
		now:    time.Now,
	}
}

// Add records an entry and reports whether it is new.
func (c *Collector) Add(level, message string, fields map[string]interface{}) bool {
	key := generateKey(level, message, fields)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.logMap[key]; exists {
		entry.Count++
		entry.LastSeen = now
		return false
	}
	c.logMap[key] = &AggregatedLogEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	return true
}

// Snapshot returns a copy of the collected entries sorted by message.
func (c *Collector) Snapshot() []AggregatedLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Reset drops all collected entries.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.logMap = make(map[string]*AggregatedLogEntry)
	c.mu.Unlock()
}

// Flush sends the collected entries to the publisher and resets the collector.
// Without a publisher the entries are kept.
func (c *Collector) Flush(ctx context.Context) error {
	if c.config.Publisher == nil {
		return nil
	}
	c.mu.Lock()
	logs := c.snapshotLocked()
	c.logMap = make(map[string]*AggregatedLogEntry)
	c.mu.Unlock()

	if len(logs) == 0 {
		return nil
	}
	if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, logs); err != nil {
		return fmt.Errorf("publish diagnostics: %w", err)
	}
	return nil
}

func (c *Collector) snapshotLocked() []AggregatedLogEntry {
	logs := make([]AggregatedLogEntry, 0, len(c.logMap))
	for _, entry := range c.logMap {
		logs = append(logs, *entry)
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].Message != logs[j].Message {
			return logs[i].Message < logs[j].Message
		}
		return logs[i].FirstSeen.Before(logs[j].FirstSeen)
	})
	return logs
}

func generateKey(level, message string, fields map[string]interface{}) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}{
		Level:   level,
		Message: message,
		Fields:  fields,
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}
