package scoring

import (
	"sync"

	"SignalForge/internal/domain/models"
)

// Tally counts trades and successes.
type Tally struct {
	Trades    int `json:"trades"`
	Successes int `json:"successes"`
}

// Rate returns the success ratio or 0.5 without history.
func (t Tally) Rate() float64 {
	if t.Trades == 0 {
		return neutralRate
	}
	return float64(t.Successes) / float64(t.Trades)
}

// TrackerSnapshot is a point-in-time copy of the learning state.
type TrackerSnapshot struct {
	ByType    map[models.SignalType]Tally     `json:"by_type"`
	ByRegime  map[models.Regime]Tally         `json:"by_regime"`
	Strengths map[models.SignalType][]float64 `json:"strengths"`
	Recent    map[models.SignalType][]bool    `json:"recent"`
}

// PerformanceTracker is the mutable learning state shared by the scoring
// models. Writes are serialized; readers may observe slightly stale values.
type PerformanceTracker struct {
	mu        sync.RWMutex
	window    int
	byType    map[models.SignalType]*Tally
	byRegime  map[models.Regime]*Tally
	strengths map[models.SignalType][]float64
	recent    map[models.SignalType][]bool
}

// NewPerformanceTracker keeps the last window strengths and outcomes per type.
func NewPerformanceTracker(window int) *PerformanceTracker {
	if window <= 0 {
		window = 50
	}
	t := &PerformanceTracker{window: window}
	t.resetLocked()
	return t
}

// Window is the per-type history length.
func (t *PerformanceTracker) Window() int { return t.window }

func (t *PerformanceTracker) resetLocked() {
	t.byType = make(map[models.SignalType]*Tally)
	t.byRegime = make(map[models.Regime]*Tally)
	t.strengths = make(map[models.SignalType][]float64)
	t.recent = make(map[models.SignalType][]bool)
}

// RecordOutcome adds one observed outcome for a signal set in a regime.
func (t *PerformanceTracker) RecordOutcome(signals []models.Signal, regime models.Regime, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[models.SignalType]struct{}, len(signals))
	for _, s := range signals {
		if s.Type == "" {
			continue
		}
		t.strengths[s.Type] = push(t.strengths[s.Type], s.Strength, t.window)
		if _, dup := seen[s.Type]; dup {
			continue
		}
		seen[s.Type] = struct{}{}
		t.addLocked(s.Type, success)
	}
	if regime != "" {
		t.tallyRegime(regime).add(success)
	}
}

// UpdateFromTrades feeds completed trades. Trades without a regime or P&L
// are ignored; success means P&L > 0.
func (t *PerformanceTracker) UpdateFromTrades(trades []models.TradeRecord) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	used := 0
	for _, tr := range trades {
		if tr.Regime == "" || tr.PnL == nil {
			continue
		}
		success := *tr.PnL > 0
		t.tallyRegime(tr.Regime).add(success)
		for _, st := range tr.Signals {
			if st != "" {
				t.addLocked(st, success)
			}
		}
		used++
	}
	return used
}

func (t *PerformanceTracker) addLocked(st models.SignalType, success bool) {
	tally, ok := t.byType[st]
	if !ok {
		tally = &Tally{}
		t.byType[st] = tally
	}
	tally.add(success)
	t.recent[st] = push(t.recent[st], success, t.window)
}

func (t *PerformanceTracker) tallyRegime(r models.Regime) *Tally {
	tally, ok := t.byRegime[r]
	if !ok {
		tally = &Tally{}
		t.byRegime[r] = tally
	}
	return tally
}

func (t *Tally) add(success bool) {
	t.Trades++
	if success {
		t.Successes++
	}
}

// TypeRate returns the success rate and sample count for a signal type.
func (t *PerformanceTracker) TypeRate(st models.SignalType) (float64, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tally, ok := t.byType[st]; ok {
		return tally.Rate(), tally.Trades
	}
	return neutralRate, 0
}

// RegimeRate returns the success rate and sample count for a regime.
func (t *PerformanceTracker) RegimeRate(r models.Regime) (float64, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tally, ok := t.byRegime[r]; ok {
		return tally.Rate(), tally.Trades
	}
	return neutralRate, 0
}

// RecentRate is the success rate over the last window outcomes of a type.
func (t *PerformanceTracker) RecentRate(st models.SignalType) (float64, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	outcomes := t.recent[st]
	if len(outcomes) == 0 {
		return neutralRate, 0
	}
	wins := 0
	for _, ok := range outcomes {
		if ok {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes)), len(outcomes)
}

// StrengthHistory returns a copy of the recent strengths of a type.
func (t *PerformanceTracker) StrengthHistory(st models.SignalType) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]float64(nil), t.strengths[st]...)
}

// Reset clears all learning state.
func (t *PerformanceTracker) Reset() {
	t.mu.Lock()
	t.resetLocked()
	t.mu.Unlock()
}

// Snapshot copies the current state.
func (t *PerformanceTracker) Snapshot() TrackerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := TrackerSnapshot{
		ByType:    make(map[models.SignalType]Tally, len(t.byType)),
		ByRegime:  make(map[models.Regime]Tally, len(t.byRegime)),
		Strengths: make(map[models.SignalType][]float64, len(t.strengths)),
		Recent:    make(map[models.SignalType][]bool, len(t.recent)),
	}
	for k, v := range t.byType {
		s.ByType[k] = *v
	}
	for k, v := range t.byRegime {
		s.ByRegime[k] = *v
	}
	for k, v := range t.strengths {
		s.Strengths[k] = append([]float64(nil), v...)
	}
	for k, v := range t.recent {
		s.Recent[k] = append([]bool(nil), v...)
	}
	return s
}

func push[T any](buf []T, v T, limit int) []T {
	buf = append(buf, v)
	if len(buf) > limit {
		buf = append(buf[:0:0], buf[len(buf)-limit:]...)
	}
	return buf
}
