package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/scoring"
	"SignalForge/pkg/logger"
)

// ScoreUseCase scores ad-hoc signal sets and accepts outcome feedback.
type ScoreUseCase struct {
	agg     *scoring.StrengthAggregator
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewScoreUseCase(agg *scoring.StrengthAggregator, metrics domrepo.Metrics, log *logger.Logger) *ScoreUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ScoreUseCase{agg: agg, metrics: metrics, log: log}
}

// InvalidSignalError reports a signal type outside the known set.
type InvalidSignalError struct {
	Index int
	Err   error
}

func (e *InvalidSignalError) Error() string {
	return fmt.Sprintf("signals[%d]: %v", e.Index, e.Err)
}

func (e *InvalidSignalError) Unwrap() error { return e.Err }

func toSignals(in []models.ScoreSignal) ([]models.Signal, error) {
	signals := make([]models.Signal, len(in))
	for i, s := range in {
		t, err := models.ParseSignalType(s.Type)
		if err != nil {
			return nil, &InvalidSignalError{Index: i, Err: err}
		}
		signals[i] = models.Signal{Type: t, Strength: s.Strength, IsEvent: s.IsEvent}
	}
	return signals, nil
}

func (u *ScoreUseCase) Score(_ context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	signals, err := toSignals(req.Signals)
	if err != nil {
		return models.ScoreResult{}, err
	}

	start := time.Now()
	res := u.agg.Score(signals, models.ParseRegime(req.Regime), req.Confidence, req.Context)
	if u.metrics != nil {
		u.metrics.RecordScore(time.Since(start).Seconds())
	}
	return res, nil
}

// RecordOutcome feeds one realized outcome into the learning state.
func (u *ScoreUseCase) RecordOutcome(_ context.Context, req models.OutcomeRequest) error {
	signals, err := toSignals(req.Signals)
	if err != nil {
		return err
	}
	u.agg.RecordOutcome(signals, models.ParseRegime(req.Regime), req.Successful)
	u.log.Debug("outcome recorded",
		logger.Int("signals", len(signals)),
		logger.String("regime", req.Regime),
		logger.Bool("successful", req.Successful),
	)
	return nil
}

// Diagnostics returns the deduplicated warnings seen by the scorer.
func (u *ScoreUseCase) Diagnostics() []logger.AggregatedLogEntry {
	return u.agg.Diagnostics()
}
