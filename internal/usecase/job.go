package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
	"SignalForge/pkg/util"
)

const BacktestJobType = "backtest.run"

type backtestPayload struct {
	RunID   string                 `json:"run_id"`
	Request models.BacktestRequest `json:"request"`
}

// BacktestJob runs queued backtests and records their status.
type BacktestJob struct {
	uc  *BacktestUseCase
	log *logger.Logger
}

func NewBacktestJob(uc *BacktestUseCase, log *logger.Logger) *BacktestJob {
	if log == nil {
		log = logger.Nop()
	}
	return &BacktestJob{uc: uc, log: log}
}

func (j *BacktestJob) Name() string { return "backtest_runner" }
func (j *BacktestJob) Type() string { return BacktestJobType }

// Handle returns an error only for failures worth retrying. Bad input marks
// the run failed and is acknowledged.
func (j *BacktestJob) Handle(ctx context.Context, raw json.RawMessage) error {
	p, err := queue.ParsePayload[backtestPayload](raw)
	if err != nil {
		j.log.Error("invalid backtest payload", logger.Error(err))
		return nil
	}
	if p.RunID == "" {
		j.log.Error("backtest payload without run id")
		return nil
	}

	j.uc.updateStatus(ctx, p.RunID, func(st *models.RunStatus) {
		st.State = models.RunRunning
		st.Error = ""
	})

	res, err := j.uc.execute(ctx, p.RunID, p.Request)
	j.uc.finish(ctx, p.RunID, res, err)
	if err != nil && !permanent(err) {
		return fmt.Errorf("backtest %s: %w", p.RunID, err)
	}
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, util.ErrInvalidTimeframe) || errors.Is(err, ErrNoCandles)
}

var _ queue.Job = (*BacktestJob)(nil)
