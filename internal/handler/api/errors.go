package api

import (
	"context"
	"errors"
	"net/http"

	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	"SignalForge/pkg/util"
)

// toAppError maps use case errors onto HTTP statuses.
func toAppError(err error) error {
	var invalid *usecase.InvalidSignalError
	switch {
	case errors.As(err, &invalid):
		return xhttp.NewAppError("ERR_SIGNAL_TYPE", "signals", invalid.Error(), http.StatusBadRequest).
			WithParam("index", invalid.Index)
	case errors.Is(err, util.ErrInvalidTimeframe):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrNoCandles):
		return xhttp.NotFoundError("no candles for the requested coin and range").WithError(err)
	case errors.Is(err, usecase.ErrRunNotFound):
		return xhttp.NotFoundError("run not found").WithError(err)
	case errors.Is(err, usecase.ErrQueueDisabled):
		return xhttp.UnavailableError("async backtests are disabled").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.UnavailableError("backtest timed out").WithError(err)
	default:
		return xhttp.InternalError("backtest failed").WithError(err)
	}
}
