package api

import (
	"github.com/labstack/echo/v4"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	"SignalForge/pkg/http/middleware"
	xlogger "SignalForge/pkg/logger"
)

type BacktestHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.BacktestUseCase
	limiter middleware.Allower
}

// NewBacktestHandler rate-limits the two endpoints that start work; limiter may be nil.
func NewBacktestHandler(logger *xlogger.Logger, uc *usecase.BacktestUseCase, limiter middleware.Allower) *BacktestHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &BacktestHandler{logger: logger, uc: uc, limiter: limiter}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/backtest")
	limited := middleware.RateLimit(h.limiter)
	g.POST("", h.Run, limited)
	g.POST("/jobs", h.Submit, limited)
	g.GET("/runs/:id", h.Status)
}

func (h *BacktestHandler) Run(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Warn("backtest usecase error", xlogger.String("coin", req.Coin), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) Submit(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.uc.Submit(c.Request().Context(), *req)
	if err != nil {
		h.logger.Warn("backtest submit error", xlogger.String("coin", req.Coin), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/backtest/runs/"+st.RunID)
	return xhttp.AcceptedResponse(c, st)
}

func (h *BacktestHandler) Status(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.uc.Status(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, st)
}
