package api

import (
	"github.com/labstack/echo/v4"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"
)

type ScoreHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ScoreUseCase
}

func NewScoreHandler(logger *xlogger.Logger, uc *usecase.ScoreUseCase) *ScoreHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScoreHandler{logger: logger, uc: uc}
}

func (h *ScoreHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/score")
	g.POST("", h.Score)
	g.POST("/outcome", h.Outcome)
	g.GET("/diagnostics", h.Diagnostics)
}

func (h *ScoreHandler) Score(c echo.Context) error {
	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Score(c.Request().Context(), *req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScoreHandler) Outcome(c echo.Context) error {
	req := &models.OutcomeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.uc.RecordOutcome(c.Request().Context(), *req); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]bool{"recorded": true})
}

func (h *ScoreHandler) Diagnostics(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Diagnostics())
}
