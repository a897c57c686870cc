package api

import (
	"net/http"

	models "github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/service/ratelimit"
	"github.com/YoByron/trading-sub013/internal/usecase"
	xhttp "github.com/YoByron/trading-sub013/pkg/http"
	xlogger "github.com/YoByron/trading-sub013/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ValidationEchoHandler serves walk-forward validation runs and report
// lookups. Runs are expensive, so the POST endpoint is rate limited per
// caller address.
type ValidationEchoHandler struct {
	logger *xlogger.Logger
	runner *usecase.ValidationRunner
	rl     *ratelimit.Limiter
}

func NewValidationEchoHandler(logger *xlogger.Logger, runner *usecase.ValidationRunner) *ValidationEchoHandler {
	return &ValidationEchoHandler{logger: logger, runner: runner, rl: ratelimit.New()}
}

func (h *ValidationEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/validation")
	g.POST("/runs", h.Run)
	g.GET("/reports/:id", h.Report)
	g.GET("/reports/latest", h.LatestReport)
}

func (h *ValidationEchoHandler) Run(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":validation", 2, 0.2) {
		h.logger.Warn("validation run rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests))
	}

	req := &models.ValidationRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Async {
		if err := h.runner.Enqueue(c.Request().Context(), *req); err != nil {
			h.logger.Error("enqueue validation run", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.AcceptedResponse(c, map[string]string{
			"status":   "queued",
			"ticker":   req.Ticker,
			"strategy": req.Strategy,
		})
	}

	report, err := h.runner.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("validation run error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ValidationEchoHandler) Report(c echo.Context) error {
	report, err := h.runner.GetReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ValidationEchoHandler) LatestReport(c echo.Context) error {
	report, err := h.runner.LatestReport(c.Request().Context(), c.QueryParam("ticker"), c.QueryParam("strategy"))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}
