package api

import (
	"strings"

	models "github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/usecase"
	xhttp "github.com/YoByron/trading-sub013/pkg/http"
	xlogger "github.com/YoByron/trading-sub013/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PipelineEchoHandler serves the decision pipeline surface: on-demand
// evaluation, journal reads, portfolio state, and the halt switch.
type PipelineEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.DecisionPipeline
	ops      *usecase.OpsUseCase
}

func NewPipelineEchoHandler(logger *xlogger.Logger, pipeline *usecase.DecisionPipeline, ops *usecase.OpsUseCase) *PipelineEchoHandler {
	return &PipelineEchoHandler{logger: logger, pipeline: pipeline, ops: ops}
}

func (h *PipelineEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.POST("/evaluate", h.Evaluate)
	g.GET("/decisions", h.Decisions)
	g.GET("/decisions/latest", h.Latest)
	g.GET("/positions", h.Positions)
	g.GET("/halt", h.HaltStatus)
	g.POST("/halt", h.SetHalt)
	g.DELETE("/halt", h.Resume)
}

// Evaluate runs one decision pass over the requested tickers.
func (h *PipelineEchoHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.pipeline.Tick(c.Request().Context(), req.Tickers, req.DryRun)
	if err != nil {
		h.logger.Error("evaluate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Decisions(c echo.Context) error {
	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.ops.Decisions(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("decisions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Latest returns the most recent decision per ticker. The tickers query
// param is comma separated; empty means the configured universe.
func (h *PipelineEchoHandler) Latest(c echo.Context) error {
	var tickers []string
	if raw := c.QueryParam("tickers"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, t)
			}
		}
	}

	res, err := h.ops.LatestDecisions(c.Request().Context(), tickers)
	if err != nil {
		h.logger.Error("latest decisions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Positions(c echo.Context) error {
	res, err := h.ops.Positions(c.Request().Context())
	if err != nil {
		h.logger.Error("positions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) HaltStatus(c echo.Context) error {
	res, err := h.ops.HaltStatus(c.Request().Context())
	if err != nil {
		h.logger.Error("halt status error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) SetHalt(c echo.Context) error {
	req := &models.HaltRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.ops.SetHalt(c.Request().Context(), req.Halted, req.Reason)
	if err != nil {
		h.logger.Error("set halt error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.logger.Info("halt switch set",
		xlogger.Bool("halted", res.Halted),
		xlogger.String("reason", res.Reason),
	)
	return xhttp.SuccessResponse(c, res)
}

// Resume clears the halt flag.
func (h *PipelineEchoHandler) Resume(c echo.Context) error {
	res, err := h.ops.SetHalt(c.Request().Context(), false, "")
	if err != nil {
		h.logger.Error("resume error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.logger.Info("halt switch cleared")
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Health(c echo.Context) error {
	if err := h.ops.Health(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
