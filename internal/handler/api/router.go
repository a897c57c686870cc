package api

import (
	"github.com/labstack/echo/v4"

	xhttp "github.com/YoByron/trading-sub013/pkg/http"
)

// Router composes the API handlers into the single registrar the HTTP
// server accepts.
type Router struct {
	pipeline   *PipelineEchoHandler
	validation *ValidationEchoHandler
}

func NewRouter(pipeline *PipelineEchoHandler, validation *ValidationEchoHandler) *Router {
	return &Router{pipeline: pipeline, validation: validation}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.pipeline.RegisterRoutes(e)
	r.validation.RegisterRoutes(e)
}

var _ xhttp.Handler = (*Router)(nil)
