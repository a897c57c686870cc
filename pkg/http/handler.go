package http

import "github.com/labstack/echo/v4"

// Handler registers a group of routes on the server's echo instance. The
// DI layer composes the per-area handlers into one Handler for the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
