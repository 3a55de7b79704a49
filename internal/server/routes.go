package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

type readingResponse struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api")
	api.GET("/readings", s.ReadingsHandler)
	api.GET("/readings/:name", s.ReadingHandler)
	api.PUT("/settings/:name", s.SetParameterHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) ReadingsHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetReadingsRequest{}, s.timeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.GetReadingsResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return errorJSON(c, response.GetResponseError())
	}
	readings := response.Readings
	if readings == nil {
		readings = axpert.Readings{}
	}
	return c.JSON(http.StatusOK, readings)
}

func (s *Server) ReadingHandler(c echo.Context) error {
	name := c.Param("name")
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetReadingRequest{Name: name}, s.timeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.GetReadingResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return errorJSON(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, readingResponse{Name: response.Name, Value: response.Value})
}

// SetParameterHandler takes the raw value as request body.
func (s *Server) SetParameterHandler(c echo.Context) error {
	name := c.Param("name")
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	value := strings.TrimSpace(string(body))

	res, err := s.rootContext.RequestFuture(s.masterActor, domain.SetParameterRequest{Name: name, Value: value}, s.timeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.SetParameterResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return errorJSON(c, response.GetResponseError())
	}
	return c.NoContent(http.StatusNoContent)
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), errorResponse{Error: err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, axpert.ErrUnknownCommand), errors.Is(err, axpert.ErrUnknownValue):
		return http.StatusBadRequest
	case errors.Is(err, axpert.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, axpert.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, axpert.ErrSetFailed):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}
