package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/usecase"
)

// Server exposes the dashboard JSON API as a thin layer over the pipeline.
type Server struct {
	echo     *echo.Echo
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// NewServer wires routes onto a fresh echo instance.
func NewServer(pipeline *usecase.Pipeline, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, pipeline: pipeline, logger: logger}

	e.GET("/api/products", s.listProducts)
	e.POST("/api/products", s.addProduct)
	e.GET("/api/products/:pid/stats", s.productStats)
	e.GET("/api/products/:pid/issues", s.productIssues)

	return s
}

// Start blocks serving HTTP until the listener fails or is shut down.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type productItem struct {
	PID  string `json:"pid"`
	Name string `json:"name"`
}

func (s *Server) listProducts(c echo.Context) error {
	products, err := s.pipeline.Products(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}

	items := make([]productItem, 0, len(products))
	for _, p := range products {
		items = append(items, productItem{PID: p.PID, Name: p.Name})
	}
	return c.JSON(http.StatusOK, map[string]any{"products": items})
}

type addProductRequest struct {
	PID         string `json:"pid"`
	Name        string `json:"name"`
	Marketplace string `json:"marketplace"`
	MaxPages    int    `json:"max_pages"`
}

// addProduct creates the product, scrapes its reviews, and scores them in one
// synchronous call, mirroring how the operator drives the dashboard.
func (s *Server) addProduct(c echo.Context) error {
	var req addProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
	}
	if req.PID == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "pid and name are required"})
	}

	ctx := c.Request().Context()
	ingested, scored, err := s.pipeline.RefreshProduct(ctx, req.PID, req.Name, req.Marketplace, req.MaxPages)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"product":            productItem{PID: req.PID, Name: req.Name},
		"reviews_saved":      ingested.Saved,
		"reviews_rejected":   ingested.Rejected,
		"sentiment_analyzed": scored.Updated,
	})
}

func (s *Server) productStats(c echo.Context) error {
	stats, err := s.pipeline.Stats(c.Request().Context(), c.Param("pid"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

type issueItem struct {
	Phrase      string  `json:"phrase"`
	Frequency   int     `json:"frequency"`
	AvgSeverity float64 `json:"avg_severity"`
	Aspect      string  `json:"aspect"`
}

func (s *Server) productIssues(c echo.Context) error {
	issues, err := s.pipeline.Issues(c.Request().Context(), c.Param("pid"))
	if err != nil {
		return s.fail(c, err)
	}

	items := make([]issueItem, 0, len(issues))
	for _, issue := range issues {
		items = append(items, issueItem{
			Phrase:      issue.Phrase,
			Frequency:   issue.Frequency,
			AvgSeverity: issue.AvgSeverity,
			Aspect:      issue.Aspect,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"issues": items})
}

func (s *Server) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Product not found"})
	case errors.Is(err, domain.ErrClassifierUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "classifier unavailable"})
	default:
		if s.logger != nil {
			s.logger.Error("request failed", "path", c.Path(), "error", err)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
