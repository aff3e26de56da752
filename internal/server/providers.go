package server

import (
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/leoska/gameapi/internal/api"
	"github.com/leoska/gameapi/internal/metrics"
)

// RouteProvider contributes routes to the server router.
type RouteProvider interface {
	// RegisterRoutes adds the provider's routes to the router.
	RegisterRoutes(router *gin.Engine)

	// Name returns the provider name for logging
	Name() string
}

// =============================================================================
// API Provider - game API dispatch, canvas page and status endpoints
// =============================================================================

// APIProvider serves the API handlers and the page templates they render.
type APIProvider struct {
	handlers  *api.Handlers
	templates *template.Template
}

// NewAPIProvider creates a new API route provider
func NewAPIProvider(handlers *api.Handlers) (*APIProvider, error) {
	tmpl, err := api.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &APIProvider{handlers: handlers, templates: tmpl}, nil
}

func (p *APIProvider) Name() string { return "api" }

func (p *APIProvider) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(p.templates)
	p.handlers.RegisterRoutes(router)
}

// =============================================================================
// Metrics Provider - Prometheus exposition
// =============================================================================

// MetricsProvider exposes the metrics registry.
type MetricsProvider struct {
	path    string
	metrics *metrics.Metrics
}

// NewMetricsProvider creates a provider serving m at path.
func NewMetricsProvider(path string, m *metrics.Metrics) (*MetricsProvider, error) {
	if m == nil {
		return nil, fmt.Errorf("metrics provider requires a metrics registry")
	}
	return &MetricsProvider{path: path, metrics: m}, nil
}

func (p *MetricsProvider) Name() string { return "metrics" }

func (p *MetricsProvider) RegisterRoutes(router *gin.Engine) {
	router.GET(p.path, gin.WrapH(p.metrics.Handler()))
}
