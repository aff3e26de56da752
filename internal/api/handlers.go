package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leoska/gameapi/internal/dispatch"
	"github.com/leoska/gameapi/internal/handler"
	"github.com/leoska/gameapi/pkg/config"
	"github.com/leoska/gameapi/pkg/logging"
)

// methodSuffix terminates every API path: /api/<name>.json.
const methodSuffix = ".json"

// Handlers aggregates all HTTP handlers
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	registry   *handler.Registry
	cfg        *config.Config
	state      func() string
	logger     *zap.Logger
}

// NewHandlers creates a new Handlers instance. state reports the server
// lifecycle state for the status endpoints.
func NewHandlers(dispatcher *dispatch.Dispatcher, registry *handler.Registry, cfg *config.Config, state func() string, logger *zap.Logger) *Handlers {
	if state == nil {
		state = func() string { return "" }
	}
	return &Handlers{
		dispatcher: dispatcher,
		registry:   registry,
		cfg:        cfg,
		state:      state,
		logger:     logger.Named("handlers"),
	}
}

// RegisterRoutes installs the API, canvas and status routes.
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/:method", h.Dispatch)
	router.GET("/game/canvas", h.Canvas)
	router.GET("/status", h.Status)
	router.GET("/health", h.Status)
}

// Status handles the /status and /health endpoints
func (h *Handlers) Status(c *gin.Context) {
	status := "ok"
	if h.dispatcher.Terminating() {
		status = "terminating"
	}
	c.JSON(http.StatusOK, StatusResponse{
		Status:     status,
		Service:    ServiceName,
		State:      h.state(),
		APIVersion: CurrentAPIVersion,
		Handlers:   h.registry.Names(),
	})
}

// Dispatch handles POST /api/<name>.json. The JSON object body becomes the
// handler parameters; the reply is always HTTP 200 with either a response or
// an error code.
func (h *Handlers) Dispatch(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("method"), methodSuffix)
	if !ok || name == "" {
		c.JSON(http.StatusNotFound, dispatch.Failed(dispatch.CodeNotFound))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Server.MaxBodyBytes)
	params, err := decodeParams(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logging.WithRequest(h.logger, c).Warn("Request body too large",
				zap.String("name", name),
				zap.Int64("limit", tooLarge.Limit),
			)
			c.JSON(http.StatusRequestEntityTooLarge, dispatch.Failed(dispatch.CodeBodyTooLarge))
			return
		}
		logging.WithRequest(h.logger, c).Debug("Invalid request body",
			zap.String("name", name),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, dispatch.Failed(dispatch.CodeInvalidBody))
		return
	}

	reply := h.dispatcher.Dispatch(c.Request.Context(), dispatch.Call{
		Name:          name,
		Params:        params,
		SourceAddress: c.GetString(logging.SourceAddressKey),
		RequestID:     c.GetString(logging.RequestIDKey),
	})
	c.JSON(http.StatusOK, reply)
}

// decodeParams reads the body as a JSON object. An empty body or a JSON null
// yields empty parameters.
func decodeParams(c *gin.Context) (handler.Params, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return handler.Params{}, nil
	}

	var params handler.Params
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = handler.Params{}
	}
	return params, nil
}
