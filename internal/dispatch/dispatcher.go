// Package dispatch routes a decoded API call to its registered handler and
// turns the outcome into the wire envelope.
package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/leoska/gameapi/internal/handler"
	"github.com/leoska/gameapi/internal/metrics"
)

// Wire error codes.
const (
	CodeTerminating   = "SERVER_TERMINATING"
	CodeNotFound      = "API_NOT_FOUND"
	CodeTimeout       = "TIMEOUT"
	CodeUnimplemented = "UNIMPLEMENTED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeEmpty         = "EMPTY_CODE"
	CodeInvalidBody   = "INVALID_BODY"
	CodeBodyTooLarge  = "BODY_TOO_LARGE"

	// codeOK labels successful dispatches in metrics only.
	codeOK = "OK"

	// unknownHandler keeps unresolved names out of metric labels.
	unknownHandler = "_unknown"
)

// ErrTerminating is reported while the server shuts down.
var ErrTerminating = errors.New("server terminating")

// Call is one decoded API request.
type Call struct {
	Name          string
	Params        handler.Params
	SourceAddress string
	RequestID     string
}

// ErrorBody is the payload of a failed call.
type ErrorBody struct {
	Code string `json:"code"`
}

// Reply is the wire envelope: exactly one of Response or Error is set.
type Reply struct {
	Response any        `json:"response,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

// Failed builds an error reply.
func Failed(code string) Reply {
	return Reply{Error: &ErrorBody{Code: code}}
}

// Dispatcher resolves and runs handlers.
type Dispatcher struct {
	registry    *handler.Registry
	timeout     time.Duration
	terminating *atomic.Bool
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// New creates a dispatcher. terminating is shared with the server lifecycle
// and only ever flips to true.
func New(registry *handler.Registry, timeout time.Duration, terminating *atomic.Bool, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if terminating == nil {
		terminating = new(atomic.Bool)
	}
	return &Dispatcher{
		registry:    registry,
		timeout:     timeout,
		terminating: terminating,
		logger:      logger.Named("dispatch"),
		metrics:     m,
	}
}

// Terminating reports whether new calls are being refused.
func (d *Dispatcher) Terminating() bool {
	return d.terminating.Load()
}

// Dispatch runs call and never fails: every outcome is folded into a Reply.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Reply {
	if d.terminating.Load() {
		d.metrics.RecordDispatch(unknownHandler, CodeTerminating)
		return Failed(CodeTerminating)
	}

	desc, err := d.registry.Resolve(call.Name)
	if err != nil {
		d.metrics.RecordDispatch(unknownHandler, CodeNotFound)
		d.logger.Debug("Unknown API", zap.String("name", call.Name), zap.String("request_id", call.RequestID))
		return Failed(CodeNotFound)
	}

	h := desc.New()
	h.SetSourceAddress(call.SourceAddress)
	h.SetParameters(call.Params)

	done := d.metrics.StartDispatch(desc.Name)
	res, err := handler.Execute(ctx, desc.Name, h, d.timeout)
	if err != nil {
		code := ErrorCode(err)
		done(code)
		d.logger.Warn("API call failed",
			zap.String("name", desc.Name),
			zap.String("request_id", call.RequestID),
			zap.String("source_address", call.SourceAddress),
			zap.String("code", code),
			zap.Error(err),
		)
		return Failed(code)
	}

	done(codeOK)
	return Reply{Response: res.Response}
}

// ErrorCode maps an invocation failure to its wire code.
func ErrorCode(err error) string {
	if err == nil {
		return CodeEmpty
	}

	var coder handler.Coder
	switch {
	case errors.As(err, &coder) && coder.Code() != "":
		return coder.Code()
	case errors.Is(err, ErrTerminating):
		return CodeTerminating
	case errors.Is(err, handler.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, handler.ErrTimeout):
		return CodeTimeout
	case errors.Is(err, handler.ErrUnimplemented):
		return CodeUnimplemented
	case errors.Is(err, handler.ErrHandlerPanic):
		return CodeInternal
	}

	// Plain domain errors surface their own message.
	msg := err.Error()
	var execErr *handler.ExecError
	if errors.As(err, &execErr) {
		if execErr.Err == nil {
			return CodeEmpty
		}
		msg = execErr.Err.Error()
	}
	if msg == "" {
		return CodeEmpty
	}
	return msg
}
