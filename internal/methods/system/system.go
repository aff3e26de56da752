// Package system contains diagnostic API methods.
package system

import (
	"context"
	"time"

	"github.com/leoska/gameapi/internal/handler"
)

// Ping reports the server clock so clients can estimate latency and skew.
type Ping struct {
	handler.Base
	now func() time.Time
}

// PingResponse is the result of system.ping.
type PingResponse struct {
	Pong       bool  `json:"pong"`
	ServerTime int64 `json:"server_time"`
}

// NewPing is the factory for Ping.
func NewPing() handler.Handler {
	return &Ping{now: time.Now}
}

func (p *Ping) Process(ctx context.Context) (any, error) {
	return PingResponse{Pong: true, ServerTime: p.now().UnixMilli()}, nil
}

// Echo returns the caller address and the parameters it was given.
type Echo struct {
	handler.Base
}

// EchoResponse is the result of system.echo.
type EchoResponse struct {
	SourceAddress string         `json:"source_address"`
	Params        handler.Params `json:"params"`
}

// NewEcho is the factory for Echo.
func NewEcho() handler.Handler {
	return &Echo{}
}

func (e *Echo) Process(ctx context.Context) (any, error) {
	return EchoResponse{SourceAddress: e.SourceAddress(), Params: e.Params()}, nil
}
