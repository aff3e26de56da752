// Package handler defines the per-request handler contract, the registry
// that maps logical names to handler factories, and the timed execution of
// a handler.
package handler

import (
	"context"
	"time"
)

// Params is the decoded JSON body of a request.
type Params map[string]any

// Handler is a per-request unit of domain logic. A fresh instance is built
// for every request and never shared.
type Handler interface {
	// IsHandler marks the value as a handler; registration rejects factories
	// whose product reports false.
	IsHandler() bool

	SetSourceAddress(addr string)
	SetParameters(params Params)

	// Process runs the domain logic. ctx carries the execution deadline.
	Process(ctx context.Context) (any, error)
}

// Factory builds a new handler instance.
type Factory func() Handler

// Base provides the bookkeeping every handler shares. Concrete handlers
// embed it and override Process.
type Base struct {
	name          string
	start         time.Time
	sourceAddress string
	params        Params
}

// IsHandler implements Handler.
func (b *Base) IsHandler() bool {
	return true
}

// SetSourceAddress stores the caller address.
func (b *Base) SetSourceAddress(addr string) {
	b.sourceAddress = addr
}

// SetParameters stores the request parameters. A nil map is stored as empty.
func (b *Base) SetParameters(params Params) {
	if params == nil {
		params = Params{}
	}
	b.params = params
}

// SourceAddress returns the caller address, empty if never set.
func (b *Base) SourceAddress() string {
	return b.sourceAddress
}

// Params returns the request parameters, never nil.
func (b *Base) Params() Params {
	if b.params == nil {
		b.params = Params{}
	}
	return b.params
}

// Name returns the logical name the handler was executed under.
func (b *Base) Name() string {
	return b.name
}

// Started returns when execution began.
func (b *Base) Started() time.Time {
	return b.start
}

// Process is the fallback for handlers that forgot to implement it.
func (b *Base) Process(ctx context.Context) (any, error) {
	return nil, ErrUnimplemented
}

func (b *Base) markStarted(name string, t time.Time) {
	b.name = name
	b.start = t
}

// starter is satisfied by handlers embedding Base.
type starter interface {
	markStarted(name string, t time.Time)
}
