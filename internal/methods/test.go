package methods

import (
	"context"

	"github.com/leoska/gameapi/internal/handler"
)

// Test is a liveness method that always succeeds.
type Test struct {
	handler.Base
}

// NewTest is the factory for Test.
func NewTest() handler.Handler {
	return &Test{}
}

func (t *Test) Process(ctx context.Context) (any, error) {
	return map[string]string{"result": "true"}, nil
}
