package methods

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoska/gameapi/internal/handler"
)

func TestTable_Registers(t *testing.T) {
	r := handler.NewRegistry()
	require.NoError(t, r.RegisterAll(Table()))

	assert.Equal(t, []string{"system.echo", "system.ping", "test"}, r.Names())
}

func TestTest_Process(t *testing.T) {
	res, err := handler.Execute(context.Background(), "test", NewTest(), time.Second)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":{"result":"true"}}`, string(data))
}

func TestTest_IgnoresParameters(t *testing.T) {
	h := NewTest()
	h.SetSourceAddress("198.51.100.1")
	h.SetParameters(handler.Params{"anything": []any{1.0, 2.0}})

	v, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"result": "true"}, v)
}
