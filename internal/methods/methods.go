// Package methods holds the table of API handlers exposed by the server.
package methods

import (
	"github.com/leoska/gameapi/internal/handler"
	"github.com/leoska/gameapi/internal/methods/system"
)

// Table lists every API method. Names are the dot-separated paths clients
// post to under /api/<name>.json.
func Table() []handler.Descriptor {
	return []handler.Descriptor{
		{Name: "test", Factory: NewTest},
		{Name: "system.ping", Factory: system.NewPing},
		{Name: "system.echo", Factory: system.NewEcho},
	}
}
