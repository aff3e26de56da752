package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leoska/gameapi/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// CanvasTemplate is the name of the game canvas page template.
const CanvasTemplate = "canvas.html"

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// CanvasPage holds the values rendered into the canvas page.
type CanvasPage struct {
	Name          string
	SourceAddress string
}

// Canvas serves the HTML5 game canvas page. The router must have the
// templates from Templates installed.
func (h *Handlers) Canvas(c *gin.Context) {
	c.HTML(http.StatusOK, CanvasTemplate, CanvasPage{
		Name:          h.cfg.Canvas.Name,
		SourceAddress: c.GetString(logging.SourceAddressKey),
	})
}
