// Package webui serves the operator-facing debug pages.
package webui

import (
	"net/http"

	"github.com/ibi-group/sAVe/internal/app"
)

// WebUI holds the handlers for the HTML debug surface.
type WebUI struct {
	*app.Application
}

// NewWebUI creates the web UI over the application container.
func NewWebUI(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

// SetRoutes registers the debug routes.
func (webUI *WebUI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
}
