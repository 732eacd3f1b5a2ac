package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"github.com/ibi-group/sAVe/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html")
	tmpl, err := template.ParseFS(templateFS, "debug_index.html")
	if err != nil {
		slog.Error("failed to parse debug template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dataStruct := debugData{
		Title: title,
		Pre:   content,
	}

	err = tmpl.Execute(w, dataStruct)
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps internal state for operators. Disabled in
// production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string

	switch dataType {
	case "stations":
		data = webUI.Stations.All()
		title = "Reference Data - Subway Stations"
	case "table_counts":
		counts, err := webUI.TripDB.TableCounts(r.Context())
		if err != nil {
			data = map[string]string{"error": err.Error()}
		} else {
			data = counts
		}
		title = "Statistics Store - Table Counts"
	case "config":
		data = webUI.Config
		title = "Application - Config"
	default:
		data = map[string]string{
			"error": "Please use one of the following: stations, table_counts, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
