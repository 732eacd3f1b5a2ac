package app

import (
	"crypto/subtle"
	"net/http"
)

// HasValidAPIKey reports whether the request carries a configured API key
// in its "key" query parameter. Statistics endpoints are operator-facing
// and require one; planning endpoints do not.
func (app *Application) HasValidAPIKey(r *http.Request) bool {
	return app.ValidAPIKey(r.URL.Query().Get("key"))
}

// ValidAPIKey checks a key against the configured set in constant time.
func (app *Application) ValidAPIKey(key string) bool {
	if key == "" {
		return false
	}
	for _, configured := range app.Config.ApiKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(configured)) == 1 {
			return true
		}
	}
	return false
}
