package handlers

import (
	"nessql/version"
	"net/http"
)

// GetVersionHandler returns the application version.
// @Summary Get application version
// @Description Retrieves the current version of the application.
// @Tags Version
// @Produce json
// @Success 200 {object} map[string]string "{"version": "v1.0.0"}"
// @Router /version [get]
func GetVersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.AppVersion})
}
