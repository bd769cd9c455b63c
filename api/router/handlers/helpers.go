package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"nessql/database"
	"nessql/logger"
	"nessql/models"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError sends the {error} payload the session client surfaces verbatim.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// statusForStoreError maps database sentinel errors to HTTP statuses.
func statusForStoreError(err error) int {
	switch {
	case errors.Is(err, database.ErrUnknownDatabase), errors.Is(err, database.ErrPluginNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request payload: %v", err)
	}
	return nil
}

func storeAvailable(w http.ResponseWriter, handlerName string) bool {
	if database.Store == nil {
		logger.Error("%s: scan store is not initialized", handlerName)
		writeError(w, http.StatusServiceUnavailable, "Scan store is not initialized")
		return false
	}
	return true
}
