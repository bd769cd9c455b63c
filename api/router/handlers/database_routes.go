package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterDatabaseRoutes sets up the scan database listing and upload routes.
func RegisterDatabaseRoutes(r chi.Router) {
	r.Get("/databases", ListDatabasesHandler)
	r.Post("/upload", UploadScanHandler)
}
