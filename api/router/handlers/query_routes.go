package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterQueryRoutes(r chi.Router) {
	r.Post("/query", ExecuteQueryHandler)
	r.Post("/query_plugin", QueryPluginHandler)
	r.Post("/update_severity", UpdateSeverityHandler)
	r.Post("/statistics", StatisticsHandler)
}
