package handlers

import (
	"context"
	"errors"
	"fmt"
	"nessql/config"
	"nessql/database"
	"nessql/logger"
	"nessql/models"
	"net/http"
	"strings"
)

func queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if t := config.AppConfig.Query.Timeout; t > 0 {
		return context.WithTimeout(r.Context(), t)
	}
	return context.WithCancel(r.Context())
}

// ExecuteQueryHandler runs an ad-hoc SQL query against one scan database.
// @Summary Execute a query
// @Description Runs the query text unmodified against a read-only connection and returns columns and rows.
// @Tags Query
// @Accept json
// @Produce json
// @Param request body models.QueryRequest true "Database handle and query text"
// @Success 200 {object} models.QueryResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /query [post]
func ExecuteQueryHandler(w http.ResponseWriter, r *http.Request) {
	if !storeAvailable(w, "ExecuteQueryHandler") {
		return
	}
	var req models.QueryRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("ExecuteQueryHandler: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DB == "" {
		writeError(w, http.StatusBadRequest, "db is required")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()
	result, err := database.Store.ExecuteQuery(ctx, req.DB, req.Query)
	if err != nil {
		logger.Error("ExecuteQueryHandler: Query on %s failed: %v", req.DB, err)
		status := http.StatusBadRequest
		if errors.Is(err, database.ErrUnknownDatabase) {
			status = http.StatusNotFound
		} else if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// QueryPluginHandler returns the per-host detail rows of one finding.
// @Summary Drill into a plugin
// @Description Returns one row per affected host: plugin_id, plugin_name, severity, host, description, synopsis, see_also, plugin_output.
// @Tags Query
// @Accept json
// @Produce json
// @Param request body models.PluginQueryRequest true "Database handle and plugin name"
// @Success 200 {object} models.QueryResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /query_plugin [post]
func QueryPluginHandler(w http.ResponseWriter, r *http.Request) {
	if !storeAvailable(w, "QueryPluginHandler") {
		return
	}
	var req models.PluginQueryRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("QueryPluginHandler: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DB == "" || req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "db and plugin_name are required")
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()
	result, err := database.Store.QueryPlugin(ctx, req.DB, req.PluginName)
	if err != nil {
		logger.Error("QueryPluginHandler: Plugin %q on %s failed: %v", req.PluginName, req.DB, err)
		writeError(w, statusForStoreError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UpdateSeverityHandler overrides the severity of a plugin on every host.
// @Summary Override plugin severity
// @Description Sets the severity (0-4, or 5 for False Positive) of every row of the plugin.
// @Tags Query
// @Accept json
// @Produce json
// @Param request body models.SeverityUpdateRequest true "Database handle, plugin id and new severity"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /update_severity [post]
func UpdateSeverityHandler(w http.ResponseWriter, r *http.Request) {
	if !storeAvailable(w, "UpdateSeverityHandler") {
		return
	}
	var req models.SeverityUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("UpdateSeverityHandler: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DB == "" {
		writeError(w, http.StatusBadRequest, "db is required")
		return
	}
	if !req.Severity.Editable() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("severity %d out of range 0-5", req.Severity))
		return
	}

	if err := database.Store.UpdateSeverity(r.Context(), req.DB, req.PluginID, req.Severity); err != nil {
		logger.Error("UpdateSeverityHandler: Plugin %d on %s failed: %v", req.PluginID, req.DB, err)
		writeError(w, statusForStoreError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Severity updated successfully"})
}

// StatisticsHandler returns the dashboard snapshot of one scan database.
// @Summary Scan statistics
// @Description Scan name, host count, findings per severity and the most common open ports.
// @Tags Query
// @Accept json
// @Produce json
// @Param request body models.StatisticsRequest true "Database handle"
// @Success 200 {object} models.Statistics
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /statistics [post]
func StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	if !storeAvailable(w, "StatisticsHandler") {
		return
	}
	var req models.StatisticsRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("StatisticsHandler: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DB == "" {
		writeError(w, http.StatusBadRequest, "db is required")
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()
	stats, err := database.Store.Statistics(ctx, req.DB)
	if err != nil {
		logger.Error("StatisticsHandler: Statistics for %s failed: %v", req.DB, err)
		writeError(w, statusForStoreError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
