package handlers

import (
	"errors"
	"nessql/config"
	"nessql/core"
	"nessql/database"
	"nessql/logger"
	"nessql/models"
	"net/http"
	"path/filepath"
	"strings"
)

// ListDatabasesHandler returns every scan database handle.
// @Summary List scan databases
// @Description Returns the handles of all imported scan databases, sorted by name.
// @Tags Databases
// @Produce json
// @Success 200 {array} string
// @Failure 500 {object} models.ErrorResponse
// @Router /databases [get]
func ListDatabasesHandler(w http.ResponseWriter, r *http.Request) {
	if !storeAvailable(w, "ListDatabasesHandler") {
		return
	}
	handles, err := database.Store.ListDatabases()
	if err != nil {
		logger.Error("ListDatabasesHandler: Error listing databases: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list databases")
		return
	}
	writeJSON(w, http.StatusOK, handles)
}

// UploadScanHandler ingests a .nessus file into a new scan database.
// @Summary Upload a Nessus scan
// @Description Parses the uploaded .nessus file into a new queryable database. The file is not kept.
// @Tags Databases
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true ".nessus scan file"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /upload [post]
func UploadScanHandler(w http.ResponseWriter, r *http.Request) {
	if !storeAvailable(w, "UploadScanHandler") {
		return
	}
	maxBytes := config.AppConfig.Server.MaxUploadMB << 20
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Error("UploadScanHandler: No file in request: %v", err)
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(name), core.NessusExtension) {
		logger.Error("UploadScanHandler: Rejected file %q without .nessus extension", name)
		writeError(w, http.StatusBadRequest, core.ErrNotNessusFile.Error())
		return
	}

	summary, err := core.ImportNessus(r.Context(), database.Store, name, file)
	if err != nil {
		logger.Error("UploadScanHandler: Import of %q failed: %v", name, err)
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to import scan: "+err.Error())
		return
	}

	logger.Info("UploadScanHandler: Imported %q into %s (%d hosts, %d findings)", name, summary.DB, summary.Hosts, summary.Findings)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Database created successfully", DB: summary.DB})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
