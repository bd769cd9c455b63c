package api

import (
	"io"
	"nessql/api/router/handlers"
	"nessql/logger"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/swaggo/swag"
)

// compressionLevel applies to gzip, deflate and brotli encoders alike.
const compressionLevel = 5

// NewRouter creates the API router. All registered paths are relative to the
// /api base path.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(newCompressor().Handler)

	handlers.RegisterHealthRoutes(r)
	handlers.RegisterVersionRoutes(r)
	handlers.RegisterDatabaseRoutes(r)
	handlers.RegisterQueryRoutes(r)

	r.Get("/swagger/doc.json", swaggerDocHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logger.Error("API SUB-ROUTER CATCH-ALL: Unhandled route relative to /api: %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})
	return r
}

// newCompressor adds a brotli encoder on top of chi's gzip/deflate defaults.
// Result sets of wide queries compress well.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(compressionLevel, "application/json")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.AccessInfo(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"remote":     r.RemoteAddr,
			}, "request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func swaggerDocHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		logger.Error("swaggerDocHandler: Error reading swagger doc: %v", err)
		http.Error(w, "Failed to read API documentation", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

// NewServerMux mounts the API under /api and, when staticDir is set, serves
// static files from it for every other path.
func NewServerMux(staticDir string) http.Handler {
	mainMux := http.NewServeMux()
	mainMux.Handle("/api/", http.StripPrefix("/api", NewRouter()))
	if staticDir != "" {
		mainMux.Handle("/", http.FileServer(http.Dir(staticDir)))
		logger.Info("Serving static files from %s", staticDir)
	}
	return mainMux
}
