// Package api serves the map overlays, basemap tiles and VWorld data proxy
// over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/config"
	"github.com/sells-group/airzone/internal/geospatial"
	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/pkg/vworld"
)

// Deps are the collaborators the HTTP handlers need. Tiles and DataProxy
// are optional; their routes are omitted when nil.
type Deps struct {
	Registry    *overlay.Registry
	Tiles       *geospatial.TileProxy
	DataProxy   http.Handler
	Map         config.MapConfig
	CORSOrigins []string
	DefaultBBox vworld.BBox
}

// Server holds the handler state.
type Server struct {
	deps Deps
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	if d.DefaultBBox == (vworld.BBox{}) {
		d.DefaultBBox = vworld.KoreaBBox
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	return &Server{deps: d}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/map", s.handleMap)
		r.Get("/layers", s.handleListLayers)
		r.Route("/layers/{kind}", func(r chi.Router) {
			r.Get("/", s.handleGetLayer)
			r.Put("/", s.handleEnableLayer)
			r.Delete("/", s.handleDisableLayer)
			r.Post("/toggle", s.handleToggleLayer)
		})
	})

	if s.deps.Tiles != nil {
		r.Get("/tiles/base/{z}/{x}/{y}.png", s.handleBaseTile)
		r.Get("/tiles/stats", s.handleTileStats)
	}
	if s.deps.DataProxy != nil {
		r.Handle("/vworld/*", s.deps.DataProxy)
	}
	return r
}

// requestLogger logs each request with zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
