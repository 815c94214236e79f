package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/airzone/internal/geospatial"
	"github.com/sells-group/airzone/internal/overlay"
	"github.com/sells-group/airzone/pkg/vworld"
)

const attribution = `&copy; <a href="https://www.vworld.kr">VWorld</a>`

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type mapView struct {
	Center struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Zoom        int    `json:"zoom"`
	TileURL     string `json:"tile_url,omitempty"`
	Attribution string `json:"attribution"`
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	var v mapView
	v.Center.Lat = s.deps.Map.CenterLat
	v.Center.Lon = s.deps.Map.CenterLon
	v.Zoom = s.deps.Map.Zoom
	v.Attribution = attribution
	if s.deps.Tiles != nil {
		v.TileURL = "/tiles/base/{z}/{x}/{y}.png"
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleListLayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Registry.List())
}

// kindParam resolves {kind}, writing a 404 for unknown kinds.
func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (overlay.Kind, bool) {
	kind, err := overlay.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_layer", err.Error())
		return "", false
	}
	return kind, true
}

// bboxParam reads ?bbox=w,s,e,n, defaulting to the configured extent.
func (s *Server) bboxParam(w http.ResponseWriter, r *http.Request) (vworld.BBox, bool) {
	raw := r.URL.Query().Get("bbox")
	if raw == "" {
		return s.deps.DefaultBBox, true
	}
	b, err := vworld.ParseBBox(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_bbox", err.Error())
		return vworld.BBox{}, false
	}
	return b, true
}

func (s *Server) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	o, ok := s.deps.Registry.Active(kind)
	if !ok {
		writeError(w, http.StatusNotFound, "layer_disabled", string(kind)+" is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleEnableLayer(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	bbox, ok := s.bboxParam(w, r)
	if !ok {
		return
	}
	o, err := s.deps.Registry.Enable(r.Context(), kind, bbox)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// writeLoadError maps a failed overlay load: a load overtaken by a newer
// request is a conflict, anything else an upstream failure.
func writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, overlay.ErrSuperseded) {
		writeError(w, http.StatusConflict, "superseded", err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "load_failed", err.Error())
}

func (s *Server) handleDisableLayer(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	s.deps.Registry.Disable(kind)
	w.WriteHeader(http.StatusNoContent)
}

type toggleResult struct {
	Kind     overlay.Kind     `json:"kind"`
	Enabled  bool             `json:"enabled"`
	Features int              `json:"features"`
	Overlay  *overlay.Overlay `json:"overlay,omitempty"`
}

func (s *Server) handleToggleLayer(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	bbox, ok := s.bboxParam(w, r)
	if !ok {
		return
	}
	o, err := s.deps.Registry.Toggle(r.Context(), kind, bbox)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	res := toggleResult{Kind: kind, Enabled: o != nil, Overlay: o}
	if o != nil {
		res.Features = len(o.Features.Features)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBaseTile(w http.ResponseWriter, r *http.Request) {
	var zxy [3]int
	for i, name := range []string{"z", "x", "y"} {
		v, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			http.Error(w, "invalid tile path", http.StatusBadRequest)
			return
		}
		zxy[i] = v
	}
	if !geospatial.ValidTile(zxy[0], zxy[1], zxy[2]) {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, ct, err := s.deps.Tiles.Fetch(r.Context(), zxy[0], zxy[1], zxy[2])
	if errors.Is(err, geospatial.ErrTileNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		zap.L().Error("api: basemap tile fetch failed", zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (s *Server) handleTileStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tiles.Stats())
}
