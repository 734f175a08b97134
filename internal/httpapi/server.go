package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spacelens/internal/session"
	"spacelens/pkg/types"
)

// Sessions is the segmentation state machine as driven by the HTTP layer.
type Sessions interface {
	SetLayout(assetID string, l types.Layout)
	AddTouch(asset types.Asset, touch types.Touch) (session.Ticket, error)
	AddPoint(asset types.Asset, p types.Point) (session.Ticket, error)
	Generate(asset types.Asset) (uint64, bool)
	Reset(assetID string)
	Snapshot(assetID string) session.Snapshot
	Ready() bool
}

// Library lists, resolves and edits photos.
type Library interface {
	Page(cursor string, limit int) (types.AssetsResponse, error)
	Get(id string) (types.Asset, bool)
	Add(path string) (types.Asset, error)
	Delete(id string) error
}

// Gallery exposes generation statuses and the remote model list.
type Gallery interface {
	Refresh(ctx context.Context) ([]types.ModelDescriptor, error)
	Models() ([]types.ModelDescriptor, time.Time)
	Statuses(ctx context.Context) ([]types.GenerationStatus, error)
	Status(ctx context.Context, assetID string) (types.GenerationStatus, bool, error)
}

// Deps are the collaborators served by NewMux.
type Deps struct {
	Sessions Sessions
	Library  Library
	Gallery  Gallery
}

type handlers struct{ Deps }

func NewMux(d Deps) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)
	if c := currentSettings().CORS; c.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: c.AllowedOrigins,
			AllowedMethods: c.AllowedMethods,
			AllowedHeaders: c.AllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := handlers{d}
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.listAssets)
		r.Post("/", h.addAsset)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getAsset)
			r.Delete("/", h.deleteAsset)
			r.Put("/layout", h.putLayout)
			r.Post("/touch", h.postTouch)
			r.Post("/points", h.postPoint)
			r.Post("/generate", h.postGenerate)
			r.Post("/reset", h.postReset)
			r.Get("/session", h.getSession)
		})
	})
	r.Get("/models", h.getModels)
	r.Post("/models/refresh", h.refreshModels)
	r.Get("/gallery/status", h.galleryStatus)
	r.Get("/gallery/status/{id}", h.galleryAssetStatus)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Sessions.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("closed"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// listAssets godoc
// @Summary      List photos
// @Description  Newest first, paginated by cursor.
// @Tags         assets
// @Produce      json
// @Param        cursor  query  string  false  "next_cursor of the previous page"
// @Param        limit   query  int     false  "page size"
// @Success      200  {object}  types.AssetsResponse
// @Failure      400  {object}  types.ErrorResponse
// @Router       /assets [get]
func (h handlers) listAssets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	page, err := h.Library.Page(r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// asset resolves the {id} URL parameter or writes 404.
func (h handlers) asset(w http.ResponseWriter, r *http.Request) (types.Asset, bool) {
	id := chi.URLParam(r, "id")
	a, ok := h.Library.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("asset %q not found", id))
	}
	return a, ok
}

func (h handlers) getAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// addAsset godoc
// @Summary      Scan a file already in the photo directory into the library
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        body  body  types.AddAssetRequest  true  "file name"
// @Success      201  {object}  types.Asset
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /assets [post]
func (h handlers) addAsset(w http.ResponseWriter, r *http.Request) {
	var req types.AddAssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.File) == "" {
		writeJSONError(w, http.StatusBadRequest, "file is required")
		return
	}
	a, err := h.Library.Add(req.File)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// deleteAsset godoc
// @Summary      Delete a photo
// @Description  Removes the file and resets the asset's session, discarding any in-flight result.
// @Tags         assets
// @Param        id  path  string  true  "asset id"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Router       /assets/{id} [delete]
func (h handlers) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Library.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	h.Sessions.Reset(id)
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON enforces content type and body size, then decodes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, currentSettings().MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// putLayout godoc
// @Summary  Record the measured on-screen size of the rendered image
// @Tags     session
// @Accept   json
// @Param    id    path  string               true  "asset id"
// @Param    body  body  types.LayoutRequest  true  "layout"
// @Success  204
// @Failure  400  {object}  types.ErrorResponse
// @Router   /assets/{id}/layout [put]
func (h handlers) putLayout(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	var req types.LayoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeJSONError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	h.Sessions.SetLayout(a.ID, types.Layout{Width: req.Width, Height: req.Height})
	w.WriteHeader(http.StatusNoContent)
}

// postTouch godoc
// @Summary      Add a point from a display-local touch
// @Description  The touch is mapped through the recorded layout. 409 when no layout is known.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "asset id"
// @Param        body  body  types.PointRequest  true  "touch"
// @Success      202  {object}  types.PointResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /assets/{id}/touch [post]
func (h handlers) postTouch(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	var req types.PointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.X < 0 || req.Y < 0 {
		writeJSONError(w, http.StatusBadRequest, "touch coordinates must be non-negative")
		return
	}
	tk, err := h.Sessions.AddTouch(a, types.Touch{X: req.X, Y: req.Y})
	if err != nil {
		writeError(w, err)
		return
	}
	pointsAccepted.WithLabelValues("touch").Inc()
	writeJSON(w, http.StatusAccepted, types.PointResponse{Token: tk.Token, Point: tk.Point, Points: tk.Points})
}

// postPoint godoc
// @Summary  Add a point in source pixel space
// @Tags     session
// @Accept   json
// @Produce  json
// @Param    id    path  string              true  "asset id"
// @Param    body  body  types.PointRequest  true  "point"
// @Success  202  {object}  types.PointResponse
// @Failure  400  {object}  types.ErrorResponse
// @Failure  409  {object}  types.ErrorResponse
// @Router   /assets/{id}/points [post]
func (h handlers) postPoint(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	var req types.PointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := types.Point{X: int(math.Round(req.X)), Y: int(math.Round(req.Y)), Label: types.Foreground}
	if req.Label != nil {
		if *req.Label != int(types.Background) && *req.Label != int(types.Foreground) {
			writeJSONError(w, http.StatusBadRequest, "label must be 0 or 1")
			return
		}
		p.Label = types.Label(*req.Label)
	}
	if p.X < 0 || p.Y < 0 || (a.Width > 0 && p.X >= a.Width) || (a.Height > 0 && p.Y >= a.Height) {
		writeJSONError(w, http.StatusBadRequest, "point outside the image")
		return
	}
	tk, err := h.Sessions.AddPoint(a, p)
	if err != nil {
		writeError(w, err)
		return
	}
	pointsAccepted.WithLabelValues("points").Inc()
	writeJSON(w, http.StatusAccepted, types.PointResponse{Token: tk.Token, Point: tk.Point, Points: tk.Points})
}

// postGenerate godoc
// @Summary      Request 3D generation from the current segmentation
// @Description  202 when accepted; 409 with accepted=false when the session is not ready.
// @Tags         session
// @Produce      json
// @Param        id  path  string  true  "asset id"
// @Success      202  {object}  types.GenerateResponse
// @Failure      409  {object}  types.GenerateResponse
// @Router       /assets/{id}/generate [post]
func (h handlers) postGenerate(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	tok, accepted := h.Sessions.Generate(a)
	if !accepted {
		IncrementRejection(ReasonGenerateNotReady)
		writeJSON(w, http.StatusConflict, types.GenerateResponse{Accepted: false})
		return
	}
	writeJSON(w, http.StatusAccepted, types.GenerateResponse{Accepted: true, Token: tok})
}

// postReset godoc
// @Summary  Reset the asset's session to idle
// @Tags     session
// @Param    id  path  string  true  "asset id"
// @Success  204
// @Router   /assets/{id}/reset [post]
func (h handlers) postReset(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	h.Sessions.Reset(a.ID)
	w.WriteHeader(http.StatusNoContent)
}

// getSession godoc
// @Summary  Current session state of an asset
// @Tags     session
// @Produce  json
// @Param    id  path  string  true  "asset id"
// @Success  200  {object}  types.SessionResponse
// @Router   /assets/{id}/session [get]
func (h handlers) getSession(w http.ResponseWriter, r *http.Request) {
	a, ok := h.asset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(h.Sessions.Snapshot(a.ID)))
}

func sessionResponse(s session.Snapshot) types.SessionResponse {
	out := types.SessionResponse{
		AssetID:     s.AssetID,
		State:       string(s.State),
		Token:       s.Token,
		Busy:        s.Busy,
		CanGenerate: s.CanGenerate,
		CanRetry:    s.CanRetry,
		Points:      s.Points,
		LastPoint:   s.LastPoint,
		Model:       s.Model,
		Error:       s.Err,
	}
	if out.Points == nil {
		out.Points = []types.Point{}
	}
	if s.Result != nil {
		out.PreviewURL = s.Result.PreviewURL
		out.MaskURL = s.Result.MaskURL
		out.ResultKind = s.Result.Kind().String()
	}
	return out
}

// getModels godoc
// @Summary      Previously generated models
// @Description  Served from the gallery cache; the first call fetches the list.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      502  {object}  types.ErrorResponse
// @Router       /models [get]
func (h handlers) getModels(w http.ResponseWriter, r *http.Request) {
	models, at := h.Gallery.Models()
	if at.IsZero() {
		var err error
		if models, err = h.refresh(r); err != nil {
			writeUpstreamError(w, r, err)
			return
		}
	}
	if models == nil {
		models = []types.ModelDescriptor{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

// refreshModels godoc
// @Summary  Refetch the remote model list
// @Tags     models
// @Produce  json
// @Success  200  {object}  types.ModelsResponse
// @Failure  502  {object}  types.ErrorResponse
// @Router   /models/refresh [post]
func (h handlers) refreshModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.refresh(r)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	if models == nil {
		models = []types.ModelDescriptor{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

func (h handlers) refresh(r *http.Request) ([]types.ModelDescriptor, error) {
	ctx, cancel := requestContext(r)
	defer cancel()
	ctx, stop := context.WithTimeout(ctx, currentSettings().RefreshTimeout)
	defer stop()
	return h.Gallery.Refresh(ctx)
}

// galleryStatus godoc
// @Summary  Generation status per asset, most recent first
// @Tags     gallery
// @Produce  json
// @Success  200  {object}  types.GalleryStatusResponse
// @Router   /gallery/status [get]
func (h handlers) galleryStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Gallery.Statuses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if st == nil {
		st = []types.GenerationStatus{}
	}
	writeJSON(w, http.StatusOK, types.GalleryStatusResponse{Statuses: st})
}

// galleryAssetStatus godoc
// @Summary  Generation status of one asset
// @Tags     gallery
// @Produce  json
// @Param    id  path  string  true  "asset id"
// @Success  200  {object}  types.GenerationStatus
// @Failure  404  {object}  types.ErrorResponse
// @Router   /gallery/status/{id} [get]
func (h handlers) galleryAssetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok, err := h.Gallery.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no generation recorded for %q", id))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
