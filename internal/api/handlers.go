package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/blackmarble/internal/config"
	"github.com/robert-malhotra/blackmarble/internal/product"
	intstac "github.com/robert-malhotra/blackmarble/internal/stac"
	"github.com/robert-malhotra/blackmarble/internal/store"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

// Artifacts is the read side of the artifact store.
type Artifacts interface {
	Key(p product.Product, t tiles.Tile, period temporal.Period) string
	List(ctx context.Context, p product.Product) ([]store.Artifact, error)
	Stat(ctx context.Context, key string) (store.Artifact, error)
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
}

// Handlers contains the STAC API handlers.
type Handlers struct {
	cfg       *config.Config
	artifacts Artifacts
	metrics   http.Handler
	logger    *slog.Logger
}

// NewHandlers creates handlers serving the artifacts in st.
func NewHandlers(cfg *config.Config, st Artifacts, logger *slog.Logger) *Handlers {
	return &Handlers{
		cfg:       cfg,
		artifacts: st,
		logger:    logger,
	}
}

// WithMetricsHandler exposes h on /metrics.
func (h *Handlers) WithMetricsHandler(m http.Handler) *Handlers {
	h.metrics = m
	return h
}

// LandingPage returns the root catalog.
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	landing := intstac.NewLandingPage(
		"blackmarble",
		h.cfg.STAC.Title,
		h.cfg.STAC.Description,
		h.cfg.STAC.Version,
		intstac.DefaultConformance(),
	)
	landing.AddLink("self", baseURL+"/", intstac.MediaJSON)
	landing.AddLink("root", baseURL+"/", intstac.MediaJSON)
	landing.AddLink("conformance", baseURL+"/conformance", intstac.MediaJSON)
	landing.AddLink("data", baseURL+"/collections", intstac.MediaJSON)
	for _, p := range product.All() {
		landing.Links = append(landing.Links, &intstac.Link{
			Rel:   "child",
			Href:  fmt.Sprintf("%s/collections/%s", baseURL, p),
			Type:  intstac.MediaJSON,
			Title: p.Description(),
		})
	}

	WriteJSON(w, http.StatusOK, landing)
}

// Conformance lists the implemented conformance classes.
// GET /conformance
func (h *Handlers) Conformance(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, &intstac.Conformance{ConformsTo: intstac.DefaultConformance()})
}

// Collections returns one collection per product.
// GET /collections
func (h *Handlers) Collections(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	var collections []*intstac.Collection
	for _, p := range product.All() {
		collections = append(collections, intstac.ProductCollection(p, h.cfg.STAC.Version, baseURL))
	}

	resp := intstac.NewCollectionsList(collections)
	resp.Links = append(resp.Links,
		&intstac.Link{Rel: "self", Href: baseURL + "/collections", Type: intstac.MediaJSON},
		&intstac.Link{Rel: "root", Href: baseURL + "/", Type: intstac.MediaJSON},
	)
	WriteJSON(w, http.StatusOK, resp)
}

// Collection returns a single product collection.
// GET /collections/{collectionId}
func (h *Handlers) Collection(w http.ResponseWriter, r *http.Request) {
	p, ok := h.collection(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, intstac.ProductCollection(p, h.cfg.STAC.Version, h.cfg.STAC.BaseURL))
}

// Items lists stored artifacts of a product, filtered by bbox and datetime
// and paged with limit and page.
// GET /collections/{collectionId}/items
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	p, ok := h.collection(w, r)
	if !ok {
		return
	}

	query, err := intstac.ParseItemQuery(r.URL.Query())
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = h.cfg.Features.DefaultLimit
	}
	if query.Limit > h.cfg.Features.MaxLimit {
		query.Limit = h.cfg.Features.MaxLimit
	}

	ctx := r.Context()
	artifacts, err := h.artifacts.List(ctx, p)
	if err != nil {
		h.logger.ErrorContext(ctx, "list artifacts failed",
			slog.String("collection_id", string(p)),
			slog.String("error", err.Error()),
		)
		WriteStoreError(w, "artifact store error")
		return
	}

	matched := artifacts[:0]
	for _, a := range artifacts {
		if query.Match(a) {
			matched = append(matched, a)
		}
	}

	from := len(matched)
	if pages := (len(matched) + query.Limit - 1) / query.Limit; query.Page <= pages {
		from = (query.Page - 1) * query.Limit
	}
	to := from + query.Limit
	if to > len(matched) {
		to = len(matched)
	}

	baseURL := h.cfg.STAC.BaseURL
	items := make([]*intstac.Item, 0, to-from)
	for _, a := range matched[from:to] {
		item, err := intstac.ArtifactItem(a, h.cfg.STAC.Version, baseURL)
		if err != nil {
			WriteInternalError(w, err.Error())
			return
		}
		items = append(items, item)
	}

	collURL := fmt.Sprintf("%s/collections/%s", baseURL, p)
	itemsURL := collURL + "/items"

	fc := intstac.NewItemCollection(items, len(matched))
	fc.AddLink("self", itemsURL, intstac.MediaGeoJSON)
	fc.AddLink("root", baseURL+"/", intstac.MediaJSON)
	fc.AddLink("parent", collURL, intstac.MediaJSON)
	fc.AddLink("collection", collURL, intstac.MediaJSON)
	fc.Links = append(fc.Links, intstac.PageLinks(itemsURL, r.URL.Query(), query.Page, query.Limit, len(matched))...)

	WriteGeoJSON(w, http.StatusOK, fc)
}

// Item returns one stored artifact.
// GET /collections/{collectionId}/items/{itemId}
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	a, ok := h.artifact(w, r)
	if !ok {
		return
	}
	item, err := intstac.ArtifactItem(a, h.cfg.STAC.Version, h.cfg.STAC.BaseURL)
	if err != nil {
		WriteInternalError(w, err.Error())
		return
	}
	WriteGeoJSON(w, http.StatusOK, item)
}

// Download streams the stored file.
// GET /collections/{collectionId}/items/{itemId}/download
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	a, ok := h.artifact(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	rc, err := h.artifacts.NewReader(ctx, a.Key)
	if err != nil {
		h.storeError(w, r, a.Key, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", intstac.MediaHDF5)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", store.Name(a.Product, a.Tile, a.Period)))
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(ctx, "download interrupted",
			slog.String("key", a.Key),
			slog.String("error", err.Error()),
		)
	}
}

// Health reports that the service is up.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics serves Prometheus metrics, or 404 when none are configured.
// GET /metrics
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		WriteNotFound(w, "metrics are not enabled")
		return
	}
	h.metrics.ServeHTTP(w, r)
}

func (h *Handlers) collection(w http.ResponseWriter, r *http.Request) (product.Product, bool) {
	id := chi.URLParam(r, "collectionId")
	p, err := product.Parse(id)
	if err != nil || string(p) != id {
		WriteNotFound(w, fmt.Sprintf("collection %q not found", id))
		return "", false
	}
	return p, true
}

func (h *Handlers) artifact(w http.ResponseWriter, r *http.Request) (store.Artifact, bool) {
	p, ok := h.collection(w, r)
	if !ok {
		return store.Artifact{}, false
	}

	itemID := chi.URLParam(r, "itemId")
	ip, t, period, err := intstac.ParseItemID(itemID)
	if err != nil || ip != p {
		WriteNotFound(w, fmt.Sprintf("item %q not found", itemID))
		return store.Artifact{}, false
	}

	key := h.artifacts.Key(p, t, period)
	a, err := h.artifacts.Stat(r.Context(), key)
	if err != nil {
		h.storeError(w, r, key, err)
		return store.Artifact{}, false
	}
	return a, true
}

func (h *Handlers) storeError(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		WriteNotFound(w, fmt.Sprintf("artifact %q not found", key))
		return
	}
	h.logger.ErrorContext(r.Context(), "artifact store failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
	WriteStoreError(w, "artifact store error")
}
