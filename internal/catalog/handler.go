package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/nebenkosten/pkg/response"
)

// Handler serves the cost catalog
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a new catalog handler
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// Routes returns the router for catalog endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{code}", h.Get)

	return r
}

// ListResponse is the catalog together with its rule-set version
type ListResponse struct {
	Version    string     `json:"version"`
	Categories []Category `json:"categories"`
}

// List handles GET /catalog
// @Summary      List cost categories
// @Description  Standard operating-cost categories with default key, apportionability and citation
// @Tags         catalog
// @Produce      json
// @Success      200 {object} response.APIResponse{data=ListResponse}
// @Router       /catalog [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, &ListResponse{
		Version:    h.catalog.Version(),
		Categories: h.catalog.All(),
	})
}

// Get handles GET /catalog/{code}
// @Summary      Get a cost category
// @Tags         catalog
// @Produce      json
// @Param        code path string true "Category code"
// @Success      200 {object} response.APIResponse{data=Category}
// @Failure      404 {object} response.APIResponse
// @Router       /catalog/{code} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalog.Lookup(chi.URLParam(r, "code"))
	if !ok {
		response.NotFound(w, ErrUnknownCategory.Error())
		return
	}
	response.JSON(w, http.StatusOK, cat)
}
