package settlement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/pkg/middleware"
	"github.com/fkhayef/nebenkosten/pkg/response"
)

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Run)
	r.Get("/", h.List)
	r.Post("/preview", h.Preview)

	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/tenants/{tenantId}", h.GetTenantResult)
	r.Get("/{id}/export", h.Export)

	return r
}

// Run handles POST /settlements
// @Summary      Run a settlement
// @Description  Settle all tenants of a property for one billing period and store the result. Either every tenant is settled or nothing is stored.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body RunRequest true "Property and period"
// @Success      201 {object} response.APIResponse{data=Run}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /settlements [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	landlordID, req, ok := decodeRun(w, r)
	if !ok {
		return
	}

	run, err := h.service.Run(r.Context(), landlordID, req)
	if err != nil {
		writeError(w, err, "Failed to run settlement")
		return
	}

	response.JSON(w, http.StatusCreated, run)
}

// Preview handles POST /settlements/preview
// @Summary      Preview a settlement
// @Description  Calculate a settlement without storing it or creating notices
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body RunRequest true "Property and period"
// @Success      200 {object} response.APIResponse{data=Run}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /settlements/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	landlordID, req, ok := decodeRun(w, r)
	if !ok {
		return
	}

	run, err := h.service.Preview(r.Context(), landlordID, req)
	if err != nil {
		writeError(w, err, "Failed to calculate settlement")
		return
	}

	response.JSON(w, http.StatusOK, run)
}

// List handles GET /settlements?property_id=
// @Summary      List settlement runs of a property
// @Tags         settlements
// @Produce      json
// @Param        property_id query int true "Property ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]RunSummary}
// @Router       /settlements [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return
	}

	propertyID, err := strconv.ParseInt(r.URL.Query().Get("property_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "property_id query parameter is required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	runs, total, err := h.service.ListByProperty(r.Context(), landlordID, propertyID, page, perPage)
	if err != nil {
		writeError(w, err, "Failed to list settlements")
		return
	}

	out := make([]*RunSummary, len(runs))
	for i, run := range runs {
		out[i] = run.ToSummary()
	}

	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /settlements/{id}
// @Summary      Get a settlement run
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Run ID (UUID)"
// @Success      200 {object} response.APIResponse{data=Run}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	run, err := h.service.GetByID(r.Context(), landlordID, id)
	if err != nil {
		writeError(w, err, "Failed to get settlement")
		return
	}

	response.JSON(w, http.StatusOK, run)
}

// GetTenantResult handles GET /settlements/{id}/tenants/{tenantId}
// @Summary      Get one tenant's statement
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Run ID (UUID)"
// @Param        tenantId path int true "Tenant ID"
// @Success      200 {object} response.APIResponse{data=Result}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id}/tenants/{tenantId} [get]
func (h *Handler) GetTenantResult(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenantId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tenant ID")
		return
	}

	run, err := h.service.GetByID(r.Context(), landlordID, id)
	if err != nil {
		writeError(w, err, "Failed to get settlement")
		return
	}

	res, found := run.ResultFor(tenantID)
	if !found {
		response.NotFound(w, "tenant is not part of this settlement")
		return
	}

	response.JSON(w, http.StatusOK, res)
}

// Export handles GET /settlements/{id}/export?format=pdf|xlsx
// @Summary      Export statements
// @Tags         settlements
// @Produce      application/pdf
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Run ID (UUID)"
// @Param        format query string false "pdf or xlsx" default(pdf)
// @Success      200 {file} file
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id}/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Export(r.Context(), landlordID, id, r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err, "Failed to export settlement")
		return
	}

	response.File(w, doc.ContentType, doc.Filename, doc.Body)
}

func decodeRun(w http.ResponseWriter, r *http.Request) (int64, *RunRequest, bool) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return 0, nil, false
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return 0, nil, false
	}

	return landlordID, &req, true
}

func scope(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return 0, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return 0, uuid.Nil, false
	}

	return landlordID, id, true
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	if response.CalculationError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrRunNotFound),
		errors.Is(err, property.ErrPropertyNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, property.ErrNotOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrUnsupportedFormat):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
