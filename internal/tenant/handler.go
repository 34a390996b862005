package tenant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/pkg/middleware"
	"github.com/fkhayef/nebenkosten/pkg/response"
)

// Handler handles HTTP requests for tenant operations
type Handler struct {
	service *Service
}

// NewHandler creates a new tenant handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for tenant endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	// Meter readings
	r.Put("/{id}/readings", h.PutReadings)
	r.Get("/{id}/readings", h.GetReadings)

	return r
}

// Create handles POST /tenants
// @Summary      Create a tenant
// @Description  Register a tenancy on a unit of one of the landlord's properties
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body TenantRequest true "Tenant creation request"
// @Success      201 {object} response.APIResponse{data=TenantResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /tenants [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return
	}

	var req TenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Create(r.Context(), landlordID, &req)
	if err != nil {
		writeError(w, err, "Failed to create tenant")
		return
	}

	response.JSON(w, http.StatusCreated, t.ToResponse())
}

// GetByID handles GET /tenants/{id}
// @Summary      Get tenant by ID
// @Tags         tenants
// @Produce      json
// @Param        id path int true "Tenant ID"
// @Success      200 {object} response.APIResponse{data=TenantResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /tenants/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	t, err := h.service.GetByID(r.Context(), landlordID, id)
	if err != nil {
		writeError(w, err, "Failed to get tenant")
		return
	}

	response.JSON(w, http.StatusOK, t.ToResponse())
}

// List handles GET /tenants?property_id=
// @Summary      List tenants of a property
// @Tags         tenants
// @Produce      json
// @Param        property_id query int true "Property ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]TenantResponse}
// @Router       /tenants [get]
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

	tenants, total, err := h.service.ListByProperty(r.Context(), landlordID, propertyID, page, perPage)
	if err != nil {
		writeError(w, err, "Failed to list tenants")
		return
	}

	out := make([]*TenantResponse, len(tenants))
	for i, t := range tenants {
		out[i] = t.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// Update handles PUT /tenants/{id}
// @Summary      Replace a tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path int true "Tenant ID"
// @Param        request body TenantRequest true "Tenant data"
// @Success      200 {object} response.APIResponse{data=TenantResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /tenants/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	var req TenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Update(r.Context(), landlordID, id, &req)
	if err != nil {
		writeError(w, err, "Failed to update tenant")
		return
	}

	response.JSON(w, http.StatusOK, t.ToResponse())
}

// Delete handles DELETE /tenants/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), landlordID, id); err != nil {
		writeError(w, err, "Failed to delete tenant")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Tenant deleted successfully"})
}

// PutReadings handles PUT /tenants/{id}/readings
// @Summary      Record meter readings
// @Description  Store consumption readings per cost category for one period
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path int true "Tenant ID"
// @Param        request body ReadingsRequest true "Readings"
// @Success      200 {object} response.APIResponse{data=Readings}
// @Failure      400 {object} response.APIResponse
// @Router       /tenants/{id}/readings [put]
func (h *Handler) PutReadings(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	var req ReadingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	rd, err := h.service.PutReadings(r.Context(), landlordID, id, &req)
	if err != nil {
		writeError(w, err, "Failed to store readings")
		return
	}

	response.JSON(w, http.StatusOK, rd)
}

// GetReadings handles GET /tenants/{id}/readings?start=&end=
func (h *Handler) GetReadings(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	p, err := period.Parse(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		response.CalculationError(w, err)
		return
	}

	rd, err := h.service.GetReadings(r.Context(), landlordID, id, p)
	if err != nil {
		writeError(w, err, "Failed to get readings")
		return
	}

	response.JSON(w, http.StatusOK, rd)
}

func scope(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return 0, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tenant ID")
		return 0, 0, false
	}

	return landlordID, id, true
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	if response.CalculationError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrTenantNotFound),
		errors.Is(err, ErrReadingsNotFound),
		errors.Is(err, property.ErrPropertyNotFound),
		errors.Is(err, property.ErrUnitNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, property.ErrNotOwner):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
