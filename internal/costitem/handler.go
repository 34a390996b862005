package costitem

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

// Handler handles HTTP requests for cost item operations
type Handler struct {
	service *Service
}

// NewHandler creates a new cost item handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for cost item endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)

	// Heating data for the carbon cost split
	r.Put("/emissions", h.PutEmissions)
	r.Get("/emissions", h.GetEmissions)

	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// Create handles POST /cost-items
// @Summary      Book a cost item
// @Description  Book an operating-cost position; key and citation default to the catalog entry
// @Tags         cost-items
// @Accept       json
// @Produce      json
// @Param        request body LineItemRequest true "Cost item"
// @Success      201 {object} response.APIResponse{data=LineItemResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /cost-items [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return
	}

	var req LineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	li, err := h.service.Create(r.Context(), landlordID, &req)
	if err != nil {
		writeError(w, err, "Failed to create cost item")
		return
	}

	response.JSON(w, http.StatusCreated, li.ToResponse())
}

// GetByID handles GET /cost-items/{id}
// @Summary      Get cost item by ID
// @Tags         cost-items
// @Produce      json
// @Param        id path int true "Cost item ID"
// @Success      200 {object} response.APIResponse{data=LineItemResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /cost-items/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	li, err := h.service.GetByID(r.Context(), landlordID, id)
	if err != nil {
		writeError(w, err, "Failed to get cost item")
		return
	}

	response.JSON(w, http.StatusOK, li.ToResponse())
}

// List handles GET /cost-items?property_id=
// @Summary      List cost items of a property
// @Tags         cost-items
// @Produce      json
// @Param        property_id query int true "Property ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]LineItemResponse}
// @Router       /cost-items [get]
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

	items, total, err := h.service.ListByProperty(r.Context(), landlordID, propertyID, page, perPage)
	if err != nil {
		writeError(w, err, "Failed to list cost items")
		return
	}

	out := make([]*LineItemResponse, len(items))
	for i, li := range items {
		out[i] = li.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// Update handles PUT /cost-items/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	var req LineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	li, err := h.service.Update(r.Context(), landlordID, id, &req)
	if err != nil {
		writeError(w, err, "Failed to update cost item")
		return
	}

	response.JSON(w, http.StatusOK, li.ToResponse())
}

// Delete handles DELETE /cost-items/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), landlordID, id); err != nil {
		writeError(w, err, "Failed to delete cost item")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Cost item deleted successfully"})
}

// PutEmissions handles PUT /cost-items/emissions
// @Summary      Record heating data
// @Description  Store fuel type, consumption, fuel cost and heated area; returns the resulting carbon cost split
// @Tags         cost-items
// @Accept       json
// @Produce      json
// @Param        request body EmissionsRequest true "Heating data"
// @Success      200 {object} response.APIResponse{data=EmissionsResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /cost-items/emissions [put]
func (h *Handler) PutEmissions(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return
	}

	var req EmissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	rec, split, err := h.service.PutEmissions(r.Context(), landlordID, &req)
	if err != nil {
		writeError(w, err, "Failed to store emissions data")
		return
	}

	response.JSON(w, http.StatusOK, &EmissionsResponse{Record: rec, Split: split})
}

// GetEmissions handles GET /cost-items/emissions?property_id=&start=&end=
// @Summary      Get heating data
// @Tags         cost-items
// @Produce      json
// @Param        property_id query int true "Property ID"
// @Param        start query string true "Period start (YYYY-MM-DD)"
// @Param        end query string true "Period end (YYYY-MM-DD)"
// @Success      200 {object} response.APIResponse{data=EmissionsResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /cost-items/emissions [get]
func (h *Handler) GetEmissions(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return
	}

	q := r.URL.Query()
	propertyID, err := strconv.ParseInt(q.Get("property_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "property_id query parameter is required")
		return
	}
	p, err := period.Parse(q.Get("start"), q.Get("end"))
	if err != nil {
		response.CalculationError(w, err)
		return
	}

	rec, split, err := h.service.GetEmissions(r.Context(), landlordID, propertyID, p)
	if err != nil {
		writeError(w, err, "Failed to get emissions data")
		return
	}

	response.JSON(w, http.StatusOK, &EmissionsResponse{Record: rec, Split: split})
}

func scope(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return 0, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid cost item ID")
		return 0, 0, false
	}

	return landlordID, id, true
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	if response.CalculationError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrEmissionsNotFound),
		errors.Is(err, property.ErrPropertyNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, property.ErrNotOwner):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
