package property

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/nebenkosten/pkg/middleware"
	"github.com/fkhayef/nebenkosten/pkg/response"
)

// Handler handles HTTP requests for property operations
type Handler struct {
	service *Service
}

// NewHandler creates a new property handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for property endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	// Unit management
	r.Post("/{id}/units", h.AddUnit)
	r.Get("/{id}/units", h.GetUnits)
	r.Put("/{id}/units/{unitId}", h.UpdateUnit)
	r.Delete("/{id}/units/{unitId}", h.RemoveUnit)

	return r
}

// Create handles POST /properties
// @Summary      Create a property
// @Description  Register a building for the current landlord
// @Tags         properties
// @Accept       json
// @Produce      json
// @Param        request body CreatePropertyRequest true "Property creation request"
// @Success      201 {object} response.APIResponse{data=PropertyResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /properties [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return
	}

	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.CalculationError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), landlordID, &req)
	if err != nil {
		response.InternalError(w, "Failed to create property")
		return
	}

	response.JSON(w, http.StatusCreated, p.ToResponse())
}

// GetByID handles GET /properties/{id}
// @Summary      Get property by ID
// @Description  Get a property with all its units
// @Tags         properties
// @Produce      json
// @Param        id path int true "Property ID"
// @Success      200 {object} response.APIResponse{data=PropertyResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /properties/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetWithUnits(r.Context(), landlordID, id)
	if err != nil {
		h.writeError(w, err, "Failed to get property")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// List handles GET /properties
// @Summary      List my properties
// @Description  Get a paginated list of the current landlord's properties
// @Tags         properties
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]PropertyResponse}
// @Router       /properties [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
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

	properties, total, err := h.service.ListByLandlordID(r.Context(), landlordID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list properties")
		return
	}

	out := make([]*PropertyResponse, len(properties))
	for i, p := range properties {
		out[i] = p.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// Update handles PUT /properties/{id}
// @Summary      Update a property
// @Tags         properties
// @Accept       json
// @Produce      json
// @Param        id path int true "Property ID"
// @Param        request body UpdatePropertyRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=PropertyResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /properties/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req UpdatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.CalculationError(w, err)
		return
	}

	p, err := h.service.Update(r.Context(), landlordID, id, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update property")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// Delete handles DELETE /properties/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	landlordID, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), landlordID, id); err != nil {
		h.writeError(w, err, "Failed to delete property")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

// AddUnit handles POST /properties/{id}/units
// @Summary      Add a unit
// @Description  Add an apartment or commercial unit to a property
// @Tags         properties
// @Accept       json
// @Produce      json
// @Param        id path int true "Property ID"
// @Param        request body UnitRequest true "Unit to add"
// @Success      201 {object} response.APIResponse{data=UnitResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /properties/{id}/units [post]
func (h *Handler) AddUnit(w http.ResponseWriter, r *http.Request) {
	landlordID, propertyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req UnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.CalculationError(w, err)
		return
	}

	u, err := h.service.AddUnit(r.Context(), landlordID, propertyID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to add unit")
		return
	}

	response.JSON(w, http.StatusCreated, u.ToResponse())
}

// GetUnits handles GET /properties/{id}/units
func (h *Handler) GetUnits(w http.ResponseWriter, r *http.Request) {
	landlordID, propertyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	units, err := h.service.GetUnits(r.Context(), landlordID, propertyID)
	if err != nil {
		h.writeError(w, err, "Failed to get units")
		return
	}

	out := make([]*UnitResponse, len(units))
	for i, u := range units {
		out[i] = u.ToResponse()
	}

	response.JSON(w, http.StatusOK, out)
}

// UpdateUnit handles PUT /properties/{id}/units/{unitId}
func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	landlordID, propertyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	unitID, err := strconv.ParseInt(chi.URLParam(r, "unitId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid unit ID")
		return
	}

	var req UnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.CalculationError(w, err)
		return
	}

	u, err := h.service.UpdateUnit(r.Context(), landlordID, propertyID, unitID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update unit")
		return
	}

	response.JSON(w, http.StatusOK, u.ToResponse())
}

// RemoveUnit handles DELETE /properties/{id}/units/{unitId}
func (h *Handler) RemoveUnit(w http.ResponseWriter, r *http.Request) {
	landlordID, propertyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	unitID, err := strconv.ParseInt(chi.URLParam(r, "unitId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid unit ID")
		return
	}

	if err := h.service.RemoveUnit(r.Context(), landlordID, propertyID, unitID); err != nil {
		h.writeError(w, err, "Failed to remove unit")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Unit removed successfully"})
}

// scope reads the landlord from the context and the property ID from the path
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	landlordID, ok := middleware.GetLandlordID(r.Context())
	if !ok {
		response.Unauthorized(w, "Landlord not authenticated")
		return 0, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid property ID")
		return 0, 0, false
	}

	return landlordID, id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrPropertyNotFound), errors.Is(err, ErrUnitNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAreaExceeded):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
