package emissions

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/pkg/response"
)

// Handler exposes the carbon cost split
type Handler struct {
	engine *Engine
}

// NewHandler creates a new emissions handler
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes returns the router for emissions endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/split", h.Split)
	r.Get("/tiers", h.ListTiers)

	return r
}

// RulesResponse describes the active regulatory tables
type RulesResponse struct {
	Version     string                       `json:"version"`
	Tiers       []Tier                       `json:"tiers"`
	FuelFactors map[FuelType]decimal.Decimal `json:"fuel_factors"`
}

// Split handles POST /emissions/split
// @Summary      Compute a carbon cost split
// @Description  Resolve the tier for a building's heating data and split the fuel cost between landlord and tenants
// @Tags         emissions
// @Accept       json
// @Produce      json
// @Param        request body Data true "Heating data"
// @Success      200 {object} response.APIResponse{data=Split}
// @Failure      400 {object} response.APIResponse
// @Router       /emissions/split [post]
func (h *Handler) Split(w http.ResponseWriter, r *http.Request) {
	var data Data
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	split, err := h.engine.ComputeSplit(data)
	if err != nil {
		if response.CalculationError(w, err) {
			return
		}
		response.InternalError(w, "Failed to compute split")
		return
	}

	response.JSON(w, http.StatusOK, split)
}

// ListTiers handles GET /emissions/tiers
// @Summary      List the tier table
// @Tags         emissions
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Tier}
// @Router       /emissions/tiers [get]
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.engine.Tiers())
}

// Rules handles GET /rules
// @Summary      Active rule set
// @Description  Rule-set version, tier table and fuel emission factors
// @Tags         emissions
// @Produce      json
// @Success      200 {object} response.APIResponse{data=RulesResponse}
// @Router       /rules [get]
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	factors := make(map[FuelType]decimal.Decimal)
	for _, fuel := range h.engine.FuelTypes() {
		factors[fuel], _ = h.engine.Factor(fuel)
	}

	response.JSON(w, http.StatusOK, &RulesResponse{
		Version:     h.engine.Version(),
		Tiers:       h.engine.Tiers(),
		FuelFactors: factors,
	})
}
