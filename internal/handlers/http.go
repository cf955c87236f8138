package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"freight-service/internal/profitability"
	"freight-service/internal/service"
	"freight-service/internal/storage"

	"github.com/gorilla/mux"
)

// HTTPHandler handles HTTP requests for the freight service
type HTTPHandler struct {
	truckService *service.TruckService
	loadService  *service.LoadService
	fuelService  *service.FuelService
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(truckService *service.TruckService, loadService *service.LoadService, fuelService *service.FuelService) *HTTPHandler {
	return &HTTPHandler{
		truckService: truckService,
		loadService:  loadService,
		fuelService:  fuelService,
	}
}

// RegisterRoutes sets up HTTP routes
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/calculate", h.Calculate).Methods("POST")

	router.HandleFunc("/trucks", h.GetAllTrucks).Methods("GET")
	router.HandleFunc("/trucks", h.RegisterTruck).Methods("POST")
	router.HandleFunc("/trucks/{id}", h.GetTruck).Methods("GET")
	router.HandleFunc("/trucks/{id}", h.UpdateTruckCosts).Methods("PUT")
	router.HandleFunc("/trucks/{id}", h.DeleteTruck).Methods("DELETE")
	router.HandleFunc("/trucks/{id}/summary", h.GetProfitSummary).Methods("GET")
	router.HandleFunc("/trucks/{id}/loads", h.GetTruckLoads).Methods("GET")
	router.HandleFunc("/trucks/{id}/fuel", h.GetFuelPurchases).Methods("GET")
	router.HandleFunc("/trucks/{id}/fuel", h.RecordFuelPurchase).Methods("POST")
	router.HandleFunc("/trucks/{id}/fuel/stats", h.GetFuelStats).Methods("GET")

	// registered before /loads/{id} so "status" is not taken as an id
	router.HandleFunc("/loads/status/{status}", h.GetLoadsByStatus).Methods("GET")
	router.HandleFunc("/loads", h.GetAllLoads).Methods("GET")
	router.HandleFunc("/loads", h.CreateLoad).Methods("POST")
	router.HandleFunc("/loads/{id}", h.GetLoad).Methods("GET")
	router.HandleFunc("/loads/{id}/status", h.UpdateLoadStatus).Methods("POST")
	router.HandleFunc("/loads/{id}/recalculate", h.RecalculateLoad).Methods("POST")
}

// Health returns service health status
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Calculate runs a stand-alone profitability calculation
func (h *HTTPHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req service.CalculateRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.loadService.Calculate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAllTrucks returns all trucks
func (h *HTTPHandler) GetAllTrucks(w http.ResponseWriter, r *http.Request) {
	trucks, err := h.truckService.GetAllTrucks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trucks)
}

// RegisterTruck adds a new truck
func (h *HTTPHandler) RegisterTruck(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterTruckRequest
	if !decode(w, r, &req) {
		return
	}

	truck, err := h.truckService.RegisterTruck(r.Context(), req)
	if err != nil {
		slog.Error("Truck registration failed", "name", req.Name, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Truck registered", "truck_id", truck.ID, "unit_number", truck.UnitNumber)
	writeJSON(w, http.StatusCreated, truck)
}

// GetTruck returns a single truck
func (h *HTTPHandler) GetTruck(w http.ResponseWriter, r *http.Request) {
	truck, err := h.truckService.GetTruck(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, truck)
}

type truckUpdateResponse struct {
	Truck              *storage.Truck `json:"truck"`
	RecalculatedLoads  int            `json:"recalculated_loads"`
	RecalculationError string         `json:"recalculation_error,omitempty"`
}

// UpdateTruckCosts changes a truck's costs and recalculates its open loads
func (h *HTTPHandler) UpdateTruckCosts(w http.ResponseWriter, r *http.Request) {
	truckID := mux.Vars(r)["id"]

	var update service.TruckCostsUpdate
	if !decode(w, r, &update) {
		return
	}

	truck, err := h.truckService.UpdateTruckCosts(r.Context(), truckID, update)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := truckUpdateResponse{Truck: truck}
	loads, err := h.loadService.RecalculateTruckLoads(r.Context(), truckID)
	resp.RecalculatedLoads = len(loads)
	if err != nil {
		slog.Warn("Some loads could not be recalculated", "truck_id", truckID, "error", err)
		resp.RecalculationError = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteTruck removes a truck
func (h *HTTPHandler) DeleteTruck(w http.ResponseWriter, r *http.Request) {
	if err := h.truckService.DeleteTruck(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfitSummary returns the profit totals of a truck's loads
func (h *HTTPHandler) GetProfitSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.loadService.GetProfitSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetTruckLoads returns a truck's loads
func (h *HTTPHandler) GetTruckLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := h.loadService.GetLoadsByTruck(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilLoads(loads))
}

// GetFuelPurchases returns a truck's fill-ups
func (h *HTTPHandler) GetFuelPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.fuelService.GetPurchases(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if purchases == nil {
		purchases = []*storage.FuelPurchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}

// RecordFuelPurchase records a fill-up for the truck in the path
func (h *HTTPHandler) RecordFuelPurchase(w http.ResponseWriter, r *http.Request) {
	var req service.RecordPurchaseRequest
	if !decode(w, r, &req) {
		return
	}
	req.TruckID = mux.Vars(r)["id"]

	purchase, err := h.fuelService.RecordPurchase(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

// GetFuelStats returns a truck's fuel totals and observed MPG
func (h *HTTPHandler) GetFuelStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.fuelService.FuelStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetAllLoads returns all loads
func (h *HTTPHandler) GetAllLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := h.loadService.GetAllLoads(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilLoads(loads))
}

// CreateLoad books a load and stores its profitability
func (h *HTTPHandler) CreateLoad(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLoadRequest
	if !decode(w, r, &req) {
		return
	}

	load, err := h.loadService.CreateLoad(r.Context(), req)
	if err != nil {
		slog.Error("Load creation failed", "truck_id", req.TruckID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, load)
}

// GetLoad returns a single load
func (h *HTTPHandler) GetLoad(w http.ResponseWriter, r *http.Request) {
	load, err := h.loadService.GetLoad(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

// GetLoadsByStatus returns loads with the status in the path
func (h *HTTPHandler) GetLoadsByStatus(w http.ResponseWriter, r *http.Request) {
	loads, err := h.loadService.GetLoadsByStatus(r.Context(), mux.Vars(r)["status"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilLoads(loads))
}

// UpdateLoadStatus moves a load to a new status
func (h *HTTPHandler) UpdateLoadStatus(w http.ResponseWriter, r *http.Request) {
	var statusUpdate struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &statusUpdate) {
		return
	}

	load, err := h.loadService.UpdateLoadStatus(r.Context(), mux.Vars(r)["id"], statusUpdate.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

// RecalculateLoad recomputes a load from its truck's current costs
func (h *HTTPHandler) RecalculateLoad(w http.ResponseWriter, r *http.Request) {
	load, err := h.loadService.RecalculateLoad(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

// errorResponse is the body of every error reply
type errorResponse struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Field         string   `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var missing *profitability.MissingInputError
	var invalid *profitability.InvalidRangeError
	var validation *service.ValidationError

	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &missing):
		status = http.StatusBadRequest
		resp.MissingFields = missing.Fields
	case errors.As(err, &invalid):
		status = http.StatusUnprocessableEntity
		resp.Field = invalid.Field
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		resp.Field = validation.Field
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrTruckHasOpenLoads), errors.Is(err, storage.ErrAlreadyExists):
		status = http.StatusConflict
	default:
		slog.Error("Request failed", "error", err)
		resp.Error = "internal server error"
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Debug("Failed to decode request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return false
	}
	return true
}

func nonNilLoads(loads []*storage.Load) []*storage.Load {
	if loads == nil {
		return []*storage.Load{}
	}
	return loads
}
