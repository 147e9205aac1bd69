package http

import (
	"net/http"

	"stationrent-backend/internal/domain"
)

type vehicleTypeRequest struct {
	Name          string `json:"name"`
	DepositAmount int64  `json:"deposit_amount"`
	DailyRate     int64  `json:"daily_rate"`
}

type vehicleStatusRequest struct {
	Status domain.VehicleStatus `json:"status"`
	Notes  string               `json:"notes"`
}

func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.services.Catalog.ListStations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	station, err := h.services.Catalog.GetStation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

// StationAvailability answers which vehicles of a type can be booked at a
// station for [start_date, end_date).
func (h *Handler) StationAvailability(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	typeID, err := parseUUID("vehicle_type_id", q.Get("vehicle_type_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := h.parseDate("start_date", q.Get("start_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := h.parseDate("end_date", q.Get("end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.services.Availability.Query(r.Context(), stationID, typeID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListVehicleTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.services.Catalog.ListVehicleTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) CreateVehicleType(w http.ResponseWriter, r *http.Request) {
	var req vehicleTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vt, err := h.services.Catalog.CreateVehicleType(r.Context(), req.Name, req.DepositAmount, req.DailyRate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vt)
}

func (h *Handler) UpdateVehicleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req vehicleTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vt, err := h.services.Catalog.UpdateVehicleType(r.Context(), id, req.Name, req.DepositAmount, req.DailyRate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vt)
}

func (h *Handler) DeleteVehicleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.services.Catalog.DeleteVehicleType(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetVehicleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req vehicleStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.services.Catalog.SetVehicleStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
