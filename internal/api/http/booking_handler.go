package http

import (
	"io"
	"net/http"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
)

// maxCallbackBytes caps gateway callback bodies.
const maxCallbackBytes = 64 << 10

type createBookingRequest struct {
	StationID     string `json:"station_id"`
	VehicleTypeID string `json:"vehicle_type_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

type startPaymentRequest struct {
	ReturnURL string `json:"return_url"`
}

type fulfillRequest struct {
	VehicleID  string `json:"vehicle_id"`
	DocumentID string `json:"document_id"`
	Notes      string `json:"notes"`
}

type completeRequest struct {
	ReturnDate     string `json:"return_date,omitempty"`
	DamageFee      *int64 `json:"damage_fee,omitempty"`
	ConditionNotes string `json:"condition_notes"`
	Damaged        bool   `json:"damaged"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	stationID, err := parseUUID("station_id", req.StationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	typeID, err := parseUUID("vehicle_type_id", req.VehicleTypeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := h.parseDate("start_date", req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := h.parseDate("end_date", req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.services.Booking.Create(r.Context(), user.UserID, stationID, typeID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bookings, err := h.services.Booking.ListMyBookings(r.Context(), user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GetMyBooking returns the caller's booking with its payments, contract and
// return. Other customers' bookings are reported as not found.
func (h *Handler) GetMyBooking(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	details, err := h.services.Booking.GetBookingDetails(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if details.Booking.UserID != user.UserID {
		writeError(w, r, domain.NewNotFoundError("booking %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req startPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.services.Booking.StartPayment(r.Context(), user.UserID, id, req.ReturnURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payment_url": url})
}

// PaymentCallback receives the gateway's server-to-server notification.
// Authenticity comes from the payload signature, not a bearer token.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		writeError(w, r, domain.NewValidationError("failed to read callback body"))
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Payment-Signature")
	}

	b, err := h.services.Booking.HandlePaymentCallback(r.Context(), payload, signature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	logger.Info("Payment callback processed", "bookingID", b.ID, "status", b.Status)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(b.Status)})
}

func (h *Handler) Fulfill(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fulfillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vehicleID, err := parseUUID("vehicle_id", req.VehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	documentID, err := parseUUID("document_id", req.DocumentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	contract, err := h.services.Booking.Fulfill(r.Context(), id, vehicleID, documentID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contract)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	details := domain.ReturnDetails{
		DamageFee:      req.DamageFee,
		ConditionNotes: req.ConditionNotes,
		Damaged:        req.Damaged,
	}
	if req.ReturnDate != "" {
		d, err := h.parseDate("return_date", req.ReturnDate)
		if err != nil {
			writeError(w, r, err)
			return
		}
		details.ReturnDate = &d
	}

	ret, err := h.services.Booking.Complete(r.Context(), id, details)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) StaffBookingDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	details, err := h.services.Booking.GetBookingDetails(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.services.Booking.ListOverdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.services.Booking.AdminCancel(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
