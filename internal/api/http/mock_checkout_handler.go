package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/payment"
	"stationrent-backend/internal/service"
)

// MockCheckoutHandler plays the hosted payment page of the mock gateway in
// development: it signs a callback for the booking and feeds it through the
// same path a real gateway notification takes.
type MockCheckoutHandler struct {
	gateway *payment.MockGateway
	booking service.BookingService
}

func NewMockCheckoutHandler(gateway *payment.MockGateway, booking service.BookingService) *MockCheckoutHandler {
	return &MockCheckoutHandler{gateway: gateway, booking: booking}
}

// HandleCheckout completes a mock payment. outcome=fail simulates a declined
// card; anything else pays.
func (h *MockCheckoutHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bookingID, err := uuid.Parse(q.Get("booking_id"))
	if err != nil {
		http.Error(w, "Missing or invalid booking_id parameter", http.StatusBadRequest)
		return
	}
	success := q.Get("outcome") != "fail"

	payload, err := json.Marshal(map[string]any{
		"booking_id": bookingID.String(),
		"success":    success,
		"txn_id":     "mock-" + uuid.NewString()[:8],
	})
	if err != nil {
		http.Error(w, "Failed to build callback", http.StatusInternalServerError)
		return
	}

	b, err := h.booking.HandlePaymentCallback(r.Context(), payload, h.gateway.Sign(payload))
	status := "ignored"
	if err != nil {
		logger.Warn("Mock checkout rejected", "bookingID", bookingID, "error", err)
		status = "rejected"
	} else if b != nil {
		status = string(b.Status)
	}

	returnURL := q.Get("return_url")
	if returnURL == "" {
		code := http.StatusOK
		if err != nil {
			code, _ = statusFor(err)
		}
		writeJSON(w, code, map[string]string{"booking_id": bookingID.String(), "status": status})
		return
	}
	u, perr := url.Parse(returnURL)
	if perr != nil {
		http.Error(w, "Invalid return_url parameter", http.StatusBadRequest)
		return
	}
	rq := u.Query()
	rq.Set("booking_id", bookingID.String())
	rq.Set("status", status)
	u.RawQuery = rq.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// RegisterMockCheckoutRoutes registers the mock gateway's checkout page
func RegisterMockCheckoutRoutes(router *mux.Router, gateway *payment.MockGateway, booking service.BookingService) {
	handler := NewMockCheckoutHandler(gateway, booking)
	router.HandleFunc("/mock-pay", handler.HandleCheckout).Methods(http.MethodGet)
}
