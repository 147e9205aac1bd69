package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route. Security levels per route live in
// config.EndpointSecurityConfig and are enforced by auth.
func NewRouter(h *Handler, auth *AuthMiddleware) *mux.Router {
	router := mux.NewRouter()
	router.Use(auth.Middleware)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/stations", h.ListStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}", h.GetStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/availability", h.StationAvailability).Methods(http.MethodGet)
	api.HandleFunc("/vehicle-types", h.ListVehicleTypes).Methods(http.MethodGet)

	// Customer bookings
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings", h.ListMyBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", h.GetMyBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/payment", h.StartPayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/callback", h.PaymentCallback).Methods(http.MethodPost)

	// Wallet and inbox
	api.HandleFunc("/wallet", h.GetWallet).Methods(http.MethodGet)
	api.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost)

	// Station staff
	api.HandleFunc("/staff/bookings/overdue", h.ListOverdue).Methods(http.MethodGet)
	api.HandleFunc("/staff/bookings/{id}", h.StaffBookingDetails).Methods(http.MethodGet)
	api.HandleFunc("/staff/bookings/{id}/fulfill", h.Fulfill).Methods(http.MethodPost)
	api.HandleFunc("/staff/bookings/{id}/complete", h.Complete).Methods(http.MethodPost)
	api.HandleFunc("/staff/vehicles/{id}/status", h.SetVehicleStatus).Methods(http.MethodPut)

	// Administration
	api.HandleFunc("/admin/vehicle-types", h.CreateVehicleType).Methods(http.MethodPost)
	api.HandleFunc("/admin/vehicle-types/{id}", h.UpdateVehicleType).Methods(http.MethodPut)
	api.HandleFunc("/admin/vehicle-types/{id}", h.DeleteVehicleType).Methods(http.MethodDelete)
	api.HandleFunc("/admin/bookings/{id}/cancel", h.AdminCancel).Methods(http.MethodPost)

	return router
}
