// Package http exposes the booking engine over a JSON REST API.
package http

import (
	"net/http"
	"strconv"
	"time"

	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/security"
	"stationrent-backend/internal/service"
	"stationrent-backend/internal/utils"
)

// Services are the application services the handlers call into.
type Services struct {
	Booking       service.BookingService
	Availability  service.AvailabilityService
	Catalog       service.CatalogService
	Wallet        service.WalletService
	Notifications service.NotificationService
}

type Handler struct {
	services Services
	loc      *time.Location
}

// NewHandler builds the handler set. Dates in requests are read as calendar
// days in loc.
func NewHandler(services Services, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{services: services, loc: loc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.NewValidationError("%s is required", field)
	}
	d, err := utils.ParseDate(value, h.loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError("%s: %v", field, err)
	}
	return d, nil
}

// currentUser returns the authenticated caller. Routes behind the auth
// middleware always have one.
func currentUser(r *http.Request) (*security.UserClaims, error) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return nil, domain.NewValidationError("missing caller identity")
	}
	return claims, nil
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, size
}
