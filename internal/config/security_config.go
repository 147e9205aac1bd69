// config/security_config.go
package config

import "strings"

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityCustomer                      // Any signed-in user
	SecurityStaff                         // Station staff or admin
	SecurityAdmin                         // Admin only
)

// EndpointSecurityConfig maps "METHOD route-template" to its required level.
// Route templates are the gorilla/mux path templates registered by the router.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Catalog - Public
	"GET /api/stations":                   SecurityPublic,
	"GET /api/stations/{id}":              SecurityPublic,
	"GET /api/stations/{id}/availability": SecurityPublic,
	"GET /api/vehicle-types":              SecurityPublic,
	"GET /health":                         SecurityPublic,
	"GET /mock-pay":                       SecurityPublic,

	// Payment gateway callback, verified by signature instead of a token
	"POST /api/payments/callback": SecurityPublic,

	// Bookings - Customer
	"POST /api/bookings":              SecurityCustomer,
	"GET /api/bookings":               SecurityCustomer,
	"GET /api/bookings/{id}":          SecurityCustomer,
	"POST /api/bookings/{id}/payment": SecurityCustomer,

	// Wallet and inbox - Customer
	"GET /api/wallet":                   SecurityCustomer,
	"GET /api/notifications":            SecurityCustomer,
	"POST /api/notifications/{id}/read": SecurityCustomer,

	// Station desk - Staff
	"POST /api/staff/bookings/{id}/fulfill":  SecurityStaff,
	"POST /api/staff/bookings/{id}/complete": SecurityStaff,
	"GET /api/staff/bookings/{id}":           SecurityStaff,
	"GET /api/staff/bookings/overdue":        SecurityStaff,
	"PUT /api/staff/vehicles/{id}/status":    SecurityStaff,

	// Administration - Admin
	"POST /api/admin/vehicle-types":        SecurityAdmin,
	"PUT /api/admin/vehicle-types/{id}":    SecurityAdmin,
	"DELETE /api/admin/vehicle-types/{id}": SecurityAdmin,
	"POST /api/admin/bookings/{id}/cancel": SecurityAdmin,
}

// GetSecurityLevel returns the security level for a method and route template
func GetSecurityLevel(method, route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[strings.ToUpper(method)+" "+route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
