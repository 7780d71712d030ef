package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Customer access token required
	SecurityStaff                       // Access token with the staff role required
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"Health": SecurityPublic,

	// Customer-facing
	"CreateRental":      SecurityAccess,
	"GetRentalSummary":  SecurityAccess,
	"GetRentalHistory":  SecurityAccess,
	"CancelRental":      SecurityAccess,
	"GetLateFees":       SecurityAccess,
	"CheckAvailability": SecurityAccess,
	"RecordPayment":     SecurityAccess,

	// Counter staff and payment gateway callbacks
	"UpdateRentalStatus":  SecurityStaff,
	"UpdatePaymentStatus": SecurityStaff,
}

// RouteSecurity returns the level for a route, defaulting to SecurityAccess
// for anything not listed.
func RouteSecurity(name string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[name]; ok {
		return level
	}
	return SecurityAccess
}
