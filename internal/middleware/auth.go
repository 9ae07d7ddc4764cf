package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// AuthRequired sends anonymous visitors to redirectTo, or "/" when empty
func AuthRequired(redirectTo string, delay time.Duration) gin.HandlerFunc {
	return RouteGate(GateOptions{
		RequireAuth:   true,
		RedirectTo:    redirectTo,
		RedirectDelay: delay,
	})
}

// PublicOnly sends signed-in users to redirectTo, e.g. away from the sign-in page
func PublicOnly(redirectTo string) gin.HandlerFunc {
	return RouteGate(GateOptions{RedirectTo: redirectTo})
}
