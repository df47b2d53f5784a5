package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/medcamp/exam-seat-registration/internal/config"
	"github.com/medcamp/exam-seat-registration/internal/handler"
	"github.com/medcamp/exam-seat-registration/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterCapacity registers the public availability views.  These routes
// carry no authentication: prospective registrants check availability
// before they sign up.  When a Redis client is supplied the responses are
// cached for a few seconds; the cache only ever serves the redacted
// public projection, never the accept decision.
func RegisterCapacity(e *echo.Echo, h *handler.CapacityHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1/capacity")
	if rdb != nil && cacheCfg.Enabled {
		g.Use(middleware.NewCapacityViewCache(cacheCfg, rdb))
	}
	// Summary of both sessions on one exam date.
	g.GET("/:date", h.DateSummary)
	// Projection of a single session.
	g.GET("/:date/:session", h.SessionView)
}

// RegisterRegistration registers the student-facing registration and
// personal-data endpoints.  All of them require a valid access token;
// the rate limiter sits in front of the reservation path so a stampede
// at quota-open time degrades into 429s instead of database contention.
func RegisterRegistration(e *echo.Echo, r *handler.RegistrationHandler, p *handler.PDPAHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Students and admins may both register; the middleware rejects
	// requests with missing or unknown roles.
	auth.Use(middleware.RequireRole("STUDENT", "ADMIN"))
	if rdb != nil && rlCfg.Enabled {
		auth.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}

	// Reserve a seat and create the registration record.
	auth.POST("/registrations", r.Create)
	// List the caller's registrations.
	auth.GET("/registrations", r.List)
	// Cancel a registration by exam code and release its seat.
	auth.DELETE("/registrations/:code", r.Cancel)

	// Personal-data export and right-to-erasure.
	auth.GET("/me/data", p.Export)
	auth.DELETE("/me/data", p.Erase)
}

// RegisterAdmin registers the staff monitoring and correction endpoints
// under /v1/admin.  Only the ADMIN role passes the role middleware.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	// Exact per-session counts for one exam date.
	g.GET("/capacity/:date", a.Capacity)
	// Administrative correction of a session's limits.
	g.PUT("/capacity/:date/:session", a.UpdateLimits)
	// All registrations on a date for check-in preparation.
	g.GET("/registrations/:date", a.Registrations)
}
