package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "linkbio/api/v1"
	"linkbio/internal/clicks"
	"linkbio/internal/config"
	"linkbio/internal/http"
	"linkbio/internal/pkg/metrics"
	"linkbio/internal/redirect"
	"linkbio/web"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// All public endpoints share this permissive CORS setup for cross-origin access.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// Dependencies are the long-lived components the routes are built from.
// Recorder and Metrics may be nil: clicks are then dropped and /metrics is 404.
type Dependencies struct {
	Config   *config.Config
	Recorder *clicks.Recorder
	Metrics  *metrics.Metrics
	Renderer *web.Renderer
	Now      func() time.Time
}

// NewRouteMount returns the cartridge route mount function for deps.
func NewRouteMount(deps *Dependencies) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		cfg := deps.Config
		if cfg == nil {
			cfg = config.GetConfig()
		}

		renderer := deps.Renderer
		if renderer == nil {
			var err error
			if renderer, err = web.NewRenderer(); err != nil {
				panic("routes: failed to load templates: " + err.Error())
			}
		}

		// A nil *clicks.Recorder must not become a non-nil interface value
		var tracker redirect.Tracker
		var clickRecorder v1.ClickRecorder
		if deps.Recorder != nil {
			tracker = deps.Recorder
			clickRecorder = deps.Recorder
		}

		db := srv.GetDBManager().GetConnection()
		logger := srv.GetLogger()

		handlers := &http.Handlers{
			Config: cfg,
			Resolver: redirect.NewResolver(redirect.StoreLookup(db), tracker, cfg.GetRedirectDelay(),
				redirect.WithMetrics(deps.Metrics),
				redirect.WithLogger(logger)),
			Renderer: renderer,
			Metrics:  deps.Metrics,
			Now:      deps.Now,
		}

		// ============================================
		// PUBLIC ENDPOINT PROTECTION
		// - Rate limiting (production only)
		// - CORS (permissive for cross-origin tracking)
		// - Sec-Fetch-Site validation where applicable
		// ============================================

		// Helper to conditionally apply rate limiting (only in production)
		// In development/test, rate limiting would interfere with testing
		conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
			return func(c *fiber.Ctx) error {
				if cfg.IsProduction() {
					return limiter(c)
				}
				return c.Next()
			}
		}

		// Rate limiter for public click ingestion API (70 requests per minute per IP)
		publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(70),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// Redirects are followed by real visitors and get a looser limit
		redirectRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(300),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// ============================================
		// ROUTE CONFIGURATIONS
		// ============================================

		// Public API config (click ingestion)
		// CORS runs first ensuring 403 responses have CORS headers
		publicAPIConfig := &cartridge.RouteConfig{
			EnableCORS:       true,
			CustomMiddleware: []fiber.Handler{publicRateLimiter},
			CORSConfig:       publicCORSConfig,
		}

		redirectConfig := &cartridge.RouteConfig{
			CustomMiddleware: []fiber.Handler{redirectRateLimiter},
		}

		preflight := func(ctx *cartridge.Context) error {
			return ctx.SendStatus(fiber.StatusNoContent)
		}

		// === PUBLIC PAGES ===
		srv.Get("/", handlers.LandingHomeAction)
		srv.Get("/l/:slug", handlers.LandingPageAction)
		srv.Get("/r/:code", handlers.RedirectAction, redirectConfig)

		// Health check endpoint
		srv.Get("/_health", http.HealthIndexAction)
		srv.Head("/_health", http.HealthIndexAction)
		srv.Get("/metrics", handlers.MetricsAction)

		// === PUBLIC API ROUTES ===
		srv.Post("/x/api/v1/clicks", v1.TrackClickAction(clickRecorder), publicAPIConfig)
		srv.Options("/x/api/v1/clicks", preflight, publicAPIConfig)
		srv.Post("/x/api/v1/clicks/beacon", v1.TrackClickBeaconAction(clickRecorder), publicAPIConfig)
		srv.Options("/x/api/v1/clicks/beacon", preflight, publicAPIConfig)

		// === ADMIN API ROUTES ===
		srv.Get("/api/links", handlers.LinksIndexAction)
		srv.Post("/api/links", handlers.LinkCreateAction)
		srv.Post("/api/links/reset", handlers.LinksBulkResetAction)
		srv.Get("/api/links/:id", handlers.LinkShowAction)
		srv.Post("/api/links/:id", handlers.LinkUpdateAction)
		srv.Delete("/api/links/:id", handlers.LinkDeleteAction)
		srv.Post("/api/links/:id/reset", handlers.LinkResetAction)
		srv.Get("/api/links/:id/stats", handlers.LinkStatsAction)

		srv.Get("/api/dashboard", handlers.DashboardAction)

		srv.Get("/api/landing/settings", handlers.LandingSettingsAction)
		srv.Post("/api/landing/settings", handlers.LandingSettingsUpdateAction)
	}
}
