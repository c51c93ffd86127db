package internal

import (
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"

	"linkbio/internal/config"
	"linkbio/internal/pkg/metrics"
)

func mountForTest(t *testing.T) []fiber.Route {
	t.Helper()
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: NewRouteMount(&Dependencies{
			Config:  config.GetConfig(),
			Metrics: metrics.NewMetrics(),
		}),
	})
	return srv.App.GetRoutes(true)
}

func findRoute(routes []fiber.Route, method, path string) *fiber.Route {
	for idx := range routes {
		if routes[idx].Method == method && routes[idx].Path == path {
			return &routes[idx]
		}
	}
	return nil
}

func TestPublicClicksRouteRateLimited(t *testing.T) {
	routes := mountForTest(t)

	clickRoute := findRoute(routes, fiber.MethodPost, "/x/api/v1/clicks")
	require.NotNil(t, clickRoute, "expected clicks route to be registered")

	// The rate limiter is wrapped in a conditional function that only applies
	// in production. In test environment, it passes through but the wrapper
	// still exists. Check for the conditional wrapper (defined in NewRouteMount).
	hasRateLimiter := false
	var handlerNames []string
	for _, handler := range clickRoute.Handlers {
		name := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
		handlerNames = append(handlerNames, name)
		// Check for either the raw limiter or our conditional wrapper
		if strings.Contains(name, "middleware/limiter") || strings.Contains(name, "NewRouteMount.func") {
			hasRateLimiter = true
			break
		}
	}

	require.Truef(t, hasRateLimiter, "expected rate limiter middleware for public clicks route, handlers: %v", handlerNames)
}

func TestRoutesRegistered(t *testing.T) {
	routes := mountForTest(t)

	expected := []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/"},
		{fiber.MethodGet, "/l/:slug"},
		{fiber.MethodGet, "/r/:code"},
		{fiber.MethodGet, "/_health"},
		{fiber.MethodGet, "/metrics"},
		{fiber.MethodPost, "/x/api/v1/clicks"},
		{fiber.MethodOptions, "/x/api/v1/clicks"},
		{fiber.MethodPost, "/x/api/v1/clicks/beacon"},
		{fiber.MethodGet, "/api/links"},
		{fiber.MethodPost, "/api/links"},
		{fiber.MethodPost, "/api/links/reset"},
		{fiber.MethodGet, "/api/links/:id"},
		{fiber.MethodPost, "/api/links/:id"},
		{fiber.MethodDelete, "/api/links/:id"},
		{fiber.MethodPost, "/api/links/:id/reset"},
		{fiber.MethodGet, "/api/links/:id/stats"},
		{fiber.MethodGet, "/api/dashboard"},
		{fiber.MethodGet, "/api/landing/settings"},
		{fiber.MethodPost, "/api/landing/settings"},
	}

	for _, route := range expected {
		require.NotNilf(t, findRoute(routes, route.method, route.path), "expected %s %s to be registered", route.method, route.path)
	}
}
