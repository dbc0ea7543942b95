// Package adapthttp implements the local JSON API over the session manager
// and the back-office services.
package adapthttp

import (
	"net/http"

	"restoadmin/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	session   *app.SessionManager
	checkout  *app.CheckoutService
	billing   *app.BillingService
	dashboard *app.DashboardService
	admin     *app.AdminService
}

// New creates a Server wired to the given application services.
func New(sm *app.SessionManager, cs *app.CheckoutService, bs *app.BillingService, ds *app.DashboardService, as *app.AdminService) *Server {
	return &Server{session: sm, checkout: cs, billing: bs, dashboard: ds, admin: as}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware, withNoCache)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/register", s.handleRegister)
		r.Get("/google", s.handleGoogleURL)
		r.Post("/google", s.handleGoogleCallback)
		r.Get("/remembered", s.handleRemembered)
		r.With(s.requireSession).Patch("/profile", s.handleUpdateProfile)
		r.With(s.requireSession).Post("/password", s.handleChangePassword)
	})

	r.Post("/api/checkout/quote", s.handleQuote)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/api/checkout/bills", s.handleSubmitBill)

		r.Get("/api/customers/search", s.handleCustomerSearch)
		r.Get("/api/customers/{id}", s.handleCustomer)
		r.Get("/api/customers/{id}/loyalty-history", s.handleLoyaltyHistory)
		r.Post("/api/customers/{id}/points", s.handleAdjustPoints)

		r.Get("/api/bills", s.handleListBills)
		r.Get("/api/bills/{id}", s.handleGetBill)
		r.Delete("/api/bills/{id}", s.handleDeleteBill)
		r.Get("/api/revenue/monthly", s.handleMonthlyRevenue)

		r.Get("/api/dashboard/overview", s.handleOverview)

		r.Get("/api/admin/users", s.handleListUsers)
		r.Get("/api/admin/users/{id}", s.handleGetUser)
		r.Post("/api/admin/users/{id}/{action}", s.handleUserAction)
		r.Get("/api/admin/roles", s.handleListRoles)
		r.Get("/api/admin/permissions", s.handleListPermissions)
		r.Get("/api/admin/activity-logs", s.handleActivityLogs)
		r.Get("/api/admin/login-history", s.handleLoginHistory)
	})

	return r
}
