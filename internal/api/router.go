package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/achados/internal/auth"
	"github.com/erazemk/achados/internal/catalog"
	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/submission"
)

// Deps are the services the router dispatches to.
type Deps struct {
	DB       *sql.DB
	Issuer   *auth.Issuer
	Gateway  *gateway.Local
	Catalog  *catalog.Store
	Workflow *submission.Workflow
	Sessions *Sessions
	// RateLimit is the per-client request budget per minute. Zero disables it.
	RateLimit int
	Now       func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	if d.Sessions == nil {
		d.Sessions = NewSessions(DefaultSessionTTL)
	}

	authHandler := &AuthHandler{DB: d.DB, Issuer: d.Issuer}
	usersHandler := &UsersHandler{DB: d.DB}
	itemsHandler := &ItemsHandler{Gateway: d.Gateway}
	browseHandler := &BrowseHandler{Catalog: d.Catalog, Now: d.Now}
	submissionsHandler := &SubmissionsHandler{Workflow: d.Workflow, Sessions: d.Sessions}
	referenceHandler := &ReferenceHandler{Gateway: d.Gateway}
	alertsHandler := &AlertsHandler{DB: d.DB, Gateway: d.Gateway}
	staffHandler := &StaffHandler{DB: d.DB, Gateway: d.Gateway}
	threadsHandler := &ThreadsHandler{DB: d.DB, Gateway: d.Gateway, Now: d.Now}
	mediaHandler := &MediaHandler{Gateway: d.Gateway}
	healthHandler := &HealthHandler{DB: d.DB}

	authMW := AuthMiddleware(d.Issuer, d.DB)
	optionalAuth := OptionalAuthMiddleware(d.Issuer, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireStaff := RequireRole(model.RoleStaff)

	optional := func(h http.HandlerFunc) http.Handler { return optionalAuth(h) }
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	staff := func(h http.HandlerFunc) http.Handler { return authMW(requireStaff(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/healthz", healthHandler.Health)
	mux.HandleFunc("GET /api/reference/{kind}", referenceHandler.List)
	mux.HandleFunc("GET /media/items-photos/{key...}", mediaHandler.Photo)

	// Public reads; contact details only reach the owner and staff.
	mux.Handle("GET /api/items", optional(itemsHandler.List))
	mux.Handle("GET /api/items/search", optional(itemsHandler.Search))
	mux.Handle("GET /api/items/{id}", optional(itemsHandler.Get))
	mux.Handle("GET /api/browse", optional(browseHandler.Browse))

	// Submission sessions: anonymous or signed in.
	mux.Handle("POST /api/submissions", optional(submissionsHandler.Create))
	mux.Handle("GET /api/submissions/{id}", optional(submissionsHandler.Get))
	mux.Handle("PUT /api/submissions/{id}/contact", optional(submissionsHandler.SetContact))
	mux.Handle("PUT /api/submissions/{id}/details", optional(submissionsHandler.SetDetails))
	mux.Handle("POST /api/submissions/{id}/submit", optional(submissionsHandler.Submit))
	mux.Handle("POST /api/submissions/{id}/back", optional(submissionsHandler.Back))
	mux.Handle("POST /api/submissions/{id}/restart", optional(submissionsHandler.Restart))
	mux.Handle("DELETE /api/submissions/{id}", optional(submissionsHandler.Cancel))

	// Authenticated.
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("PATCH /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("PUT /api/items/{id}/photo", authed(itemsHandler.UploadPhoto))
	mux.Handle("DELETE /api/items/{id}/photo", authed(itemsHandler.DeletePhoto))
	mux.Handle("GET /api/alerts", authed(alertsHandler.List))
	mux.Handle("POST /api/alerts", authed(alertsHandler.Create))
	mux.Handle("PATCH /api/alerts/{id}", authed(alertsHandler.Update))
	mux.Handle("DELETE /api/alerts/{id}", authed(alertsHandler.Delete))
	mux.Handle("GET /api/alerts/{id}/matches", authed(alertsHandler.Matches))
	mux.Handle("POST /api/items/{id}/threads", authed(threadsHandler.Open))
	mux.Handle("GET /api/threads", authed(threadsHandler.List))
	mux.Handle("GET /api/threads/{id}/messages", authed(threadsHandler.Messages))
	mux.Handle("POST /api/threads/{id}/messages", authed(threadsHandler.Send))

	// Staff.
	mux.Handle("GET /api/staff/report", staff(staffHandler.Report))
	mux.Handle("POST /api/staff/items/{id}/receive", staff(staffHandler.Receive))
	mux.Handle("POST /api/staff/items/{id}/resolve", staff(staffHandler.Resolve))

	// Admin.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/reference/campuses/{id}", admin(referenceHandler.SetCampusActive))

	return Chain(mux,
		RequestIDMiddleware,
		RecoveryMiddleware,
		LoggingMiddleware,
		RateLimitMiddleware(d.RateLimit),
	)
}
