package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/healthify/internal/healthify/metrics"
	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
	"github.com/aussiebroadwan/healthify/pkg/slogx"

	_ "github.com/aussiebroadwan/healthify/api/healthify" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       httpx.RateLimits

	store   store.Store
	manager *session.Manager

	Auth             *authsdk.Auth
	DashboardService *service.DashboardService
	ActivityService  *service.ActivityService
	ChatService      *service.ChatService

	// Metrics and Gatherer are optional; /metrics is only served with both.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

func NewRouter(
	buildVersion string,
	st store.Store,
	mgr *session.Manager,
	limits httpx.RateLimits,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		limits:       limits,
		store:        st,
		manager:      mgr,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.Metrics != nil {
		r.middlewares = append(r.middlewares, r.Metrics.Middleware)
	}

	r.registerSystem()
	r.registerSession()
	r.registerDashboard()
	r.registerActivity()
	r.registerChat()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Healthify Local API
//	@version		0.1.0
//	@description	Local API of the Healthify health tracker. Session state is owned by the process:
//	@description	routes under /v1 other than /v1/session* answer 503 until the stored session has
//	@description	been resolved and 401 when nobody is signed in.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/healthify
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.manager),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	if r.Metrics != nil && r.Gatherer != nil {
		r.Mux.Handle("GET /metrics", metrics.Handler(r.Gatherer))
	}
}

func (r *Router) registerSession() {
	h := &SessionHandler{Manager: r.manager, Auth: r.Auth}

	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	// Login, signup and MFA - strict rate limit by IP (brute force of passwords, invites and TOTP codes)
	r.Mux.Handle("POST /v1/session/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/session/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/session/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleMFA),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	r.Mux.Handle("POST /v1/session/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)
}

// secured gates h on a signed-in session and rate limits by user.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		RequireSession(r.manager),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerDashboard() {
	h := &DashboardHandler{DashboardService: r.DashboardService}

	r.Mux.Handle("GET /v1/dashboard", r.secured(h.HandleGet, r.limits.Public))
	r.Mux.Handle("PUT /v1/profile", r.secured(h.HandleUpdateProfile, r.limits.Moderate))
	r.Mux.Handle("POST /v1/water", r.secured(h.HandleAddWater, r.limits.Moderate))
	r.Mux.Handle("POST /v1/meals", r.secured(h.HandleAddMeal, r.limits.Moderate))
	r.Mux.Handle("DELETE /v1/meals/{id}", r.secured(h.HandleDeleteMeal, r.limits.Moderate))
}

func (r *Router) registerActivity() {
	h := &ActivityHandler{ActivityService: r.ActivityService}

	r.Mux.Handle("POST /v1/activity/samples", r.secured(h.HandleIngest, r.limits.Moderate))
	r.Mux.Handle("PUT /v1/activity/authorization", r.secured(h.HandleSetAuthorization, r.limits.Moderate))
}

func (r *Router) registerChat() {
	h := &ChatHandler{ChatService: r.ChatService}

	r.Mux.Handle("GET /v1/chat/messages", r.secured(h.HandleList, r.limits.Public))
	r.Mux.Handle("POST /v1/chat/messages", r.secured(h.HandleSend, r.limits.Moderate))
}
