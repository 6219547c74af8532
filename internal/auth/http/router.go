package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/metrics"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
	"github.com/aussiebroadwan/messenger/pkg/jwtx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"

	_ "github.com/aussiebroadwan/messenger/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router wires the account and probe handlers onto a ServeMux. Set the
// exported dependencies, then call ApplyRoutes once before serving.
type Router struct {
	Mux *http.ServeMux

	Accounts Accounts
	Queue    Backlog
	Ledger   Backlog
	Now      func() time.Time

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
	db           Pinger

	handler http.Handler
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	db Pinger,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		metrics:      m,
		logger:       logger,
	}
}

// route is one "METHOD path" registration with its own middleware, applied
// inside the per-route metrics middleware.
type route struct {
	method  string
	path    string
	handler http.Handler
	mws     []httpx.Middleware
}

func (r *Router) routes() []route {
	routes := []route{
		{http.MethodPost, "/auth/create", &CreateHandler{Accounts: r.Accounts, Now: r.Now},
			[]httpx.Middleware{httpx.RateLimitByIP(httpx.StrictLimit)}},
		// Keyed by address and email so one guessed account does not lock out a NAT.
		{http.MethodPost, "/auth/login", &LoginHandler{Accounts: r.Accounts},
			[]httpx.Middleware{httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email")}},
		// Eight-digit codes need the strict limit to stay unguessable.
		{http.MethodPost, "/auth/verify", &VerifyHandler{Accounts: r.Accounts},
			[]httpx.Middleware{httpx.RateLimitByIP(httpx.StrictLimit)}},
		{http.MethodGet, "/auth/me", &MeHandler{Accounts: r.Accounts},
			[]httpx.Middleware{httpx.AuthnMiddleware(r.verifier), httpx.RateLimitByUser(httpx.LenientLimit)}},
		{http.MethodGet, "/auth/ping", PingHandler(),
			[]httpx.Middleware{httpx.RateLimitByIP(httpx.PublicLimit)}},

		{http.MethodGet, "/livez", LivezHandler(r.startTime, r.buildVersion),
			[]httpx.Middleware{httpx.RateLimitByIP(httpx.LenientLimit)}},
		{http.MethodGet, "/readyz", ReadyzHandler(r.startTime, r.buildVersion, r.db, r.Queue, r.Ledger),
			[]httpx.Middleware{httpx.RateLimitByIP(httpx.LenientLimit)}},
	}
	if r.metrics != nil {
		routes = append(routes, route{method: http.MethodGet, path: "/metrics", handler: r.metrics.Handler()})
	}
	return routes
}

// ApplyRoutes registers every route plus an envelope 405 for other methods on
// the same path, the swagger UI and an envelope 404 for everything else.
func (r *Router) ApplyRoutes() {
	for _, rt := range r.routes() {
		mws := append([]httpx.Middleware{r.metrics.HTTPMiddleware(rt.path)}, rt.mws...)
		r.Mux.Handle(rt.method+" "+rt.path, httpx.Chain(rt.handler, mws...))
		r.Mux.Handle(rt.path, methodNotAllowedHandler(rt.method))
	}
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.Handle("/", notFoundHandler())

	r.handler = httpx.Chain(r.Mux, slogx.HTTPMiddleware(r.logger), httpx.Recoverer)
}

// ServeHTTP dispatches through the logging and recovery middleware.
//
//	@title			Messenger Authentication Service API
//	@version		0.1.0
//	@description	Account creation, login and emailed two-factor codes for the messenger service.
//	@description
//	@description				Every response is wrapped in an envelope: isSuccess, data, apiError and fieldErrors.
//	@description				Session tokens are HS256 JWTs.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/messenger
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
