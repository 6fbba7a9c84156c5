package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/aussiebroadwan/nullprofile/api/idp" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Sessions            *SessionManager
	Metrics             *service.Metrics
	AuthorizeService    *service.AuthorizeService
	TokenService        *service.TokenService
	WebAuthnService     *service.WebAuthnService
	PasskeyService      *service.PasskeyService
	AccountService      *service.AccountService
	RelyingPartyService *service.RelyingPartyService
}

func NewRouter(
	keys *jwtx.KeyManager,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOIDC()
	r.registerWebAuthn()
	r.registerSession()
	r.registerPasskeys()
	r.registerRelyingParties()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			nullprofile Identity Provider API
//	@version		0.1.0
//	@description	OpenID Connect provider issuing pairwise ID tokens after WebAuthn passkey ceremonies.
//	@description
//	@description	Authorization Code flow with mandatory PKCE (S256). Clients are public; there are no client secrets.
//	@description	Browser endpoints are bound to the np_session cookie.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/nullprofile
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// browser wraps h with the session cookie and a per-IP limit.
func (r *Router) browser(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitByIP(limit),
		r.Sessions.Middleware,
	)
}

// signedIn additionally requires an authenticated session and charges limit
// to the user.
func (r *Router) signedIn(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitByIP(httpx.LenientLimit),
		r.Sessions.Middleware,
		r.Sessions.RequireUser,
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerOIDC() {
	authorizeHandler := &AuthorizeHandler{AuthorizeService: r.AuthorizeService}

	// Browser navigation, lenient
	r.Mux.Handle("GET /authorize", r.browser(http.HandlerFunc(authorizeHandler.HandleAuthorize), httpx.LenientLimit))
	r.Mux.Handle("GET /authorize/resume", r.browser(http.HandlerFunc(authorizeHandler.HandleResume), httpx.LenientLimit))
	r.Mux.Handle("GET /api/oidc/branding", r.browser(http.HandlerFunc(authorizeHandler.HandleBranding), httpx.LenientLimit))

	// POST /token - back channel, no cookie. Bucketed per client so one
	// noisy client behind a shared address does not starve the others.
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitMiddleware(httpx.StrictLimit,
				httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("client_id"))),
		),
	)

	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer, r.keys.Algorithm()),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /jwks.json",
		httpx.Chain(JWKSHandler(r.keys.KeySet()),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerWebAuthn() {
	h := &WebAuthnHandler{WebAuthnService: r.WebAuthnService}

	r.Mux.Handle("POST /webauthn/registration/options", r.browser(http.HandlerFunc(h.HandleRegistrationOptions), httpx.LenientLimit))
	r.Mux.Handle("POST /webauthn/authentication/options", r.browser(http.HandlerFunc(h.HandleAuthenticationOptions), httpx.LenientLimit))

	// Verification is where guessing happens
	r.Mux.Handle("POST /webauthn/registration/verify", r.browser(http.HandlerFunc(h.HandleRegistrationVerify), httpx.StrictLimit))
	r.Mux.Handle("POST /webauthn/authentication/verify", r.browser(http.HandlerFunc(h.HandleAuthenticationVerify), httpx.StrictLimit))
}

func (r *Router) registerSession() {
	h := &AccountHandler{
		AccountService: r.AccountService,
		Cookies:        r.Sessions,
	}

	r.Mux.Handle("GET /api/session/current", r.browser(http.HandlerFunc(h.HandleCurrent), httpx.ModerateLimit))
	r.Mux.Handle("POST /api/session/logout", r.browser(http.HandlerFunc(h.HandleLogout), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/account", r.signedIn(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerPasskeys() {
	h := &PasskeysHandler{
		PasskeyService:  r.PasskeyService,
		WebAuthnService: r.WebAuthnService,
	}

	r.Mux.Handle("GET /api/passkeys", r.signedIn(http.HandlerFunc(h.HandleList), httpx.ModerateLimit))
	r.Mux.Handle("POST /api/passkeys/options", r.signedIn(http.HandlerFunc(h.HandleOptions), httpx.ModerateLimit))
	r.Mux.Handle("POST /api/passkeys/verify", r.signedIn(http.HandlerFunc(h.HandleVerify), httpx.StrictLimit))
	r.Mux.Handle("PUT /api/passkeys/{id}", r.signedIn(http.HandlerFunc(h.HandleRename), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/passkeys/{id}", r.signedIn(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerRelyingParties() {
	h := &RelyingPartiesHandler{RelyingPartyService: r.RelyingPartyService}

	r.Mux.Handle("GET /api/relying-parties", r.signedIn(http.HandlerFunc(h.HandleList), httpx.ModerateLimit))
	r.Mux.Handle("POST /api/relying-parties", r.signedIn(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("GET /api/relying-parties/{id}", r.signedIn(http.HandlerFunc(h.HandleGet), httpx.ModerateLimit))
	r.Mux.Handle("PUT /api/relying-parties/{id}", r.signedIn(http.HandlerFunc(h.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/relying-parties/{id}", r.signedIn(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Monitoring systems poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}
