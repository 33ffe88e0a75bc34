package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/metadata"
	ledgermw "github.com/terraconstructs/herbledger/cmd/herbledger/internal/middleware"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/roles"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/trail"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

// RouterOptions controls the construction of the ledger HTTP router.
// Ledger and Roles are required; the remaining collaborators enable their
// route groups when set.
type RouterOptions struct {
	Ledger    *ledger.Service
	Roles     *roles.Service
	Trail     *trail.Service
	Content   content.Store
	Validator *metadata.Validator
	// Gateway is the HTTP gateway base used in content responses.
	Gateway string

	// Authn resolves the caller principal. Nil falls back to trusted-header mode.
	Authn       func(http.Handler) http.Handler
	Logger      zerolog.Logger
	Metrics     *telemetry.ServerMetrics
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler

	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			ledgermw.PrincipalHeader,
		},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy and
// the ledger handlers mounted under /api.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ledgermw.AccessLog(opts.Logger, opts.Metrics))
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	authn := opts.Authn
	if authn == nil {
		authn = ledgermw.NewAuthn(ledgermw.AuthnOptions{Logger: opts.Logger})
	}

	h := &handlers{
		ledger:    opts.Ledger,
		roles:     opts.Roles,
		trail:     opts.Trail,
		content:   opts.Content,
		validator: opts.Validator,
		gateway:   opts.Gateway,
		log:       opts.Logger,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authn)

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.listRoles)
			r.Post("/grant", h.grantRole)
			r.Post("/revoke", h.revokeRole)
			r.Get("/{principal}", h.getRoles)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", h.listBatches)
			r.Post("/", h.createBatch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getBatch)
				r.Get("/summary", h.getSummary)
				r.Get("/record", h.getRecord)
				if opts.Trail != nil {
					r.Get("/trail", h.getTrail)
				}
				r.Post("/stages/{stage}", h.addStage)
			})
		})

		r.Get("/events", h.listEvents)
		r.Get("/events/verify", h.verifyEvents)

		if opts.Content != nil {
			r.Post("/content", h.putContent)
			r.Get("/content/{cid}", h.getContent)
			if opts.Validator != nil {
				r.Post("/metadata/{stage}", h.putMetadata)
			}
		}
	})

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

// NewH2CHandler wraps the router with an h2c server to provide HTTP/2 over
// cleartext.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}

type handlers struct {
	ledger    *ledger.Service
	roles     *roles.Service
	trail     *trail.Service
	content   content.Store
	validator *metadata.Validator
	gateway   string
	log       zerolog.Logger
}

// caller returns the authenticated principal. The authn middleware
// guarantees one is present on every /api route.
func caller(r *http.Request) string {
	p, _ := ledgermw.PrincipalFromContext(r.Context())
	return p
}
