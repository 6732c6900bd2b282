// Package routing mounts the Quill HTTP API on a chi router: one POST
// endpoint per task, at the root and under /v1, plus the store, health and
// metrics endpoints.
package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/prompt"
	"github.com/teilomillet/quill/server/handlers"
	"github.com/teilomillet/quill/server/metrics"
	"github.com/teilomillet/quill/server/middleware"
)

// Dependencies are the handlers and middleware the router mounts. Auth,
// RateLimiter and Queue are optional.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Transform   *handlers.TransformHandler
	Store       *handlers.StoreHandler
	Health      handlers.StatusReporter
	Auth        *middleware.Authenticator
	RateLimiter *middleware.RateLimiter
	Queue       *middleware.QueueMiddleware
}

// Router is the HTTP handler of the server.
type Router struct {
	router chi.Router
	logger *zap.Logger
}

// NewRouter creates a router with the global middleware stack and every
// route mounted.
func NewRouter(deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{router: chi.NewRouter(), logger: logger}

	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RequestTimer)
	r.router.Use(errors.ErrorHandler(logger))
	r.router.Use(middleware.Logging(logger))
	if deps.Metrics != nil {
		r.router.Use(middleware.PrometheusMetrics(deps.Metrics))
	}
	r.router.Use(middleware.CORS(deps.Config.CORS))

	r.router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, errors.NewNotFoundError(middleware.GetRequestID(req.Context()), req.URL.Path))
	})
	r.router.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, errors.NewError(
			errors.ValidationError,
			"Method not allowed",
			http.StatusMethodNotAllowed,
			middleware.GetRequestID(req.Context()),
			map[string]interface{}{"method": req.Method},
			nil,
		))
	})

	r.router.Get("/_health", handlers.Liveness)
	if deps.Health != nil {
		r.router.Get("/health", handlers.Health(deps.Health, logger))
	}
	if deps.Metrics != nil {
		r.router.Handle("/metrics", deps.Metrics.Handler())
	}

	r.router.Group(func(api chi.Router) {
		if deps.Auth != nil {
			api.Use(deps.Auth.Handler)
		}
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.Handler)
		}
		if deps.Queue != nil {
			api.Use(deps.Queue.Handler)
		}

		mountAPI(api, deps)
		api.Route("/v1", func(v1 chi.Router) {
			mountAPI(v1, deps)
		})
	})

	return r
}

func mountAPI(r chi.Router, deps Dependencies) {
	if deps.Transform != nil {
		for _, info := range prompt.Tasks() {
			r.Method(http.MethodPost, info.Path, deps.Transform.Handle(info.Task))
		}
	}
	if deps.Store != nil {
		r.Post("/save", deps.Store.Save)
		r.Get("/data", deps.Store.Data)
	}
}

// ServeHTTP implements the http.Handler interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Routes returns the mounted routes as "METHOD pattern" strings.
func (r *Router) Routes() []string {
	var out []string
	_ = chi.Walk(r.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, method+" "+route)
		return nil
	})
	return out
}
