package handlers

import (
	"RainMatrix/src/metrics"
	"RainMatrix/src/token"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter wires every route. Admin routes sit behind the JWT middleware.
func NewRouter(h *Handler, auth *token.Authenticator, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(requestLogger{logger: log.StandardLogger()}))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/", h.HandleIndex)
	r.Get("/healthz", HandleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/matrix", h.HandleMatrixAPI)
		r.Get("/places", h.HandleGetPlacesAPI)
		r.Get("/places/nearby", h.HandleNearbyAPI)
		r.Get("/geocode", h.HandleGeocodeAPI)
		r.Post("/get_token", auth.GetToken)

		r.Group(func(r chi.Router) {
			r.Use(auth.JwtMiddleware)
			r.Post("/cache/purge", h.HandleCachePurge)
			r.Post("/cache/prune", h.HandleCachePrune)
		})
	})

	return r
}
