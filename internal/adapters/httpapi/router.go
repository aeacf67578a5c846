package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(metricsMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(chimw.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", s.health)

	r.Get("/email/poll", s.pollInbox)
	r.Get("/email/debug", s.debugInbox)
	r.Post("/email/send", s.sendToVendor)
	r.Post("/send-rfp", s.sendRFP)
	r.Post("/proposals/parse", s.parseProposal)

	r.Post("/rfp/from-text", s.createRFPFromText)
	r.Get("/rfp/{id}/recommend", s.recommend)
	r.Get("/rfps", s.listRFPs)
	r.Route("/rfps/{id}", func(r chi.Router) {
		r.Get("/", s.getRFP)
		r.Delete("/", s.deleteRFP)
		r.Get("/recommend", s.recommend)
	})

	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", s.listVendors)
		r.Post("/", s.createVendor)
		r.Get("/{id}", s.getVendor)
		r.Put("/{id}", s.updateVendor)
		r.Delete("/{id}", s.deleteVendor)
	})

	return r
}
