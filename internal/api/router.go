package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"innostart.pro/innostart/internal/logger"
)

func NewRouter(h *APIHandler, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", h.SignupHandler)
		r.Post("/auth/login", h.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.JWTAuthMiddleware)

			r.Get("/ideas", h.ListIdeasHandler)
			r.Post("/ideas", h.CreateIdeaHandler)
			r.Get("/ideas/{ideaID}", h.GetIdeaHandler)
			r.Put("/ideas/{ideaID}", h.UpdateIdeaHandler)
			r.Delete("/ideas/{ideaID}", h.DeleteIdeaHandler)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/generate-ideas", h.GenerateIdeasHandler)
				r.Post("/chat", h.ChatHandler)
				r.Post("/generate-business-plan", h.GenerateBusinessPlanHandler)
				r.Post("/generate-financial-projection", h.GenerateFinancialProjectionHandler)
				r.Post("/generate-business-plan-section", h.GenerateSectionHandler)

				r.Get("/business-plans", h.ListBusinessPlansHandler)
				r.Get("/business-plan/{planID}", h.GetBusinessPlanHandler)
				r.Get("/financial-projection/{projectionID}", h.GetFinancialProjectionHandler)
				r.Get("/conversations", h.ListConversationsHandler)
				r.Get("/conversations/{conversationID}", h.GetConversationHandler)
			})
		})
	})

	return r
}
