// Package routes wires handlers and middleware into the HTTP router.
package routes

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medtrack/medtrack-go/internal/config"
	"github.com/medtrack/medtrack-go/internal/handler"
	"github.com/medtrack/medtrack-go/internal/middleware"
	"github.com/medtrack/medtrack-go/internal/service"
)

// Dependencies are the services and settings the router needs.
type Dependencies struct {
	Config      config.Config
	DB          handler.Pinger
	Users       *service.UserService
	Tags        *service.AttributeService
	Ingredients *service.AttributeService
	Drugs       *service.DrugService
}

// Setup builds the application router.
func Setup(deps Dependencies) http.Handler {
	cfg := deps.Config

	userHandler := handler.NewUserHandler(deps.Users)
	tagHandler := handler.NewTagHandler(deps.Tags)
	ingredientHandler := handler.NewIngredientHandler(deps.Ingredients)
	drugHandler := handler.NewDrugHandler(deps.Drugs, cfg.MaxUploadBytes)
	healthHandler := handler.NewHealthHandler(deps.DB)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/health", healthHandler.HandleCheck)
	r.Handle("/metrics", promhttp.Handler())

	if prefix, ok := mediaPrefix(cfg.MediaURL); ok {
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.MediaRoot))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateBurst))
			r.Post("/user/create", userHandler.HandleCreate)
			r.Post("/user/token", userHandler.HandleToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.JWTSecret, deps.Users))

			r.Get("/user/me", userHandler.HandleMe)

			r.Route("/drug", func(r chi.Router) {
				mountAttribute(r, "/tags", tagHandler)
				mountAttribute(r, "/ingredients", ingredientHandler)

				r.Get("/drugs", drugHandler.HandleList)
				r.Post("/drugs", drugHandler.HandleCreate)
				r.Get("/drugs/{id}", drugHandler.HandleGet)
				r.Put("/drugs/{id}", drugHandler.HandleReplace)
				r.Patch("/drugs/{id}", drugHandler.HandlePatch)
				r.Delete("/drugs/{id}", drugHandler.HandleDelete)
				r.Post("/drugs/{id}/upload-image", drugHandler.HandleUploadImage)
			})
		})
	})

	return r
}

func mountAttribute(r chi.Router, prefix string, h *handler.AttributeHandler) {
	r.Get(prefix, h.HandleList)
	r.Post(prefix, h.HandleCreate)
	r.Put(prefix+"/{id}", h.HandleUpdate)
	r.Patch(prefix+"/{id}", h.HandleUpdate)
	r.Delete(prefix+"/{id}", h.HandleDelete)
}

// mediaPrefix returns the local path uploaded files are served under.
// Media hosted elsewhere (an absolute URL with a host) is not served here.
func mediaPrefix(mediaURL string) (string, bool) {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Host != "" {
		return "", false
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "", false
	}
	return "/" + p + "/", true
}
