package routes

import (
	"net/http"

	"github.com/Dosada05/judo-pairings/handlers"
	"github.com/Dosada05/judo-pairings/middleware"
	"github.com/Dosada05/judo-pairings/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Params struct {
	AuthHandler      *handlers.AuthHandler
	PairingHandler   *handlers.PairingHandler
	WebSocketHandler *handlers.WebSocketHandler
	JWTSecret        string
	AllowedOrigins   []string
}

func SetupRoutes(router chi.Router, p Params) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   p.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.HealthCheck)
	router.Post("/auth/login", p.AuthHandler.Login)

	// Табло и просмотр сетки доступны без авторизации
	router.Get("/ws/competitions/{competitionID}", p.WebSocketHandler.ServeWs)

	router.Route("/competitions/{competitionID}", func(r chi.Router) {
		r.Get("/pairings", p.PairingHandler.GetPairings)
		r.Get("/board", p.PairingHandler.GetBoard)
		r.Get("/matches/{matchIndex}/gate", p.PairingHandler.GetMatchGate)
		r.Get("/medals", p.PairingHandler.GetMedals)
		r.Get("/corrections", p.PairingHandler.ListCorrections)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(p.JWTSecret))

			r.With(middleware.RequireRole(models.RoleTableOfficial, models.RoleSupervisor, models.RoleAdmin)).
				Post("/matches/{matchIndex}/winner", p.PairingHandler.ConfirmWinner)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin))
				r.Post("/pairings", p.PairingHandler.GeneratePairings)
				r.Put("/matches/{matchIndex}/winner", p.PairingHandler.CorrectWinner)
				r.Post("/medals/export", p.PairingHandler.ExportMedals)
			})
		})
	})
}
