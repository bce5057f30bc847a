package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pogoleague/league-system/handlers"
	"github.com/pogoleague/league-system/middleware"
	"github.com/pogoleague/league-system/models"
)

// SetupRoutes собирает HTTP-поверхность лиги. Операции жизненного
// цикла и планирование закрыты ролью admin; регистрация в диспуте,
// выбор типа и результаты доступны любому аутентифицированному игроку.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	gymHandler *handlers.GymHandler,
	disputeHandler *handlers.DisputeHandler,
	jobHandler *handlers.JobHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/gyms", func(r chi.Router) {
		r.Get("/", gymHandler.List)
		r.Get("/{gymID}", gymHandler.Get)
		r.Get("/{gymID}/leadership", gymHandler.LeadershipHistory)
		r.Get("/{gymID}/challenges", gymHandler.ListChallenges)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{gymID}/renounce", gymHandler.Renounce)
			r.Post("/{gymID}/challenges", gymHandler.SubmitChallenge)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/", gymHandler.Create)
				r.Put("/{gymID}", gymHandler.Update)
				r.Post("/{gymID}/photo", gymHandler.UploadPhoto)
				r.Post("/{gymID}/defenses", gymHandler.RecordDefense)
				r.Post("/{gymID}/disputes", disputeHandler.Create)

				r.Post("/{gymID}/jobs", jobHandler.Schedule)
				r.Get("/{gymID}/jobs", jobHandler.List)
				r.Delete("/{gymID}/jobs", jobHandler.Cancel)
			})
		})
	})

	router.Route("/disputes", func(r chi.Router) {
		r.Get("/{disputeID}", disputeHandler.Get)
		r.Get("/{disputeID}/standings", disputeHandler.Standings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{disputeID}/register", disputeHandler.Register)
			r.Post("/{disputeID}/type", disputeHandler.ChooseType)
			r.Post("/{disputeID}/withdraw", disputeHandler.Withdraw)
			r.Post("/{disputeID}/results", disputeHandler.ReportResult)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/{disputeID}/start", disputeHandler.Start)
				r.Post("/{disputeID}/close", disputeHandler.Close)
			})
		})
	})

	router.Route("/results", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/{resultID}/confirm", disputeHandler.ConfirmResult)
	})

	router.Get("/ws/gyms/{gymID}", webSocketHandler.ServeWs)
}
