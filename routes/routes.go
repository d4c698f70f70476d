package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pongarena/tournament-engine/handlers"
	"github.com/pongarena/tournament-engine/middleware"
)

// SetupRoutes wires every HTTP endpoint onto the router. Reads are public,
// every mutating route sits behind the bearer-token middleware.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	tournamentHandler *handlers.TournamentHandler,
	participantHandler *handlers.ParticipantHandler,
	matchHandler *handlers.MatchHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournamentHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			r.Post("/", tournamentHandler.CreateHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
			r.Put("/{tournamentID}/logo", tournamentHandler.UploadLogoHandler)

			r.Post("/{tournamentID}/join", participantHandler.JoinHandler)
			r.Delete("/{tournamentID}/leave", participantHandler.LeaveHandler)

			r.Post("/{tournamentID}/start", tournamentHandler.StartHandler)
			r.Post("/{tournamentID}/matches/{matchID}/result", matchHandler.ReportResultHandler)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Get("/notifications", notificationHandler.ListMineHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
