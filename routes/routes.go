package routes

import (
	"github.com/bgmi-arena/arena-backend/handlers"
	"github.com/bgmi-arena/arena-backend/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Player     *handlers.PlayerHandler
	Tournament *handlers.TournamentHandler
	Admission  *handlers.AdmissionHandler
	Wallet     *handlers.WalletHandler
	Admin      *handlers.AdminHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, parser middleware.TokenParser, corsOrigins []string) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	// Public reads: the lobby list and the polled slot counter.
	router.Get("/tournaments", h.Tournament.List)
	router.Get("/tournaments/{tournamentID}", h.Tournament.Get)
	router.Get("/status", h.Admission.Status)

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.Serve)

	// Authenticated player surface.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(parser))

		r.Post("/join", h.Admission.Join)
		r.Post("/deposit", h.Wallet.Deposit)
		r.Post("/withdraw", h.Wallet.Withdraw)
		r.Post("/deposit/proof", h.Wallet.UploadProof)

		r.Get("/me", h.Player.Me)
		r.Get("/me/matches", h.Player.MyMatches)
		r.Get("/players/{playerID}/balance", h.Wallet.Balance)
		r.Get("/players/{playerID}/transactions", h.Wallet.Transactions)
	})

	// Admin review queue.
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(parser))
		r.Use(middleware.RequireRole("admin"))

		r.Post("/tournaments", h.Admin.CreateTournament)
		r.Delete("/tournaments/{tournamentID}", h.Admin.DeleteTournament)
		r.Put("/tournaments/{tournamentID}/room", h.Admin.SetRoom)
		r.Post("/tournaments/{tournamentID}/cancel", h.Admin.CancelTournament)
		r.Get("/tournaments/{tournamentID}/entrants", h.Admin.ListEntrants)
		r.Delete("/entrants/{entrantID}", h.Admin.RejectEntrant)

		r.Post("/transactions/{transactionID}/approve-deposit", h.Admin.ApproveDeposit)
		r.Post("/transactions/{transactionID}/reject-deposit", h.Admin.RejectDeposit)
		r.Post("/transactions/{transactionID}/approve-withdrawal", h.Admin.ApproveWithdrawal)
		r.Post("/transactions/{transactionID}/reject-withdrawal", h.Admin.RejectWithdrawal)

		r.Delete("/players/{playerID}", h.Admin.DeactivatePlayer)
	})
}
