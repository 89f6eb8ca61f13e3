package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medistore/api/internal/cart"
	"github.com/medistore/api/internal/config"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/handler"
	"github.com/medistore/api/internal/mail"
	mw "github.com/medistore/api/internal/middleware"
	"github.com/medistore/api/internal/payment"
	"github.com/medistore/api/internal/service"
	"github.com/medistore/api/internal/ws"
)

// New creates a chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, carts *cart.Store, mailer mail.Sender, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(50, 100))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:19006", "https://app.medistore.in"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, mailer, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route authenticates via the token query param itself.
	r.Get("/ws/users/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Catalog reads are public; writes require an ADMIN token.
	medicineHandler := handler.NewMedicineHandler(queries)
	r.Route("/medicines", func(r chi.Router) {
		medicineHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRole("ADMIN"))
			medicineHandler.RegisterAdminRoutes(r)
		})
	})

	upi := payment.UPIConfig{PayeeID: cfg.UPIPayeeID, PayeeName: cfg.UPIPayeeName}
	paymentHandler := handler.NewPaymentHandler(queries, upi)

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	orderHandler := handler.NewOrderHandler(orderService, queries, carts, hub)
	cartHandler := handler.NewCartHandler(carts, queries)
	notificationHandler := handler.NewNotificationHandler(queries, hub)
	reminderHandler := handler.NewReminderHandler(queries)
	userHandler := handler.NewUserHandler(queries)
	dashboardHandler := handler.NewDashboardHandler(queries)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)
		paymentHandler.RegisterRoutes(r)

		// Per-user resources, self or admin
		r.Route("/users/{id}", func(r chi.Router) {
			r.Use(mw.RequireSelf)
			r.Route("/cart", cartHandler.RegisterRoutes)
			r.Route("/orders", orderHandler.RegisterRoutes)
			r.Route("/notifications", notificationHandler.RegisterRoutes)
			r.Route("/reminders", reminderHandler.RegisterRoutes)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("ADMIN"))

			orderHandler.RegisterAdminRoutes(r)
			paymentHandler.RegisterAdminRoutes(r)

			r.Route("/admin", func(r chi.Router) {
				notificationHandler.RegisterAdminRoutes(r)
				userHandler.RegisterAdminRoutes(r)
				dashboardHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r
}
