package router

import (
	"log"
	"net/http"

	"github.com/finova-pos/api/internal/config"
	"github.com/finova-pos/api/internal/database"
	"github.com/finova-pos/api/internal/handler"
	mw "github.com/finova-pos/api/internal/middleware"
	"github.com/finova-pos/api/internal/service"
	"github.com/finova-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Reports and PSG routes additionally sit behind the reports PIN gate.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // dev frontend
			"http://localhost:3000",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Reports-Pin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Business profile
		businessHandler := handler.NewBusinessHandler(queries)
		r.Route("/business", businessHandler.RegisterRoutes)

		// Menu items
		itemHandler := handler.NewItemHandler(queries)
		r.Route("/items", itemHandler.RegisterRoutes)

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Reports and PSG (PIN-gated)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireReportsPin(queries))

			reportService := service.NewReportService(queries)
			reportHandler := handler.NewReportHandler(reportService)
			r.Route("/reports", reportHandler.RegisterRoutes)

			psgHandler := handler.NewPSGHandler(reportService)
			r.Route("/psg", psgHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
