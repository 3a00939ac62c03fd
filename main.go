package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kahawahub/kahawa/backend/internal/config"
	httpdelivery "github.com/kahawahub/kahawa/backend/internal/delivery/http"
	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/messaging"
	"github.com/kahawahub/kahawa/backend/internal/messaging/kafka"
	"github.com/kahawahub/kahawa/backend/internal/notify"
	"github.com/kahawahub/kahawa/backend/internal/repository"
	"github.com/kahawahub/kahawa/backend/internal/repository/memory"
	"github.com/kahawahub/kahawa/backend/internal/repository/postgres"
	"github.com/kahawahub/kahawa/backend/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	cfg := config.Load()

	// --- Storage: Postgres, or the in-memory store in demo mode ---
	var (
		productRepo repository.ProductRepository
		orderRepo   repository.OrderRepository
	)
	if cfg.DemoMode {
		slog.Info("🧪 Demo mode: in-memory store, no database required")
		store := memory.NewStore(cfg.Settings.TaxRate)
		productRepo = store.Products()
		orderRepo = store.Orders()
	} else {
		db, err := postgres.InitDB(cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to init database", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		productRepo = postgres.NewProductRepository(db)
		orderRepo = postgres.NewOrderRepository(db, cfg.Settings.TaxRate)
	}

	if err := productRepo.Seed(context.Background(), seedProducts(cfg.Settings.LowStockThreshold)); err != nil {
		slog.Error("Failed to seed products", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Kafka + notification worker ---
	wmLogger := watermill.NewSlogLogger(slog.Default())

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.KafkaEnabled {
		pub, closePub, err := kafka.NewPublisher(cfg.KafkaBrokers, "kahawa-backend", wmLogger)
		if err != nil {
			slog.Error("Failed to create kafka publisher", "err", err)
			os.Exit(1)
		}
		defer closePub()
		publisher = pub

		sub, err := kafka.NewSubscriber(cfg.KafkaBrokers, "kahawa-backend", "kahawa-notifications", wmLogger)
		if err != nil {
			slog.Error("Failed to create kafka subscriber", "err", err)
			os.Exit(1)
		}

		worker, err := notify.NewWorker(sub, notify.LogMailer{}, wmLogger)
		if err != nil {
			slog.Error("Failed to create notification worker", "err", err)
			os.Exit(1)
		}
		go func() {
			if err := worker.Run(ctx); err != nil {
				slog.Error("Notification worker stopped", "err", err)
			}
		}()
		slog.Info("🔄 Notification worker started")
	}

	// --- Services + HTTP API ---
	orderSvc := service.NewOrderService(orderRepo, publisher, cfg.Settings)
	catalogSvc := service.NewCatalogService(productRepo)
	handler := httpdelivery.NewHandler(orderSvc, catalogSvc, cfg.Production())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Mount("/api", handler.Routes(verifierFromEnv()))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpdelivery.EnableCORS(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("🚀 HTTP server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

// verifierFromEnv builds the development token verifier. AUTH_TOKENS is
// "token:userID:role" entries joined by commas; the real deployment puts
// the auth service's verifier here instead.
func verifierFromEnv() httpdelivery.StaticVerifier {
	verifier := httpdelivery.StaticVerifier{}
	for _, entry := range strings.Split(os.Getenv("AUTH_TOKENS"), ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) == 3 {
			verifier[parts[0]] = entity.Identity{UserID: parts[1], Role: parts[2]}
		}
	}
	if len(verifier) == 0 {
		verifier["dev-customer"] = entity.Identity{UserID: "user-001", Role: entity.RoleCustomer}
		verifier["dev-admin"] = entity.Identity{UserID: "admin-001", Role: entity.RoleAdmin}
	}
	return verifier
}

func seedProducts(lowStockThreshold int) []entity.Product {
	return []entity.Product{
		{
			ID: "prod-001", Name: "Kiambu AA Single Origin", Category: entity.CategoryCoffeeBeans,
			Description: "Bright, full-bodied AA beans from the Kiambu highlands. Notes of blackcurrant and caramel.",
			Price:       650, SizePrices: map[string]float64{"250g": 650, "500g": 1200, "1kg": 2200},
			Stock: 80, LowStockThreshold: lowStockThreshold, Active: true,
			ImageURL: "https://images.unsplash.com/photo-1559056199-641a0ac8b55e?w=400",
		},
		{
			ID: "prod-002", Name: "Nyeri Peaberry", Category: entity.CategoryCoffeeBeans,
			Description: "Rare peaberry lot with winey acidity and a long chocolate finish.",
			Price:       800, SizePrices: map[string]float64{"250g": 800, "500g": 1500, "1kg": 2800},
			Stock: 40, LowStockThreshold: lowStockThreshold, Active: true,
			ImageURL: "https://images.unsplash.com/photo-1447933601403-0c6688de566e?w=400",
		},
		{
			ID: "prod-003", Name: "Medium Roast Ground", Category: entity.CategoryGroundCoffee,
			Description: "Everyday medium roast, ground for drip and pour-over.",
			Price:       500, SizePrices: map[string]float64{"250g": 500, "500g": 950, "1kg": 1800},
			Stock: 120, LowStockThreshold: lowStockThreshold, Active: true,
			ImageURL: "https://images.unsplash.com/photo-1610632380989-680fe40816c6?w=400",
		},
		{
			ID: "prod-004", Name: "Classic Instant Jar", Category: entity.CategoryInstant,
			Description: "Freeze-dried instant coffee, 100g jar.",
			Price:       450,
			Stock:       200, LowStockThreshold: lowStockThreshold, Active: true,
			ImageURL: "https://images.unsplash.com/photo-1570968915860-54d5c301fa9f?w=400",
		},
		{
			ID: "prod-005", Name: "French Press 1L", Category: entity.CategoryEquipment,
			Description: "Borosilicate glass French press with stainless frame.",
			Price:       2400,
			Stock:       25, LowStockThreshold: lowStockThreshold, Active: true,
			ImageURL: "https://images.unsplash.com/photo-1544776193-352d25ca82cd?w=400",
		},
		{
			ID: "prod-006", Name: "Double-Wall Travel Mug", Category: entity.CategoryAccessories,
			Description: "Vacuum-insulated 350ml travel mug, keeps coffee hot for 6 hours.",
			Price:       1200,
			Stock:       60, LowStockThreshold: lowStockThreshold, Active: true,
			ImageURL: "https://images.unsplash.com/photo-1517256064527-09c73fc73e38?w=400",
		},
	}
}
