package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redis "github.com/redis/go-redis/v9"

	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/handler"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/repository/memory"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/worker"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/jwt"
	"go-stock-ledger/pkg/logger"
)

func main() {
	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	appLog, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: !cfg.IsProduction()})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Storage
	store, err := openStore(cfg)
	if err != nil {
		appLog.Fatalw("storage unavailable", "driver", cfg.StoreDriver, "error", err)
	}
	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		appLog.Fatalw("redis unavailable", "addr", cfg.RedisAddr, "error", err)
	}

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub(appLog)
	go wsHub.Run(ctx)

	// 4. Dependency Injection (Wiring Layers)
	deps := service.Deps{
		Store:    store,
		Notifier: wsHub,
		Logger:   appLog,
		Location: cfg.Location(),
	}
	authService := service.NewAuthService(store.Users(), jwt.NewIssuer(cfg.JWTSecret, cfg.JWTTTL), appLog)
	invService := service.NewInventoryService(deps)
	opnameService := service.NewOpnameService(deps, sessions)
	reportService := service.NewReportService(deps, cfg.LogFetchLimit)

	// 5. Seed default admin
	if seeded, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		appLog.Warnw("admin account not seeded", "error", err)
	} else if seeded {
		appLog.Infow("admin account created", "user", cfg.AdminUsername)
	}

	// 6. Background re-projection
	go worker.NewRecalculator(invService, wsHub, cfg.RecalcInterval, appLog).Run(ctx)

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Stock Ledger v1.0",
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	handler.SetupRoutes(app, handler.Services{
		Auth:      authService,
		Users:     store.Users(),
		Accounts:  service.NewUserService(store.Users(), appLog),
		Inventory: invService,
		Opname:    opnameService,
		Reports:   reportService,
		Hub:       wsHub,
	})

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Errorw("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Infow("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLog.Errorw("server forced to shutdown", "error", err)
	}
	appLog.Infow("server exited")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.L().Warnw("using in-memory store; data is lost on exit")
		return memory.New(), nil
	}
	db, err := database.Connect(cfg.DSN(), !cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return repository.NewGormStore(db), nil
}

func openSessions(ctx context.Context, cfg *config.Config) (cache.SessionStore, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemorySessionStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	sessions := cache.NewRedisSessionStore(client, cfg.SessionTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sessions.Ping(pingCtx); err != nil {
		return nil, err
	}
	return sessions, nil
}
