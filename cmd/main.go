package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/surdiana/modelbank/config"
	"github.com/surdiana/modelbank/internal/handler"
	"github.com/surdiana/modelbank/internal/middleware"
	"github.com/surdiana/modelbank/internal/repository"
	"github.com/surdiana/modelbank/internal/router"
	"github.com/surdiana/modelbank/internal/service"
	"github.com/surdiana/modelbank/pkg/database"
	"github.com/surdiana/modelbank/pkg/logger"
	"github.com/surdiana/modelbank/pkg/redis"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment))

	db, err := database.NewPostgresDB(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db, cfg.Database.LockTimeout)
	recordRepo := repository.NewRecordRepository(db, cfg.Database.LockTimeout)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	auditService := service.NewAuditService(auditRepo, log)
	passwordService := service.NewPasswordService(cfg.Auth)
	tokenService := service.NewTokenService(cfg.JWT)
	authService := service.NewAuthService(userRepo, tokenRepo, passwordService, tokenService, auditService, cfg.Auth, log)
	recordService := service.NewRecordService(recordRepo, auditService, log)

	// A tampered audit log means the deployment's history can no
	// longer be trusted. Refuse to serve on top of it.
	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 2*time.Minute)
	report, err := auditService.VerifyChain(verifyCtx)
	cancelVerify()
	if err != nil {
		log.Fatal("audit chain verification failed", zap.Error(err))
	}
	log.Info("audit chain verified", zap.Int64("entries", report.EntriesRead))

	// Rate limiting: shared counters over Redis when enabled,
	// per-process counters otherwise.
	var limiter middleware.RateLimiter
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redis.Close(redisClient)
		limiter = middleware.NewRedisRateLimiter(redisClient)
		log.Info("rate limiting backed by redis", zap.String("addr", cfg.RedisAddress()))
	} else {
		limiter = middleware.NewMemoryRateLimiter()
	}

	// Expired ledger rows carry no security state once past expiry;
	// prune them daily.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				removed, err := tokenRepo.DeleteExpired(janitorCtx, time.Now().UTC())
				if err != nil {
					log.Warn("refresh token cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("pruned expired refresh tokens", zap.Int64("removed", removed))
				}
			}
		}
	}()

	handlers := router.Handlers{
		Auth:   handler.NewAuthHandler(authService, log),
		Record: handler.NewRecordHandler(recordService),
		Audit:  handler.NewAuditHandler(auditService),
		User:   handler.NewUserHandler(authService),
		Health: handler.NewHealthHandler(db),
	}

	engine := router.Setup(cfg, log, tokenService, limiter, handlers)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.App.Timeout,
		WriteTimeout: cfg.App.Timeout,
		IdleTimeout:  2 * cfg.App.Timeout,
	}

	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
