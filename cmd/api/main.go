package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canteen/internal/config"
	"canteen/internal/domain/lifecycle"
	"canteen/internal/domain/ordernumber"
	"canteen/internal/domain/pricing"
	"canteen/internal/handler"
	"canteen/internal/infra/db"
	"canteen/internal/infra/messaging"
	infraRepo "canteen/internal/infra/repository"
	"canteen/internal/server"
	"canteen/internal/usecase"
	auth "canteen/internal/usecase/auth_usecase"
	"canteen/pkg/logger"
)

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// usecase.EventPublisher + Close
type eventPublisher interface {
	usecase.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Attrs:  []slog.Attr{slog.String("service", "canteen-api"), slog.String("env", cfg.GoEnv)},
	})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	//DB接続
	gormDB, err := db.Connect(cfg.DB, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	menuRepo := infraRepo.NewMenuItemGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB, log)

	//イベント送信（URL未設定なら送らない）
	var publisher eventPublisher = messaging.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rp, err := messaging.NewRabbitPublisher(messaging.Config{URL: cfg.RabbitMQURL, Exchange: cfg.EventsExchange}, log)
		if err != nil {
			return err
		}
		publisher = rp
	} else {
		log.Warn("RABBITMQ_URL is empty, order events are not published")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("publisher close failed", "error", err)
		}
	}()

	policy, err := lifecycle.ParsePolicy(cfg.Order.TransitionPolicy)
	if err != nil {
		return err
	}

	clock := realClock{}
	numbers := ordernumber.New(cfg.Order.NumberPrefix, ordernumber.WithClock(clock))

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, numbers, publisher, clock, log, usecase.OrderSettings{
		Pricing:        pricing.NewCalculator(cfg.Order.TaxRate, cfg.Order.DeliveryFee),
		TimeOffsets:    pricing.TimeOffsets{Delivery: cfg.Order.DeliveryOffset, Counter: cfg.Order.CounterOffset},
		Policy:         policy,
		NumberAttempts: cfg.Order.NumberAttempts,
	})
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, userRepo, auditRepo, publisher, clock, log, policy)
	cartUC := usecase.NewCartUsecase(txm)
	menuUC := usecase.NewMenuUsecase(txm, menuRepo, inventoryRepo, clock, log)

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, clock)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, issuer, clock)
	accountUC := auth.NewAccountUsecase(userRepo)

	//Handler生成
	srv := server.New(cfg, log, server.Handlers{
		UserRepo:  userRepo,
		Health:    handler.NewHealthHandler(gormDB),
		Auth:      handler.NewAuthHandler(registerUC, loginUC, accountUC),
		Menu:      handler.NewMenuHandler(menuUC),
		Cart:      handler.NewCartHandler(cartUC),
		Order:     handler.NewOrderHandler(orderUC, adminOrderUC),
		Admin:     handler.NewAdminHandler(adminOrderUC, menuUC),
		AdminUser: handler.NewAdminUserHandler(cfg, userRepo, accountUC),
	})

	//Server起動。SIGINT/SIGTERMで止める
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		return err
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
	return nil
}
