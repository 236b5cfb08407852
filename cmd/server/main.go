package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stablearb/internal/api"
	"stablearb/internal/bot"
	"stablearb/internal/config"
	"stablearb/internal/ledger"
	"stablearb/internal/repository"
	"stablearb/internal/scheduler"
	"stablearb/internal/service"
	"stablearb/internal/websocket"
	"stablearb/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Логгер
	logger := utils.InitLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()
	zlog := logger.Logger

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repository.InitSchema(schemaCtx, db); err != nil {
		cancelSchema()
		zlog.Fatal("failed to initialize schema", zap.Error(err))
	}
	cancelSchema()

	// Репозитории
	notificationRepo := repository.NewNotificationRepository(db)
	actionRepo := repository.NewActionRepository(db)

	// Сервисы
	notificationService := service.NewNotificationService(notificationRepo, zlog)
	actionService := service.NewActionService(actionRepo, zlog)
	targetService := service.NewTargetService()

	// WebSocket hub
	hub := websocket.NewHub(zlog)
	go hub.Run()

	notificationService.SetWebSocketHub(hub)
	actionService.SetWebSocketHub(hub)
	targetService.SetWebSocketHub(hub)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Подключение к леджеру
	dispatcher := ledger.NewDispatcher(zlog)
	client := ledger.NewLightClient(cfg.Ledger.NodeURL, dispatcher, ledger.ClientConfig{
		InitialDelay:   cfg.Ledger.ReconnectDelay,
		MaxDelay:       cfg.Ledger.MaxReconnectDelay,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   cfg.Ledger.PingInterval,
		PongTimeout:    cfg.Ledger.PingInterval * 2,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     cfg.Ledger.MaxRetries,
		RetryBackoff:   cfg.Ledger.RetryBackoff,
	}, zlog)
	defer client.Close()

	submitter := ledger.NewWalletSubmitter(
		cfg.Ledger.WalletURL,
		30*time.Second,
		cfg.Ledger.SubmitRatePerSec,
		zlog,
	)

	if err := client.Connect(rootCtx); err != nil {
		zlog.Fatal("failed to connect to node", zap.Error(err))
	}
	bot.UpdateNodeStatus(true)

	// Движки: один на каждый arb-контракт
	initCtx, cancelInit := context.WithTimeout(rootCtx, time.Minute)
	for _, arbAddress := range cfg.Bot.ArbAddresses {
		engine, err := bot.NewEngine(initCtx, bot.EngineConfig{
			ArbAddress:      arbAddress,
			OperatorAddress: cfg.Bot.OperatorAddress,
			BankAddress:     cfg.Bot.BankAddress,
			Tolerance:       cfg.Bot.Tolerance,
		}, client, submitter, dispatcher, client, notificationService, actionService, zlog)
		if err != nil {
			cancelInit()
			zlog.Fatal("failed to initialize engine",
				zap.String("target", arbAddress),
				zap.Error(err))
		}
		targetService.Register(arbAddress, engine)
	}
	cancelInit()

	// После переподключения зеркала могли пропустить события:
	// сверяем балансы с леджером и прогоняем оценку заново
	client.SetOnConnect(func() {
		bot.UpdateNodeStatus(true)
		for _, engine := range targetService.Engines() {
			engine.SweepReconcile(rootCtx)
			engine.Evaluate(rootCtx)
		}
	})
	client.SetOnDisconnect(func(err error) {
		bot.UpdateNodeStatus(false)
	})

	// Первичный прогон оценки для всех целей
	for _, engine := range targetService.Engines() {
		engine.Evaluate(rootCtx)
	}

	// Плановые задачи
	sched := scheduler.New(zlog)
	sched.Add(scheduler.Job{
		Name:     "reconcile",
		Interval: cfg.Jobs.ReconcileInterval,
		Fn: func(ctx context.Context) {
			for _, engine := range targetService.Engines() {
				engine.SweepReconcile(ctx)
			}
		},
	})
	sched.Add(scheduler.Job{
		Name:       "commit-force-closes",
		Interval:   cfg.Jobs.CommitInterval,
		RunAtStart: true,
		Fn: func(ctx context.Context) {
			for _, engine := range targetService.Engines() {
				engine.SweepCommitForceCloses(ctx)
			}
		},
	})
	sched.Add(scheduler.Job{
		Name:       "unlock",
		Interval:   cfg.Jobs.UnlockInterval,
		RunAtStart: true,
		Fn: func(ctx context.Context) {
			for _, engine := range targetService.Engines() {
				engine.SweepUnlock(ctx)
			}
		},
	})
	sched.Add(scheduler.Job{
		Name:       "bank-withdraw",
		Interval:   cfg.Jobs.WithdrawInterval,
		RunAtStart: true,
		Fn: func(ctx context.Context) {
			for _, engine := range targetService.Engines() {
				engine.SweepBankWithdraw(ctx)
			}
		},
	})
	sched.Add(scheduler.Job{
		Name:     "status-broadcast",
		Interval: cfg.Jobs.StatusInterval,
		Fn: func(ctx context.Context) {
			targetService.BroadcastStatuses()
		},
	})
	sched.Add(scheduler.Job{
		Name:     "journal-cleanup",
		Interval: cfg.Jobs.CleanupInterval,
		Fn: func(ctx context.Context) {
			if n, err := notificationService.CleanupOld(cfg.Jobs.LogRetention); err != nil {
				zlog.Warn("notification cleanup failed", zap.Error(err))
			} else if n > 0 {
				zlog.Info("cleaned up old notifications", zap.Int64("deleted", n))
			}
			if n, err := actionService.CleanupOld(cfg.Jobs.LogRetention); err != nil {
				zlog.Warn("action cleanup failed", zap.Error(err))
			} else if n > 0 {
				zlog.Info("cleaned up old actions", zap.Int64("deleted", n))
			}
		},
	})
	sched.Start(rootCtx)

	// Настройка HTTP роутера
	router := api.SetupRoutes(&api.Dependencies{
		TargetService:       targetService,
		NotificationService: notificationService,
		ActionService:       actionService,
		Hub:                 hub,
		APITokenHash:        cfg.Security.APITokenHash,
		Logger:              zlog,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		zlog.Info("starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				zlog.Fatal("server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zlog.Fatal("server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	cancelRoot()
	sched.Stop()
	hub.Stop()

	if err := client.Close(); err != nil {
		zlog.Warn("error closing node connection", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
