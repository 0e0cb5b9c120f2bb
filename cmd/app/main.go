package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker-api/internal/auth"
	"github.com/BuzzLyutic/task-tracker-api/internal/config"
	"github.com/BuzzLyutic/task-tracker-api/internal/handler"
	"github.com/BuzzLyutic/task-tracker-api/internal/service"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем логгер
	logger := newLogger(cfg)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err)) // Fatal потому что дальнейшая работа теряет смысл
	}

	// Подключаем хранилище
	st, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to the store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close() // Запланированное закрытие соединения

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService, err := service.NewAuthService(st.users, tokens, cfg.BcryptCost)
	if err != nil {
		logger.Fatal("Failed to set up authentication", zap.Int("bcrypt_cost", cfg.BcryptCost), zap.Error(err))
	}
	taskService := service.NewTaskService(st.tasks, st.users)

	router := handler.NewRouter(handler.RouterConfig{
		Auth:        handler.NewAuthHandler(authService, logger, cfg.IsDevelopment()),
		Tasks:       handler.NewTaskHandler(taskService, logger, cfg.IsDevelopment()),
		Tokens:      tokens,
		Version:     cfg.Version,
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   true,
		Logger:      logger,
	})

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
		return
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
