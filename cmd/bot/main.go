package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studymate-bot/internal/config"
	"studymate-bot/internal/database"
	"studymate-bot/internal/handlers"
	"studymate-bot/internal/logger"
	"studymate-bot/internal/middleware"
	"studymate-bot/internal/models"
	"studymate-bot/internal/repository"
	"studymate-bot/internal/router"
	"studymate-bot/internal/services"
	"studymate-bot/internal/telegram"
	"studymate-bot/internal/websocket"
	"studymate-bot/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogFile, cfg.IsProduction())
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("bot stopped with error", zap.Error(err))
	}
	log.Info("bot stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	startedAt := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Generation ────
	gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, log)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	defer gemini.Close()
	log.Info("gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Extraction pool ────
	pool := worker.NewPool(services.NewFileExtractService(gemini), cfg.ExtractWorkers, log)
	pool.Start()
	defer pool.Stop()

	// ──── Memory log ────
	memory, closeMemory, err := openMemoryLog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeMemory()

	// ──── Telegram ────
	_ = tgbotapi.SetLogger(zap.NewStdLog(log.Named("tgbotapi")))
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram client: %w", err)
	}

	// ──── Admin alerts ────
	var notifiers services.MultiNotifier
	if cfg.AdminChatID != 0 {
		notifiers = append(notifiers, telegram.NewAdminNotifier(botAPI, cfg.AdminChatID))
	} else {
		log.Warn("ADMIN_CHAT_ID not set, admin chat alerts disabled")
	}

	if cfg.AdminEmail != "" {
		notifiers = append(notifiers, services.NewEmailAlertNotifier(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.AdminEmail, log))
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		notifiers = append(notifiers, services.NewRedisAlertPublisher(redisClient))
		log.Info("redis connected, alerts published on channel", zap.String("channel", services.AlertChannel))
	}

	var jwtAuth *middleware.JWTAuth
	var wsHub *websocket.Hub
	if cfg.AdminAPIEnabled() {
		jwtAuth = middleware.NewJWTAuth(cfg.JWTSecret)
		wsHub = websocket.NewHub(redisClient, services.AlertChannel, jwtAuth, log)
		if redisClient == nil {
			notifiers = append(notifiers, wsHub)
		}
	}

	// ──── Assistant ────
	sessions := repository.NewSessionRepo()
	moderator := services.NewModerator(services.DefaultBlockedPhrases, cfg.BlockedPhrases)
	quiz := services.NewQuizSessionService(sessions, gemini, cfg.QuizBatchSize, cfg.QuizGenerationConcurrency, log)
	assistant := services.NewAssistantService(
		sessions,
		quiz,
		gemini,
		pool,
		services.NewYouTubeService(gemini, log),
		memory,
		moderator,
		notifiers,
		log,
	)
	bot := telegram.NewBot(botAPI, assistant, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bot.Run(ctx, botAPI)
		return nil
	})

	if cfg.AdminAPIEnabled() {
		stats := func() models.StatsResponse {
			return models.StatsResponse{
				Sessions:       sessions.Count(),
				BlockedPhrases: moderator.Len(),
				AlertFeeds:     wsHub.Connections(),
				UptimeSeconds:  int64(time.Since(startedAt) / time.Second),
			}
		}
		adminHandler := handlers.NewAdminHandler(sessions, memory, jwtAuth, cfg.AdminPasswordHash, stats, log)
		server := &http.Server{
			Addr:         ":" + cfg.AdminAPIPort,
			Handler:      router.New(jwtAuth, adminHandler, wsHub, log),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			log.Info("admin API listening", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	} else {
		log.Info("admin API disabled, set JWT_SECRET and ADMIN_PASSWORD_HASH to enable it")
	}

	log.Info("bot ready", zap.String("env", cfg.Env), zap.Int("quiz_batch_size", cfg.QuizBatchSize))
	return g.Wait()
}

func openMemoryLog(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.MemoryLog, func(), error) {
	if cfg.MemoryBackend == "postgres" {
		pgPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, pgPool, log); err != nil {
			pgPool.Close()
			return nil, nil, err
		}
		log.Info("memory log backed by postgres")
		return repository.NewPostgresMemoryLog(pgPool), pgPool.Close, nil
	}

	fileLog, err := repository.NewFileMemoryLog(cfg.MemoryDir, cfg.MemoryMaxSizeMB, cfg.MemoryMaxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("memory log: %w", err)
	}
	log.Info("memory log backed by files", zap.String("dir", cfg.MemoryDir))
	return fileLog, func() {
		if err := fileLog.Close(); err != nil {
			log.Warn("close memory log", zap.Error(err))
		}
	}, nil
}
