package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pathakanu/chronobot/internal/bot"
	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/command"
	"github.com/pathakanu/chronobot/internal/config"
	"github.com/pathakanu/chronobot/internal/database"
	"github.com/pathakanu/chronobot/internal/logging"
	myopenai "github.com/pathakanu/chronobot/internal/openai"
	"github.com/pathakanu/chronobot/internal/trust"
	"github.com/pathakanu/chronobot/internal/twilio"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogRepeatBatch)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.New(cfg.DatabaseURL, cfg.SQLitePath, logger.Named("database"))
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	store := database.NewStore(db)

	twilioClient := twilio.New(twilio.Options{
		AccountSID:   cfg.TwilioAccountSID,
		AuthToken:    cfg.TwilioAuthToken,
		FromWhatsApp: cfg.TwilioWhatsAppNumber,
		WebhookURL:   cfg.TwilioWebhookURL,
		JoinKeyword:  cfg.TwilioJoinKeyword,
	}, logger.Named("twilio"))
	logger.Info("twilio WhatsApp sender", zap.String("number", cfg.TwilioWhatsAppNumber))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auth := cfg.Bot.Authentication
	gate, err := trust.New(ctx, store, twilioClient, trust.Authentication{
		Prompt:     auth.Prompt,
		Password:   auth.Password,
		Authorized: auth.Authorized,
	}, logger.Named("trust"))
	if err != nil {
		logger.Fatal("trust gate init failed", zap.Error(err))
	}
	logger.Info("trusted chats loaded", zap.Int("count", len(gate.TrustedIDs())))

	parser := command.NewParser(command.Keywords{
		List:   cfg.Bot.Commands.List,
		Remove: cfg.Bot.Commands.Remove,
	}, cfg.LocalTimezone)
	executor := bot.NewExecutor(store, twilioClient, cfg.Bot.Messages, cfg.LocalTimezone, logger.Named("executor"))
	reminderBot := bot.New(gate, parser, executor, myopenai.New(cfg.OpenAIAPIKey), logger.Named("bot"))

	scheduler := bot.NewScheduler(store, twilioClient, cfg.LocalTimezone, cfg.PollInterval, logger.Named("scheduler"))
	scheduler.Start(ctx)

	updates := make(chan chat.Update)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := reminderBot.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("bot stopped", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/twilio/webhook", twilioClient.Webhook(updates))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	waitForShutdown(server, scheduler, cancel, botDone, logger)
}

func waitForShutdown(server *http.Server, scheduler *bot.Scheduler, cancel context.CancelFunc, botDone <-chan struct{}, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutting down", zap.Stringer("signal", sig))

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	scheduler.Stop()
	cancel()
	<-botDone
	logger.Info("bye")
}
