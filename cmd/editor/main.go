package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/digkill/aieditor/internal/admin"
	"github.com/digkill/aieditor/internal/api"
	"github.com/digkill/aieditor/internal/config"
	"github.com/digkill/aieditor/internal/gemini"
	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
	"github.com/digkill/aieditor/internal/service"
	"github.com/digkill/aieditor/internal/session"
	"github.com/digkill/aieditor/internal/storage"
	"github.com/digkill/aieditor/internal/store"
	"github.com/digkill/aieditor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := store.Open(cfg.DataDir, logr)
	if err != nil {
		log.Fatalf("store open: %v", err)
	}

	userRepo := repository.NewUserRepository(kv)
	templateRepo := repository.NewTemplateRepository(kv)
	historyRepo := repository.NewHistoryRepository(kv)
	sessionRepo := repository.NewSessionRepository(kv)
	paymentRepo := repository.NewPaymentConfigRepository(kv, models.PaymentConfig{
		PricePerCredit:     cfg.PricePerCredit,
		InitialFreeCredits: cfg.InitialFreeCredits,
	})

	var uploader service.ResultUploader
	if cfg.ShareEnabled() {
		up, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = up
	}

	client := gemini.NewClient(cfg, logr)
	sessions := session.NewManager()

	userService := service.NewUserService(userRepo, sessionRepo, paymentRepo, logr, []byte(cfg.SessionSecret), cfg.SessionTTL)
	creditService := service.NewCreditService(userRepo)
	templateService := service.NewTemplateService(templateRepo, logr)
	historyService := service.NewHistoryService(historyRepo, uploader, logr)
	paymentService := service.NewPaymentService(paymentRepo, creditService)
	editService := service.NewEditService(cfg, logr, sessions, creditService, historyService, templateService, client)
	suggestService := service.NewSuggestService(cfg, logr, client)

	if err := userService.EnsureSeedAdmin(cfg.AdminPassword); err != nil {
		log.Fatalf("ensure seed admin: %v", err)
	}

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, userService, creditService, paymentService, templateService, historyService)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	apiServer := api.NewServer(cfg.APIListenAddr, logr, userService, templateService, historyService, paymentService, creditService, editService, suggestService, sessions)
	if err := apiServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("api server stopped", "err", err)
	}
}
