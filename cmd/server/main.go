package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"garden-attendance/internal/app"
	"garden-attendance/internal/collector"
	"garden-attendance/internal/config"
	"garden-attendance/internal/export"
	apphttp "garden-attendance/internal/http"
	"garden-attendance/internal/notify"
	"garden-attendance/internal/service"
	"garden-attendance/internal/storage"
)

func main() {
	logger := app.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer a.Close()

	cfg := a.Config
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RegisterPassword) == "" {
		logger.Warn("auth registration password is empty, operator registration disabled")
	}

	collectService := a.CollectService()
	operatorService := service.NewOperatorService(a.Operators, cfg.Auth.RegisterPassword)

	var notifiers []service.Notifier
	if a.Slack != nil && cfg.Slack.NotifyChannel != "" {
		notifiers = append(notifiers, a.Slack)
	}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, "")
		if err != nil {
			logger.Fatalf("setup telegram: %v", err)
		}
		notifiers = append(notifiers, tg)
	}
	var notifyService service.NotifyService
	if len(notifiers) > 0 {
		notifyService = service.NewNotifyService(a.Attendance, a.Members, notifiers, logger)
	}

	var manager collector.Manager
	if a.Slack != nil {
		manager = collector.NewManager(collector.Config{
			Interval:     cfg.Collect.Interval,
			LookbackDays: cfg.Collect.LookbackDays,
			Logger:       logger,
		}, collectService)
		if err := manager.Start(ctx); err != nil {
			logger.Fatalf("start collector: %v", err)
		}
	} else {
		logger.Warn("slack token not set, collection disabled")
	}

	var publisher *export.Publisher
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		publisher = export.NewPublisher(storageSvc, cfg.Storage.Bucket, cfg.Storage.KeyPrefix)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Options{
		Attendance:   a.Attendance,
		Collect:      collectService,
		Collector:    manager,
		Notify:       notifyService,
		Operators:    operatorService,
		Publisher:    publisher,
		Members:      a.Members,
		JWTSecret:    cfg.Auth.JWTSecret,
		TokenTTL:     time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
		LookbackDays: cfg.Collect.LookbackDays,
		Logger:       logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if manager != nil {
		manager.Shutdown()
	}

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("publishing reports to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
