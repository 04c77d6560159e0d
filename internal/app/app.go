// Package app assembles the stores and services shared by the command line entrypoints.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"garden-attendance/internal/config"
	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
	"garden-attendance/internal/repository/sqlstore"
	"garden-attendance/internal/service"
	"garden-attendance/internal/slackapi"
)

// App holds the opened database and the long-lived services built on it.
type App struct {
	Config     config.Config
	Logger     *logrus.Logger
	DB         *sqlx.DB
	Messages   repository.MessageRepository
	Operators  repository.OperatorRepository
	Members    map[string]domain.Member
	Attendance service.AttendanceService
	// Slack is nil when no token is configured.
	Slack *slackapi.Client
}

func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// Open loads configuration, opens the database and initialises its tables.
func Open(ctx context.Context, logger *logrus.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	members, err := config.LoadMembers(cfg.Garden.MembersFile)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Schema)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	messages := sqlstore.NewMessageRepository(db)
	operators := sqlstore.NewOperatorRepository(db)
	if err := messages.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init message repository: %w", err)
	}
	if err := operators.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init operator repository: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Messages:  messages,
		Operators: operators,
		Members:   members,
		Attendance: service.NewAttendanceService(messages, service.Settings{
			Location:   cfg.Location,
			StartDate:  cfg.StartOn,
			CutoffHour: cfg.Garden.CutoffHour,
			Users:      cfg.Users(members),
		}),
	}

	if cfg.Slack.Token != "" {
		a.Slack, err = slackapi.New(slackapi.Options{
			Token:         cfg.Slack.Token,
			ChannelID:     cfg.Slack.ChannelID,
			NotifyChannel: cfg.Slack.NotifyChannel,
			Logger:        logger,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("setup slack: %w", err)
		}
	}

	logger.Infof("garden starts %s (%s), %d members", cfg.StartOn.Format(domain.DateLayout), cfg.Location, len(a.Attendance.Users()))
	return a, nil
}

// CollectService returns the collection service, reading history from Slack when configured.
func (a *App) CollectService() service.CollectService {
	var fetcher service.HistoryFetcher
	if a.Slack != nil {
		fetcher = a.Slack
	}
	return service.NewCollectService(fetcher, a.Messages, a.Logger)
}

func (a *App) Close() error {
	return a.DB.Close()
}
