package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

// HistoryFetcher reads channel history within [oldest, latest].
type HistoryFetcher interface {
	History(ctx context.Context, oldest, latest time.Time) ([]domain.SlackMessage, error)
}

// CollectResult summarises one collection run.
type CollectResult struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// CollectService stores channel history for attendance derivation.
type CollectService interface {
	Collect(ctx context.Context, oldest, latest time.Time) (CollectResult, error)
	RemoveAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type collectService struct {
	fetcher  HistoryFetcher
	messages repository.MessageRepository
	logger   logrus.FieldLogger
}

func NewCollectService(fetcher HistoryFetcher, messages repository.MessageRepository, logger logrus.FieldLogger) CollectService {
	if logger == nil {
		logger = logrus.New()
	}
	return &collectService{
		fetcher:  fetcher,
		messages: messages,
		logger:   logger,
	}
}

func (s *collectService) Collect(ctx context.Context, oldest, latest time.Time) (CollectResult, error) {
	var result CollectResult
	if s.fetcher == nil {
		return result, errors.New("slack history is not configured")
	}
	if !latest.After(oldest) {
		return result, fmt.Errorf("%w: latest must be after oldest", ErrInvalidDate)
	}

	msgs, err := s.fetcher.History(ctx, oldest, latest)
	if err != nil {
		return result, fmt.Errorf("fetch history: %w", err)
	}
	result.Fetched = len(msgs)

	for i := range msgs {
		inserted, err := s.messages.Insert(ctx, &msgs[i])
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			s.logger.WithError(err).WithField("ts", msgs[i].TS).Warn("insert slack message")
			continue
		}
		if inserted {
			result.Inserted++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"oldest":   oldest.Format(time.RFC3339),
		"latest":   latest.Format(time.RFC3339),
		"fetched":  result.Fetched,
		"inserted": result.Inserted,
		"failed":   result.Failed,
	}).Info("collected slack messages")
	return result, nil
}

func (s *collectService) RemoveAll(ctx context.Context) (int64, error) {
	return s.messages.DeleteAll(ctx)
}

func (s *collectService) Count(ctx context.Context) (int64, error) {
	return s.messages.Count(ctx)
}
