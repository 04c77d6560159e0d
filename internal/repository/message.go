package repository

import (
	"context"
	"errors"
	"time"

	"garden-attendance/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// MessageRepository persists collected Slack messages.
type MessageRepository interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, msg *domain.SlackMessage) (bool, error)
	InsertBatch(ctx context.Context, msgs []domain.SlackMessage) (int, error)
	FindByAuthor(ctx context.Context, author string) ([]domain.SlackMessage, error)
	FindRange(ctx context.Context, from, to time.Time) ([]domain.SlackMessage, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}
