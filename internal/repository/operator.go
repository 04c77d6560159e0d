package repository

import (
	"context"

	"garden-attendance/internal/domain"
)

// OperatorRepository defines persistence operations for Operator accounts.
type OperatorRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, op *domain.Operator) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.Operator, error)
	GetByID(ctx context.Context, id int64) (*domain.Operator, error)
}
