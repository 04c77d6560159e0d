package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

// ErrOperatorExists is returned when the username is already registered.
var ErrOperatorExists = errors.New("operator already exists")

type OperatorRepository struct {
	db *sqlx.DB
}

func NewOperatorRepository(db *sqlx.DB) repository.OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Init(ctx context.Context) error {
	d := dialectOf(r.db)
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS operators (
	id %s,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at %s NOT NULL,
	updated_at %s NOT NULL
)`, d.idColumn, d.timeType, d.timeType)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create operators table: %w", err)
	}
	return nil
}

func (r *OperatorRepository) Create(ctx context.Context, op *domain.Operator) (int64, error) {
	now := time.Now().UTC()
	op.CreatedAt = now
	op.UpdatedAt = now

	var id int64
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO operators (username, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING id`),
		op.Username,
		op.PasswordHash,
		op.CreatedAt,
		op.UpdatedAt,
	).Scan(&id)
	if err != nil {
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate") {
			return 0, fmt.Errorf("%w: %s", ErrOperatorExists, op.Username)
		}
		return 0, fmt.Errorf("insert operator: %w", err)
	}
	op.ID = id
	return id, nil
}

func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	return r.get(ctx, `WHERE username = ?`, username)
}

func (r *OperatorRepository) GetByID(ctx context.Context, id int64) (*domain.Operator, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

func (r *OperatorRepository) get(ctx context.Context, where string, arg any) (*domain.Operator, error) {
	var op domain.Operator
	row := r.db.QueryRowxContext(ctx, r.db.Rebind(`
SELECT id, username, password_hash, created_at, updated_at
FROM operators
`+where), arg)
	if err := row.Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt, &op.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("operator %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan operator: %w", err)
	}
	return &op, nil
}
