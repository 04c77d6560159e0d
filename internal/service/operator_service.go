package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistrationPassword indicates the registration secret is incorrect.
	ErrInvalidRegistrationPassword = errors.New("invalid registration password")
	// ErrOperatorAlreadyExists is returned when attempting to register with an existing username.
	ErrOperatorAlreadyExists = errors.New("operator already exists")
)

// OperatorService describes operator account lifecycle operations.
type OperatorService interface {
	Register(ctx context.Context, username, password, providedSecret string) (*domain.Operator, error)
	Authenticate(ctx context.Context, username, password string) (*domain.Operator, error)
	GetByID(ctx context.Context, id int64) (*domain.Operator, error)
}

type operatorService struct {
	operators      repository.OperatorRepository
	registerSecret string
}

func NewOperatorService(operators repository.OperatorRepository, registerSecret string) OperatorService {
	return &operatorService{
		operators:      operators,
		registerSecret: strings.TrimSpace(registerSecret),
	}
}

func (s *operatorService) Register(ctx context.Context, username, password, providedSecret string) (*domain.Operator, error) {
	username = strings.TrimSpace(username)
	providedSecret = strings.TrimSpace(providedSecret)
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if s.registerSecret == "" {
		return nil, fmt.Errorf("registration secret is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(providedSecret), []byte(s.registerSecret)) != 1 {
		return nil, ErrInvalidRegistrationPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	op := &domain.Operator{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if _, err := s.operators.Create(ctx, op); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil, ErrOperatorAlreadyExists
		}
		return nil, err
	}
	return sanitizeOperator(op), nil
}

func (s *operatorService) Authenticate(ctx context.Context, username, password string) (*domain.Operator, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return sanitizeOperator(op), nil
}

func (s *operatorService) GetByID(ctx context.Context, id int64) (*domain.Operator, error) {
	op, err := s.operators.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeOperator(op), nil
}

func sanitizeOperator(op *domain.Operator) *domain.Operator {
	if op == nil {
		return nil
	}
	return &domain.Operator{
		ID:        op.ID,
		Username:  op.Username,
		CreatedAt: op.CreatedAt,
		UpdatedAt: op.UpdatedAt,
	}
}
