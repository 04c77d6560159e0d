package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

type memoryMessages struct {
	mu        sync.Mutex
	msgs      map[string]domain.SlackMessage
	failOnTS  string
	findError error
}

func newMemoryMessages(msgs ...domain.SlackMessage) *memoryMessages {
	m := &memoryMessages{msgs: make(map[string]domain.SlackMessage)}
	for _, msg := range msgs {
		m.msgs[msg.TS] = msg
	}
	return m
}

func (m *memoryMessages) Init(context.Context) error { return nil }

func (m *memoryMessages) Insert(_ context.Context, msg *domain.SlackMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.TS == m.failOnTS {
		return false, errors.New("boom")
	}
	if _, ok := m.msgs[msg.TS]; ok {
		return false, nil
	}
	m.msgs[msg.TS] = *msg
	return true, nil
}

func (m *memoryMessages) InsertBatch(ctx context.Context, msgs []domain.SlackMessage) (int, error) {
	n := 0
	for i := range msgs {
		ok, err := m.Insert(ctx, &msgs[i])
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *memoryMessages) FindByAuthor(_ context.Context, author string) ([]domain.SlackMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findError != nil {
		return nil, m.findError
	}
	var out []domain.SlackMessage
	for _, msg := range m.msgs {
		for _, a := range msg.Authors() {
			if a == author {
				out = append(out, msg)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostedAt.Before(out[j].PostedAt) })
	return out, nil
}

func (m *memoryMessages) FindRange(_ context.Context, from, to time.Time) ([]domain.SlackMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SlackMessage
	for _, msg := range m.msgs {
		if !msg.PostedAt.Before(from) && msg.PostedAt.Before(to) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memoryMessages) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.msgs)), nil
}

func (m *memoryMessages) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.msgs))
	m.msgs = make(map[string]domain.SlackMessage)
	return n, nil
}

var _ repository.MessageRepository = (*memoryMessages)(nil)

type memoryOperators struct {
	byName map[string]*domain.Operator
	nextID int64
}

func newMemoryOperators() *memoryOperators {
	return &memoryOperators{byName: make(map[string]*domain.Operator)}
}

func (m *memoryOperators) Init(context.Context) error { return nil }

func (m *memoryOperators) Create(_ context.Context, op *domain.Operator) (int64, error) {
	if _, ok := m.byName[op.Username]; ok {
		return 0, errors.New("operator already exists")
	}
	m.nextID++
	op.ID = m.nextID
	stored := *op
	m.byName[op.Username] = &stored
	return op.ID, nil
}

func (m *memoryOperators) GetByUsername(_ context.Context, username string) (*domain.Operator, error) {
	op, ok := m.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (m *memoryOperators) GetByID(_ context.Context, id int64) (*domain.Operator, error) {
	for _, op := range m.byName {
		if op.ID == id {
			cp := *op
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}
