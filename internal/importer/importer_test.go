package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"garden-attendance/internal/domain"
)

type memoryRepo struct {
	stored     map[string]bool
	failBatch  bool
	failOnTS   string
	batchCalls int
}

func (r *memoryRepo) Init(context.Context) error { return nil }

func (r *memoryRepo) Insert(_ context.Context, msg *domain.SlackMessage) (bool, error) {
	if msg.TS == r.failOnTS {
		return false, errors.New("constraint violation")
	}
	if r.stored[msg.TS] {
		return false, nil
	}
	r.stored[msg.TS] = true
	return true, nil
}

func (r *memoryRepo) InsertBatch(ctx context.Context, msgs []domain.SlackMessage) (int, error) {
	r.batchCalls++
	if r.failBatch {
		for _, m := range msgs {
			if m.TS == r.failOnTS {
				return 0, errors.New("batch rejected")
			}
		}
	}
	n := 0
	for i := range msgs {
		ok, _ := r.Insert(ctx, &msgs[i])
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) FindByAuthor(context.Context, string) ([]domain.SlackMessage, error) {
	return nil, nil
}

func (r *memoryRepo) FindRange(context.Context, time.Time, time.Time) ([]domain.SlackMessage, error) {
	return nil, nil
}

func (r *memoryRepo) Count(context.Context) (int64, error) { return int64(len(r.stored)), nil }

func (r *memoryRepo) DeleteAll(context.Context) (int64, error) {
	n := len(r.stored)
	r.stored = map[string]bool{}
	return int64(n), nil
}

func messages(n int) []domain.SlackMessage {
	out := make([]domain.SlackMessage, n)
	for i := range out {
		out[i] = domain.SlackMessage{TS: fmt.Sprintf("%d.000000", 1571900000+i)}
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestImportBatches(t *testing.T) {
	repo := &memoryRepo{stored: map[string]bool{"1571900000.000000": true}}
	im := New(repo, 50, quietLogger())

	report, err := im.Import(context.Background(), messages(120))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if repo.batchCalls != 3 {
		t.Fatalf("expected 3 batches, got %d", repo.batchCalls)
	}
	want := Report{Total: 120, Inserted: 119, Duplicates: 1}
	if report != want {
		t.Fatalf("report = %+v, want %+v", report, want)
	}
}

func TestImportFallsBackToSingleInserts(t *testing.T) {
	msgs := messages(10)
	repo := &memoryRepo{stored: map[string]bool{}, failBatch: true, failOnTS: msgs[3].TS}
	im := New(repo, 4, quietLogger())

	report, err := im.Import(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := Report{Total: 10, Inserted: 9, Errors: 1}
	if report != want {
		t.Fatalf("report = %+v, want %+v", report, want)
	}
}

func TestImportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	im := New(&memoryRepo{stored: map[string]bool{}}, 0, quietLogger())
	if _, err := im.Import(ctx, messages(3)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
