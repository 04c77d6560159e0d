package http

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"garden-attendance/internal/collector"
	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
	"garden-attendance/internal/service"
	"garden-attendance/internal/storage"
)

type fakeAttendance struct {
	loc     *time.Location
	users   []string
	rows    map[string][]domain.AttendanceRow
	history map[string][]domain.DayAttendance
}

func (f *fakeAttendance) Users() []string          { return f.users }
func (f *fakeAttendance) Location() *time.Location { return f.loc }
func (f *fakeAttendance) StartDate() string        { return "2019-10-01" }

func (f *fakeAttendance) FindAttendanceByUser(context.Context, string) (map[string][]domain.Attend, error) {
	return nil, errors.New("not used")
}

func (f *fakeAttendance) UserHistory(_ context.Context, user string) ([]domain.DayAttendance, error) {
	return f.history[user], nil
}

func (f *fakeAttendance) GetAttendance(_ context.Context, date string) ([]domain.AttendanceRow, error) {
	day, err := service.ParseDate(date, f.loc)
	if err != nil {
		return nil, err
	}
	rows, ok := f.rows[day.Format(domain.DateLayout)]
	if !ok {
		rows = make([]domain.AttendanceRow, len(f.users))
		for i, u := range f.users {
			rows[i] = domain.AttendanceRow{User: u}
		}
	}
	return rows, nil
}

func (f *fakeAttendance) NoShows(ctx context.Context, date string) ([]string, error) {
	rows, err := f.GetAttendance(ctx, date)
	if err != nil {
		return nil, err
	}
	var absent []string
	for _, r := range rows {
		if !r.Attended() {
			absent = append(absent, r.User)
		}
	}
	return absent, nil
}

func (f *fakeAttendance) Matrix(ctx context.Context, from string, days int) (*service.Matrix, error) {
	if days <= 0 || days > service.MaxMatrixDays {
		return nil, service.ErrInvalidDate
	}
	start, err := service.ParseDate(from, f.loc)
	if err != nil {
		return nil, err
	}
	m := &service.Matrix{Users: f.users, FirstTS: map[string][]*time.Time{}}
	for i := 0; i < days; i++ {
		m.Dates = append(m.Dates, start.AddDate(0, 0, i).Format(domain.DateLayout))
	}
	for _, u := range f.users {
		m.FirstTS[u] = make([]*time.Time, days)
	}
	for i, date := range m.Dates {
		for _, row := range f.rows[date] {
			if cells, ok := m.FirstTS[row.User]; ok {
				cells[i] = row.FirstTS
			}
		}
	}
	return m, nil
}

type fakeCollect struct {
	removed int64
}

func (f *fakeCollect) Collect(context.Context, time.Time, time.Time) (service.CollectResult, error) {
	return service.CollectResult{}, nil
}

func (f *fakeCollect) RemoveAll(context.Context) (int64, error) { return f.removed, nil }

func (f *fakeCollect) Count(context.Context) (int64, error) { return 0, nil }

type fakeCollector struct {
	oldest, latest time.Time
	result         service.CollectResult
	err            error
}

func (f *fakeCollector) Start(context.Context) error { return nil }
func (f *fakeCollector) Shutdown()                   {}

func (f *fakeCollector) Trigger(_ context.Context, oldest, latest time.Time) (service.CollectResult, error) {
	f.oldest, f.latest = oldest, latest
	return f.result, f.err
}

func (f *fakeCollector) LastRun() collector.RunInfo {
	return collector.RunInfo{Result: f.result}
}

type fakeNotify struct {
	date string
}

func (f *fakeNotify) SendNoShow(_ context.Context, date string) (*service.NoShowReport, error) {
	f.date = date
	return &service.NoShowReport{Date: date, NoShows: []string{"bob"}, Sent: []string{"slack"}}, nil
}

type fakeOperators struct {
	ops map[string]*domain.Operator
}

func newFakeOperators() *fakeOperators {
	return &fakeOperators{ops: map[string]*domain.Operator{
		"admin": {ID: 1, Username: "admin", CreatedAt: time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC)},
	}}
}

func (f *fakeOperators) Register(_ context.Context, username, password, secret string) (*domain.Operator, error) {
	if secret != "letmein" {
		return nil, service.ErrInvalidRegistrationPassword
	}
	if _, ok := f.ops[username]; ok {
		return nil, service.ErrOperatorAlreadyExists
	}
	op := &domain.Operator{ID: int64(len(f.ops) + 1), Username: username}
	f.ops[username] = op
	return op, nil
}

func (f *fakeOperators) Authenticate(_ context.Context, username, password string) (*domain.Operator, error) {
	op, ok := f.ops[username]
	if !ok || password != "correct-horse" {
		return nil, service.ErrInvalidCredentials
	}
	return op, nil
}

func (f *fakeOperators) GetByID(_ context.Context, id int64) (*domain.Operator, error) {
	for _, op := range f.ops {
		if op.ID == id {
			return op, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memoryStore struct {
	objects map[string]string
}

func (m *memoryStore) PutObject(_ context.Context, bucket, key string, body io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = string(b)
	return "s3://" + bucket + "/" + key, nil
}

func (m *memoryStore) ListObjects(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStore) DeletePrefix(_ context.Context, _, prefix string) error {
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

func (m *memoryStore) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://example.test/" + bucket + "/" + key, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
