package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

// MaxMatrixDays bounds report ranges.
const MaxMatrixDays = 366

// ErrInvalidDate is returned for malformed or out-of-range dates.
var ErrInvalidDate = errors.New("invalid date")

// Settings describes how garden days are derived from message timestamps.
type Settings struct {
	Location   *time.Location
	StartDate  time.Time
	CutoffHour int
	Users      []string
}

// Matrix is a users x dates table of first attendance timestamps.
type Matrix struct {
	Dates   []string
	Users   []string
	FirstTS map[string][]*time.Time
}

// AttendanceService derives attendance from collected messages.
type AttendanceService interface {
	Users() []string
	Location() *time.Location
	StartDate() string
	FindAttendanceByUser(ctx context.Context, user string) (map[string][]domain.Attend, error)
	UserHistory(ctx context.Context, user string) ([]domain.DayAttendance, error)
	GetAttendance(ctx context.Context, date string) ([]domain.AttendanceRow, error)
	NoShows(ctx context.Context, date string) ([]string, error)
	Matrix(ctx context.Context, from string, days int) (*Matrix, error)
}

type attendanceService struct {
	messages repository.MessageRepository
	settings Settings
}

func NewAttendanceService(messages repository.MessageRepository, settings Settings) AttendanceService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	settings.StartDate = truncateDay(settings.StartDate.In(settings.Location))
	return &attendanceService{
		messages: messages,
		settings: settings,
	}
}

func (s *attendanceService) Users() []string {
	return append([]string(nil), s.settings.Users...)
}

func (s *attendanceService) Location() *time.Location {
	return s.settings.Location
}

func (s *attendanceService) StartDate() string {
	return s.settings.StartDate.Format(domain.DateLayout)
}

// FindAttendanceByUser groups the user's commit posts by garden day. A post made
// before the cutoff hour counts for the previous day, unless that day already has
// an attend or precedes the garden start.
func (s *attendanceService) FindAttendanceByUser(ctx context.Context, user string) (map[string][]domain.Attend, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("user is required")
	}

	msgs, err := s.messages.FindByAuthor(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("find messages of %s: %w", user, err)
	}

	start := s.settings.StartDate.Format(domain.DateLayout)
	result := make(map[string][]domain.Attend)
	for _, msg := range msgs {
		local := msg.PostedAt.In(s.settings.Location)
		attend := domain.Attend{TS: local, Commits: msg.CommitsBy(user)}

		date := local.Format(domain.DateLayout)
		prev := truncateDay(local).AddDate(0, 0, -1).Format(domain.DateLayout)

		if _, seen := result[prev]; prev >= start && local.Hour() < s.settings.CutoffHour && !seen {
			result[prev] = []domain.Attend{attend}
			continue
		}
		result[date] = append(result[date], attend)
	}
	return result, nil
}

func (s *attendanceService) UserHistory(ctx context.Context, user string) ([]domain.DayAttendance, error) {
	byDate, err := s.FindAttendanceByUser(ctx, user)
	if err != nil {
		return nil, err
	}

	history := make([]domain.DayAttendance, 0, len(byDate))
	for date, attends := range byDate {
		history = append(history, domain.DayAttendance{Date: date, Attends: attends})
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Date < history[j].Date })
	return history, nil
}

func (s *attendanceService) GetAttendance(ctx context.Context, date string) ([]domain.AttendanceRow, error) {
	day, err := ParseDate(date, s.settings.Location)
	if err != nil {
		return nil, err
	}
	key := day.Format(domain.DateLayout)

	rows := make([]domain.AttendanceRow, 0, len(s.settings.Users))
	for _, user := range s.settings.Users {
		byDate, err := s.FindAttendanceByUser(ctx, user)
		if err != nil {
			return nil, err
		}
		rows = append(rows, domain.AttendanceRow{User: user, FirstTS: firstTS(byDate[key])})
	}
	return rows, nil
}

func (s *attendanceService) NoShows(ctx context.Context, date string) ([]string, error) {
	rows, err := s.GetAttendance(ctx, date)
	if err != nil {
		return nil, err
	}
	var absent []string
	for _, row := range rows {
		if !row.Attended() {
			absent = append(absent, row.User)
		}
	}
	return absent, nil
}

func (s *attendanceService) Matrix(ctx context.Context, from string, days int) (*Matrix, error) {
	if days <= 0 || days > MaxMatrixDays {
		return nil, fmt.Errorf("%w: days must be within 1..%d", ErrInvalidDate, MaxMatrixDays)
	}
	start, err := ParseDate(from, s.settings.Location)
	if err != nil {
		return nil, err
	}

	m := &Matrix{
		Dates:   make([]string, days),
		Users:   s.Users(),
		FirstTS: make(map[string][]*time.Time, len(s.settings.Users)),
	}
	for i := 0; i < days; i++ {
		m.Dates[i] = start.AddDate(0, 0, i).Format(domain.DateLayout)
	}

	for _, user := range m.Users {
		byDate, err := s.FindAttendanceByUser(ctx, user)
		if err != nil {
			return nil, err
		}
		cells := make([]*time.Time, days)
		for i, date := range m.Dates {
			cells[i] = firstTS(byDate[date])
		}
		m.FirstTS[user] = cells
	}
	return m, nil
}

// ParseDate parses a YYYY-MM-DD civil date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return day, nil
}

func firstTS(attends []domain.Attend) *time.Time {
	if len(attends) == 0 {
		return nil
	}
	ts := attends[0].TS
	return &ts
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
