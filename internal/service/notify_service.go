package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"garden-attendance/internal/domain"
)

const noShowPrefix = "미출석자 알람 "

// Notifier delivers plain-text alerts to a chat.
type Notifier interface {
	Name() string
	// Handle returns how the member is mentioned on this chat.
	Handle(member domain.Member) string
	Notify(ctx context.Context, text string) error
}

// NoShowReport describes one no-show alert.
type NoShowReport struct {
	Date    string   `json:"date"`
	NoShows []string `json:"no_shows"`
	Sent    []string `json:"sent"`
}

// NotifyService alerts members that have not attended.
type NotifyService interface {
	SendNoShow(ctx context.Context, date string) (*NoShowReport, error)
}

type notifyService struct {
	attendance AttendanceService
	members    map[string]domain.Member
	notifiers  []Notifier
	logger     logrus.FieldLogger
}

func NewNotifyService(attendance AttendanceService, members map[string]domain.Member, notifiers []Notifier, logger logrus.FieldLogger) NotifyService {
	if logger == nil {
		logger = logrus.New()
	}
	return &notifyService{
		attendance: attendance,
		members:    members,
		notifiers:  notifiers,
		logger:     logger,
	}
}

func (s *notifyService) SendNoShow(ctx context.Context, date string) (*NoShowReport, error) {
	if len(s.notifiers) == 0 {
		return nil, errors.New("no notifier configured")
	}

	absent, err := s.attendance.NoShows(ctx, date)
	if err != nil {
		return nil, err
	}
	report := &NoShowReport{Date: date, NoShows: absent}
	if len(absent) == 0 {
		return report, nil
	}

	var errs []error
	for _, n := range s.notifiers {
		text := NoShowMessage(absent, s.members, n.Handle)
		if err := n.Notify(ctx, text); err != nil {
			s.logger.WithError(err).WithField("notifier", n.Name()).Warn("send no-show alert")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		report.Sent = append(report.Sent, n.Name())
	}
	if len(report.Sent) == 0 {
		return report, errors.Join(errs...)
	}
	return report, nil
}

// NoShowMessage builds the alert text mentioning every absent member.
func NoShowMessage(absent []string, members map[string]domain.Member, handle func(domain.Member) string) string {
	var b strings.Builder
	b.WriteString(noShowPrefix)
	for _, user := range absent {
		m, ok := members[user]
		if !ok {
			m = domain.Member{GitHub: user}
		}
		if m.GitHub == "" {
			m.GitHub = user
		}
		fmt.Fprintf(&b, "@%s ", handle(m))
	}
	return b.String()
}
