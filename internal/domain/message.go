package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlackMessage is one post collected from the garden Slack channel.
type SlackMessage struct {
	TS          string
	PostedAt    time.Time
	BotID       string
	Type        string
	Text        string
	User        string
	Team        string
	BotProfile  json.RawMessage
	Attachments []Attachment
}

// Attachment carries a single commit entry posted by the GitHub bot.
type Attachment struct {
	ID         int    `json:"id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	Text       string `json:"text,omitempty"`
	Title      string `json:"title,omitempty"`
	TitleLink  string `json:"title_link,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
	Color      string `json:"color,omitempty"`
}

// Authors returns the distinct attachment authors in first-seen order.
func (m SlackMessage) Authors() []string {
	seen := make(map[string]struct{}, len(m.Attachments))
	var authors []string
	for _, a := range m.Attachments {
		if a.AuthorName == "" {
			continue
		}
		if _, ok := seen[a.AuthorName]; ok {
			continue
		}
		seen[a.AuthorName] = struct{}{}
		authors = append(authors, a.AuthorName)
	}
	return authors
}

// CommitsBy returns the attachment texts authored by user.
func (m SlackMessage) CommitsBy(user string) []string {
	var commits []string
	for _, a := range m.Attachments {
		if a.AuthorName == user {
			commits = append(commits, a.Text)
		}
	}
	return commits
}

// ParseSlackTS converts a Slack message timestamp ("1571900000.000100") to a UTC time.
func ParseSlackTS(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty slack timestamp")
	}
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slack timestamp %q: %w", ts, err)
	}
	var micros int64
	if fracPart != "" {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		fracPart += strings.Repeat("0", 6-len(fracPart))
		micros, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse slack timestamp %q: %w", ts, err)
		}
	}
	return time.Unix(sec, micros*int64(time.Microsecond)).UTC(), nil
}
