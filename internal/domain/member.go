package domain

import "time"

// Member maps a GitHub id to the member's chat handles.
type Member struct {
	GitHub   string
	Slack    string `yaml:"slack"`
	Telegram string `yaml:"telegram"`
}

// Mention returns the chat handle to use for alerts, falling back to the GitHub id.
func (m Member) Mention() string {
	if m.Slack != "" {
		return m.Slack
	}
	return m.GitHub
}

// Operator is an administrator allowed to trigger collection and exports.
type Operator struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
