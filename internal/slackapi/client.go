// Package slackapi reads the garden channel history and posts alerts through the Slack Web API.
package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"garden-attendance/internal/domain"
)

const pageLimit = 1000

// Client wraps the Slack Web API for one history channel and one alert channel.
type Client struct {
	api           *slack.Client
	channelID     string
	notifyChannel string
	logger        logrus.FieldLogger
}

type Options struct {
	Token         string
	ChannelID     string
	NotifyChannel string
	APIURL        string
	Logger        logrus.FieldLogger
}

func New(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack channel id is required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	var apiOpts []slack.Option
	if opts.APIURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(opts.APIURL))
	}
	return &Client{
		api:           slack.New(opts.Token, apiOpts...),
		channelID:     opts.ChannelID,
		notifyChannel: opts.NotifyChannel,
		logger:        opts.Logger,
	}, nil
}

// History returns every channel message posted within [oldest, latest], following pagination.
func (c *Client) History(ctx context.Context, oldest, latest time.Time) ([]domain.SlackMessage, error) {
	params := &slack.GetConversationHistoryParameters{
		ChannelID: c.channelID,
		Oldest:    formatTS(oldest),
		Latest:    formatTS(latest),
		Limit:     pageLimit,
		Inclusive: true,
	}

	var out []domain.SlackMessage
	for page := 1; ; page++ {
		resp, err := c.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("conversations.history page %d: %w", page, err)
		}
		for _, m := range resp.Messages {
			msg, err := convertMessage(m)
			if err != nil {
				c.logger.WithError(err).WithField("ts", m.Timestamp).Warn("skip slack message")
				continue
			}
			out = append(out, msg)
		}
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}
	return out, nil
}

// Name identifies the notifier in logs and reports.
func (c *Client) Name() string { return "slack" }

func (c *Client) Handle(m domain.Member) string { return m.Mention() }

// Notify posts text to the alert channel with @-mentions linked.
func (c *Client) Notify(ctx context.Context, text string) error {
	if c.notifyChannel == "" {
		return fmt.Errorf("slack notify channel is not configured")
	}
	_, _, err := c.api.PostMessageContext(ctx, c.notifyChannel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionPostMessageParameters(slack.PostMessageParameters{LinkNames: 1}),
	)
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	return nil
}

func convertMessage(m slack.Message) (domain.SlackMessage, error) {
	postedAt, err := domain.ParseSlackTS(m.Timestamp)
	if err != nil {
		return domain.SlackMessage{}, err
	}

	msg := domain.SlackMessage{
		TS:       m.Timestamp,
		PostedAt: postedAt,
		BotID:    m.BotID,
		Type:     m.Type,
		Text:     m.Text,
		User:     m.User,
		Team:     m.Team,
	}
	if m.BotProfile != nil {
		raw, err := json.Marshal(m.BotProfile)
		if err != nil {
			return domain.SlackMessage{}, fmt.Errorf("encode bot profile: %w", err)
		}
		msg.BotProfile = raw
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			ID:         a.ID,
			AuthorName: a.AuthorName,
			Text:       a.Text,
			Title:      a.Title,
			TitleLink:  a.TitleLink,
			Fallback:   a.Fallback,
			Color:      a.Color,
		})
	}
	return msg, nil
}

func formatTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/int(time.Microsecond))
}
