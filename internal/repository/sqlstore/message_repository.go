package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

const messageColumns = `m.ts, m.posted_at, m.bot_id, m.msg_type, m.text, m.user_id, m.team, m.bot_profile, m.attachments`

type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

type messageRow struct {
	TS          string         `db:"ts"`
	PostedAt    time.Time      `db:"posted_at"`
	BotID       string         `db:"bot_id"`
	Type        string         `db:"msg_type"`
	Text        string         `db:"text"`
	UserID      string         `db:"user_id"`
	Team        string         `db:"team"`
	BotProfile  sql.NullString `db:"bot_profile"`
	Attachments sql.NullString `db:"attachments"`
}

func (r *MessageRepository) Init(ctx context.Context) error {
	d := dialectOf(r.db)
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS slack_messages (
	ts TEXT PRIMARY KEY,
	posted_at %s NOT NULL,
	bot_id TEXT NOT NULL DEFAULT '',
	msg_type TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	team TEXT NOT NULL DEFAULT '',
	bot_profile TEXT NULL,
	attachments TEXT NULL
)`, d.timeType),
		`CREATE INDEX IF NOT EXISTS idx_slack_messages_posted_at ON slack_messages(posted_at)`,
		`
CREATE TABLE IF NOT EXISTS slack_message_authors (
	ts TEXT NOT NULL REFERENCES slack_messages(ts) ON DELETE CASCADE,
	author_name TEXT NOT NULL,
	PRIMARY KEY (ts, author_name)
)`,
		`CREATE INDEX IF NOT EXISTS idx_slack_message_authors_author ON slack_message_authors(author_name)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create slack message tables: %w", err)
		}
	}
	return nil
}

func (r *MessageRepository) Insert(ctx context.Context, msg *domain.SlackMessage) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	inserted, err := insertMessage(ctx, tx, msg)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

func (r *MessageRepository) InsertBatch(ctx context.Context, msgs []domain.SlackMessage) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	count := 0
	for i := range msgs {
		inserted, err := insertMessage(ctx, tx, &msgs[i])
		if err != nil {
			return 0, err
		}
		if inserted {
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return count, nil
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, msg *domain.SlackMessage) (bool, error) {
	if msg.TS == "" {
		return false, fmt.Errorf("insert message: empty ts")
	}
	if msg.PostedAt.IsZero() {
		postedAt, err := domain.ParseSlackTS(msg.TS)
		if err != nil {
			return false, err
		}
		msg.PostedAt = postedAt
	}

	attachments, err := encodeAttachments(msg.Attachments)
	if err != nil {
		return false, err
	}
	var botProfile sql.NullString
	if len(msg.BotProfile) > 0 && string(msg.BotProfile) != "null" {
		botProfile = sql.NullString{String: string(msg.BotProfile), Valid: true}
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO slack_messages (ts, posted_at, bot_id, msg_type, text, user_id, team, bot_profile, attachments)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (ts) DO NOTHING`),
		msg.TS,
		msg.PostedAt.UTC(),
		msg.BotID,
		msg.Type,
		msg.Text,
		msg.User,
		msg.Team,
		botProfile,
		attachments,
	)
	if err != nil {
		return false, fmt.Errorf("insert message %s: %w", msg.TS, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("message rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for _, author := range msg.Authors() {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO slack_message_authors (ts, author_name)
VALUES (?, ?)
ON CONFLICT DO NOTHING`), msg.TS, author); err != nil {
			return false, fmt.Errorf("insert message author: %w", err)
		}
	}
	return true, nil
}

func (r *MessageRepository) FindByAuthor(ctx context.Context, author string) ([]domain.SlackMessage, error) {
	query := r.db.Rebind(`
SELECT ` + messageColumns + `
FROM slack_messages m
JOIN slack_message_authors a ON a.ts = m.ts
WHERE a.author_name = ?
ORDER BY m.posted_at ASC, m.ts ASC`)
	return r.selectMessages(ctx, query, author)
}

func (r *MessageRepository) FindRange(ctx context.Context, from, to time.Time) ([]domain.SlackMessage, error) {
	query := r.db.Rebind(`
SELECT ` + messageColumns + `
FROM slack_messages m
WHERE m.posted_at >= ? AND m.posted_at < ?
ORDER BY m.posted_at ASC, m.ts ASC`)
	return r.selectMessages(ctx, query, from.UTC(), to.UTC())
}

func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM slack_messages`); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM slack_message_authors`); err != nil {
		return 0, fmt.Errorf("delete message authors: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM slack_messages`)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleted rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return n, nil
}

func (r *MessageRepository) selectMessages(ctx context.Context, query string, args ...any) ([]domain.SlackMessage, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	msgs := make([]domain.SlackMessage, 0, len(rows))
	for _, row := range rows {
		msg, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (row messageRow) toDomain() (domain.SlackMessage, error) {
	msg := domain.SlackMessage{
		TS:       row.TS,
		PostedAt: row.PostedAt.UTC(),
		BotID:    row.BotID,
		Type:     row.Type,
		Text:     row.Text,
		User:     row.UserID,
		Team:     row.Team,
	}
	if row.BotProfile.Valid && row.BotProfile.String != "" {
		msg.BotProfile = json.RawMessage(row.BotProfile.String)
	}
	if row.Attachments.Valid && row.Attachments.String != "" {
		if err := json.Unmarshal([]byte(row.Attachments.String), &msg.Attachments); err != nil {
			return domain.SlackMessage{}, fmt.Errorf("decode attachments of %s: %w", row.TS, err)
		}
	}
	return msg, nil
}

func encodeAttachments(attachments []domain.Attachment) (sql.NullString, error) {
	if len(attachments) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(attachments)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode attachments: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
