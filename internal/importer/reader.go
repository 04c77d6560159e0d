// Package importer loads MongoDB dumps of the slack_messages collection.
package importer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"garden-attendance/internal/domain"
)

const maxDocumentSize = 16 << 20

type dumpAttachment struct {
	ID         int64  `bson:"id"`
	AuthorName string `bson:"author_name"`
	Text       string `bson:"text"`
	Title      string `bson:"title"`
	TitleLink  string `bson:"title_link"`
	Fallback   string `bson:"fallback"`
	Color      string `bson:"color"`
}

// dumpDocument accepts both dump layouts: ts as a Slack string with ts_for_db,
// or ts already converted to a BSON date.
type dumpDocument struct {
	TS          bson.RawValue    `bson:"ts"`
	TSForDB     bson.RawValue    `bson:"ts_for_db"`
	BotID       string           `bson:"bot_id"`
	Type        string           `bson:"type"`
	Text        string           `bson:"text"`
	User        string           `bson:"user"`
	Team        string           `bson:"team"`
	BotProfile  bson.RawValue    `bson:"bot_profile"`
	Attachments []dumpAttachment `bson:"attachments"`
}

// Parsed is the outcome of reading a dump.
type Parsed struct {
	Messages []domain.SlackMessage
	// Failed counts documents that could not be decoded.
	Failed int
}

// ReadExtJSON reads one extended-JSON document per line, as written by bsondump or mongoexport.
func ReadExtJSON(r io.Reader) (*Parsed, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDocumentSize)

	parsed := &Parsed{}
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc dumpDocument
		if err := bson.UnmarshalExtJSON(line, false, &doc); err != nil {
			parsed.Failed++
			continue
		}
		msg, err := doc.toDomain()
		if err != nil {
			parsed.Failed++
			continue
		}
		parsed.Messages = append(parsed.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return parsed, fmt.Errorf("scan ext json: %w", err)
	}
	return parsed, nil
}

// ReadBSON reads a raw mongodump .bson file: length-prefixed documents back to back.
func ReadBSON(r io.Reader) (*Parsed, error) {
	br := bufio.NewReader(r)
	parsed := &Parsed{}
	var header [4]byte
	for {
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return parsed, nil
			}
			return parsed, fmt.Errorf("read document length: %w", err)
		}
		size := int(binary.LittleEndian.Uint32(header[:]))
		if size < 5 || size > maxDocumentSize {
			return parsed, fmt.Errorf("invalid document length %d", size)
		}

		raw := make([]byte, size)
		copy(raw, header[:])
		if _, err := io.ReadFull(br, raw[4:]); err != nil {
			return parsed, fmt.Errorf("read document: %w", err)
		}

		var doc dumpDocument
		if err := bson.Unmarshal(raw, &doc); err != nil {
			parsed.Failed++
			continue
		}
		msg, err := doc.toDomain()
		if err != nil {
			parsed.Failed++
			continue
		}
		parsed.Messages = append(parsed.Messages, msg)
	}
}

func (d dumpDocument) toDomain() (domain.SlackMessage, error) {
	msg := domain.SlackMessage{
		BotID: d.BotID,
		Type:  d.Type,
		Text:  d.Text,
		User:  d.User,
		Team:  d.Team,
	}

	if ts, ok := d.TS.StringValueOK(); ok {
		postedAt, err := domain.ParseSlackTS(ts)
		if err != nil {
			return domain.SlackMessage{}, err
		}
		msg.TS, msg.PostedAt = ts, postedAt
	} else if ms, ok := d.TS.DateTimeOK(); ok {
		msg.PostedAt = time.UnixMilli(ms).UTC()
		msg.TS = fmt.Sprintf("%d.%06d", msg.PostedAt.Unix(), msg.PostedAt.Nanosecond()/int(time.Microsecond))
	} else if ms, ok := d.TSForDB.DateTimeOK(); ok {
		msg.PostedAt = time.UnixMilli(ms).UTC()
		msg.TS = fmt.Sprintf("%d.%06d", msg.PostedAt.Unix(), msg.PostedAt.Nanosecond()/int(time.Microsecond))
	} else {
		return domain.SlackMessage{}, errors.New("document has no timestamp")
	}

	if doc, ok := d.BotProfile.DocumentOK(); ok {
		raw, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return domain.SlackMessage{}, fmt.Errorf("encode bot profile: %w", err)
		}
		msg.BotProfile = raw
	}

	for _, a := range d.Attachments {
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			ID:         int(a.ID),
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
