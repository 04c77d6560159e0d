package importer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const extJSONDump = `{"_id":{"$oid":"5db1c2f0a1b2c3d4e5f60718"},"ts":"1571900000.000100","ts_for_db":{"$date":"2019-10-24T15:53:20Z"},"bot_id":"B01","type":"message","text":"","bot_profile":{"id":"B01","name":"github","updated":{"$numberInt":"1570000000"}},"attachments":[{"id":{"$numberInt":"1"},"author_name":"alice","text":"fix typo","title":"garden/main"}]}

not json at all
{"_id":{"$oid":"5db1c2f0a1b2c3d4e5f60719"},"ts":{"$date":{"$numberLong":"1571903600000"}},"type":"message","attachments":[{"id":{"$numberLong":"2"},"author_name":"bob","text":"add tests"}]}
{"_id":{"$oid":"5db1c2f0a1b2c3d4e5f6071a"},"type":"message"}
`

func TestReadExtJSON(t *testing.T) {
	parsed, err := ReadExtJSON(strings.NewReader(extJSONDump))
	if err != nil {
		t.Fatalf("ReadExtJSON: %v", err)
	}
	if parsed.Failed != 2 {
		t.Fatalf("expected 2 failed documents, got %d", parsed.Failed)
	}
	if len(parsed.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(parsed.Messages))
	}

	first := parsed.Messages[0]
	if first.TS != "1571900000.000100" {
		t.Fatalf("unexpected ts %q", first.TS)
	}
	if want := time.Unix(1571900000, 100000).UTC(); !first.PostedAt.Equal(want) {
		t.Fatalf("posted_at = %v, want %v", first.PostedAt, want)
	}
	if first.BotID != "B01" || len(first.Attachments) != 1 || first.Attachments[0].AuthorName != "alice" {
		t.Fatalf("unexpected message %+v", first)
	}
	if !bytes.Contains(first.BotProfile, []byte(`"name":"github"`)) {
		t.Fatalf("bot profile not kept: %s", first.BotProfile)
	}

	second := parsed.Messages[1]
	if second.TS != "1571903600.000000" {
		t.Fatalf("ts derived from date = %q", second.TS)
	}
	if second.Attachments[0].ID != 2 || second.Attachments[0].Text != "add tests" {
		t.Fatalf("unexpected attachment %+v", second.Attachments[0])
	}
}

func TestReadBSON(t *testing.T) {
	var dump bytes.Buffer
	docs := []bson.D{
		{
			{Key: "ts", Value: "1571900000.000100"},
			{Key: "type", Value: "message"},
			{Key: "attachments", Value: bson.A{bson.D{{Key: "id", Value: int32(1)}, {Key: "author_name", Value: "alice"}}}},
		},
		{
			{Key: "ts_for_db", Value: time.Date(2019, 10, 25, 1, 0, 0, 0, time.UTC)},
			{Key: "type", Value: "message"},
		},
	}
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		dump.Write(raw)
	}

	parsed, err := ReadBSON(&dump)
	if err != nil {
		t.Fatalf("ReadBSON: %v", err)
	}
	if len(parsed.Messages) != 2 || parsed.Failed != 0 {
		t.Fatalf("unexpected parse result: %d messages, %d failed", len(parsed.Messages), parsed.Failed)
	}
	if got := parsed.Messages[0].Authors(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("unexpected authors %v", got)
	}
	if want := time.Date(2019, 10, 25, 1, 0, 0, 0, time.UTC); !parsed.Messages[1].PostedAt.Equal(want) {
		t.Fatalf("posted_at = %v", parsed.Messages[1].PostedAt)
	}
}

func TestReadBSONTruncated(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "ts", Value: "1571900000.000100"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := ReadBSON(bytes.NewReader(raw[:len(raw)-2]))
	if err == nil {
		t.Fatalf("expected error for truncated dump")
	}
	if len(parsed.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(parsed.Messages))
	}
}
