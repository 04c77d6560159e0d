package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"garden-attendance/internal/domain"
)

func TestAvatarURL(t *testing.T) {
	if got := AvatarURL("alice"); got != "https://avatars.githubusercontent.com/alice" {
		t.Fatalf("unexpected avatar url %q", got)
	}
	if got := ProfileURL("alice"); got != "https://github.com/alice" {
		t.Fatalf("unexpected profile url %q", got)
	}
}

func TestFormatFirstTS(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	ts := time.Date(2019, 10, 24, 0, 5, 9, 0, time.UTC)
	if got := FormatFirstTS(&ts, seoul); got != "2019-10-24 09:05:09" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatFirstTS(nil, seoul); got != "" {
		t.Fatalf("nil timestamp should render empty, got %q", got)
	}
}

func TestAttendanceTableRows(t *testing.T) {
	ts := time.Date(2019, 10, 24, 9, 0, 0, 0, time.UTC)
	rows := []domain.AttendanceRow{
		{User: "alice", FirstTS: &ts},
		{User: "bob"},
		{User: "carol"},
	}

	out, err := AttendanceTable(rows, time.UTC)
	if err != nil {
		t.Fatalf("AttendanceTable: %v", err)
	}
	html := string(out)

	_, body, ok := strings.Cut(html, "<tbody>")
	if !ok {
		t.Fatalf("missing tbody in %s", html)
	}
	if n := strings.Count(body, "<tr>"); n != len(rows) {
		t.Fatalf("expected %d body rows, got %d", len(rows), n)
	}
	if !strings.Contains(body, `<td>2019-10-24 09:00:00</td>`) {
		t.Fatalf("formatted first_ts missing: %s", body)
	}
	if !strings.Contains(body, `<a href="https://github.com/bob" target="_blank">bob</a></td><td></td>`) {
		t.Fatalf("absent member should have an empty cell: %s", body)
	}
}

func TestAttendanceTableEmpty(t *testing.T) {
	out, err := AttendanceTable(nil, time.UTC)
	if err != nil {
		t.Fatalf("AttendanceTable: %v", err)
	}
	_, body, _ := strings.Cut(string(out), "<tbody>")
	if strings.Contains(body, "<tr>") {
		t.Fatalf("expected no body rows, got %s", body)
	}
}

func TestAttendanceTableEscapes(t *testing.T) {
	out, err := AttendanceTable([]domain.AttendanceRow{{User: "<script>"}}, time.UTC)
	if err != nil {
		t.Fatalf("AttendanceTable: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Fatalf("user name must be escaped: %s", out)
	}
}

func TestIndexTemplate(t *testing.T) {
	var buf bytes.Buffer
	if err := Templates().ExecuteTemplate(&buf, "index.html", IndexData{Today: "2019-10-24", StartDate: "2019-10-01"}); err != nil {
		t.Fatalf("execute index: %v", err)
	}
	page := buf.String()
	for _, want := range []string{`id="attendance"`, `value="2019-10-24"`, `alert("실패")`} {
		if !strings.Contains(page, want) {
			t.Fatalf("index page missing %s", want)
		}
	}
}
