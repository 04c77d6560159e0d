// Package render builds the HTML views of garden attendance.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"garden-attendance/internal/domain"
)

const (
	avatarBaseURL  = "https://avatars.githubusercontent.com/"
	profileBaseURL = "https://github.com/"

	// TimestampLayout is how first_ts is shown to people.
	TimestampLayout = "2006-01-02 15:04:05"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Templates returns the page templates for the HTTP layer.
func Templates() *template.Template {
	return templates
}

// AvatarURL returns the GitHub avatar image of user.
func AvatarURL(user string) string {
	return avatarBaseURL + url.PathEscape(user)
}

// ProfileURL returns the GitHub profile page of user.
func ProfileURL(user string) string {
	return profileBaseURL + url.PathEscape(user)
}

// FormatFirstTS formats ts in loc, or returns "" when ts is nil.
func FormatFirstTS(ts *time.Time, loc *time.Location) string {
	if ts == nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(TimestampLayout)
}

type tableRow struct {
	User       string
	ProfileURL string
	AvatarURL  string
	FirstTS    string
}

// AttendanceTable renders rows as the attendance table fragment, one body row per record.
func AttendanceTable(rows []domain.AttendanceRow, loc *time.Location) (template.HTML, error) {
	view := make([]tableRow, len(rows))
	for i, row := range rows {
		view[i] = tableRow{
			User:       row.User,
			ProfileURL: ProfileURL(row.User),
			AvatarURL:  AvatarURL(row.User),
			FirstTS:    FormatFirstTS(row.FirstTS, loc),
		}
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "attendance_table.html", view); err != nil {
		return "", fmt.Errorf("render attendance table: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// IndexData feeds the landing page.
type IndexData struct {
	Today     string
	StartDate string
}
