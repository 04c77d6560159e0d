package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"garden-attendance/internal/render"
	"garden-attendance/internal/service"
)

// WriteCSV writes the matrix as "user,<date>..." rows with formatted first_ts cells.
func WriteCSV(w io.Writer, m *service.Matrix, loc *time.Location) error {
	cw := csv.NewWriter(w)

	header := append([]string{"user"}, m.Dates...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, user := range m.Users {
		record := make([]string, 0, len(m.Dates)+1)
		record = append(record, user)
		cells := m.FirstTS[user]
		for i := range m.Dates {
			var ts *time.Time
			if i < len(cells) {
				ts = cells[i]
			}
			record = append(record, render.FormatFirstTS(ts, loc))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
