package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"garden-attendance/internal/render"
	"garden-attendance/internal/service"
)

const (
	sheetAttendance = "Attendance"
	sheetSummary    = "Summary"
)

// BuildXLSX renders the matrix into a workbook with an attendance grid and a per-member summary.
func BuildXLSX(m *service.Matrix, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetAttendance); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	missStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8D7DA"}, Pattern: 1},
	})

	if err := writeAttendanceSheet(f, m, loc, headerStyle, missStyle); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, m, headerStyle); err != nil {
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")

	i, err := f.GetSheetIndex(sheetAttendance)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(i)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAttendanceSheet(f *excelize.File, m *service.Matrix, loc *time.Location, headerStyle, missStyle int) error {
	header := make([]any, 0, len(m.Dates)+1)
	header = append(header, "user")
	for _, d := range m.Dates {
		header = append(header, d)
	}
	if err := f.SetSheetRow(sheetAttendance, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetAttendance, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, user := range m.Users {
		row := r + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheetAttendance, cell, user); err != nil {
			return err
		}
		cells := m.FirstTS[user]
		for c := range m.Dates {
			cell, _ := excelize.CoordinatesToCellName(c+2, row)
			var ts *time.Time
			if c < len(cells) {
				ts = cells[c]
			}
			if ts == nil {
				if err := f.SetCellStyle(sheetAttendance, cell, cell, missStyle); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellValue(sheetAttendance, cell, render.FormatFirstTS(ts, loc)); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(sheetAttendance, "A", "A", 20)
	if len(m.Dates) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(m.Dates) + 1)
		_ = f.SetColWidth(sheetAttendance, "B", lastCol, 20)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, m *service.Matrix, headerStyle int) error {
	header := []any{"user", "attended", "days", "rate"}
	if err := f.SetSheetRow(sheetSummary, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "D1", headerStyle); err != nil {
		return err
	}

	for r, user := range m.Users {
		attended := Attended(m.FirstTS[user])
		rate := 0.0
		if len(m.Dates) > 0 {
			rate = float64(attended) / float64(len(m.Dates))
		}
		row := []any{user, attended, len(m.Dates), rate}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Attended counts the present cells of one member.
func Attended(cells []*time.Time) int {
	n := 0
	for _, ts := range cells {
		if ts != nil {
			n++
		}
	}
	return n
}
