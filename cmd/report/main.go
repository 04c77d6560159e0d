package main

import (
	"context"
	"flag"
	"os"

	"garden-attendance/internal/app"
	"garden-attendance/internal/export"
)

func main() {
	start := flag.String("start", "", "first date of the report (YYYY-MM-DD), defaults to the garden start date")
	days := flag.Int("days", 0, "number of days, defaults to garden.gardeningdays")
	format := flag.String("format", export.FormatCSV, "csv or xlsx")
	out := flag.String("out", "", "output file, defaults to stdout")
	flag.Parse()

	logger := app.NewLogger()
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	a, err := app.Open(ctx, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer a.Close()

	if *start == "" {
		*start = a.Attendance.StartDate()
	}
	if *days <= 0 {
		*days = a.Config.Garden.GardeningDays
	}

	m, err := a.Attendance.Matrix(ctx, *start, *days)
	if err != nil {
		logger.Fatalf("build matrix: %v", err)
	}
	body, _, err := export.Render(*format, m, a.Attendance.Location())
	if err != nil {
		logger.Fatalf("render report: %v", err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(body); err != nil {
		logger.Fatalf("write report: %v", err)
	}
}
