package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"garden-attendance/internal/app"
	"garden-attendance/internal/collector"
	"garden-attendance/internal/service"
)

func main() {
	start := flag.String("start", "", "first date to collect (YYYY-MM-DD), defaults to the lookback window")
	end := flag.String("end", "", "last date to collect, inclusive (YYYY-MM-DD)")
	flag.Parse()

	logger := app.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer a.Close()

	if a.Slack == nil {
		logger.Fatalf("slack token is required for collection")
	}

	loc := a.Attendance.Location()
	oldest, latest := collector.Window(time.Now(), a.Config.Collect.LookbackDays)
	if *start != "" {
		oldest, err = service.ParseDate(*start, loc)
		if err != nil {
			logger.Fatalf("start: %v", err)
		}
	}
	if *end != "" {
		day, err := service.ParseDate(*end, loc)
		if err != nil {
			logger.Fatalf("end: %v", err)
		}
		latest = day.AddDate(0, 0, 1)
	}

	result, err := a.CollectService().Collect(ctx, oldest, latest)
	if err != nil {
		logger.Fatalf("collect: %v", err)
	}
	logger.Infof("fetched %d messages, stored %d new, %d failed", result.Fetched, result.Inserted, result.Failed)
}
