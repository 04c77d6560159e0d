package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"garden-attendance/internal/app"
	"garden-attendance/internal/importer"
)

func main() {
	file := flag.String("file", "", "MongoDB dump of slack_messages")
	format := flag.String("format", "json", "dump format: json (one extended JSON document per line) or bson")
	batch := flag.Int("batch", 50, "messages per insert batch")
	flag.Parse()

	logger := app.NewLogger()
	if *file == "" {
		logger.Fatalf("-file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer a.Close()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatalf("open dump: %v", err)
	}
	defer f.Close()

	var parsed *importer.Parsed
	switch *format {
	case "json":
		parsed, err = importer.ReadExtJSON(f)
	case "bson":
		parsed, err = importer.ReadBSON(f)
	default:
		logger.Fatalf("unknown format %q", *format)
	}
	if err != nil {
		logger.Fatalf("read dump: %v", err)
	}
	if parsed.Failed > 0 {
		logger.Warnf("skipped %d documents that could not be decoded", parsed.Failed)
	}
	logger.Infof("read %d messages from %s", len(parsed.Messages), *file)

	report, err := importer.New(a.Messages, *batch, logger).Import(ctx, parsed.Messages)
	if err != nil {
		logger.Fatalf("import: %v", err)
	}
	logger.Infof("import finished: total %d, inserted %d, duplicates %d, errors %d",
		report.Total, report.Inserted, report.Duplicates, report.Errors)
}
