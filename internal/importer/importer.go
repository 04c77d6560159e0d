package importer

import (
	"context"

	"github.com/sirupsen/logrus"

	"garden-attendance/internal/domain"
	"garden-attendance/internal/repository"
)

const defaultBatchSize = 50

// Report summarises an import run.
type Report struct {
	Total      int `json:"total"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// Importer writes parsed dump messages in batches, falling back to single inserts
// when a batch fails so that one bad document does not sink its neighbours.
type Importer struct {
	messages  repository.MessageRepository
	batchSize int
	logger    logrus.FieldLogger
}

func New(messages repository.MessageRepository, batchSize int, logger logrus.FieldLogger) *Importer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Importer{messages: messages, batchSize: batchSize, logger: logger}
}

func (im *Importer) Import(ctx context.Context, msgs []domain.SlackMessage) (Report, error) {
	report := Report{Total: len(msgs)}

	for start := 0; start < len(msgs); start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+im.batchSize, len(msgs))
		batch := msgs[start:end]

		n, err := im.messages.InsertBatch(ctx, batch)
		if err == nil {
			report.Inserted += n
			report.Duplicates += len(batch) - n
			im.logger.Infof("progress: %d/%d", end, len(msgs))
			continue
		}

		im.logger.WithError(err).Warn("batch insert failed, trying individual inserts")
		for i := range batch {
			inserted, err := im.messages.Insert(ctx, &batch[i])
			switch {
			case err != nil:
				report.Errors++
				im.logger.WithError(err).WithField("ts", batch[i].TS).Error("insert message")
			case inserted:
				report.Inserted++
			default:
				report.Duplicates++
			}
		}
	}
	return report, nil
}
