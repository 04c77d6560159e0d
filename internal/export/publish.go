package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"garden-attendance/internal/service"
	"garden-attendance/internal/storage"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrUnknownFormat is returned for report formats other than csv and xlsx.
var ErrUnknownFormat = errors.New("unknown report format")

// Report points at a published report object.
type Report struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	URL      string `json:"url,omitempty"`
}

// Publisher renders attendance matrices and stores them in object storage.
type Publisher struct {
	store     storage.Service
	bucket    string
	keyPrefix string
	urlTTL    time.Duration
}

func NewPublisher(store storage.Service, bucket, keyPrefix string) *Publisher {
	return &Publisher{
		store:     store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		urlTTL:    time.Hour,
	}
}

// Render encodes the matrix in the requested format.
func Render(format string, m *service.Matrix, loc *time.Location) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		var buf bytes.Buffer
		if err := WriteCSV(&buf, m, loc); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ContentTypeCSV, nil
	case FormatXLSX, "":
		b, err := BuildXLSX(m, loc)
		if err != nil {
			return nil, "", err
		}
		return b, ContentTypeXLSX, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FileName names a report covering the matrix dates.
func FileName(m *service.Matrix, format string) string {
	if format == "" {
		format = FormatXLSX
	}
	if len(m.Dates) == 0 {
		return "attendance." + format
	}
	return fmt.Sprintf("attendance_%s_%s.%s", m.Dates[0], m.Dates[len(m.Dates)-1], format)
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.store != nil && p.bucket != ""
}

// Publish uploads the rendered report and returns a presigned download URL.
func (p *Publisher) Publish(ctx context.Context, format string, m *service.Matrix, loc *time.Location) (*Report, error) {
	if !p.Enabled() {
		return nil, errors.New("storage service not configured")
	}
	body, contentType, err := Render(format, m, loc)
	if err != nil {
		return nil, err
	}

	key := path.Join(p.keyPrefix, uuid.NewString(), FileName(m, strings.ToLower(format)))
	location, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}

	report := &Report{Key: key, Location: location}
	if url, err := p.store.GetObjectURL(ctx, p.bucket, key, p.urlTTL); err == nil {
		report.URL = url
	}
	return report, nil
}

// List returns the published reports.
func (p *Publisher) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	if !p.Enabled() {
		return nil, errors.New("storage service not configured")
	}
	prefix := p.keyPrefix
	if prefix != "" {
		prefix += "/"
	}
	return p.store.ListObjects(ctx, p.bucket, prefix)
}

// Purge deletes every published report.
func (p *Publisher) Purge(ctx context.Context) error {
	if !p.Enabled() {
		return errors.New("storage service not configured")
	}
	if p.keyPrefix == "" {
		return errors.New("refusing to purge without a key prefix")
	}
	return p.store.DeletePrefix(ctx, p.bucket, p.keyPrefix+"/")
}
