package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestGetObjectURLPresignsLocally(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  aws.NewCredentialsCache(staticCredentials{}),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	svc := NewS3Service(client)

	raw, err := svc.GetObjectURL(context.Background(), "garden", "garden-exports/report.xlsx", time.Minute)
	if err != nil {
		t.Fatalf("GetObjectURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "localhost:9000" || !strings.HasSuffix(u.Path, "/garden/garden-exports/report.xlsx") {
		t.Fatalf("unexpected presigned url %s", raw)
	}
	if u.Query().Get("X-Amz-Expires") != "60" {
		t.Fatalf("unexpected expiry in %s", raw)
	}
}

func TestRequiresBucket(t *testing.T) {
	svc := NewS3Service(s3.New(s3.Options{Region: "us-east-1"}))
	ctx := context.Background()
	if _, err := svc.PutObject(ctx, "", "k", strings.NewReader("x"), ""); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, err := svc.ListObjects(ctx, "", ""); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if err := svc.DeletePrefix(ctx, "garden", " "); err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

type staticCredentials struct{}

func (staticCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET", Source: "test"}, nil
}
