package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/pkg/bootstrap"
	"gitlab.connectwisedev.com/pos-service/pkg/catalog"
	"gitlab.connectwisedev.com/pos-service/pkg/config"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/storage"
)

// objectReader fetches the uploaded file named by an S3 event.
type objectReader interface {
	Read(ctx context.Context, bucket, key string) ([]byte, error)
}

var (
	app      *bootstrap.App
	cfg      config.Config
	products *catalog.Catalog
	objects  objectReader
	logger   *zap.Logger
)

// localCSVPath stands in for the S3 object on local runs.
var localCSVPath = "products.csv"

func init() {
	var err error
	app, err = bootstrap.New()
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}

	var reader objectReader
	if !app.Config.IsLocal() {
		reader, err = storage.NewS3Reader(context.Background(), app.Config.AWSRegion, app.Logger)
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
	}
	setup(app.Store, app.Logger, app.Config, reader)
}

func setup(store kvstore.Store, l *zap.Logger, c config.Config, reader objectReader) {
	cfg = c
	logger = l.Named("uploadProduct")
	products = catalog.New(store, logger)
	objects = reader
}

// S3EventWrapper is a custom struct to handle either S3 events or direct CSV payload
type S3EventWrapper struct {
	Records []events.S3EventRecord `json:"Records,omitempty"`
	CSVData string                 `json:"csv_data,omitempty"` // For local testing
}

// Result reports what an upload changed.
type Result struct {
	Rows int `json:"rows"`
	catalog.UpsertResult
}

func handler(ctx context.Context, event S3EventWrapper) (Result, error) {
	csvContent, err := readCSV(ctx, event)
	if err != nil {
		return Result{}, err
	}

	rows, err := catalog.ParseProductCSV(bytes.NewReader(csvContent), logger)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("CSV has no valid product rows")
	}

	res, err := products.UpsertProducts(ctx, rows)
	if err != nil {
		return Result{}, err
	}

	logger.Info("products processed",
		zap.Int("rows", len(rows)),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated))
	return Result{Rows: len(rows), UpsertResult: res}, nil
}

func readCSV(ctx context.Context, event S3EventWrapper) ([]byte, error) {
	switch {
	case len(event.Records) > 0:
		s3Record := event.Records[0].S3
		logger.Info("processing S3 event",
			zap.String("bucket", s3Record.Bucket.Name),
			zap.String("key", s3Record.Object.Key))

		if !cfg.IsLocal() {
			return objects.Read(ctx, s3Record.Bucket.Name, s3Record.Object.Key)
		}
		content, err := os.ReadFile(localCSVPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read local %s for S3 simulation: %w", localCSVPath, err)
		}
		return content, nil
	case event.CSVData != "":
		logger.Info("processing direct CSV data payload")
		return []byte(event.CSVData), nil
	default:
		return nil, fmt.Errorf("no S3 event record or direct CSV data found in the payload")
	}
}

func main() {
	defer app.Close()
	lambda.Start(handler)
}
