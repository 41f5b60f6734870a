// Command applications is the Lambda function serving the application
// metrics API: it stores application events and aggregates them into
// per-day counts.
//
// The DynamoDB client is constructed once at startup and reused across
// invocations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/jordancannon88/application-metrics/aggregate"
	"github.com/jordancannon88/application-metrics/apigw"
	"github.com/jordancannon88/application-metrics/dynamodb"
	"github.com/jordancannon88/application-metrics/internal/config"
	"github.com/jordancannon88/application-metrics/internal/logging"
)

func main() {
	handler, err := setup(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lambda.Start(handler)
}

func setup(ctx context.Context) (any, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	client := dynamodb.New(&awsCfg, cfg.TableName)

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect to DynamoDB: %w", err)
	}

	if err := client.Init(ctx, cfg.SkipSchemaValidation); err != nil {
		return nil, fmt.Errorf("validate table schema: %w", err)
	}

	aggregator := aggregate.NewHandler(client, logger)

	switch cfg.HandlerMode {
	case "proxy":
		return apigw.NewRouter(client, aggregator, logger).Handle, nil
	case "aggregate":
		return aggregator.Handle, nil
	default:
		return nil, fmt.Errorf("unknown HANDLER_MODE %q", cfg.HandlerMode)
	}
}
