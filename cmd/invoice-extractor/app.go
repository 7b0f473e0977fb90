package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kluster66/invoice-extractor/internal/async"
	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/llm/bedrock"
	"github.com/kluster66/invoice-extractor/internal/pipeline"
	"github.com/kluster66/invoice-extractor/internal/store"
	"github.com/kluster66/invoice-extractor/internal/store/dynamo"
	"github.com/kluster66/invoice-extractor/internal/store/sqlstore"
	"github.com/kluster66/invoice-extractor/internal/textextract"
)

// App carries configuration into commands and builds collaborators on demand.
type App struct {
	ctx    context.Context
	cfg    *common.Config
	logger *slog.Logger

	awsCfg  *aws.Config
	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *App) aws() (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(a.cfg.AWS.Region)}
	if a.cfg.AWS.StaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.cfg.AWS.AccessKeyID, a.cfg.AWS.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(a.ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: load aws config: %w", common.ErrConfig, err)
	}
	a.awsCfg = &cfg
	return cfg, nil
}

// openStore connects the configured backend. Writers pass ensure to provision the table.
func (a *App) openStore(ensure bool) (store.Store, error) {
	var st store.Store
	switch a.cfg.Store.Backend {
	case common.BackendDynamoDB:
		awsCfg, err := a.aws()
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if a.cfg.AWS.Endpoint != "" {
				o.BaseEndpoint = aws.String(a.cfg.AWS.Endpoint)
			}
		})
		st = dynamo.New(dynamo.Config{
			TableName:     a.cfg.Store.TableName,
			ReadCapacity:  a.cfg.Store.ReadCapacity,
			WriteCapacity: a.cfg.Store.WriteCapacity,
		}, client, a.logger)
	default:
		db, err := sqlstore.Open(a.ctx, sqlstore.Config{
			Backend:         a.cfg.Store.Backend,
			DSN:             a.cfg.Store.DSN,
			TableName:       a.cfg.Store.TableName,
			MaxConns:        int32(a.cfg.Worker.Workers) + 2,
			MaxConnLifetime: 30 * time.Minute,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sqlstore.Close(db) })
		st = sqlstore.New(db, a.cfg.Store.TableName, a.logger)
	}
	if ensure {
		if err := st.EnsureTable(a.ctx); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (a *App) newProcessor(st store.Store) (*pipeline.Processor, error) {
	awsCfg, err := a.aws()
	if err != nil {
		return nil, err
	}
	model := bedrock.NewClient(bedrock.Config{
		ModelID:     a.cfg.Bedrock.ModelID,
		MaxTokens:   a.cfg.Bedrock.MaxTokens,
		Temperature: a.cfg.Bedrock.Temperature,
		Timeout:     a.cfg.Bedrock.Timeout,
	}, bedrockruntime.NewFromConfig(awsCfg), a.logger)
	text := textextract.NewExtractor(textextract.Config{
		Pdftotext: a.cfg.Text.Pdftotext,
		MaxBytes:  a.cfg.Text.MaxPDFBytes(),
	}, a.logger)
	return pipeline.NewProcessor(pipeline.Config{MaxPromptChars: a.cfg.Text.MaxPromptChars}, text, model, st, a.logger), nil
}

func (a *App) newEventHandler(proc *pipeline.Processor) (*pipeline.EventHandler, error) {
	awsCfg, err := a.aws()
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if a.cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(a.cfg.AWS.Endpoint)
			o.UsePathStyle = true
		}
	})
	fetcher := pipeline.NewFetcher(client, a.cfg.Text.TempDir, a.cfg.Text.MaxPDFBytes(), a.logger)
	return pipeline.NewEventHandler(fetcher, proc, a.logger), nil
}

func (a *App) newQueue(proc async.DocumentProcessor, workers int, onResult async.ResultFunc) *async.ProcessorQueue {
	if workers <= 0 {
		workers = a.cfg.Worker.Workers
	}
	return async.NewProcessorQueue(proc, a.logger,
		async.WithWorkers(workers),
		async.WithQueueSize(a.cfg.Worker.QueueSize),
		async.WithProcessTimeout(a.cfg.Worker.ProcessTimeout),
		async.WithResultFunc(onResult),
	)
}
