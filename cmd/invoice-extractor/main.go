package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	_ "github.com/joho/godotenv/autoload"

	"github.com/kluster66/invoice-extractor/internal/common"
)

type CLI struct {
	Extract  ExtractCmd  `cmd:"" help:"Run one local PDF through the whole pipeline."`
	Event    EventCmd    `cmd:"" help:"Process an S3 trigger event read from a JSON file."`
	Batch    BatchCmd    `cmd:"" help:"Process every PDF under a directory."`
	Watch    WatchCmd    `cmd:"" help:"Process PDFs as they appear under one or more directories."`
	Get      GetCmd      `cmd:"" help:"Print one stored record."`
	Query    QueryCmd    `cmd:"" help:"Find records by invoice number, supplier or date range."`
	Export   ExportCmd   `cmd:"" help:"Write query results to an XLSX workbook."`
	Delete   DeleteCmd   `cmd:"" help:"Delete one stored record."`
	Describe DescribeCmd `cmd:"" help:"Report the record table status and item count."`
	Models   ModelsCmd   `cmd:"" help:"List the model catalog."`
	Serve    ServeCmd    `cmd:"" help:"Serve the gRPC API."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("invoice-extractor"),
		kong.Description("Extract structured invoice records from PDF documents."),
		kong.UsageOnError(),
	)

	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFmt)
	slog.SetDefault(logger)
	logger.Debug("config.loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{ctx: ctx, cfg: cfg, logger: logger}
	err = kctx.Run(app)
	app.Close()
	kctx.FatalIfErrorf(err)
}

// newLogger writes to stderr so command output on stdout stays machine-readable.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
