package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/kluster66/invoice-extractor/internal/async"
	"github.com/kluster66/invoice-extractor/internal/export"
	"github.com/kluster66/invoice-extractor/internal/ingest"
	"github.com/kluster66/invoice-extractor/internal/llm"
	"github.com/kluster66/invoice-extractor/internal/pipeline"
	"github.com/kluster66/invoice-extractor/internal/server"
	"github.com/kluster66/invoice-extractor/internal/store"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func failed(payloads ...pipeline.Payload) error {
	n := 0
	for _, p := range payloads {
		if !p.OK() {
			n++
		}
	}
	if n > 0 {
		return fmt.Errorf("%d of %d documents failed", n, len(payloads))
	}
	return nil
}

type ExtractCmd struct {
	Path string `arg:"" type:"existingfile" help:"PDF invoice to process."`
}

func (c *ExtractCmd) Run(app *App) error {
	st, err := app.openStore(true)
	if err != nil {
		return err
	}
	proc, err := app.newProcessor(st)
	if err != nil {
		return err
	}
	out := proc.ProcessFile(app.ctx, c.Path)
	if err := printJSON(out); err != nil {
		return err
	}
	return failed(out)
}

type EventCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON file holding an S3 notification event."`
}

func (c *EventCmd) Run(app *App) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	st, err := app.openStore(true)
	if err != nil {
		return err
	}
	proc, err := app.newProcessor(st)
	if err != nil {
		return err
	}
	h, err := app.newEventHandler(proc)
	if err != nil {
		return err
	}
	out := h.Handle(app.ctx, raw)
	if err := printJSON(out); err != nil {
		return err
	}
	return failed(out...)
}

type BatchCmd struct {
	Dir        string `arg:"" type:"existingdir" help:"Directory to walk."`
	Workers    int    `help:"Worker count; 0 uses WORKERS."`
	SkipHidden bool   `default:"true" negatable:"" help:"Skip dot files and directories."`
}

func (c *BatchCmd) Run(app *App) error {
	st, err := app.openStore(true)
	if err != nil {
		return err
	}
	proc, err := app.newProcessor(st)
	if err != nil {
		return err
	}
	var col ingest.Collector
	q := app.newQueue(proc, c.Workers, col.Record)
	stats, walkErr := ingest.IngestDirectory(app.ctx, q, c.Dir, c.SkipHidden, app.logger)
	q.Shutdown(context.Background())

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tFILE\tRECORD / STAGE\tMESSAGE")
	for _, r := range col.Results() {
		if r.Payload.OK() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.Payload.Status, r.Path, r.Payload.RecordID)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Payload.Status, r.Path, r.Payload.Stage, r.Payload.Message)
		}
	}
	_ = tw.Flush()
	ok, ko := col.Counts()
	fmt.Printf("\nscanned=%d matched=%d deduplicated=%d succeeded=%d failed=%d\n",
		stats.Scanned, stats.Matched, stats.Deduplicated, ok, ko)

	if walkErr != nil {
		return walkErr
	}
	if ko > 0 {
		return fmt.Errorf("%d documents failed", ko)
	}
	return nil
}

type WatchCmd struct {
	Dirs        []string      `arg:"" help:"Directories to watch recursively."`
	InitialScan bool          `help:"Process PDFs already present."`
	Debounce    time.Duration `default:"2s" help:"Quiet period before a new file is processed."`
	Workers     int           `help:"Worker count; 0 uses WORKERS."`
}

func (c *WatchCmd) Run(app *App) error {
	st, err := app.openStore(true)
	if err != nil {
		return err
	}
	proc, err := app.newProcessor(st)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	q := app.newQueue(proc, c.Workers, func(_ async.Job, out pipeline.Payload) {
		mu.Lock()
		defer mu.Unlock()
		_ = printJSON(out)
	})
	err = ingest.Watch(app.ctx, q, ingest.WatchConfig{
		Roots:       c.Dirs,
		InitialScan: c.InitialScan,
		Debounce:    c.Debounce,
	}, app.logger)
	q.Shutdown(context.Background())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type GetCmd struct {
	ID string `arg:"" help:"Record id."`
}

func (c *GetCmd) Run(app *App) error {
	st, err := app.openStore(false)
	if err != nil {
		return err
	}
	rec, err := st.GetByID(app.ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

// QueryFlags selects exactly one access pattern.
type QueryFlags struct {
	InvoiceNumber string `name:"invoice-number" help:"Exact invoice number."`
	Supplier      string `help:"Exact supplier name."`
	From          string `help:"First invoice date, YYYY-MM-DD."`
	To            string `help:"Last invoice date, YYYY-MM-DD."`
}

func (f QueryFlags) query() store.Query {
	return store.Query{InvoiceNumber: f.InvoiceNumber, Supplier: f.Supplier, From: f.From, To: f.To}
}

type QueryCmd struct {
	QueryFlags `embed:""`
}

func (c *QueryCmd) Run(app *App) error {
	q := c.query()
	if err := q.Validate(); err != nil {
		return err
	}
	st, err := app.openStore(false)
	if err != nil {
		return err
	}
	recs, err := store.Find(app.ctx, st, q)
	if err != nil {
		return err
	}
	return printJSON(recs)
}

type ExportCmd struct {
	Out        string `required:"" type:"path" help:"Output .xlsx file."`
	QueryFlags `embed:""`
}

func (c *ExportCmd) Run(app *App) error {
	q := c.query()
	if err := q.Validate(); err != nil {
		return err
	}
	st, err := app.openStore(false)
	if err != nil {
		return err
	}
	data, err := export.NewService(st, app.logger).ExportXLSX(app.ctx, q)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	app.logger.Info("export.written", "path", c.Out, "bytes", len(data))
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Record id."`
}

func (c *DeleteCmd) Run(app *App) error {
	st, err := app.openStore(false)
	if err != nil {
		return err
	}
	if err := st.Delete(app.ctx, c.ID); err != nil {
		return err
	}
	fmt.Println("deleted", c.ID)
	return nil
}

type DescribeCmd struct{}

func (c *DescribeCmd) Run(app *App) error {
	st, err := app.openStore(false)
	if err != nil {
		return err
	}
	info, err := st.Describe(app.ctx)
	if err != nil {
		return err
	}
	return printJSON(info)
}

type ModelsCmd struct{}

func (c *ModelsCmd) Run(app *App) error {
	current, _ := llm.ResolveModel(app.cfg.Bedrock.ModelID)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ALIAS\tMODEL ID\tFAMILY\t")
	for _, m := range llm.Catalog() {
		mark := ""
		if m.ID == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Alias, m.ID, m.Provider, mark)
	}
	return tw.Flush()
}

type ServeCmd struct {
	Addr string `help:"Listen address; empty uses GRPC_ADDR."`
}

func (c *ServeCmd) Run(app *App) error {
	addr := c.Addr
	if addr == "" {
		addr = app.cfg.Server.GRPCAddr
	}
	st, err := app.openStore(true)
	if err != nil {
		return err
	}
	proc, err := app.newProcessor(st)
	if err != nil {
		return err
	}
	h, err := app.newEventHandler(proc)
	if err != nil {
		return err
	}
	gs, _ := server.NewGRPCServer(server.NewInvoiceService(h, st, app.logger), app.logger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	app.logger.Info("server.listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()
	select {
	case err := <-errCh:
		return err
	case <-app.ctx.Done():
		app.logger.Info("server.shutdown")
		gs.GracefulStop()
		return nil
	}
}
