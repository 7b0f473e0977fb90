// Package ingest discovers PDF invoices on disk and hands them to the worker queue.
package ingest

import (
	"context"
	"sync"

	"github.com/kluster66/invoice-extractor/internal/async"
	"github.com/kluster66/invoice-extractor/internal/pipeline"
)

// Enqueuer accepts jobs. Callers own the queue and shut it down.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

var _ Enqueuer = (*async.ProcessorQueue)(nil)

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Enqueued     uint32
	Deduplicated uint32
	Failed       uint32
}

// Result is the pipeline outcome for one file.
type Result struct {
	Path    string
	Payload pipeline.Payload
}

// Collector gathers pipeline outcomes from queue workers. Use Record as the queue's result func.
type Collector struct {
	mu        sync.Mutex
	results   []Result
	succeeded uint32
	failed    uint32
}

func (c *Collector) Record(job async.Job, out pipeline.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, Result{Path: job.Doc.Path, Payload: out})
	if out.OK() {
		c.succeeded++
	} else {
		c.failed++
	}
}

// Results returns a copy of the outcomes gathered so far.
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func (c *Collector) Counts() (succeeded, failed uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.succeeded, c.failed
}
