package async

import (
	"time"

	"github.com/kluster66/invoice-extractor/internal/pipeline"
)

// Job is one document waiting for the pipeline.
type Job struct {
	Doc         pipeline.Document
	SubmittedAt time.Time
	TraceID     string
}
