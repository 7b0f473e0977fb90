package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kluster66/invoice-extractor/internal/async"
	"github.com/kluster66/invoice-extractor/internal/pipeline"
)

// IngestDirectory walks root and enqueues every PDF once. Files whose content was
// already enqueued in this walk are counted as deduplicated and skipped.
func IngestDirectory(ctx context.Context, q Enqueuer, root string, skipHidden bool, logger *slog.Logger) (DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return DirStats{}, errors.New("root path is required")
	}

	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(path) {
			return nil
		}
		stats.Matched++

		abs, err := filepath.Abs(path)
		if err != nil {
			stats.Failed++
			return nil
		}
		sum, err := HashFile(abs)
		if err != nil {
			logger.Warn("ingest.hash.failed", "path", abs, "error", err)
			stats.Failed++
			return nil
		}
		if first, dup := seen[sum]; dup {
			logger.Info("ingest.deduplicated", "path", abs, "same_as", first)
			stats.Deduplicated++
			return nil
		}
		seen[sum] = abs

		job := async.Job{Doc: pipeline.Document{Path: abs}, SubmittedAt: time.Now(), TraceID: sum[:16]}
		if err := q.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("enqueue %s: %w", abs, err)
		}
		stats.Enqueued++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk: %w", err)
	}
	logger.Info("ingest.directory.done", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "enqueued", stats.Enqueued,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return stats, nil
}
