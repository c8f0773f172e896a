package ingest

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danieceiflora/perdcomp01-sub000/internal/async"
)

// Feed ingests every path received on paths and enqueues the documents
// that were not seen before. It returns when paths closes or ctx ends.
func Feed(ctx context.Context, ing Ingestor, q async.Queue, paths <-chan string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-paths:
			if !ok {
				return
			}
			// Renamed-away and half-deleted files still produce events.
			if _, err := os.Stat(p); err != nil {
				logger.Debug("skipping vanished path", "path", p)
				continue
			}
			res, err := ing.IngestPath(ctx, nil, p)
			if err != nil {
				logger.Error("ingest failed", "path", p, "error", err)
				continue
			}
			if res.Deduplicated {
				continue
			}
			if err := q.Enqueue(ctx, async.Job{DocumentID: res.DocumentID, SubmittedAt: time.Now()}); err != nil {
				logger.Error("enqueue failed", "document_id", res.DocumentID, "error", err)
			}
		}
	}
}
