package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks for one document to be processed.
type Job struct {
	DocumentID  uuid.UUID
	Mode        parser.Mode // empty means detect from the text
	Force       bool        // enqueue even if deduplicated
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
