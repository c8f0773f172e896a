package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

// ExtractJob represents an extract job for data transfer between layers.
type ExtractJob struct {
	ID           uuid.UUID            `json:"id" db:"id"`
	DocumentID   uuid.UUID            `json:"document_id" db:"document_id"`
	Format       string               `json:"format" db:"format"`
	Status       constants.JobStatus  `json:"status" db:"status"`
	TextSource   constants.TextSource `json:"text_source,omitempty" db:"text_source"`
	Pages        int                  `json:"pages" db:"pages"`
	OCRText      *string              `json:"ocr_text,omitempty" db:"ocr_text"`
	Confidence   *float64             `json:"confidence,omitempty" db:"confidence"`
	ParseMode    string               `json:"parse_mode,omitempty" db:"parse_mode"`
	Record       types.NullJSONText   `json:"record" db:"record"`
	NeedsReview  bool                 `json:"needs_review" db:"needs_review"`
	ErrorMessage *string              `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time            `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty" db:"finished_at"`
}
