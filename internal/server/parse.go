package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
	"github.com/danieceiflora/perdcomp01-sub000/internal/pipeline"
)

type parseRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

type parseResponse struct {
	Mode        parser.Mode    `json:"mode"`
	Record      map[string]any `json:"record"`
	NeedsReview bool           `json:"needs_review"`
	Reasons     []string       `json:"reasons,omitempty"`
}

// handleParse extracts fields from already recovered text. Nothing is stored.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, r, common.NewValidationError("text", "", "is required"))
		return
	}
	mode, err := parser.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	if mode == "" {
		mode = parser.DetectMode(req.Text)
	}

	claim := parser.Parse(mode, req.Text)
	record := claim.Record()
	if err := parser.ValidateRecord(record); err != nil {
		s.writeError(w, r, err)
		return
	}
	// supplied text is taken as exact
	reasons := pipeline.ReviewReasons(claim, 1, 0)
	_ = writeJSON(w, http.StatusOK, parseResponse{
		Mode:        mode,
		Record:      record,
		NeedsReview: len(reasons) > 0,
		Reasons:     reasons,
	})
}

func (s *Server) handleRecordSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(parser.RecordSchema())
}
