package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/repository"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

type claimDTO struct {
	ID         uuid.UUID        `json:"id"`
	Perdcomp   string           `json:"perdcomp"`
	ClienteID  *uuid.UUID       `json:"cliente_id,omitempty"`
	DataInicio *time.Time       `json:"data_inicio,omitempty"`
	Saldo      *decimal.Decimal `json:"saldo"`
	SaldoAtual *decimal.Decimal `json:"saldo_atual"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func toClaimDTO(c ledger.Claim) claimDTO {
	return claimDTO(c)
}

type entryDTO struct {
	ID                  uuid.UUID                `json:"id"`
	ClaimID             uuid.UUID                `json:"claim_id"`
	Valor               decimal.Decimal          `json:"valor"`
	Sinal               constants.Sinal          `json:"sinal"`
	Tipo                constants.TipoLancamento `json:"tipo"`
	DataLancamento      time.Time                `json:"data_lancamento"`
	Observacao          string                   `json:"observacao"`
	Aprovado            bool                     `json:"aprovado"`
	DataAprovacao       *time.Time               `json:"data_aprovacao"`
	ObservacaoAprovacao string                   `json:"observacao_aprovacao"`
	SaldoRestante       *decimal.Decimal         `json:"saldo_restante"`
	CreatedAt           time.Time                `json:"created_at"`
}

func toEntryDTOs(entries []ledger.Entry) []entryDTO {
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO(e))
	}
	return out
}

type createClaimRequest struct {
	Perdcomp   string           `json:"perdcomp"`
	ClienteID  *uuid.UUID       `json:"cliente_id,omitempty"`
	DataInicio string           `json:"data_inicio,omitempty"`
	Saldo      *decimal.Decimal `json:"saldo,omitempty"`
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := s.deps.Claims.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]claimDTO, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimDTO(c))
	}
	_ = writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	access := tenant.FromContext(r.Context())
	if !access.All() && !access.Permits(req.ClienteID) {
		s.writeError(w, r, common.NewValidationError("cliente_id", req.ClienteID, "must be one of the caller's empresas"))
		return
	}
	inicio, err := parseDate("data_inicio", req.DataInicio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c := &ledger.Claim{
		Perdcomp:   strings.TrimSpace(req.Perdcomp),
		ClienteID:  req.ClienteID,
		DataInicio: inicio,
		Saldo:      req.Saldo,
	}
	if err := ledger.ValidateClaim(*c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.ClienteID != nil {
		if _, err := s.deps.Empresas.Get(r.Context(), *c.ClienteID); err != nil {
			s.writeError(w, r, common.NewValidationError("cliente_id", *c.ClienteID, "unknown empresa"))
			return
		}
	}
	if err := s.deps.Claims.Create(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, toClaimDTO(*c))
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.visibleClaim(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, toClaimDTO(*claim))
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	claim, err := s.visibleClaim(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.deps.Claims.ListEntries(r.Context(), claim.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

type createEntryRequest struct {
	Valor               decimal.Decimal          `json:"valor"`
	Sinal               constants.Sinal          `json:"sinal"`
	Tipo                constants.TipoLancamento `json:"tipo,omitempty"`
	DataLancamento      *time.Time               `json:"data_lancamento,omitempty"`
	Observacao          string                   `json:"observacao,omitempty"`
	Aprovado            bool                     `json:"aprovado"`
	DataAprovacao       *time.Time               `json:"data_aprovacao,omitempty"`
	ObservacaoAprovacao string                   `json:"observacao_aprovacao,omitempty"`
}

// handleCreateEntry books a movement on a claim. An approved entry moves
// the balance at once; a debit larger than the balance is rejected on valor.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	claim, err := s.visibleClaim(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createEntryRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e := &ledger.Entry{
		ClaimID:             claim.ID,
		Valor:               req.Valor,
		Sinal:               req.Sinal,
		Tipo:                req.Tipo,
		Observacao:          req.Observacao,
		Aprovado:            req.Aprovado,
		DataAprovacao:       req.DataAprovacao,
		ObservacaoAprovacao: req.ObservacaoAprovacao,
	}
	if req.DataLancamento != nil {
		e.DataLancamento = *req.DataLancamento
	}
	if err := s.deps.Ledger.Create(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, entryDTO(*e))
}

func (s *Server) handleSearchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f repository.EntryFilter
	if v := q.Get("claim_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: claim_id must be a UUID", common.ErrInvalidInput))
			return
		}
		f.ClaimID = &id
	}
	if v := q.Get("aprovado"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: aprovado must be a boolean", common.ErrInvalidInput))
			return
		}
		f.Aprovado = &b
	}
	var err error
	if f.From, err = parseDate("from", q.Get("from")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.To, err = parseDate("to", q.Get("to")); err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.deps.Entries.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.visibleEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, entryDTO(*e))
}

// updateEntryRequest carries the approval fields. Payload fields are
// accepted only so that attempts to change them fail on the right field.
type updateEntryRequest struct {
	Aprovado            *bool   `json:"aprovado,omitempty"`
	DataAprovacao       *string `json:"data_aprovacao,omitempty"`
	ObservacaoAprovacao *string `json:"observacao_aprovacao,omitempty"`

	Valor          *decimal.Decimal          `json:"valor,omitempty"`
	Sinal          *constants.Sinal          `json:"sinal,omitempty"`
	Tipo           *constants.TipoLancamento `json:"tipo,omitempty"`
	DataLancamento *time.Time                `json:"data_lancamento,omitempty"`
	Observacao     *string                   `json:"observacao,omitempty"`
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	stored, err := s.visibleEntry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateEntryRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	proposed := *stored
	if req.Aprovado != nil {
		proposed.Aprovado = *req.Aprovado
	}
	if req.DataAprovacao != nil {
		proposed.DataAprovacao, err = parseTimestamp("data_aprovacao", *req.DataAprovacao)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.ObservacaoAprovacao != nil {
		proposed.ObservacaoAprovacao = *req.ObservacaoAprovacao
	}
	if req.Valor != nil {
		proposed.Valor = *req.Valor
	}
	if req.Sinal != nil {
		proposed.Sinal = *req.Sinal
	}
	if req.Tipo != nil {
		proposed.Tipo = *req.Tipo
	}
	if req.DataLancamento != nil {
		proposed.DataLancamento = *req.DataLancamento
	}
	if req.Observacao != nil {
		proposed.Observacao = *req.Observacao
	}

	if err := s.deps.Ledger.Update(r.Context(), &proposed); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, entryDTO(proposed))
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	claim, err := s.visibleClaim(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, err := parseDate("from", r.URL.Query().Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseDate("to", r.URL.Query().Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	xlsx, err := s.deps.Export.ExportStatementXLSX(r.Context(), claim.ID, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "claim_id", claim.ID, "err", err)
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="extrato-%s.xlsx"`, claim.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

type auditResponse struct {
	ClaimID       uuid.UUID       `json:"claim_id"`
	Expected      decimal.Decimal `json:"expected"`
	Actual        decimal.Decimal `json:"actual"`
	Drift         decimal.Decimal `json:"drift"`
	Approved      int             `json:"approved"`
	Unsnapshotted int             `json:"unsnapshotted"`
	Drifted       bool            `json:"drifted"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	claim, err := s.visibleClaim(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.deps.Ledger.Recalculate(r.Context(), claim.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, auditResponse{
		ClaimID:       a.ClaimID,
		Expected:      a.Expected,
		Actual:        a.Actual,
		Drift:         a.Drift(),
		Approved:      a.Approved,
		Unsnapshotted: a.Unsnapshotted,
		Drifted:       a.Drifted(),
	})
}

func (s *Server) visibleClaim(r *http.Request) (*ledger.Claim, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	claim, err := s.deps.Claims.GetClaim(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !tenant.FromContext(r.Context()).Permits(claim.ClienteID) {
		return nil, errForbiddenEmpresa
	}
	return claim, nil
}

func (s *Server) visibleEntry(r *http.Request) (*ledger.Entry, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	e, err := s.deps.Entries.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	claim, err := s.deps.Claims.GetClaim(r.Context(), e.ClaimID)
	if err != nil {
		return nil, err
	}
	if !tenant.FromContext(r.Context()).Permits(claim.ClienteID) {
		return nil, errForbiddenEmpresa
	}
	return e, nil
}

// parseDate reads YYYY-MM-DD; empty means unset.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, common.NewValidationError(field, s, "must be YYYY-MM-DD")
	}
	return &t, nil
}

// parseTimestamp reads RFC 3339 or YYYY-MM-DD; empty clears the value.
func parseTimestamp(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return parseDate(field, s)
}
