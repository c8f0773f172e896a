package ledger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
)

// Tx is the write side of a claim-locked transaction.
type Tx interface {
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	InsertEntry(ctx context.Context, e *Entry) error
	// SaveApproval writes the approval fields and the balance snapshot of e.
	SaveApproval(ctx context.Context, e *Entry) error
	UpdateClaimBalance(ctx context.Context, claimID uuid.UUID, saldoAtual decimal.Decimal) error
}

// Store persists claims and entries.
type Store interface {
	// WithClaimLock runs fn in one transaction holding an exclusive lock on
	// the claim row, read fresh after the lock is taken. Writes commit only
	// when fn returns nil.
	WithClaimLock(ctx context.Context, claimID uuid.UUID, fn func(ctx context.Context, claim *Claim, tx Tx) error) error
	GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	// ListEntries returns a claim's entries in creation order.
	ListEntries(ctx context.Context, claimID uuid.UUID) ([]Entry, error)
}

// Service runs the entry save protocol.
type Service struct {
	store  Store
	locks  KeyedMutex
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for approval dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a ledger service over store.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new entry. An entry created approved moves
// the claim balance in the same transaction.
func (s *Service) Create(ctx context.Context, e *Entry) error {
	if err := ValidateEntry(*e); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Tipo == "" {
		e.Tipo = constants.TipoGerado
	}
	now := s.clock()
	if e.DataLancamento.IsZero() {
		e.DataLancamento = now
	}
	e.DataLancamento = e.DataLancamento.Truncate(time.Microsecond)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.SaldoRestante = nil

	unlock := s.locks.Lock(e.ClaimID)
	defer unlock()

	err := s.store.WithClaimLock(ctx, e.ClaimID, func(ctx context.Context, claim *Claim, tx Tx) error {
		if err := Clean(*claim, e, now); err != nil {
			return err
		}
		if e.Aprovado {
			if err := s.apply(ctx, tx, claim, e); err != nil {
				return err
			}
		}
		return tx.InsertEntry(ctx, e)
	})
	if err != nil {
		s.logFailure("create entry failed", e, err)
		return err
	}
	s.logger.Info("entry created", "entry_id", e.ID, "claim_id", e.ClaimID, "sinal", e.Sinal, "valor", e.Valor.StringFixed(2), "aprovado", e.Aprovado)
	return nil
}

// Update saves a proposed version of a stored entry. Only the approval
// fields may change; the balance moves once, when the entry first becomes
// approved. On success proposed holds the saved entry.
func (s *Service) Update(ctx context.Context, proposed *Entry) error {
	// the claim link is immutable, so it can be read before locking
	current, err := s.store.GetEntry(ctx, proposed.ID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(current.ClaimID)
	defer unlock()

	err = s.store.WithClaimLock(ctx, current.ClaimID, func(ctx context.Context, claim *Claim, tx Tx) error {
		stored, err := tx.GetEntry(ctx, proposed.ID)
		if err != nil {
			return err
		}
		if err := CheckUpdate(*stored, *proposed); err != nil {
			return err
		}

		next := *stored
		next.Aprovado = proposed.Aprovado
		next.DataAprovacao = proposed.DataAprovacao
		next.ObservacaoAprovacao = proposed.ObservacaoAprovacao
		if err := common.NewValidator().
			Field("observacao_aprovacao", next.ObservacaoAprovacao, common.MaxLength(1000)).
			Error(); err != nil {
			return err
		}
		if err := Clean(*claim, &next, s.clock()); err != nil {
			return err
		}
		if !stored.Aprovado && next.Aprovado {
			if err := s.apply(ctx, tx, claim, &next); err != nil {
				return err
			}
		}
		if err := tx.SaveApproval(ctx, &next); err != nil {
			return err
		}
		*proposed = next
		return nil
	})
	if err != nil {
		s.logFailure("update entry failed", proposed, err)
		return err
	}
	s.logger.Info("entry updated", "entry_id", proposed.ID, "claim_id", proposed.ClaimID, "aprovado", proposed.Aprovado)
	return nil
}

// clock returns the current time at the precision SQL timestamps keep.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) apply(ctx context.Context, tx Tx, claim *Claim, e *Entry) error {
	Apply(claim, e)
	if err := tx.UpdateClaimBalance(ctx, claim.ID, *claim.SaldoAtual); err != nil {
		return err
	}
	s.logger.Debug("claim balance updated", "claim_id", claim.ID, "entry_id", e.ID, "saldo_atual", claim.SaldoAtual.StringFixed(2))
	return nil
}

func (s *Service) logFailure(msg string, e *Entry, err error) {
	if errors.Is(err, common.ErrValidation) {
		s.logger.Warn(msg, "entry_id", e.ID, "claim_id", e.ClaimID, "field", common.FieldOf(err), "error", err)
		return
	}
	s.logger.Error(msg, "entry_id", e.ID, "claim_id", e.ClaimID, "error", err)
}

// Audit compares a claim's stored balance with the one its approved
// entries produce.
type Audit struct {
	ClaimID  uuid.UUID
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Approved int
	// Unsnapshotted counts approved entries without a balance snapshot.
	Unsnapshotted int
}

// Drift is Actual minus Expected.
func (a Audit) Drift() decimal.Decimal { return a.Actual.Sub(a.Expected) }

// Drifted reports whether the stored balance disagrees with the entries.
func (a Audit) Drifted() bool { return !a.Drift().IsZero() || a.Unsnapshotted > 0 }

// Recalculate replays a claim's approved entries in approval order from the
// granted value and compares the result with the stored balance. Entries
// approved at the same instant keep their creation order. Nothing is
// written.
func (s *Service) Recalculate(ctx context.Context, claimID uuid.UUID) (Audit, error) {
	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return Audit{}, err
	}
	entries, err := s.store.ListEntries(ctx, claimID)
	if err != nil {
		return Audit{}, err
	}

	approved := slices.DeleteFunc(entries, func(e Entry) bool { return !e.Aprovado })
	slices.SortStableFunc(approved, byApproval)

	replay := Claim{Saldo: claim.Saldo}
	audit := Audit{ClaimID: claimID, Approved: len(approved)}
	for i := range approved {
		e := approved[i]
		if !e.Applied() {
			audit.Unsnapshotted++
		}
		Apply(&replay, &e)
	}
	audit.Expected = CurrentBalance(replay)
	audit.Actual = CurrentBalance(*claim)

	if audit.Drifted() {
		s.logger.Warn("claim balance drift", "claim_id", claimID, "expected", audit.Expected.StringFixed(2), "actual", audit.Actual.StringFixed(2), "unsnapshotted", audit.Unsnapshotted)
	}
	return audit, nil
}

// byApproval orders entries by approval date; undated entries sort last.
func byApproval(a, b Entry) int {
	switch {
	case a.DataAprovacao == nil && b.DataAprovacao == nil:
		return 0
	case a.DataAprovacao == nil:
		return 1
	case b.DataAprovacao == nil:
		return -1
	}
	return a.DataAprovacao.Compare(*b.DataAprovacao)
}
