package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
)

// memStore keeps committed state in maps and buffers a transaction's writes
// until fn returns. It does not serialise transactions itself.
type memStore struct {
	mu         sync.Mutex
	claims     map[uuid.UUID]Claim
	entries    map[uuid.UUID]Entry
	order      []uuid.UUID
	failInsert error
}

func newMemStore(claims ...Claim) *memStore {
	s := &memStore{claims: map[uuid.UUID]Claim{}, entries: map[uuid.UUID]Entry{}}
	for _, c := range claims {
		s.claims[c.ID] = c
	}
	return s
}

type memTx struct {
	store    *memStore
	inserts  []Entry
	updates  map[uuid.UUID]Entry
	balances map[uuid.UUID]decimal.Decimal
}

func (s *memStore) WithClaimLock(ctx context.Context, claimID uuid.UUID, fn func(context.Context, *Claim, Tx) error) error {
	s.mu.Lock()
	c, ok := s.claims[claimID]
	s.mu.Unlock()
	if !ok {
		return common.ErrNotFound
	}
	tx := &memTx{store: s, updates: map[uuid.UUID]Entry{}, balances: map[uuid.UUID]decimal.Decimal{}}
	if err := fn(ctx, &c, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.inserts {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	for id, e := range tx.updates {
		s.entries[id] = e
	}
	for id, b := range tx.balances {
		claim := s.claims[id]
		bal := b
		claim.SaldoAtual = &bal
		s.claims[id] = claim
	}
	return nil
}

func (s *memStore) GetClaim(_ context.Context, id uuid.UUID) (*Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) GetEntry(_ context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (s *memStore) ListEntries(_ context.Context, claimID uuid.UUID) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, id := range s.order {
		if e := s.entries[id]; e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) balance(id uuid.UUID) *decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims[id].SaldoAtual
}

func (s *memStore) snapshots(claimID uuid.UUID) []string {
	entries, _ := s.ListEntries(context.Background(), claimID)
	var out []string
	for _, e := range entries {
		if e.SaldoRestante != nil {
			out = append(out, e.SaldoRestante.StringFixed(2))
		}
	}
	sort.Strings(out)
	return out
}

func (t *memTx) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	if e, ok := t.updates[id]; ok {
		return &e, nil
	}
	return t.store.GetEntry(ctx, id)
}

func (t *memTx) InsertEntry(_ context.Context, e *Entry) error {
	if t.store.failInsert != nil {
		return t.store.failInsert
	}
	t.inserts = append(t.inserts, *e)
	return nil
}

func (t *memTx) SaveApproval(ctx context.Context, e *Entry) error {
	if _, err := t.store.GetEntry(ctx, e.ID); err != nil {
		return errors.New("entry not found")
	}
	t.updates[e.ID] = *e
	return nil
}

func (t *memTx) UpdateClaimBalance(_ context.Context, claimID uuid.UUID, saldoAtual decimal.Decimal) error {
	t.balances[claimID] = saldoAtual
	return nil
}
