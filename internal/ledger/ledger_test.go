package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func newClaim(saldo string) Claim {
	c := Claim{ID: uuid.New(), Perdcomp: "12345.67890.123456.1.2.01-1234"}
	if saldo != "" {
		c.Saldo = dp(saldo)
	}
	return c
}

func newTestService(claims ...Claim) (*Service, *memStore) {
	store := newMemStore(claims...)
	return NewService(store, nil, WithClock(func() time.Time { return fixedNow })), store
}

func entry(claimID uuid.UUID, sinal constants.Sinal, valor string, aprovado bool) *Entry {
	return &Entry{ClaimID: claimID, Sinal: sinal, Valor: d(valor), Aprovado: aprovado}
}

func TestApplySequence(t *testing.T) {
	c := newClaim("100")
	credit := Entry{Sinal: constants.Credito, Valor: d("50")}
	debit := Entry{Sinal: constants.Debito, Valor: d("30")}

	Apply(&c, &credit)
	assert.Equal(t, "150.00", credit.SaldoRestante.StringFixed(2))
	Apply(&c, &debit)
	assert.Equal(t, "120.00", debit.SaldoRestante.StringFixed(2))
	assert.True(t, d("120").Equal(*c.SaldoAtual))
}

func TestApplyClampsAtZero(t *testing.T) {
	c := newClaim("10")
	e := Entry{Sinal: constants.Debito, Valor: d("25.50")}
	Apply(&c, &e)
	assert.True(t, c.SaldoAtual.IsZero())
	assert.True(t, e.SaldoRestante.IsZero())
}

func TestApplyWithoutGrantedValue(t *testing.T) {
	c := newClaim("")
	e := Entry{Sinal: constants.Credito, Valor: d("7.25")}
	Apply(&c, &e)
	assert.Equal(t, "7.25", c.SaldoAtual.StringFixed(2))
}

func TestCleanRejectsOverdraft(t *testing.T) {
	c := newClaim("100")
	c.SaldoAtual = dp("20")
	e := &Entry{Sinal: constants.Debito, Valor: d("20.01"), Aprovado: true}

	err := Clean(c, e, fixedNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "valor", common.FieldOf(err))
	assert.Contains(t, err.Error(), "20.00")
	assert.Contains(t, err.Error(), "20.01")
	assert.Nil(t, e.DataAprovacao)

	e.Valor = d("20")
	require.NoError(t, Clean(c, e, fixedNow))
}

func TestCleanSkipsAppliedDebit(t *testing.T) {
	c := newClaim("0")
	e := &Entry{Sinal: constants.Debito, Valor: d("50"), Aprovado: true, SaldoRestante: dp("0")}
	assert.NoError(t, Clean(c, e, fixedNow))
}

func TestCleanApprovalDate(t *testing.T) {
	c := newClaim("100")

	e := &Entry{Sinal: constants.Credito, Valor: d("1"), Aprovado: true}
	require.NoError(t, Clean(c, e, fixedNow))
	require.NotNil(t, e.DataAprovacao)
	assert.Equal(t, fixedNow, *e.DataAprovacao)

	when := fixedNow.Add(-time.Hour)
	e = &Entry{Sinal: constants.Credito, Valor: d("1"), Aprovado: true, DataAprovacao: &when}
	require.NoError(t, Clean(c, e, fixedNow))
	assert.Equal(t, when, *e.DataAprovacao)

	e = &Entry{Sinal: constants.Credito, Valor: d("1"), DataAprovacao: &when}
	err := Clean(c, e, fixedNow)
	require.Error(t, err)
	assert.Equal(t, "data_aprovacao", common.FieldOf(err))
}

func TestCheckUpdate(t *testing.T) {
	stored := Entry{
		ID: uuid.New(), ClaimID: uuid.New(), Valor: d("10"), Sinal: constants.Credito,
		Tipo: constants.TipoGerado, DataLancamento: fixedNow, Observacao: "x",
	}

	approve := stored
	approve.Aprovado = true
	approve.ObservacaoAprovacao = "ok"
	assert.NoError(t, CheckUpdate(stored, approve))

	changed := approve
	changed.Valor = d("11")
	err := CheckUpdate(stored, changed)
	require.Error(t, err)
	assert.Equal(t, "valor", common.FieldOf(err))
	assert.Contains(t, err.Error(), "only approval fields may change")

	changed = approve
	changed.Observacao = "y"
	changed.Sinal = constants.Debito
	var ves common.ValidationErrors
	require.True(t, errors.As(CheckUpdate(stored, changed), &ves))
	assert.Len(t, ves, 2)

	unapprove := stored
	stored.Aprovado = true
	err = CheckUpdate(stored, unapprove)
	require.Error(t, err)
	assert.Equal(t, "aprovado", common.FieldOf(err))
}

func TestValidateEntry(t *testing.T) {
	err := ValidateEntry(Entry{Sinal: "*", Valor: d("-1"), Tipo: "Outro"})
	var ves common.ValidationErrors
	require.True(t, errors.As(err, &ves))
	fields := map[string]bool{}
	for _, ve := range ves {
		fields[ve.Field] = true
	}
	assert.Equal(t, map[string]bool{"adesao": true, "valor": true, "sinal": true, "tipo": true}, fields)

	assert.NoError(t, ValidateEntry(*entry(uuid.New(), constants.Debito, "0", false)))
}

func TestValidateClaim(t *testing.T) {
	assert.NoError(t, ValidateClaim(newClaim("10")))
	c := newClaim("-1")
	c.Perdcomp = " "
	assert.ErrorIs(t, ValidateClaim(c), common.ErrValidation)
}

func TestServiceCreateApproved(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	credit := entry(c.ID, constants.Credito, "50", true)
	require.NoError(t, svc.Create(ctx, credit))
	debit := entry(c.ID, constants.Debito, "30", true)
	require.NoError(t, svc.Create(ctx, debit))

	assert.Equal(t, "120.00", store.balance(c.ID).StringFixed(2))
	saved, err := store.GetEntry(ctx, debit.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", saved.SaldoRestante.StringFixed(2))
	assert.Equal(t, fixedNow, *saved.DataAprovacao)
	assert.Equal(t, constants.TipoGerado, saved.Tipo)
}

func TestServiceCreateDeferred(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	e := entry(c.ID, constants.Debito, "40", false)
	require.NoError(t, svc.Create(ctx, e))
	assert.Nil(t, store.balance(c.ID))

	saved, _ := store.GetEntry(ctx, e.ID)
	assert.Nil(t, saved.SaldoRestante)
	assert.Nil(t, saved.DataAprovacao)
}

func TestServiceCreateOverdraftPersistsNothing(t *testing.T) {
	c := newClaim("10")
	svc, store := newTestService(c)
	ctx := context.Background()

	err := svc.Create(ctx, entry(c.ID, constants.Debito, "10.01", true))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Nil(t, store.balance(c.ID))
	entries, _ := store.ListEntries(ctx, c.ID)
	assert.Empty(t, entries)
}

func TestServiceCreateRollsBackOnWriteFailure(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	store.failInsert = errors.New("disk full")

	err := svc.Create(context.Background(), entry(c.ID, constants.Credito, "5", true))
	require.Error(t, err)
	assert.Nil(t, store.balance(c.ID))
}

func TestServiceUpdateAppliesOnce(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	e := entry(c.ID, constants.Debito, "30", false)
	require.NoError(t, svc.Create(ctx, e))

	approve := *e
	approve.Aprovado = true
	approve.ObservacaoAprovacao = "conferido"
	require.NoError(t, svc.Update(ctx, &approve))
	assert.Equal(t, "70.00", store.balance(c.ID).StringFixed(2))
	assert.Equal(t, "70.00", approve.SaldoRestante.StringFixed(2))

	// a second save of the approved entry must not debit again
	again := approve
	again.ObservacaoAprovacao = "revisado"
	require.NoError(t, svc.Update(ctx, &again))
	assert.Equal(t, "70.00", store.balance(c.ID).StringFixed(2))

	saved, _ := store.GetEntry(ctx, e.ID)
	assert.Equal(t, "revisado", saved.ObservacaoAprovacao)
	assert.Equal(t, "70.00", saved.SaldoRestante.StringFixed(2))
}

func TestServiceUpdateRejectsPayloadChange(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	e := entry(c.ID, constants.Credito, "30", false)
	require.NoError(t, svc.Create(ctx, e))

	edit := *e
	edit.Valor = d("300")
	edit.Aprovado = true
	err := svc.Update(ctx, &edit)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Nil(t, store.balance(c.ID))

	saved, _ := store.GetEntry(ctx, e.ID)
	assert.False(t, saved.Aprovado)
	assert.True(t, d("30").Equal(saved.Valor))
}

func TestServiceUpdateRejectsUnapproval(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	e := entry(c.ID, constants.Credito, "30", true)
	require.NoError(t, svc.Create(ctx, e))

	undo := *e
	undo.Aprovado = false
	undo.DataAprovacao = nil
	err := svc.Update(ctx, &undo)
	assert.Equal(t, "aprovado", common.FieldOf(err))
	assert.Equal(t, "130.00", store.balance(c.ID).StringFixed(2))
}

func TestServiceUpdateUnknownEntry(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Update(context.Background(), &Entry{ID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConcurrentApprovalsNeverOverdraw(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Create(ctx, entry(c.ID, constants.Debito, "10", true))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, common.ErrValidation)
		}
	}
	assert.Equal(t, 10, ok)
	assert.True(t, store.balance(c.ID).IsZero())
	assert.Equal(t, []string{"0.00", "10.00", "20.00", "30.00", "40.00", "50.00", "60.00", "70.00", "80.00", "90.00"}, store.snapshots(c.ID))
	assert.Zero(t, svc.locks.Len())
}

func TestRecalculate(t *testing.T) {
	c := newClaim("100")
	svc, store := newTestService(c)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, entry(c.ID, constants.Credito, "50", true)))
	require.NoError(t, svc.Create(ctx, entry(c.ID, constants.Debito, "30", true)))
	require.NoError(t, svc.Create(ctx, entry(c.ID, constants.Debito, "500", false)))

	audit, err := svc.Recalculate(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, audit.Drifted())
	assert.Equal(t, 2, audit.Approved)
	assert.Equal(t, "120.00", audit.Expected.StringFixed(2))

	store.mu.Lock()
	tampered := store.claims[c.ID]
	tampered.SaldoAtual = dp("125")
	store.claims[c.ID] = tampered
	store.mu.Unlock()

	audit, err = svc.Recalculate(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, audit.Drifted())
	assert.Equal(t, "5.00", audit.Drift().StringFixed(2))
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km KeyedMutex
	a, b := uuid.New(), uuid.New()

	unlockA := km.Lock(a)
	done := make(chan struct{})
	go func() {
		unlock := km.Lock(b)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}

	acquired := make(chan struct{})
	go func() {
		unlock := km.Lock(a)
		close(acquired)
		unlock()
	}()
	select {
	case <-acquired:
		t.Fatal("same key acquired twice")
	case <-time.After(50 * time.Millisecond):
	}
	unlockA()
	<-acquired
	assert.Eventually(t, func() bool { return km.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRecalculateFollowsApprovalOrder(t *testing.T) {
	c := newClaim("0")
	store := newMemStore(c)
	now := fixedNow
	svc := NewService(store, nil, WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))
	ctx := context.Background()

	debit := entry(c.ID, constants.Debito, "30", false)
	require.NoError(t, svc.Create(ctx, debit))
	require.NoError(t, svc.Create(ctx, entry(c.ID, constants.Credito, "50", true)))

	approve := *debit
	approve.Aprovado = true
	require.NoError(t, svc.Update(ctx, &approve))
	require.Equal(t, "20.00", store.balance(c.ID).StringFixed(2))

	audit, err := svc.Recalculate(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, audit.Drifted())
	assert.Equal(t, "20.00", audit.Expected.StringFixed(2))
	assert.Equal(t, 2, audit.Approved)
}
