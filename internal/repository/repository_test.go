package repository

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestDB opens a migrated in-memory SQLite database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, testLogger()) })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func createEmpresa(t *testing.T, db *DB, cnpj string) *entity.Empresa {
	t.Helper()
	e := &entity.Empresa{CNPJ: cnpj, RazaoSocial: "Empresa " + cnpj}
	require.NoError(t, NewEmpresaRepository(db, testLogger()).Create(context.Background(), e))
	return e
}

func createClaim(t *testing.T, db *DB, empresa *entity.Empresa, saldo string) *ledger.Claim {
	t.Helper()
	c := &ledger.Claim{Perdcomp: uuid.NewString()[:18], Saldo: dec(saldo)}
	if empresa != nil {
		c.ClienteID = &empresa.ID
	}
	require.NoError(t, NewClaimRepository(db, testLogger()).Create(context.Background(), c))
	return c
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	current, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	latest, err := db.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, current)
	assert.False(t, db.Postgres())
	require.NoError(t, HealthCheck(ctx, db, time.Second, testLogger()))
}

func TestEmpresaRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewEmpresaRepository(db, testLogger())
	a := createEmpresa(t, db, "12345678000195")
	createEmpresa(t, db, "11222333000181")

	got, err := repo.GetByCNPJ(ctx, "12345678000195")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.List(tenant.WithAccess(ctx, tenant.Restricted(a.ID)))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)
}

func TestClaimRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewClaimRepository(db, testLogger())

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	c := &ledger.Claim{Perdcomp: "12345.67890.123456.1.2.01-1234", Saldo: dec("1234.56"), DataInicio: &start}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetClaim(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Perdcomp, got.Perdcomp)
	assert.True(t, dec("1234.56").Equal(*got.Saldo))
	assert.Nil(t, got.SaldoAtual)
	assert.Nil(t, got.ClienteID)
	require.NotNil(t, got.DataInicio)
	assert.True(t, start.Equal(*got.DataInicio))

	found, err := repo.FindByPerdcomp(ctx, c.Perdcomp)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids)
}

func TestLedgerOverSQLite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	claims := NewClaimRepository(db, testLogger())
	svc := ledger.NewService(claims, testLogger())
	c := createClaim(t, db, nil, "100")

	credit := &ledger.Entry{ClaimID: c.ID, Sinal: constants.Credito, Valor: *dec("50"), Aprovado: true}
	require.NoError(t, svc.Create(ctx, credit))
	debit := &ledger.Entry{ClaimID: c.ID, Sinal: constants.Debito, Valor: *dec("30"), Observacao: "compensação"}
	require.NoError(t, svc.Create(ctx, debit))

	approve := *debit
	approve.Aprovado = true
	require.NoError(t, svc.Update(ctx, &approve))

	got, err := claims.GetClaim(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", got.SaldoAtual.StringFixed(2))

	entries, err := claims.ListEntries(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, credit.ID, entries[0].ID)
	assert.Equal(t, "150.00", entries[0].SaldoRestante.StringFixed(2))
	assert.Equal(t, "120.00", entries[1].SaldoRestante.StringFixed(2))
	assert.Equal(t, "compensação", entries[1].Observacao)
	assert.NotNil(t, entries[1].DataAprovacao)
	assert.Equal(t, constants.TipoGerado, entries[1].Tipo)

	// overdraft leaves both rows untouched
	err = svc.Create(ctx, &ledger.Entry{ClaimID: c.ID, Sinal: constants.Debito, Valor: *dec("120.01"), Aprovado: true})
	assert.ErrorIs(t, err, common.ErrValidation)
	entries, _ = claims.ListEntries(ctx, c.ID)
	assert.Len(t, entries, 2)

	edit := entries[1]
	edit.Valor = *dec("1")
	assert.ErrorIs(t, svc.Update(ctx, &edit), common.ErrValidation)

	note := entries[1]
	note.ObservacaoAprovacao = "conferido"
	require.NoError(t, svc.Update(ctx, &note))

	audit, err := svc.Recalculate(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, audit.Drifted())
	assert.Equal(t, "120.00", audit.Actual.StringFixed(2))
}

func TestWithClaimLockRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	claims := NewClaimRepository(db, testLogger())
	c := createClaim(t, db, nil, "10")

	err := claims.WithClaimLock(ctx, c.ID, func(ctx context.Context, claim *ledger.Claim, tx ledger.Tx) error {
		require.NoError(t, tx.UpdateClaimBalance(ctx, claim.ID, *dec("999")))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := claims.GetClaim(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SaldoAtual)

	err = claims.WithClaimLock(ctx, uuid.New(), func(context.Context, *ledger.Claim, ledger.Tx) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTenantScopedListings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	claims := NewClaimRepository(db, testLogger())
	entries := NewEntryRepository(db, testLogger())
	svc := ledger.NewService(claims, testLogger())

	a := createEmpresa(t, db, "12345678000195")
	b := createEmpresa(t, db, "11222333000181")
	ca := createClaim(t, db, a, "100")
	cb := createClaim(t, db, b, "100")
	orphan := createClaim(t, db, nil, "100")
	for _, c := range []*ledger.Claim{ca, cb, orphan} {
		require.NoError(t, svc.Create(ctx, &ledger.Entry{ClaimID: c.ID, Sinal: constants.Credito, Valor: *dec("1")}))
	}

	all, err := claims.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyA := tenant.WithAccess(ctx, tenant.Restricted(a.ID))
	mine, err := claims.List(onlyA)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, ca.ID, mine[0].ID)

	es, err := entries.List(onlyA, EntryFilter{})
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, ca.ID, es[0].ClaimID)

	none, err := entries.List(tenant.WithAccess(ctx, tenant.Restricted()), EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	approved := false
	es, err = entries.List(ctx, EntryFilter{ClaimID: &cb.ID, Aprovado: &approved})
	require.NoError(t, err)
	assert.Len(t, es, 1)
}

func TestDocumentUpsertByHash(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db, testLogger())

	sum := sha256.Sum256([]byte("pdf bytes"))
	doc := &entity.Document{
		SourcePath: "/in/a.pdf", Filename: "a.pdf", FileExt: "pdf", FileSize: 9,
		ContentHash: sum[:], UploadedAt: time.Now().UTC(),
	}
	first, dedup, err := repo.UpsertByHash(ctx, doc)
	require.NoError(t, err)
	assert.False(t, dedup)

	again := *doc
	again.ID = uuid.Nil
	again.SourcePath = "/in/copy.pdf"
	second, dedup, err := repo.UpsertByHash(ctx, &again)
	require.NoError(t, err)
	assert.True(t, dedup)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "/in/a.pdf", second.SourcePath)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExtractJobLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	docs := NewDocumentRepository(db, testLogger())
	jobs := NewExtractJobRepository(db, testLogger())

	sum := sha256.Sum256([]byte("x"))
	doc := &entity.Document{SourcePath: "/x.pdf", Filename: "x.pdf", FileExt: "pdf", ContentHash: sum[:], UploadedAt: time.Now().UTC()}
	require.NoError(t, docs.Create(ctx, doc))

	job, err := jobs.Start(ctx, doc.ID, constants.PDF)
	require.NoError(t, err)
	require.NoError(t, jobs.FinishOCRSuccess(ctx, job.ID, OCRResult{Text: "texto", Source: constants.TextSourceNative, Pages: 2, Confidence: 0.8}))

	record, _ := json.Marshal(map[string]any{"perdcomp": "x"})
	require.NoError(t, jobs.FinishParsed(ctx, job.ID, "ressarcimento", record, true))

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusParsed, got.Status)
	assert.Equal(t, constants.TextSourceNative, got.TextSource)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, "texto", *got.OCRText)
	assert.True(t, got.NeedsReview)
	assert.True(t, got.Record.Valid)
	assert.JSONEq(t, `{"perdcomp":"x"}`, string(got.Record.JSONText))
	assert.NotNil(t, got.FinishedAt)

	failed, err := jobs.Start(ctx, doc.ID, constants.PDF)
	require.NoError(t, err)
	require.NoError(t, jobs.FinishFailure(ctx, failed.ID, "boom"))

	list, err := jobs.List(ctx, constants.JobStatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "boom", *list[0].ErrorMessage)
	assert.False(t, list[0].Record.Valid)

	byDoc, err := jobs.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	assert.ErrorIs(t, jobs.FinishFailure(ctx, uuid.New(), "x"), common.ErrNotFound)
}
