// Package ledger keeps each claim's running balance as signed entries are
// approved. Balances never go negative, an entry's payload is fixed at
// creation, and approval is one-way.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

// Claim is a granted tax credit (adesão) whose balance the ledger tracks.
type Claim struct {
	ID         uuid.UUID
	Perdcomp   string
	ClienteID  *uuid.UUID
	DataInicio *time.Time
	// Saldo is the originally granted value.
	Saldo *decimal.Decimal
	// SaldoAtual is unset until the first approved entry.
	SaldoAtual *decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Entry is a signed movement (lançamento) against a claim.
type Entry struct {
	ID             uuid.UUID
	ClaimID        uuid.UUID
	Valor          decimal.Decimal
	Sinal          constants.Sinal
	Tipo           constants.TipoLancamento
	DataLancamento time.Time
	Observacao     string

	Aprovado            bool
	DataAprovacao       *time.Time
	ObservacaoAprovacao string

	// SaldoRestante is the claim balance right after this entry was applied.
	SaldoRestante *decimal.Decimal
	CreatedAt     time.Time
}

// Applied reports whether the balance update already ran for e.
func (e Entry) Applied() bool { return e.SaldoRestante != nil }

// CurrentBalance returns the claim's running balance, falling back to the
// granted value and then to zero.
func CurrentBalance(c Claim) decimal.Decimal {
	switch {
	case c.SaldoAtual != nil:
		return *c.SaldoAtual
	case c.Saldo != nil:
		return *c.Saldo
	default:
		return decimal.Zero
	}
}
