package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
)

const msgImmutable = "only approval fields may change after creation"

// ValidateClaim checks a claim before it is first stored.
func ValidateClaim(c Claim) error {
	v := common.NewValidator()
	v.Field("perdcomp", c.Perdcomp, common.Required, common.MaxLength(64))
	v.Field("saldo", c.Saldo, common.NonNegative)
	v.Field("saldo_atual", c.SaldoAtual, common.NonNegative)
	return v.Error()
}

// ValidateEntry checks the payload of a new entry.
func ValidateEntry(e Entry) error {
	v := common.NewValidator()
	v.Field("adesao", e.ClaimID, common.Required)
	v.Field("valor", e.Valor, common.NonNegative)
	v.Field("sinal", string(e.Sinal), common.OneOf(string(constants.Credito), string(constants.Debito)))
	if !e.Tipo.Valid() {
		v.Add("tipo", e.Tipo, "unknown entry type")
	}
	v.Field("observacao", e.Observacao, common.MaxLength(1000))
	v.Field("observacao_aprovacao", e.ObservacaoAprovacao, common.MaxLength(1000))
	return v.Error()
}

// Clean validates e against claim before it is saved and manages the
// approval date: approving without a date stamps now, and an unapproved
// entry never keeps one. A debit that has not been applied yet must not
// overdraw the claim.
func Clean(claim Claim, e *Entry, now time.Time) error {
	v := common.NewValidator()
	if !e.Aprovado && e.DataAprovacao != nil {
		v.Add("data_aprovacao", e.DataAprovacao.Format(time.RFC3339), "must be empty while the entry is not approved")
	}
	if e.Aprovado && e.Sinal == constants.Debito && !e.Applied() {
		balance := CurrentBalance(claim)
		if balance.Sub(e.Valor).IsNegative() {
			v.Add("valor", e.Valor.StringFixed(2), fmt.Sprintf(
				"insufficient balance: current balance %s, attempted debit %s",
				balance.StringFixed(2), e.Valor.StringFixed(2)))
		}
	}
	if err := v.Error(); err != nil {
		return err
	}

	switch {
	case e.Aprovado && e.DataAprovacao == nil:
		t := now
		e.DataAprovacao = &t
	case !e.Aprovado:
		e.DataAprovacao = nil
	}
	return nil
}

// CheckUpdate enforces the transition rule between the stored entry and a
// proposed version: only the approval fields may differ and an approved
// entry stays approved.
func CheckUpdate(stored, proposed Entry) error {
	v := common.NewValidator()
	if proposed.ClaimID != stored.ClaimID {
		v.Add("adesao", proposed.ClaimID, msgImmutable)
	}
	if !proposed.Valor.Equal(stored.Valor) {
		v.Add("valor", proposed.Valor.StringFixed(2), msgImmutable)
	}
	if proposed.Sinal != stored.Sinal {
		v.Add("sinal", proposed.Sinal, msgImmutable)
	}
	if proposed.Tipo != stored.Tipo {
		v.Add("tipo", proposed.Tipo, msgImmutable)
	}
	if !proposed.DataLancamento.Equal(stored.DataLancamento) {
		v.Add("data_lancamento", proposed.DataLancamento, msgImmutable)
	}
	if proposed.Observacao != stored.Observacao {
		v.Add("observacao", proposed.Observacao, msgImmutable)
	}
	if stored.Aprovado && !proposed.Aprovado {
		v.Add("aprovado", proposed.Aprovado, "an approved entry cannot be unapproved")
	}
	return v.Error()
}

// Apply moves the claim balance by e and records the result as the entry's
// snapshot. A debit never takes the balance below zero.
func Apply(claim *Claim, e *Entry) {
	balance := CurrentBalance(*claim)
	switch e.Sinal {
	case constants.Debito:
		balance = balance.Sub(e.Valor)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
	case constants.Credito:
		balance = balance.Add(e.Valor)
	}
	current, snapshot := balance, balance
	claim.SaldoAtual = &current
	e.SaldoRestante = &snapshot
}
