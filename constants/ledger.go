package constants

// Sinal is the direction of a ledger entry.
type Sinal string

const (
	Credito Sinal = "+"
	Debito  Sinal = "-"
)

func (s Sinal) Valid() bool { return s == Credito || s == Debito }

// TipoLancamento is the origin of a ledger entry.
type TipoLancamento string

const (
	TipoGerado   TipoLancamento = "Gerado"
	TipoCorrecao TipoLancamento = "Correção"
	TipoEcac     TipoLancamento = "Originado no Ecac"
)

func (t TipoLancamento) Valid() bool {
	switch t {
	case "", TipoGerado, TipoCorrecao, TipoEcac:
		return true
	}
	return false
}
