package constants

import (
	"strings"
)

// MetodoCredito is the claim method a PERDCOMP document declares.
type MetodoCredito string

const (
	PedidoRessarcimento        MetodoCredito = "Pedido de ressarcimento"
	PedidoRestituicao          MetodoCredito = "Pedido de restituição"
	DeclaracaoCompensacaoPagto MetodoCredito = "Declaração de compensação pagamento indevido"
)

// CanonicalizeMetodo maps a free-form "Tipo de Documento" value onto a known method.
// Unknown values are returned verbatim with ok=false.
func CanonicalizeMetodo(raw string) (MetodoCredito, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(low, "ressarc"):
		return PedidoRessarcimento, true
	case strings.Contains(low, "restitui"):
		return PedidoRestituicao, true
	case strings.Contains(low, "compensa"):
		return DeclaracaoCompensacaoPagto, true
	}
	return MetodoCredito(raw), false
}
