package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

const ressarcimentoText = `PER/DCOMP 8.3
PEDIDO DE RESSARCIMENTO OU RESTITUIÇÃO
CNPJ 12.345.678/0001-95 12345.67890.123456.1.2.01-1234
Dados Iniciais
Tipo de Documento: Pedido de Ressarcimento
Tipo de Crédito: IPI
Data de Criação: 15/03/2024
Ano 2023
3º Trimestre
Valor do Pedido de Ressarcimento
R$ 1.234.567,89
`

const compensacaoText = "DECLARAÇÃO DE COMPENSAÇÃO\r\n" + `CNPJ: 12.345.678/0001-95  98765.43210.654321.1.3.02-5678
Tipo de Documento: Declaração de Compensação
Documento Retificador
Número do PER/DCOMP Retificado: 11111.22222.333333.1.3.02-4444
Tipo de Crédito:	Pagamento Indevido ou a Maior
Data de Criação: 02/04/2024
ORIGEM DO CRÉDITO
Valor Total 50.000,00
CRÉDITO PAGAMENTO INDEVIDO OU A MAIOR
Data de Arrecadação: 20/01/2024
Valor Original do Crédito Inicial: 45.000,00
Valor Total 99.999,99
DÉBITOS
001. Débito IRPJ
Código da Receita/Denominação: 2362-01 - IRPJ - Estimativa Mensal
Período de Apuração: 01/2024
Valor Total: 1.500,00
002. Débito CSLL
Código da Receita/Denominação: 2484-01 - CSLL - Estimativa Mensal
Valor Total: 700,50
3. Débito PIS
Período de Apuração: 02/2024
Total dos Débitos deste Documento: 2.200,50
Total do Crédito Original Utilizado neste Documento: 2.200,50
`

const restituicaoText = `Pedido de Restituição
CNPJ: 12.345.678/0001-95
Nome Empresarial: ACME LTDA
Número do PER/DCOMP: 24680.13579.112233.1.2.04-9999
Data de Criação: 10/05/2024
Data de Arrecadação: 31/01/2024
Código da Receita: 5952
Período de Apuração: 31/12/2023
Valor do Pedido de Restituição: 10.000,00
`

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got *decimal.Decimal) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, dec(want).Equal(*got), "want %s got %s", want, got.String())
}

func TestParseBRL(t *testing.T) {
	cases := map[string]string{
		"1.234,56":         "1234.56",
		"R$ 1.234.567,89":  "1234567.89",
		"0,01":             "0.01",
		" 700,50 ":         "700.50",
		"-2.000,00":        "-2000",
		"1.000.000.000,10": "1000000000.10",
	}
	for in, want := range cases {
		got, ok := ParseBRL(in)
		require.True(t, ok, in)
		assert.True(t, dec(want).Equal(got), "%s -> %s", in, got)
	}

	for _, bad := range []string{"", "R$", "abc", "1,2,3"} {
		_, ok := ParseBRL(bad)
		assert.False(t, ok, bad)
	}
}

func TestFormatBRLRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.05", "12.3", "1234.56", "1000000", "-987654321.10"} {
		d := dec(s)
		back, ok := ParseBRL(FormatBRL(d))
		require.True(t, ok)
		assert.True(t, d.Equal(back), "%s via %s", s, FormatBRL(d))
	}
	assert.Equal(t, "1.000.000,00", FormatBRL(dec("1000000")))
	assert.Equal(t, "-1.234,50", FormatBRL(dec("-1234.5")))
	assert.Equal(t, "999,99", FormatBRL(dec("999.99")))
}

func TestLooksLikePerdcomp(t *testing.T) {
	accept := []string{
		"12345.67890.123456.1.2.01-1234",
		"24680.13579.112233.1.2.04-9999",
		"1A2B3.C4D5E-6F7G8.9",
	}
	reject := []string{
		"12.345.678/0001-95",       // CNPJ
		"01/02/2024",               // date
		"1234.56",                  // decimal
		"12345678901234567",        // no separators
		"perdcomp.12345.6789-01",   // label prefix
		"123.45",                   // short
		"abcde.fghij.klmno-pqrst",  // no digits
		"12345.678901",             // single separator
	}
	for _, s := range accept {
		assert.True(t, LooksLikePerdcomp(s), s)
	}
	for _, s := range reject {
		assert.False(t, LooksLikePerdcomp(s), s)
	}
}

func TestParseRessarcimento(t *testing.T) {
	p := ParseRessarcimento(ressarcimentoText)

	require.NotNil(t, p.CNPJ)
	assert.Equal(t, "12345678000195", *p.CNPJ)
	require.NotNil(t, p.Perdcomp)
	assert.Equal(t, "12345.67890.123456.1.2.01-1234", *p.Perdcomp)
	assert.Nil(t, p.PerdcompInicial)
	assert.Nil(t, p.PerdcompRetificador)
	assert.False(t, p.IsRetificador)

	require.NotNil(t, p.MetodoCredito)
	assert.Equal(t, constants.PedidoRessarcimento, *p.MetodoCredito)
	require.NotNil(t, p.DataCriacao)
	assert.Equal(t, "15/03/2024", p.DataCriacao.String())
	assertMoney(t, "1234567.89", p.ValorPedido)
	assert.Equal(t, "2023", *p.Ano)
	assert.Equal(t, "3", *p.Trimestre)
	assert.Equal(t, "IPI", *p.TipoCredito)
	assert.Empty(t, p.Debitos)
}

func TestParseDeclaracaoCompensacao_Amendment(t *testing.T) {
	p := ParseDeclaracaoCompensacao(compensacaoText)

	require.NotNil(t, p.PerdcompInicial)
	assert.Equal(t, "11111.22222.333333.1.3.02-4444", *p.PerdcompInicial)
	require.NotNil(t, p.Perdcomp)
	assert.Equal(t, "98765.43210.654321.1.3.02-5678", *p.Perdcomp)
	assert.True(t, p.IsRetificador)
	require.NotNil(t, p.PerdcompRetificador)
	assert.Equal(t, *p.Perdcomp, *p.PerdcompRetificador)

	assert.Equal(t, constants.DeclaracaoCompensacaoPagto, *p.MetodoCredito)
	assert.Equal(t, "Pagamento Indevido ou a Maior", *p.TipoCredito)
	assert.Equal(t, "02/04/2024", p.DataCriacao.String())
	assert.Equal(t, "20/01/2024", p.DataArrecadacao.String())
	assertMoney(t, "45000.00", p.ValorOriginalCreditoInicial)
	// the second "Valor Total" lies outside ORIGEM DO CRÉDITO
	assertMoney(t, "50000.00", p.ValorTotalOrigem)
	assertMoney(t, "2200.50", p.TotalDebitosDocumento)
	assertMoney(t, "2200.50", p.TotalCreditoOriginalUtilizado)
}

func TestParseDeclaracaoCompensacao_DebitBlocks(t *testing.T) {
	p := ParseDeclaracaoCompensacao(compensacaoText)
	require.Len(t, p.Debitos, 3)

	d1, d2, d3 := p.Debitos[0], p.Debitos[1], p.Debitos[2]
	assert.Equal(t, "001", d1.Item)
	assert.Equal(t, "2362-01 - IRPJ - Estimativa Mensal", *d1.CodigoReceitaDenominacao)
	assert.Equal(t, "01/2024", *d1.PeriodoApuracao)
	assertMoney(t, "1500.00", d1.Valor)

	assert.Equal(t, "002", d2.Item)
	assert.Equal(t, "2484-01 - CSLL - Estimativa Mensal", *d2.CodigoReceitaDenominacao)
	assert.Nil(t, d2.PeriodoApuracao)
	assertMoney(t, "700.50", d2.Valor)

	assert.Equal(t, "003", d3.Item)
	assert.Nil(t, d3.CodigoReceitaDenominacao)
	assert.Equal(t, "02/2024", *d3.PeriodoApuracao)
	assert.Nil(t, d3.Valor)
}

func TestParseRessarcimento_CompensationGetsDebits(t *testing.T) {
	p := ParseRessarcimento(compensacaoText)
	assert.Len(t, p.Debitos, 3)
	assertMoney(t, "50000.00", p.ValorTotalOrigem)
	assert.Nil(t, p.CodigoReceita)
}

func TestParsePedidoCredito_Restituicao(t *testing.T) {
	p := ParsePedidoCredito(restituicaoText)

	assert.Equal(t, "24680.13579.112233.1.2.04-9999", *p.Perdcomp)
	assert.False(t, p.IsRetificador)
	assert.Equal(t, constants.PedidoRestituicao, *p.MetodoCredito)
	assert.Equal(t, "31/01/2024", p.DataArrecadacao.String())
	assert.Equal(t, "5952", *p.CodigoReceita)
	assert.Equal(t, "31/12/2023", *p.PeriodoApuracao)
	assertMoney(t, "10000.00", p.ValorPedido)
	assert.Nil(t, p.Ano)
}

func TestParsePedidoCredito_Ressarcimento(t *testing.T) {
	p := ParsePedidoCredito(ressarcimentoText)

	assert.Equal(t, constants.PedidoRessarcimento, *p.MetodoCredito)
	assert.Equal(t, "2023", *p.Ano)
	assert.Equal(t, "3", *p.Trimestre)
	assert.Nil(t, p.DataArrecadacao)
	assert.Nil(t, p.CodigoReceita)
}

func TestSingleIdentifierFallback(t *testing.T) {
	txt := "PERDCOMP 8.3\nComprovante 13579.24680.000111.1.1.01-0001 emitido em 01/02/2024\nValor 1.234.567,89"
	p := ParseRessarcimento(txt)

	require.NotNil(t, p.Perdcomp)
	assert.Equal(t, "13579.24680.000111.1.1.01-0001", *p.Perdcomp)
	assert.False(t, p.IsRetificador)
	assert.Nil(t, p.PerdcompInicial)
}

func TestRetificadorKeywordAlone(t *testing.T) {
	txt := "Declaração RETIFICADORA\nPER/DCOMP: 13579.24680.000111.1.1.01-0001"
	p := ParseRessarcimento(txt)
	assert.True(t, p.IsRetificador)
	assert.Nil(t, p.PerdcompInicial)
	require.NotNil(t, p.PerdcompRetificador)
}

func TestInitialEqualToCurrentIsNotReused(t *testing.T) {
	txt := "PER/DCOMP Inicial: 11111.22222.333333.1.3.02-4444\nPER/DCOMP: 11111.22222.333333.1.3.02-4444"
	p := ParseDeclaracaoCompensacao(txt)
	require.NotNil(t, p.PerdcompInicial)
	assert.Nil(t, p.Perdcomp)
	assert.False(t, p.IsRetificador)
}

func TestAdversarialInputDegrades(t *testing.T) {
	for _, txt := range []string{"", "   ", "\x00\xff garbage 1/2/3", "Valor do Pedido sem valor", "1. Débito"} {
		assert.NotPanics(t, func() {
			for _, mode := range []Mode{ModeRessarcimento, ModeDeclaracaoCompensacao, ModePedidoCredito} {
				_ = Parse(mode, txt)
			}
		})
	}
	p := ParseRessarcimento("")
	assert.Nil(t, p.CNPJ)
	assert.Nil(t, p.Perdcomp)
	assert.Empty(t, p.Debitos)
}

func TestInvalidDateIsDropped(t *testing.T) {
	p := ParseRessarcimento("Data de Criação: 31/02/2024")
	assert.Nil(t, p.DataCriacao)
}

func TestDetectMode(t *testing.T) {
	assert.Equal(t, ModeDeclaracaoCompensacao, DetectMode(compensacaoText))
	assert.Equal(t, ModePedidoCredito, DetectMode(restituicaoText))
	assert.Equal(t, ModeRessarcimento, DetectMode("texto qualquer"))

	m, err := ParseMode("AUTO")
	require.NoError(t, err)
	assert.Equal(t, Mode(""), m)
	_, err = ParseMode("nope")
	assert.Error(t, err)
}

func TestSectionBounds(t *testing.T) {
	txt := "intro\nORIGEM DO CRÉDITO extra\nValor Total 1,00\nOUTRA SEÇÃO\nValor Total 2,00"
	assert.Equal(t, "ORIGEM DO CRÉDITO extra\nValor Total 1,00\n", section(reOrigemHeader, txt))
	assert.Equal(t, "", section(reOrigemHeader, "sem cabeçalho"))

	tail := "ORIGEM DO CRÉDITO\nValor Total 3,00"
	assert.Equal(t, tail, section(reOrigemHeader, tail))
}

func TestValidateCNPJ(t *testing.T) {
	assert.NoError(t, ValidateCNPJ("12.345.678/0001-95"))
	assert.NoError(t, ValidateCNPJ("12.ABC.345/01DE-35"))
	assert.Error(t, ValidateCNPJ("12.345.678/0001-96"))
	assert.Error(t, ValidateCNPJ("11.111.111/1111-11"))
	assert.Error(t, ValidateCNPJ("123"))
	assert.Error(t, ValidateCNPJ("12.ABC.345/01DE-3X"))
}

func TestRecordValidatesAgainstSchema(t *testing.T) {
	rec := ParseDeclaracaoCompensacao(compensacaoText).Record()

	assert.Equal(t, "45000.00", rec["valor_original_credito_inicial"])
	assert.Equal(t, "20/01/2024", rec["data_arrecadacao"])
	assert.Nil(t, rec["valor_pedido"])
	require.NoError(t, ValidateRecord(rec))

	empty := ParsedClaim{}.Record()
	require.NoError(t, ValidateRecord(empty))

	rec["valor_pedido"] = "12,50"
	assert.Error(t, ValidateRecord(rec))
}
