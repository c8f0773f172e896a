package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	reDebitoHeader = regexp.MustCompile(`(?im)^[ ]*(\d{1,3})[ ]*[.\-)][ ]*D[eé]bito\b`)

	// tried in order; the first match wins
	reDebitoValor = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Valor\s+Total\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern),
		regexp.MustCompile(`(?i)Valor\s+do\s+D[eé]bito\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern),
		regexp.MustCompile(`(?i)\bPrincipal\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern),
		regexp.MustCompile(`(?i)\bValor\s*[:\-]?\s*(?:R\$\s*)?` + moneyPattern),
	}
)

// debitBlocks splits txt at every "N. Débito" heading; each block runs to
// the next heading or the end of the text. The returned start is the offset
// of the first heading, or len(txt) when there is none.
func debitBlocks(txt string) (blocks []string, items []int, start int) {
	locs := reDebitoHeader.FindAllStringSubmatchIndex(txt, -1)
	if len(locs) == 0 {
		return nil, nil, len(txt)
	}
	for i, loc := range locs {
		end := len(txt)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		n, _ := strconv.Atoi(txt[loc[2]:loc[3]])
		blocks = append(blocks, txt[loc[0]:end])
		items = append(items, n)
	}
	return blocks, items, locs[0][0]
}

// extractDebitos parses each debit block independently, in document order.
// Fields missing from a block stay nil.
func extractDebitos(txt string) []Debito {
	blocks, items, _ := debitBlocks(txt)
	out := make([]Debito, 0, len(blocks))
	for i, b := range blocks {
		out = append(out, Debito{
			Item:                     fmt.Sprintf("%03d", items[i]),
			CodigoReceitaDenominacao: stringField(reCodigoReceita, b),
			PeriodoApuracao:          stringField(rePeriodo, b),
			Valor:                    debitoValor(b),
		})
	}
	return out
}

func debitoValor(block string) *decimal.Decimal {
	for _, re := range reDebitoValor {
		if d := moneyField(re, block); d != nil {
			return d
		}
	}
	return nil
}

// beforeDebitos cuts txt at the first debit heading so document-level labels
// are not read from inside a block.
func beforeDebitos(txt string) string {
	_, _, start := debitBlocks(txt)
	return txt[:start]
}
