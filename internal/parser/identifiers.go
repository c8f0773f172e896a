package parser

import (
	"regexp"
	"strings"
)

var (
	reSimpleDecimal = regexp.MustCompile(`^\d+[.,]\d{1,2}$`)
	reCandidate     = regexp.MustCompile(`[0-9A-Za-z][0-9A-Za-z._\-]{10,}`)

	reCNPJ = regexp.MustCompile(`(?i)CNPJ(?:\s+d[oa]\s+\pL+)?\s*[:\-]?\s*([0-9A-Za-z]{2}\.?[0-9A-Za-z]{3}\.?[0-9A-Za-z]{3}/?[0-9A-Za-z]{4}-?\d{2})`)
	// CNPJ followed by the filing number on the same line, as printed in receipt headers.
	reCNPJWithPerdcomp = regexp.MustCompile(`(?i)CNPJ\s*[:\-]?\s*[0-9A-Za-z./\-]{14,20}[ ]+([0-9A-Za-z._\-]{8,})`)
	reLabeledPerdcomp  = regexp.MustCompile(`(?i)(?:N[uú]mero\s+(?:do\s+)?)?PER\s*/?\s*DCOMP\s*[:\-]?[ ]*([0-9][0-9A-Za-z._\-]+)`)
	reInicialPerdcomp  = regexp.MustCompile(`(?i)(?:PER\s*/?\s*DCOMP|Declara[cç][aã]o|Pedido|Documento)\s+(?:Inicial|Original|Retificad[oa]\b)\s*[:\-]?\s*([0-9][0-9A-Za-z._\-]+)`)
)

// LooksLikePerdcomp filters identifier candidates so that dates, decimals and
// other numeric tokens in OCR text are not taken for filing numbers.
func LooksLikePerdcomp(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 12 || strings.Contains(s, "/") {
		return false
	}
	if strings.HasPrefix(strings.ToLower(s), "perdcomp") {
		return false
	}
	if reSimpleDecimal.MatchString(s) {
		return false
	}
	seps, digits := 0, 0
	for _, r := range s {
		switch {
		case r == '.' || r == '-':
			seps++
		case r >= '0' && r <= '9':
			digits++
		}
	}
	return seps >= 2 && digits > 0
}

func cleanToken(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".-_")
}

// extractCNPJ returns the first CNPJ following a CNPJ label, mask removed.
func extractCNPJ(txt string) *string {
	if v, ok := firstGroup(reCNPJ, txt); ok {
		c := CleanCNPJ(v)
		return &c
	}
	return nil
}

// extractInicial returns the number labelled as the initial, original or
// amended filing.
func extractInicial(txt string) *string {
	for _, m := range reInicialPerdcomp.FindAllStringSubmatch(txt, -1) {
		if v := cleanToken(m[1]); LooksLikePerdcomp(v) {
			return &v
		}
	}
	return nil
}

// extractCurrent finds the document's own filing number: first the token
// after the CNPJ, then a PER/DCOMP label, then any candidate in text order.
// The initial filing number is never returned.
func extractCurrent(txt string, inicial *string) *string {
	accept := func(v string) bool {
		return LooksLikePerdcomp(v) && (inicial == nil || v != *inicial)
	}
	for _, m := range reCNPJWithPerdcomp.FindAllStringSubmatch(txt, -1) {
		if v := cleanToken(m[1]); accept(v) {
			return &v
		}
	}
	for _, m := range reLabeledPerdcomp.FindAllStringSubmatch(txt, -1) {
		if v := cleanToken(m[1]); accept(v) {
			return &v
		}
	}
	for _, loc := range reCandidate.FindAllStringIndex(txt, -1) {
		// amounts such as 1.234.567,89 are not identifiers
		if rest := txt[loc[1]:]; len(rest) > 1 && rest[0] == ',' && rest[1] >= '0' && rest[1] <= '9' {
			continue
		}
		if v := cleanToken(txt[loc[0]:loc[1]]); accept(v) {
			return &v
		}
	}
	return nil
}

// identify fills the identifier fields and the amendment flag.
func identify(p *ParsedClaim, txt string) {
	p.CNPJ = extractCNPJ(txt)
	p.PerdcompInicial = extractInicial(txt)
	p.Perdcomp = extractCurrent(txt, p.PerdcompInicial)

	differs := p.PerdcompInicial != nil && p.Perdcomp != nil && *p.PerdcompInicial != *p.Perdcomp
	p.IsRetificador = differs || strings.Contains(fold(txt), "retificador")
	if p.IsRetificador && p.Perdcomp != nil {
		v := *p.Perdcomp
		p.PerdcompRetificador = &v
	}
}
