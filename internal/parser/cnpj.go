package parser

import (
	"strings"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
)

// CleanCNPJ strips the mask from a CNPJ, keeping digits and letters upper-cased.
func CleanCNPJ(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCNPJ checks the two check digits of a numeric or alphanumeric CNPJ.
// Letters weigh their ASCII code minus 48; the check digits are always numeric.
func ValidateCNPJ(value string) error {
	cnpj := CleanCNPJ(value)
	if len(cnpj) != 14 {
		return common.NewValidationError("cnpj", value, "must have 14 characters")
	}
	if isDigits(cnpj) && strings.Count(cnpj, cnpj[:1]) == 14 {
		return common.NewValidationError("cnpj", value, "all digits are equal")
	}
	if !isDigits(cnpj[12:]) {
		return common.NewValidationError("cnpj", value, "check digits must be numeric")
	}
	if checkDigit(cnpj[:12], 5) != int(cnpj[12]-'0') || checkDigit(cnpj[:13], 6) != int(cnpj[13]-'0') {
		return common.NewValidationError("cnpj", value, "invalid check digit")
	}
	return nil
}

// checkDigit runs the mod-11 rule with weights starting at first and
// cycling 9..2.
func checkDigit(base string, first int) int {
	sum, weight := 0, first
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	if rest := sum % 11; rest >= 2 {
		return 11 - rest
	}
	return 0
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
