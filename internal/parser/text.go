package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF   = regexp.MustCompile(`\r\n?`)
	reBlanks = regexp.MustCompile(`[\t\x{00A0}\x{2007}\x{202F}]+`)

	moneyPattern = `(\d[\d.]*,\d{2})`
)

// prepare unifies line endings and turns tabs and non-breaking spaces into spaces.
func prepare(txt string) string {
	txt = reCRLF.ReplaceAllString(txt, "\n")
	return reBlanks.ReplaceAllString(txt, " ")
}

// fold lower-cases s and strips combining accents, for keyword tests only;
// byte offsets of the result do not line up with s.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

func stringField(re *regexp.Regexp, s string) *string {
	if v, ok := firstGroup(re, s); ok {
		return &v
	}
	return nil
}

func dateField(re *regexp.Regexp, s string) *Date {
	if v, ok := firstGroup(re, s); ok {
		if d, ok := ParseDate(v); ok {
			return &d
		}
	}
	return nil
}

// section returns the block that starts at the header match and runs until
// the next all-caps heading line or the end of the text. It returns "" when
// the header is absent.
func section(header *regexp.Regexp, txt string) string {
	loc := header.FindStringIndex(txt)
	if loc == nil {
		return ""
	}
	body := txt[loc[1]:]
	// the rest of the header line belongs to the section
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return txt[loc[0]:]
	}
	offset := nl + 1
	for _, line := range strings.SplitAfter(body[offset:], "\n") {
		if isHeading(line) {
			return txt[loc[0] : loc[1]+offset]
		}
		offset += len(line)
	}
	return txt[loc[0]:]
}

// isHeading reports whether line looks like an upper-case section title:
// at least four letters and no lower-case ones.
func isHeading(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 4
}
