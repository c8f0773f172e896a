package ocr

import (
	"regexp"
	"strings"
)

// Confidence below this flags a document for manual review.
const ReviewConfidenceThreshold = 0.6

var (
	reDate     = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	reCNPJ     = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	reAmount   = regexp.MustCompile(`\b\d{1,3}(\.\d{3})*,\d{2}\b`)
	rePerdcomp = regexp.MustCompile(`\d{5}\.\d{5}\.\d{6}\.\d\.\d\.\d{2}-\d{4}`)
)

// heuristicConfidence scores recovered text by the PERDCOMP artifacts it
// contains. It never selects between candidates; it only feeds review flags.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	if reDate.MatchString(txt) {
		score += 0.15
	}
	if reCNPJ.MatchString(txt) {
		score += 0.2
	}
	if reAmount.MatchString(txt) {
		score += 0.15
	}
	if rePerdcomp.MatchString(txt) || strings.Contains(strings.ToUpper(txt), "PER/DCOMP") {
		score += 0.2
	}
	if len(txt) > 400 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
