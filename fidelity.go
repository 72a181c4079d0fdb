package billdocs

import (
	"regexp"
	"strings"

	"github.com/alnah/go-billdocs/internal/pdftext"
)

// Fidelity thresholds. The strict threshold is the conversion engine's
// content-fidelity target; the lenient one allows a small absolute word
// allowance for renderer artifacts.
const (
	FidelityThreshold        = 0.95
	FidelityLenientThreshold = 0.90
	fidelityLenientWordSlack = 5
)

// wordToken matches one comparison token: a run of letters and digits.
var wordToken = regexp.MustCompile(`[a-z0-9]+`)

// fidelityStoplist removes PDF metadata artifacts that leak into extracted
// text but never appear in the HTML source.
var fidelityStoplist = map[string]bool{
	"producer":     true,
	"creator":      true,
	"creationdate": true,
	"moddate":      true,
	"trapped":      true,
}

// FidelityScore measures how much of the HTML's visible text survived into
// the PDF: the Jaccard index of the two lowercased, stoplist-filtered word
// sets. 1.0 means every word made it through and nothing was invented.
//
// This is a QA utility, not part of the conversion path, but its scoring
// is the authoritative contract the engine chain is tuned against.
func FidelityScore(htmlContent string, pdf []byte) (float64, error) {
	if htmlContent == "" {
		return 0, ErrEmptyHTML
	}
	if len(pdf) == 0 {
		return 0, ErrEmptyPDF
	}

	lines, err := VisibleText(htmlContent)
	if err != nil {
		return 0, err
	}
	htmlWords := wordSet(strings.Join(lines, " "))

	pdfText, err := pdftext.ExtractText(pdf)
	if err != nil {
		return 0, err
	}
	pdfWords := wordSet(pdfText)

	return jaccard(htmlWords, pdfWords), nil
}

// FidelityReport carries the score plus the word-level deltas used by the
// lenient check.
type FidelityReport struct {
	Score   float64
	Missing []string // in HTML, absent from PDF
	Extra   []string // in PDF, absent from HTML
}

// Passes reports whether the score meets the strict threshold.
func (r FidelityReport) Passes() bool {
	return r.Score >= FidelityThreshold
}

// PassesLenient reports whether the score meets the lenient threshold
// with at most fidelityLenientWordSlack missing and extra words each.
func (r FidelityReport) PassesLenient() bool {
	return r.Score >= FidelityLenientThreshold &&
		len(r.Missing) <= fidelityLenientWordSlack &&
		len(r.Extra) <= fidelityLenientWordSlack
}

// CompareFidelity computes the full report for a rendered document and
// its converted PDF.
func CompareFidelity(htmlContent string, pdf []byte) (FidelityReport, error) {
	if htmlContent == "" {
		return FidelityReport{}, ErrEmptyHTML
	}
	if len(pdf) == 0 {
		return FidelityReport{}, ErrEmptyPDF
	}

	lines, err := VisibleText(htmlContent)
	if err != nil {
		return FidelityReport{}, err
	}
	htmlWords := wordSet(strings.Join(lines, " "))

	pdfText, err := pdftext.ExtractText(pdf)
	if err != nil {
		return FidelityReport{}, err
	}
	pdfWords := wordSet(pdfText)

	report := FidelityReport{Score: jaccard(htmlWords, pdfWords)}
	for w := range htmlWords {
		if !pdfWords[w] {
			report.Missing = append(report.Missing, w)
		}
	}
	for w := range pdfWords {
		if !htmlWords[w] {
			report.Extra = append(report.Extra, w)
		}
	}
	return report, nil
}

// wordSet lowercases, tokenizes and stoplist-filters text into a set.
func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordToken.FindAllString(strings.ToLower(text), -1) {
		if !fidelityStoplist[w] {
			set[w] = true
		}
	}
	return set
}

// jaccard is |intersection| / |union| over two word sets. Two empty sets
// score zero: an empty comparison proves nothing about fidelity.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
