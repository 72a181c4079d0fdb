package billdocs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// mmToPx is the CSS millimeter-to-pixel conversion factor: 96dpi / 25.4mm
// per inch, truncated to two decimals. Substituted values are formatted to
// two decimals as well, so repeated preprocessing of the same document is
// stable.
const mmToPx = 3.78

// Precompiled patterns for HTML/CSS preprocessing.
var (
	// styleBlock matches an entire <style> element including its tags.
	styleBlock = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)

	// mmLength matches a CSS millimeter length value.
	mmLength = regexp.MustCompile(`(\d+(\.\d+)?)mm`)

	// Declarations the lightweight renderers cannot handle.
	boxSizingDecl   = regexp.MustCompile(`(?i)box-sizing\s*:\s*[^;}"']+;?`)
	tableLayoutDecl = regexp.MustCompile(`(?i)table-layout\s*:\s*fixed\s*;?`)
	breakInsideDecl = regexp.MustCompile(`(?i)break-inside\s*:\s*[^;}"']+;?`)

	// doctypePrefix detects an existing document type declaration.
	doctypePrefix = regexp.MustCompile(`(?i)^\s*<!doctype`)
)

// PreprocessHTML prepares a rendered document for the primary engine:
// millimeter lengths in embedded CSS are rewritten to pixel equivalents,
// unsupported CSS declarations are stripped, and non-breaking-space
// entities are normalized to plain spaces. The transformation only touches
// markup that loses text fidelity during rendering; visible content is
// preserved verbatim.
func PreprocessHTML(html string) string {
	html = RewriteMillimeterUnits(html)
	html = StripUnsupportedCSS(html)
	html = NormalizeNonBreakingSpaces(html)
	return html
}

// RewriteMillimeterUnits converts every "<n>mm" length inside <style>
// blocks to its pixel equivalent using the fixed 3.78 factor, formatted to
// two decimals.
func RewriteMillimeterUnits(html string) string {
	return styleBlock.ReplaceAllStringFunc(html, func(block string) string {
		return mmLength.ReplaceAllStringFunc(block, func(m string) string {
			value := mmLength.FindStringSubmatch(m)[1]
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return m
			}
			return fmt.Sprintf("%.2fpx", n*mmToPx)
		})
	})
}

// StripUnsupportedCSS removes declarations known to break lightweight
// renderers: box-sizing, table-layout: fixed, and break-inside.
func StripUnsupportedCSS(html string) string {
	return styleBlock.ReplaceAllStringFunc(html, func(block string) string {
		block = boxSizingDecl.ReplaceAllString(block, "")
		block = tableLayoutDecl.ReplaceAllString(block, "")
		block = breakInsideDecl.ReplaceAllString(block, "")
		return block
	})
}

// NormalizeNonBreakingSpaces replaces &nbsp; entities with plain spaces so
// extracted PDF text matches the HTML source word-for-word.
func NormalizeNonBreakingSpaces(html string) string {
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	return strings.ReplaceAll(html, " ", " ")
}

// EnsureDoctype prefixes a <!DOCTYPE html> declaration when one is absent.
// Standards mode keeps table sizing consistent across engines.
func EnsureDoctype(html string) string {
	if doctypePrefix.MatchString(html) {
		return html
	}
	return "<!DOCTYPE html>\n" + html
}
