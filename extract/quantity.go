package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medscrape/medscrape/models"
)

var (
	quantityUnitPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:tablets?|tabs?|strips?|capsules?|pills?)`)
	digitPattern        = regexp.MustCompile(`\d`)

	// Whole-document fallback family, in priority order. The composite
	// pack-size phrasing comes first so "15 tablets in 1 strip" is read as
	// 15, not 1.
	quantityFallbackPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*tablets?\s*in\s*\d+\s*strip`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*tablets?`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*tabs?`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*strips?`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*capsules?`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*pills?`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*pieces?`),
	}
)

// Quantity extracts the pack size. Quantity locators are tried first: a unit
// phrase in the element text wins, any other text containing a digit is
// returned raw. Otherwise the document's full visible text is scanned with
// the fallback pattern family.
func (ex *Extractor) Quantity(doc *goquery.Document) string {
	for _, selector := range ex.locators.Quantity {
		sel := selectFirst(doc, selector)
		if sel == nil {
			continue
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			continue
		}
		if m := quantityUnitPattern.FindStringSubmatch(text); m != nil {
			return formatTablets(m[1])
		}
		if digitPattern.MatchString(text) {
			return text
		}
	}

	return ParseQuantityText(doc.Text())
}

// ParseQuantityText scans raw text with the quantity pattern family and
// returns the first matched count, normalized to a tablet count. All unit
// words report as "tablets" so the column stays uniform.
func ParseQuantityText(text string) string {
	for _, pattern := range quantityFallbackPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return formatTablets(m[1])
		}
	}
	return models.NotAvailable
}

func formatTablets(count string) string {
	count = strings.TrimSuffix(count, ".0")
	return count + " tablets"
}
