package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medscrape/medscrape/models"
)

// Rupee is the currency symbol every extracted amount is formatted with,
// regardless of how the source text spelled it.
const Rupee = "₹"

// Labeled price patterns, ordered by precedence. The first match per role
// wins, so site-specific labels must stay ahead of the generic forms.
var (
	mrpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)MRP\s*₹\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)MRP\s*Rs\.?\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)Maximum Retail Price\s*₹\s*(\d+(?:\.\d+)?)`),
	}

	discountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Discounted Price:\s*₹\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)Offer Price:\s*₹\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)Best Price:\s*₹\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)Final Price:\s*₹\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)₹\s*(\d+(?:\.\d+)?)\s*\(.*?off.*?\)`),
		regexp.MustCompile(`(?i)₹\s*(\d+(?:\.\d+)?)\s*after.*?discount`),
	}

	amountPattern       = regexp.MustCompile(`₹\s*(\d+(?:\.\d+)?)`)
	bareDiscountPattern = regexp.MustCompile(`(?i)Discounted Price:\s*(\d+(?:\.\d+)?)`)
	mrpAmountPattern    = regexp.MustCompile(`(?i)MRP.*?₹\s*(\d+(?:\.\d+)?)`)
	labeledAfterPattern = regexp.MustCompile(`(?i)(?:after|off|discount|offer).*?₹\s*(\d+(?:\.\d+)?)`)

	currencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)₹\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)Rs\.?\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)INR\s*(\d+(?:\.\d+)?)`),
	}
)

// Price extracts the MRP and discounted price from the document. The
// container cascade runs first: the first price container whose combined text
// carries a currency marker is parsed for both roles. If no container yields
// a value, the individual price elements are tried in order.
func (ex *Extractor) Price(doc *goquery.Document) (mrp, discounted string) {
	for _, selector := range ex.locators.PriceContainers {
		sel := selectFirst(doc, selector)
		if sel == nil {
			continue
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" || !hasCurrencyMarker(text) {
			continue
		}
		mrp, discounted = ParsePriceText(text)
		if mrp != models.NotAvailable || discounted != models.NotAvailable {
			return mrp, discounted
		}
	}

	for _, selector := range ex.locators.PriceElements {
		sel := selectFirst(doc, selector)
		if sel == nil {
			continue
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			continue
		}
		mrp, discounted = ParsePriceText(text)
		if mrp != models.NotAvailable || discounted != models.NotAvailable {
			return mrp, discounted
		}
	}

	return models.NotAvailable, models.NotAvailable
}

// ParsePriceText extracts both price roles from raw price text.
//
// Precedence: labeled patterns per role first; then, when the text carries a
// literal MRP token and at least two rupee amounts, the first amount fills a
// missing MRP and the second a missing discounted price; finally a single
// found value mirrors into the other role. The mirroring is a known fidelity
// risk for true MRP-only listings but is the documented behavior.
func ParsePriceText(text string) (mrp, discounted string) {
	text = collapseWhitespace(text)
	mrp = models.NotAvailable
	discounted = models.NotAvailable

	for _, pattern := range mrpPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			mrp = Rupee + roundAmount(m[1])
			break
		}
	}

	for _, pattern := range discountPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			discounted = Rupee + roundAmount(m[1])
			break
		}
	}

	if strings.Contains(text, "MRP") && strings.Contains(text, Rupee) {
		amounts := amountPattern.FindAllStringSubmatch(text, -1)
		if len(amounts) >= 2 {
			if mrp == models.NotAvailable {
				mrp = Rupee + roundAmount(amounts[0][1])
			}
			if discounted == models.NotAvailable {
				discounted = Rupee + roundAmount(amounts[1][1])
			}
		}
	}

	// A lone unlabeled amount is still a price: treat it as the single
	// listed price so mirroring below fills both roles.
	if mrp == models.NotAvailable && discounted == models.NotAvailable {
		for _, pattern := range currencyPatterns {
			if m := pattern.FindStringSubmatch(text); m != nil {
				mrp = Rupee + roundAmount(m[1])
				break
			}
		}
	}

	if discounted == models.NotAvailable && mrp != models.NotAvailable {
		discounted = mrp
	} else if mrp == models.NotAvailable && discounted != models.NotAvailable {
		mrp = discounted
	}

	return mrp, discounted
}

// CleanPriceText reduces noisy price text to a single best amount, preferring
// a discounted price over the MRP. Used when a generic field locator turns
// out to point at price markup.
func CleanPriceText(text string) string {
	text = collapseWhitespace(text)

	for _, pattern := range discountPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return Rupee + roundAmount(m[1])
		}
	}

	// Mangled markup sometimes detaches the symbol from the amount, e.g.
	// "MRP₹55Discount Percentage:9% off₹Discounted Price:50.1".
	if strings.Contains(text, "Discounted Price:") {
		if m := bareDiscountPattern.FindStringSubmatch(text); m != nil {
			return Rupee + roundAmount(m[1])
		}
	}

	if strings.Contains(text, "MRP") && strings.Contains(text, Rupee) {
		amounts := amountPattern.FindAllStringSubmatch(text, -1)
		if len(amounts) >= 2 {
			// Second amount is conventionally the offer price.
			return Rupee + roundAmount(amounts[1][1])
		}
		if len(amounts) == 1 && mrpAmountPattern.MatchString(text) {
			if m := labeledAfterPattern.FindStringSubmatch(text); m != nil {
				return Rupee + roundAmount(m[1])
			}
		}
	}

	// Any amount not trailed by an MRP label.
	for _, pattern := range currencyPatterns {
		if loc := pattern.FindStringSubmatchIndex(text); loc != nil {
			if !strings.Contains(text[loc[1]:], "MRP") {
				return Rupee + roundAmount(text[loc[2]:loc[3]])
			}
		}
	}

	for _, pattern := range currencyPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return Rupee + roundAmount(m[1])
		}
	}

	if len(text) < 20 && hasCurrencyMarker(text) {
		return text
	}

	return models.NotAvailable
}

func hasCurrencyMarker(text string) bool {
	return strings.Contains(text, Rupee) || strings.Contains(text, "Rs")
}

// roundAmount trims amounts with more than two fractional digits down to
// exactly two.
func roundAmount(amount string) string {
	idx := strings.Index(amount, ".")
	if idx < 0 || len(amount)-idx-1 <= 2 {
		return amount
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return amount
	}
	return fmt.Sprintf("%.2f", value)
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
