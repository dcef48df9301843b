// Package extract pulls structured product fields out of loosely-structured
// page markup. Every lookup walks an ordered locator cascade and returns the
// first usable value; locator failures are silent and a total miss resolves to
// the N/A sentinel, never an error.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medscrape/medscrape/config"
	"github.com/medscrape/medscrape/models"
)

// Extractor applies locator cascades to one parsed document at a time. It is
// stateless and safe to reuse across pages.
type Extractor struct {
	locators    *config.Locators
	domainToken string
}

// New builds an extractor from selector cascades and the token identifying
// the site's own asset URLs.
func New(locators *config.Locators, domainToken string) *Extractor {
	if locators == nil {
		locators = config.DefaultLocators()
	}
	return &Extractor{locators: locators, domainToken: domainToken}
}

// Name extracts the product name.
func (ex *Extractor) Name(doc *goquery.Document) string {
	return ex.Field(doc, ex.locators.Name)
}

// Manufacturer extracts the manufacturer or brand name.
func (ex *Extractor) Manufacturer(doc *goquery.Document) string {
	return ex.Field(doc, ex.locators.Manufacturer)
}

// Composition extracts the salt composition.
func (ex *Extractor) Composition(doc *goquery.Document) string {
	return ex.Field(doc, ex.locators.Composition)
}

// Field returns the text of the first selector in the cascade that matches a
// node with non-empty visible text. Selectors that look price-related have
// their text routed through price cleanup first; if cleanup finds no usable
// amount the cascade moves on.
func (ex *Extractor) Field(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := selectFirst(doc, selector)
		if sel == nil {
			continue
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			continue
		}
		if isPriceSelector(selector) {
			if cleaned := CleanPriceText(text); cleaned != models.NotAvailable {
				return cleaned
			}
			continue
		}
		return text
	}
	return models.NotAvailable
}

func isPriceSelector(selector string) bool {
	return strings.Contains(strings.ToLower(selector), "price")
}

// selectFirst resolves a selector to its first match. A malformed selector is
// treated the same as no match, never escalated.
func selectFirst(doc *goquery.Document, selector string) (sel *goquery.Selection) {
	defer func() {
		if r := recover(); r != nil {
			sel = nil
		}
	}()
	found := doc.Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return found
}
