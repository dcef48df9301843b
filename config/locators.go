package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Locators holds the per-field selector cascades. Each list is ordered from
// most site-specific to most generic; the extractor tries them top to bottom
// and stops at the first match with usable text.
type Locators struct {
	Name            []string `yaml:"name"`
	Manufacturer    []string `yaml:"manufacturer"`
	Composition     []string `yaml:"composition"`
	Quantity        []string `yaml:"quantity"`
	PriceContainers []string `yaml:"price_containers"`
	PriceElements   []string `yaml:"price_elements"`
	Images          []string `yaml:"images"`
}

// DefaultLocators returns the built-in cascades for the target site.
func DefaultLocators() *Locators {
	return &Locators{
		Name: []string{
			".DrugHeader__title",
			".DrugHeader__name",
			".ProductInfo__title",
			".ProductInfo__name",
			"h1[class*='DrugHeader']",
			"h1[class*='ProductInfo']",
			"h1[class*='title']",
			"h1[class*='name']",
			"h1",
			".style__product-name",
			".medicine-name",
			".drug-name",
			".product-title",
			"[class*='title']",
			"[class*='name']",
		},
		Manufacturer: []string{
			".DrugHeader__manufacturer",
			".DrugHeader__brand-name",
			".DrugHeader__company",
			".ProductInfo__manufacturer",
			".ProductInfo__brand",
			".manufacturer",
			".brand-name",
			".company-name",
			".drug-manufacturer",
			".medicine-brand",
			"[class*='manufacturer']",
			"[class*='brand']",
			"[class*='company']",
		},
		Composition: []string{
			".DrugHeader__salt-info",
			".DrugHeader__composition",
			".ProductInfo__composition",
			".ProductInfo__salt",
			".salt-info",
			".composition",
			".medicine-composition",
			".drug-composition",
			".salt-composition",
			"[class*='salt']",
			"[class*='composition']",
			"[class*='ingredient']",
		},
		Quantity: []string{
			".DrugHeader__pack-size",
			".DrugHeader__quantity",
			".ProductInfo__pack-size",
			".ProductInfo__quantity",
			".pack-size",
			".quantity",
			".tablet-count",
			".strip-count",
			"[class*='pack']",
			"[class*='quantity']",
			"[class*='count']",
			"[class*='size']",
		},
		PriceContainers: []string{
			".DrugPriceBox",
			".PriceBox",
			".DrugPrice",
			".PriceBoxPlanOption",
			".SubstituteItem__unit-price___MIbLo",
			"[class*='price']",
			"[class*='Price']",
			"[class*='cost']",
			".price-display",
			".price-container",
			".pricing",
		},
		PriceElements: []string{
			".DrugPriceBox__best-price___32JXw",
			".DrugPriceBox__price",
			".PriceBox__price",
			".PriceBox__best-price",
			".SubstituteItem__unit-price___MIbLo",
			".PriceBoxPlanOption__offerPrice",
			".PriceBoxPlanOption__price",
			".DrugPrice__price",
			".DrugPrice__best-price",
			".style__price-tag",
			".price-display",
			".price",
			".best-price",
			".offer-price",
			"[class*='price']",
			"[class*='Price']",
			"[class*='cost']",
		},
		Images: []string{
			"img[class*='product-image']",
			"img[class*='ProductImage']",
			"img[class*='medicine-image']",
			"img[class*='drug-image']",
			".ProductImage img",
			".ProductImage__image img",
			".DrugImage img",
			".MedicineImage img",
			".product-photo img",
			".product-image img",
			".medicine-photo img",
			".drug-photo img",
			"img.style__product-image___3CRoG",
			".medicine-image",
			"img[src*='1mg']",
			"img[data-src*='1mg']",
			"img[alt*='medicine']",
			"img[alt*='drug']",
			"img[alt*='product']",
		},
	}
}

// LoadLocators reads selector cascades from a YAML file.
func LoadLocators(path string) (*Locators, error) {
	if path == "" {
		return nil, fmt.Errorf("locators file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locators file: %w", err)
	}
	defer file.Close()

	var locators Locators
	if err := yaml.NewDecoder(file).Decode(&locators); err != nil {
		return nil, fmt.Errorf("parse locators YAML: %w", err)
	}

	if err := locators.Validate(); err != nil {
		return nil, err
	}
	return &locators, nil
}

// Validate checks that every field has at least one selector.
func (l *Locators) Validate() error {
	checks := []struct {
		name string
		list []string
	}{
		{"name", l.Name},
		{"manufacturer", l.Manufacturer},
		{"composition", l.Composition},
		{"quantity", l.Quantity},
		{"price_containers", l.PriceContainers},
		{"price_elements", l.PriceElements},
		{"images", l.Images},
	}
	for _, check := range checks {
		if len(check.list) == 0 {
			return fmt.Errorf("locators: %s list is empty", check.name)
		}
	}
	return nil
}
