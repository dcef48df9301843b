// Package models defines data structures for the scraper.
package models

import "time"

// Sentinel values used for missing and failed fields. Fields are never left
// empty: absence of extractable data is NotAvailable, a request-level failure
// marks every field Failed.
const (
	NotAvailable = "N/A"
	Failed       = "Error"

	StatusSuccess = "Success"
)

// PageRecord represents one scraped product page. Records are assembled in a
// single extraction pass and never mutated afterwards.
type PageRecord struct {
	Name            string `csv:"name" json:"name"`
	MRP             string `csv:"mrp" json:"mrp"`
	DiscountedPrice string `csv:"discounted_price" json:"discounted_price"`
	// Price mirrors DiscountedPrice; kept for compatibility with older
	// consumers of the export.
	Price        string `csv:"price" json:"price"`
	Quantity     string `csv:"quantity" json:"quantity"`
	Image        string `csv:"image" json:"image"`
	Manufacturer string `csv:"manufacturer" json:"manufacturer"`
	Composition  string `csv:"composition" json:"composition"`
	URL          string `csv:"url" json:"url"`
	Status       string `csv:"status" json:"status"`
}

// NewErrorRecord builds the record for a URL whose fetch or parse failed.
func NewErrorRecord(url, cause string) *PageRecord {
	return &PageRecord{
		Name:            Failed,
		MRP:             Failed,
		DiscountedPrice: Failed,
		Price:           Failed,
		Quantity:        Failed,
		Image:           Failed,
		Manufacturer:    Failed,
		Composition:     Failed,
		URL:             url,
		Status:          cause,
	}
}

// Succeeded reports whether the record came from a clean extraction pass.
func (r *PageRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// FailedURL pairs a failed input URL with its status text.
type FailedURL struct {
	URL    string
	Status string
}

// BatchResult holds the overall result of a batch run.
type BatchResult struct {
	Records      []*PageRecord
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	SuccessCount int
	ErrorCount   int
	FailedURLs   []FailedURL
	ErrorsByType map[string]int
	RequestCount int
}
