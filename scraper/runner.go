package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/medscrape/medscrape/config"
	"github.com/medscrape/medscrape/extract"
	"github.com/medscrape/medscrape/models"
	"github.com/medscrape/medscrape/pipeline"
)

// Runner walks an ordered URL list through the fetch-then-extract pipeline,
// one request in flight at a time, and accumulates one record per input.
// Failures never abort the batch: they become error records.
type Runner struct {
	cfg       *config.Config
	fetcher   *Fetcher
	extractor *extract.Extractor
	Metrics   *Metrics

	// Snapshotter, when set, checkpoints the accumulated records every
	// cfg.SnapshotEvery completed URLs.
	Snapshotter *pipeline.Snapshotter
}

// NewRunner builds a runner from configuration and selector cascades.
func NewRunner(cfg *config.Config, locators *config.Locators) (*Runner, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extract.New(locators, cfg.DomainToken),
		Metrics:   metrics,
	}, nil
}

// Run processes every URL in order and returns one record per input, input
// order preserved. The politeness delay runs before every fetch. Context
// cancellation stops the batch between URLs; records gathered since the last
// snapshot are discarded with it.
func (r *Runner) Run(ctx context.Context, urls []string) (*models.BatchResult, error) {
	result := &models.BatchResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	if len(urls) == 0 {
		slog.Warn("no URLs provided")
		result.EndTime = time.Now()
		return result, nil
	}

	slog.Info("starting batch",
		slog.Int("urls", len(urls)),
		slog.Duration("delay", r.cfg.Delay),
	)

	for i, url := range urls {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
		slog.Info("scraping",
			slog.String("url", url),
			slog.Int("progress", i+1),
			slog.Int("total", len(urls)),
		)

		record, errLabel := r.scrapeOne(url)
		result.Records = append(result.Records, record)
		result.RequestCount++

		if record.Succeeded() {
			result.SuccessCount++
			r.Metrics.IncRecord("success")
			slog.Info("scraped",
				slog.String("name", record.Name),
				slog.String("price", record.Price),
			)
		} else {
			result.ErrorCount++
			result.ErrorsByType[errLabel]++
			result.FailedURLs = append(result.FailedURLs, models.FailedURL{URL: url, Status: record.Status})
			r.Metrics.IncRecord("error")
			slog.Error("scrape failed",
				slog.String("url", url),
				slog.String("status", record.Status),
			)
		}

		if r.Snapshotter != nil && r.cfg.SnapshotEvery > 0 && (i+1)%r.cfg.SnapshotEvery == 0 {
			if err := r.Snapshotter.Write(result.Records, i+1); err != nil {
				slog.Warn("snapshot failed", slog.Any("error", err))
			} else {
				slog.Info("progress snapshot written", slog.Int("records", i+1))
			}
		}
	}

	result.EndTime = time.Now()
	result.TotalCount = len(result.Records)
	return result, nil
}

// scrapeOne converts one URL into a record. The second return is the error
// bucket label, empty for a clean pass.
func (r *Runner) scrapeOne(url string) (*models.PageRecord, string) {
	body, err := r.fetcher.Fetch(url)
	if err != nil {
		return models.NewErrorRecord(url, fmt.Sprintf("Network error: %v", err)), errorTypeLabel(err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.NewErrorRecord(url, fmt.Sprintf("Parsing error: %v", err)), "parse"
	}

	record, err := r.extractRecord(doc, url)
	if err != nil {
		return models.NewErrorRecord(url, fmt.Sprintf("Parsing error: %v", err)), "parse"
	}
	return record, ""
}

// extractRecord runs every field extractor over the document. A panic inside
// the extractor surfaces as a parsing error for this URL only.
func (r *Runner) extractRecord(doc *goquery.Document, url string) (record *models.PageRecord, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			record = nil
			err = fmt.Errorf("field extraction: %v", rec)
		}
	}()

	mrp, discounted := r.extractor.Price(doc)
	record = &models.PageRecord{
		Name:            r.extractor.Name(doc),
		MRP:             mrp,
		DiscountedPrice: discounted,
		Price:           discounted,
		Quantity:        r.extractor.Quantity(doc),
		Image:           r.extractor.Image(doc, url),
		Manufacturer:    r.extractor.Manufacturer(doc),
		Composition:     r.extractor.Composition(doc),
		URL:             url,
		Status:          models.StatusSuccess,
	}

	for field, value := range map[string]string{
		"name":             record.Name,
		"mrp":              record.MRP,
		"discounted_price": record.DiscountedPrice,
		"quantity":         record.Quantity,
		"image":            record.Image,
		"manufacturer":     record.Manufacturer,
		"composition":      record.Composition,
	} {
		if value == models.NotAvailable {
			r.Metrics.IncFieldMiss(field)
		}
	}

	return record, nil
}

func (r *Runner) wait(ctx context.Context) error {
	if r.cfg.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
