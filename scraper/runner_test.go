package scraper

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/medscrape/medscrape/config"
	"github.com/medscrape/medscrape/models"
	"github.com/medscrape/medscrape/pipeline"
)

func newTestRunner(t *testing.T, cfg *config.Config) (*Runner, *httpmock.MockTransport) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Delay = 0
	}
	runner, err := NewRunner(cfg, config.DefaultLocators())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	transport := httpmock.NewMockTransport()
	runner.fetcher.SetTransport(transport)
	return runner, transport
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func buildProductPage(name string) string {
	var builder strings.Builder
	builder.WriteString("<html><head>")
	builder.WriteString(`<script type="application/ld+json">{"@type":"Drug","image":"//res.1mg.com/images/fallback.jpg"}</script>`)
	builder.WriteString("</head><body>")
	fmt.Fprintf(&builder, `<h1 class="DrugHeader__title">%s</h1>`, name)
	builder.WriteString(`<div class="DrugHeader__manufacturer">Micro Labs Ltd</div>`)
	builder.WriteString(`<div class="DrugHeader__salt-info">Paracetamol (650mg)</div>`)
	builder.WriteString(`<div class="DrugHeader__pack-size">15.0 tablets in 1 strip</div>`)
	builder.WriteString(`<div class="DrugPriceBox">MRP₹33.6 15% off ₹28.56</div>`)
	builder.WriteString(`<img class="style__product-image___3CRoG" src="//res.1mg.com/images/dolo.jpg"/>`)
	builder.WriteString("</body></html>")
	return builder.String()
}

func TestRunnerBatchWithOneTimeout(t *testing.T) {
	urls := []string{
		"http://example.test/drugs/med-1",
		"http://example.test/drugs/med-2",
		"http://example.test/drugs/med-3",
		"http://example.test/drugs/med-4",
	}

	runner, transport := newTestRunner(t, nil)
	for i, url := range urls {
		if i == 1 {
			transport.RegisterResponder("GET", url,
				httpmock.NewErrorResponder(&net.DNSError{Err: "i/o timeout", IsTimeout: true}))
			continue
		}
		transport.RegisterResponder("GET", url, htmlResponder(buildProductPage(fmt.Sprintf("Med %d", i+1))))
	}

	result, err := runner.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Records) != len(urls) {
		t.Fatalf("records=%d, want %d", len(result.Records), len(urls))
	}
	for i, record := range result.Records {
		if record.URL != urls[i] {
			t.Fatalf("record %d url=%q, want %q (order must be preserved)", i, record.URL, urls[i])
		}
	}
	if result.SuccessCount != 3 || result.ErrorCount != 1 {
		t.Fatalf("success=%d errors=%d, want 3/1", result.SuccessCount, result.ErrorCount)
	}

	failed := result.Records[1]
	if !strings.Contains(failed.Status, "Network error") {
		t.Fatalf("status=%q, want it to contain %q", failed.Status, "Network error")
	}
	for _, value := range []string{failed.Name, failed.MRP, failed.DiscountedPrice, failed.Price, failed.Quantity, failed.Image, failed.Manufacturer, failed.Composition} {
		if value != models.Failed {
			t.Fatalf("failed record field=%q, want %q", value, models.Failed)
		}
	}
	if result.ErrorsByType["timeout"] != 1 {
		t.Fatalf("errors by type=%v, want one timeout", result.ErrorsByType)
	}
	if len(result.FailedURLs) != 1 || result.FailedURLs[0].URL != urls[1] {
		t.Fatalf("failed urls=%v, want just %s", result.FailedURLs, urls[1])
	}
}

func TestRunnerExtractsAllFields(t *testing.T) {
	url := "http://example.test/drugs/dolo-650"
	runner, transport := newTestRunner(t, nil)
	transport.RegisterResponder("GET", url, htmlResponder(buildProductPage("Dolo 650 Tablet")))

	result, err := runner.Run(context.Background(), []string{url})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records=%d, want 1", len(result.Records))
	}

	record := result.Records[0]
	if !record.Succeeded() {
		t.Fatalf("status=%q, want Success", record.Status)
	}
	if record.Name != "Dolo 650 Tablet" {
		t.Fatalf("name=%q", record.Name)
	}
	if record.MRP != "₹33.6" || record.DiscountedPrice != "₹28.56" {
		t.Fatalf("prices=%q/%q, want ₹33.6/₹28.56", record.MRP, record.DiscountedPrice)
	}
	if record.Price != record.DiscountedPrice {
		t.Fatalf("price column=%q should mirror discounted price %q", record.Price, record.DiscountedPrice)
	}
	if record.Quantity != "15 tablets" {
		t.Fatalf("quantity=%q", record.Quantity)
	}
	if record.Image != "https://res.1mg.com/images/dolo.jpg" {
		t.Fatalf("image=%q", record.Image)
	}
	if record.Manufacturer != "Micro Labs Ltd" {
		t.Fatalf("manufacturer=%q", record.Manufacturer)
	}
	if record.Composition != "Paracetamol (650mg)" {
		t.Fatalf("composition=%q", record.Composition)
	}
}

func TestRunnerBarePageYieldsSentinelsNotError(t *testing.T) {
	url := "http://example.test/drugs/empty"
	runner, transport := newTestRunner(t, nil)
	transport.RegisterResponder("GET", url, htmlResponder("<html><body><p>hello</p></body></html>"))

	result, err := runner.Run(context.Background(), []string{url})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	record := result.Records[0]
	if record.Status != models.StatusSuccess {
		t.Fatalf("status=%q, want Success (missing data is not an error)", record.Status)
	}
	for _, value := range []string{record.Name, record.MRP, record.DiscountedPrice, record.Quantity, record.Image, record.Manufacturer, record.Composition} {
		if value != models.NotAvailable {
			t.Fatalf("field=%q, want %q", value, models.NotAvailable)
		}
	}
}

func TestRunnerNotFoundBecomesErrorRecord(t *testing.T) {
	url := "http://example.test/drugs/gone"
	runner, transport := newTestRunner(t, nil)
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(404, "not here"))

	result, err := runner.Run(context.Background(), []string{url})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	record := result.Records[0]
	if record.Succeeded() {
		t.Fatalf("404 should produce an error record")
	}
	if !strings.Contains(record.Status, "Network error") {
		t.Fatalf("status=%q, want a network error cause", record.Status)
	}
	if result.ErrorsByType["not_found"] != 1 {
		t.Fatalf("errors by type=%v, want one not_found", result.ErrorsByType)
	}
}

func TestRunnerWritesSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Delay = 0
	cfg.SnapshotEvery = 2
	cfg.SnapshotDir = dir

	runner, transport := newTestRunner(t, cfg)
	runner.Snapshotter = pipeline.NewSnapshotter(dir)

	var urls []string
	for i := 1; i <= 5; i++ {
		url := fmt.Sprintf("http://example.test/drugs/med-%d", i)
		urls = append(urls, url)
		transport.RegisterResponder("GET", url, htmlResponder(buildProductPage(fmt.Sprintf("Med %d", i))))
	}

	if _, err := runner.Run(context.Background(), urls); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, completed := range []int{2, 4} {
		for _, ext := range []string{".csv", ".json"} {
			path := filepath.Join(dir, fmt.Sprintf("progress_backup_%d%s", completed, ext))
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("expected snapshot %s: %v", path, err)
			}
			if info.Size() == 0 {
				t.Fatalf("snapshot %s is empty", path)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "progress_backup_5.csv")); err == nil {
		t.Fatalf("no snapshot expected at 5 completed records")
	}
}

func TestRunnerRepeatedURLFetchedOnce(t *testing.T) {
	url := "http://example.test/drugs/dup"
	runner, transport := newTestRunner(t, nil)
	transport.RegisterResponder("GET", url, htmlResponder(buildProductPage("Dup")))

	result, err := runner.Run(context.Background(), []string{url, url})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records=%d, want 2 (one per input, even duplicates)", len(result.Records))
	}
	if calls := transport.GetCallCountInfo()["GET "+url]; calls != 1 {
		t.Fatalf("transport calls=%d, want 1 (cached body reused)", calls)
	}
}

func TestRunnerContextCancelled(t *testing.T) {
	runner, transport := newTestRunner(t, nil)
	transport.RegisterResponder("GET", "http://example.test/drugs/med-1",
		htmlResponder(buildProductPage("Med 1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx, []string{"http://example.test/drugs/med-1"}); err == nil {
		t.Fatalf("cancelled context should abort the run")
	}
}
