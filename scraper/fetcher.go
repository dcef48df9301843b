package scraper

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medscrape/medscrape/config"
)

// Fetcher issues synchronous GETs through a colly collector with a
// browser-like header set and a bounded timeout. Bodies are cached in an LRU
// so a URL repeated within one input list is fetched once. The fetcher keeps
// exactly one request in flight; it is not safe for concurrent use, which is
// fine for a strictly sequential batch.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	cache     *lru.Cache[string, []byte]
	metrics   *Metrics

	lastBody   []byte
	lastStatus int
	lastErr    error
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		cache:     cache,
		metrics:   metrics,
	}
	f.configureHandlers()
	return f, nil
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("Connection", "keep-alive")
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		f.lastBody = r.Body
		f.lastStatus = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		f.lastErr = classifyError(err, statusCode)
	})
}

// Fetch retrieves one page body. Transport failures, timeouts, and non-2xx
// responses come back as classified errors.
func (f *Fetcher) Fetch(url string) ([]byte, error) {
	if body, ok := f.cache.Get(url); ok {
		f.metrics.IncRequest("cached")
		return body, nil
	}

	f.lastBody = nil
	f.lastStatus = 0
	f.lastErr = nil

	err := f.collector.Visit(url)
	// The collector is synchronous: handlers have run by the time Visit
	// returns. The OnError classification carries the status code, so it
	// takes precedence over the error Visit itself reports.
	if f.lastErr != nil {
		f.metrics.IncError(errorTypeLabel(f.lastErr))
		return nil, f.lastErr
	}
	if err != nil {
		classified := classifyError(err, f.lastStatus)
		f.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}
	if f.lastBody == nil {
		err := classifyError(fmt.Errorf("empty response"), f.lastStatus)
		f.metrics.IncError(errorTypeLabel(err))
		return nil, err
	}

	f.cache.Add(url, f.lastBody)
	return f.lastBody, nil
}

// SetTransport swaps the HTTP transport. Used by tests to install a mock.
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}
