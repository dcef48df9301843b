package extract

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medscrape/medscrape/models"
)

// Lazy-load attributes checked after src, in order.
var imageSourceAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Image extracts the product image as an absolute URL. The locator cascade
// runs first; misses fall back to scanning every img tag for the site's own
// assets, then JSON-LD embedded metadata, then the og:image meta tag.
func (ex *Extractor) Image(doc *goquery.Document, baseURL string) string {
	for _, selector := range ex.locators.Images {
		sel := selectFirst(doc, selector)
		if sel == nil {
			continue
		}
		src := firstSourceAttr(sel)
		if src == "" {
			continue
		}
		resolved := resolveImageURL(src, baseURL)
		if resolved != "" && hasImageExtension(resolved) {
			return resolved
		}
	}

	if found := ex.anyDomainImage(doc, baseURL); found != "" {
		return found
	}
	if found := structuredDataImage(doc, baseURL); found != "" {
		return found
	}
	if content, ok := doc.Find("meta[property='og:image']").Attr("content"); ok && content != "" {
		if resolved := resolveImageURL(content, baseURL); resolved != "" {
			return resolved
		}
	}

	return models.NotAvailable
}

// anyDomainImage scans all img tags for a source carrying the site's domain
// token and a valid image extension.
func (ex *Extractor) anyDomainImage(doc *goquery.Document, baseURL string) string {
	found := ""
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" {
			return true
		}
		if !strings.Contains(src, ex.domainToken) || !hasImageExtension(src) {
			return true
		}
		found = resolveImageURL(src, baseURL)
		return found == ""
	})
	return found
}

// structuredDataImage pulls the image property out of JSON-LD script blocks.
// The property may hold a single URL or a list; the first entry wins.
func structuredDataImage(doc *goquery.Document, baseURL string) string {
	found := ""
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}
		switch img := data["image"].(type) {
		case string:
			found = resolveImageURL(img, baseURL)
		case []interface{}:
			if len(img) > 0 {
				if first, ok := img[0].(string); ok {
					found = resolveImageURL(first, baseURL)
				}
			}
		}
		return found == ""
	})
	return found
}

func firstSourceAttr(sel *goquery.Selection) string {
	for _, attr := range imageSourceAttrs {
		if value, ok := sel.Attr(attr); ok && value != "" {
			return value
		}
	}
	return ""
}

// resolveImageURL turns protocol-relative and root-relative sources into
// absolute URLs against the page's base URL.
func resolveImageURL(src, baseURL string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

func hasImageExtension(rawURL string) bool {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	path = strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
