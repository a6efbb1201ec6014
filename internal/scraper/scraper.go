// Package scraper fetches subnet websites and extracts candidate outbound
// links plus a text sample for the research phase. Failures degrade to an
// empty result with a recorded reason; they never abort the batch.
package scraper

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Crawl statuses recorded on Result.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusNoWebsite = "no_website"
)

// Result is the outcome of crawling one subnet website.
type Result struct {
	URL           string    `json:"url"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	TextSample    string    `json:"text_sample,omitempty"`
	Links         []string  `json:"links"`
	PagesFetched  int       `json:"pages_fetched"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

const maxTextSample = 4000

// Crawler fetches subnet websites with bounded page counts and timeouts.
type Crawler struct {
	cfg *config.Config
}

// NewCrawler creates a crawler from the runtime configuration.
func NewCrawler(cfg *config.Config) *Crawler {
	return &Crawler{cfg: cfg}
}

// Crawl fetches the given website root and up to MaxPagesPerSubnet same-host
// pages, returning extracted links in discovery order. A crawl failure is
// reported on the Result, not as an error.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) Result {
	result := Result{
		URL:       rawURL,
		Status:    StatusNoWebsite,
		Links:     []string{},
		ScrapedAt: time.Now().UTC(),
	}

	if strings.TrimSpace(rawURL) == "" {
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Status = StatusFailed
		result.FailureReason = err.Error()
		return result
	}

	host := ExtractHost(rawURL)
	if host == "" {
		result.Status = StatusFailed
		result.FailureReason = "invalid website URL"
		return result
	}

	// Per-subnet state guarded against colly's async callbacks.
	var mu sync.Mutex
	seen := make(map[string]bool)
	var fetchErr error

	collector := colly.NewCollector(
		colly.AllowedDomains(allowedHostVariants(host)...),
		colly.MaxDepth(2),
	)
	collector.SetRequestTimeout(time.Duration(c.cfg.RequestTimeoutMs) * time.Millisecond)

	collector.OnHTML("title", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if result.Title == "" {
			result.Title = truncate(strings.TrimSpace(e.Text), 200)
		}
	})

	collector.OnHTML("meta[name=description]", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if result.Description == "" {
			result.Description = truncate(strings.TrimSpace(e.Attr("content")), 500)
		}
	})

	collector.OnHTML("body", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if len(result.TextSample) < maxTextSample {
			text := collapseWhitespace(e.Text)
			remaining := maxTextSample - len(result.TextSample)
			result.TextSample += truncate(text, remaining)
		}
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		normalized := NormalizeURL(link)
		if normalized == "" {
			return
		}

		mu.Lock()
		if !seen[normalized] {
			seen[normalized] = true
			result.Links = append(result.Links, normalized)
		}
		pages := result.PagesFetched
		mu.Unlock()

		// Follow same-host links while the page budget allows. Off-host
		// links are candidates for reconciliation, never crawl targets.
		if ExtractHost(normalized) == host && pages < c.cfg.MaxPagesPerSubnet {
			e.Request.Visit(link)
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		result.PagesFetched++
		logrus.Debugf("Fetched %s (status=%d, pages=%d)", r.Request.URL, r.StatusCode, result.PagesFetched)
	})

	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if fetchErr == nil {
			fetchErr = err
		}
	})

	collector.OnRequest(func(r *colly.Request) {
		mu.Lock()
		budget := result.PagesFetched >= c.cfg.MaxPagesPerSubnet
		mu.Unlock()
		if budget || ctx.Err() != nil {
			r.Abort()
		}
	})

	if err := collector.Visit(rawURL); err != nil {
		result.Status = StatusFailed
		result.FailureReason = err.Error()
		return result
	}
	collector.Wait()

	mu.Lock()
	defer mu.Unlock()

	if result.PagesFetched == 0 {
		result.Status = StatusFailed
		if fetchErr != nil {
			result.FailureReason = fetchErr.Error()
		} else {
			result.FailureReason = "no pages fetched"
		}
		return result
	}

	result.Status = StatusSuccess
	return result
}

// allowedHostVariants pairs a host with its www/apex counterpart so a
// redirect between the two does not kill the crawl.
func allowedHostVariants(host string) []string {
	if strings.HasPrefix(host, "www.") {
		return []string{host, strings.TrimPrefix(host, "www.")}
	}
	return []string{host, "www." + host}
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
