package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCrawler() *Crawler {
	return NewCrawler(&config.Config{
		RequestTimeoutMs:  2000,
		MaxPagesPerSubnet: 3,
	})
}

func siteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>Apex Subnet</title>
			<meta name="description" content="Decentralized inference network">
		</head><body>
			<p>Apex runs decentralized inference on Bittensor.</p>
			<a href="/about">About</a>
			<a href="https://github.com/apex/subnet">GitHub</a>
			<a href="https://discord.gg/apex?utm_source=site">Discord</a>
			<a href="#section">Anchor</a>
		</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>About Apex</title></head><body>
			<p>Team and roadmap.</p>
			<a href="https://twitter.com/apexsubnet">Twitter</a>
		</body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCrawlExtractsContentAndLinks(t *testing.T) {
	server := siteServer(t)

	result := testCrawler().Crawl(context.Background(), server.URL)

	require.Equal(t, StatusSuccess, result.Status, "reason: %s", result.FailureReason)
	assert.Equal(t, "Apex Subnet", result.Title)
	assert.Equal(t, "Decentralized inference network", result.Description)
	assert.Contains(t, result.TextSample, "decentralized inference")
	assert.GreaterOrEqual(t, result.PagesFetched, 1)

	assert.Contains(t, result.Links, "https://github.com/apex/subnet")
	assert.Contains(t, result.Links, "https://discord.gg/apex", "tracking params are stripped")
	for _, link := range result.Links {
		assert.NotContains(t, link, "#", "fragments never survive normalization")
	}
}

func TestCrawlFollowsSameHostLinks(t *testing.T) {
	server := siteServer(t)

	result := testCrawler().Crawl(context.Background(), server.URL)

	require.Equal(t, StatusSuccess, result.Status)
	assert.GreaterOrEqual(t, result.PagesFetched, 2, "same-host /about page is followed")
	assert.Contains(t, result.Links, "https://twitter.com/apexsubnet",
		"links from followed pages are collected")
}

func TestCrawlLinksAreDeduplicatedInOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="https://github.com/apex/subnet">one</a>
			<a href="https://github.com/apex/subnet/">dup after normalization</a>
			<a href="https://discord.gg/apex">two</a>
		</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result := testCrawler().Crawl(context.Background(), server.URL)

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, []string{
		"https://github.com/apex/subnet",
		"https://discord.gg/apex",
	}, result.Links)
}

func TestCrawlServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := testCrawler().Crawl(context.Background(), server.URL)

	assert.Equal(t, StatusFailed, result.Status)
	assert.NotEmpty(t, result.FailureReason)
	assert.Zero(t, result.PagesFetched)
}

func TestCrawlEmptyURL(t *testing.T) {
	result := testCrawler().Crawl(context.Background(), "")
	assert.Equal(t, StatusNoWebsite, result.Status)
}

func TestCrawlInvalidURL(t *testing.T) {
	result := testCrawler().Crawl(context.Background(), "not a url")
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "invalid website URL", result.FailureReason)
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
	}{
		{"ascii under cap", "hello", 10},
		{"ascii at cap", "hello", 5},
		{"ascii over cap", "hello world", 5},
		{"multi-byte at boundary", "héllo", 2}, // é is 2 bytes starting at index 1
		{"cjk crosses boundary", "研究ネットワーク", 7},
		{"emoji crosses boundary", "ab💡cd", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.max)
			assert.LessOrEqual(t, len(got), tt.max)
			assert.True(t, utf8.ValidString(got), "truncation must never split a rune")
			assert.True(t, strings.HasPrefix(tt.input, got))
		})
	}

	// A cap falling mid-rune backs up to the previous rune boundary
	assert.Equal(t, "h", truncate("héllo", 2))
	assert.Equal(t, "研究", truncate("研究ネットワーク", 7))
}

func TestCrawlCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := testCrawler().Crawl(ctx, "https://example.com")
	assert.Equal(t, StatusFailed, result.Status)
}
