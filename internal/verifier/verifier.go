// Package verifier reconciles a subnet's declared source links against the
// links discovered by the site crawl, producing one SourceRecord per channel
// and a per-subnet health summary.
package verifier

import (
	"math"
	"net/url"
	"strings"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/scraper"
	"github.com/sirupsen/logrus"
)

// Reconcile compares declared channel URLs against crawled links and derives
// a status and match confidence per channel. The output is fully recomputed
// on every call and depends only on its inputs, so identical inputs yield
// byte-identical records.
func Reconcile(declared map[Channel]string, crawl scraper.Result) ([]SourceRecord, HealthSummary) {
	crawled := classifyLinks(crawl.Links)

	records := make([]SourceRecord, 0, len(Channels))
	for _, channel := range Channels {
		if channel == ChannelWebsite {
			records = append(records, reconcileWebsite(declared[channel], crawl))
			continue
		}
		records = append(records, reconcileChannel(channel, declared[channel], crawled[channel]))
	}

	health := summarize(records)
	logrus.Debugf("Reconciled %d channels: %d verified, health %.1f",
		len(records), health.VerifiedSources, health.HealthScore)

	return records, health
}

// classifyLinks buckets crawled links per channel, preserving crawl order so
// confidence ties resolve to the earliest-discovered candidate.
func classifyLinks(links []string) map[Channel][]string {
	buckets := make(map[Channel][]string)
	for _, link := range links {
		if channel := ClassifyURL(link); channel != "" {
			buckets[channel] = append(buckets[channel], link)
		}
	}
	return buckets
}

// reconcileWebsite handles the website channel: the crawl target is the
// declared URL itself, so a successful crawl is independent confirmation.
func reconcileWebsite(declaredURL string, crawl scraper.Result) SourceRecord {
	record := SourceRecord{Channel: ChannelWebsite, Status: StatusMissing}

	if declaredURL == "" {
		return record
	}

	record.DeclaredURL = declaredURL
	record.URL = declaredURL
	record.Status = StatusTaostatsOnly

	if crawl.Status == scraper.StatusSuccess {
		record.Status = StatusBoth
		record.CrawledURL = scraper.NormalizeURL(crawl.URL)
		record.MatchConfidence = 1.0
	}

	return record
}

func reconcileChannel(channel Channel, declaredURL string, candidates []string) SourceRecord {
	record := SourceRecord{Channel: channel, Status: StatusMissing}

	if declaredURL == "" {
		if len(candidates) > 0 {
			record.Status = StatusWebsiteOnly
			record.URL = candidates[0]
			record.CrawledURL = candidates[0]
		}
		return record
	}

	record.DeclaredURL = declaredURL
	record.URL = declaredURL
	record.Status = StatusTaostatsOnly

	// Strictly-greater comparison keeps the earliest candidate on ties.
	best := 0.0
	bestURL := ""
	for _, candidate := range candidates {
		if confidence := MatchConfidence(declaredURL, candidate); confidence > best {
			best = confidence
			bestURL = candidate
		}
	}

	if best > 0 {
		record.Status = StatusBoth
		record.CrawledURL = bestURL
		record.MatchConfidence = best
	}

	return record
}

// MatchConfidence scores how well a crawled URL confirms a declared one:
// 1.0 for identical normalized URLs, 0.5-0.9 for the same host with
// diverging paths (linear in shared path prefix), 0 otherwise.
func MatchConfidence(declaredURL, crawledURL string) float64 {
	if declaredURL == crawledURL {
		return 1.0
	}

	declaredHost := scraper.ExtractHost(declaredURL)
	crawledHost := scraper.ExtractHost(crawledURL)
	if declaredHost == "" || declaredHost != crawledHost {
		return 0
	}

	return 0.5 + 0.4*pathSimilarity(urlPath(declaredURL), urlPath(crawledURL))
}

func urlPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.Trim(parsed.Path, "/")
}

// pathSimilarity is the shared prefix length over the longer path length, in
// [0,1]. Two empty paths are identical apart from normalization noise.
func pathSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}

	shared := 0
	for shared < len(a) && shared < len(b) && a[shared] == b[shared] {
		shared++
	}

	return float64(shared) / float64(longest)
}

// summarize computes the health metrics over one subnet's records. A subnet
// with zero known sources scores 0, never NaN.
func summarize(records []SourceRecord) HealthSummary {
	var health HealthSummary

	for _, record := range records {
		switch record.Status {
		case StatusBoth:
			health.TotalSources++
			health.VerifiedSources++
		case StatusTaostatsOnly:
			health.TotalSources++
			health.MissingSources++
		case StatusWebsiteOnly:
			health.TotalSources++
			health.NewSources++
		}
	}

	if health.TotalSources > 0 {
		score := float64(health.VerifiedSources) / float64(health.TotalSources) * 100
		health.HealthScore = math.Round(score*10) / 10
	}

	return health
}
