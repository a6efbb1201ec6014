package verifier

import (
	"regexp"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/scraper"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/taostats"
)

// Channel classification patterns, checked in Channels order. A URL matching
// none of them classifies to no channel and is ignored by reconciliation.
var channelPatterns = map[Channel][]*regexp.Regexp{
	ChannelGithub: {
		regexp.MustCompile(`(?i)github\.com`),
		regexp.MustCompile(`(?i)github\.io`),
	},
	ChannelDiscord: {
		regexp.MustCompile(`(?i)discord\.gg`),
		regexp.MustCompile(`(?i)discord\.com/invite`),
		regexp.MustCompile(`(?i)discordapp\.com/invite`),
	},
	ChannelTwitter: {
		regexp.MustCompile(`(?i)twitter\.com`),
		regexp.MustCompile(`(?i)(^|/)x\.com`),
	},
	ChannelDocs: {
		regexp.MustCompile(`(?i)^https?://docs\.`),
		regexp.MustCompile(`(?i)gitbook\.io`),
		regexp.MustCompile(`(?i)notion\.site`),
		regexp.MustCompile(`(?i)readme\.io`),
		regexp.MustCompile(`(?i)/docs(/|$)`),
		regexp.MustCompile(`(?i)/documentation(/|$)`),
	},
}

// ClassifyURL maps a URL to the channel it belongs to, or "" when it matches
// no known channel pattern. The website channel is never assigned here: it is
// reconciled against the crawl target itself.
func ClassifyURL(url string) Channel {
	for _, channel := range Channels {
		patterns, ok := channelPatterns[channel]
		if !ok {
			continue
		}
		for _, pattern := range patterns {
			if pattern.MatchString(url) {
				return channel
			}
		}
	}
	return ""
}

// NormalizeDeclared flattens the registry's declared sources into the fixed
// channel map. The free-form contact URL is classified like a crawled link;
// one that classifies to nothing is dropped rather than guessed at.
func NormalizeDeclared(sources taostats.DeclaredSources) map[Channel]string {
	declared := make(map[Channel]string)

	if url := scraper.NormalizeURL(sources.Website); url != "" {
		declared[ChannelWebsite] = url
	}
	if url := scraper.NormalizeURL(sources.Github); url != "" {
		declared[ChannelGithub] = url
	}
	if url := scraper.NormalizeURL(sources.Discord); url != "" {
		declared[ChannelDiscord] = url
	}

	if url := scraper.NormalizeURL(sources.Contact); url != "" {
		if channel := ClassifyURL(url); channel != "" {
			if _, taken := declared[channel]; !taken {
				declared[channel] = url
			}
		}
	}

	return declared
}
