package verifier

// Channel is one of the fixed source link kinds a subnet may publish.
type Channel string

const (
	ChannelWebsite Channel = "website"
	ChannelGithub  Channel = "github"
	ChannelDiscord Channel = "discord"
	ChannelTwitter Channel = "twitter"
	ChannelDocs    Channel = "docs"
)

// Channels lists every channel in its fixed output order. Reconciliation
// iterates this slice so repeated runs produce identical record ordering.
var Channels = []Channel{
	ChannelWebsite,
	ChannelGithub,
	ChannelDiscord,
	ChannelTwitter,
	ChannelDocs,
}

// Source record statuses.
const (
	StatusBoth         = "both"          // declared and independently found on the site
	StatusTaostatsOnly = "taostats_only" // declared but not found on crawl
	StatusWebsiteOnly  = "website_only"  // found on crawl but not declared
	StatusMissing      = "missing"       // neither origin has it
)

// SourceRecord is the reconciled view of one (subnet, channel) pair. Records
// are recomputed in full on every run; none outlives a run.
type SourceRecord struct {
	Channel         Channel `json:"channel"`
	URL             string  `json:"url,omitempty"`
	DeclaredURL     string  `json:"declared_url,omitempty"`
	CrawledURL      string  `json:"crawled_url,omitempty"`
	Status          string  `json:"status"`
	MatchConfidence float64 `json:"match_confidence"`
}

// HealthSummary aggregates source verification for one subnet.
type HealthSummary struct {
	TotalSources    int     `json:"total_sources"`
	VerifiedSources int     `json:"verified_sources"`
	NewSources      int     `json:"new_sources"`
	MissingSources  int     `json:"missing_sources"`
	HealthScore     float64 `json:"health_score"`
}
