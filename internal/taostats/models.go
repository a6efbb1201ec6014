package taostats

import "time"

// DeclaredSources are the links a subnet publishes on the registry. Empty
// string means the channel was not declared. Contact is free-form and gets
// classified into a concrete channel during reconciliation.
type DeclaredSources struct {
	Website string `json:"website,omitempty"`
	Github  string `json:"github,omitempty"`
	Discord string `json:"discord,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Subnet is the canonical identity record for one netuid. NetUID never
// changes once registered; emission and active are refreshed on every run.
type Subnet struct {
	NetUID                int             `json:"netuid"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Sources               DeclaredSources `json:"sources"`
	Emission              float64         `json:"emission"`
	Active                bool            `json:"active"`
	RegistrationTimestamp string          `json:"registration_timestamp,omitempty"`
	FetchedAt             time.Time       `json:"fetched_at"`
}
