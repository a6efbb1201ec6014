// Package taostats implements the registry metadata source. It is the sole
// owner of subnet identity fields: every later phase treats its output as the
// freshest network truth.
package taostats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/config"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/faults"
	"github.com/allanbellahsene/tao-galaxy-pipeline/internal/retry"
	"github.com/sirupsen/logrus"
)

// Client talks to the taostats registry API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a registry client from the runtime configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.TaostatsBaseURL,
		apiKey:  cfg.TaostatsAPIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		},
		policy: retry.Policy{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: time.Duration(cfg.RetryDelayMs) * time.Millisecond,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Retryable:    faults.IsRetryable,
		},
	}
}

// identityRecord mirrors the registry identity payload. All fields except
// netuid are optional; absence means the subnet simply has not declared them.
type identityRecord struct {
	NetUID        *int   `json:"netuid"`
	SubnetName    string `json:"subnet_name"`
	Description   string `json:"description"`
	GithubRepo    string `json:"github_repo"`
	SubnetURL     string `json:"subnet_url"`
	Discord       string `json:"discord"`
	SubnetContact string `json:"subnet_contact"`
}

// statsRecord mirrors the registry latest-stats payload.
type statsRecord struct {
	NetUID                *int     `json:"netuid"`
	Emission              *float64 `json:"emission"`
	SubtokenEnabled       *bool    `json:"subtoken_enabled"`
	RegistrationTimestamp string   `json:"registration_timestamp"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// FetchAllSubnets returns one Subnet per registered netuid, merging the
// identity and latest-stats endpoints. Emission values are converted to
// percentages of total network emission.
func (c *Client) FetchAllSubnets(ctx context.Context) ([]Subnet, error) {
	identities, err := c.fetchIdentities(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := c.fetchStats(ctx)
	if err != nil {
		return nil, err
	}

	// Percentage conversion happens before the merge so that partial stats
	// coverage cannot skew the denominator per subnet.
	var totalEmission float64
	for _, s := range stats {
		if s.Emission != nil {
			totalEmission += *s.Emission
		}
	}

	statsByID := make(map[int]statsRecord, len(stats))
	for _, s := range stats {
		if s.NetUID != nil {
			statsByID[*s.NetUID] = s
		}
	}

	subnets := make([]Subnet, 0, len(identities))
	for _, id := range identities {
		if id.NetUID == nil {
			logrus.Warn("Skipping identity record without netuid")
			continue
		}

		subnet := Subnet{
			NetUID:      *id.NetUID,
			Name:        id.SubnetName,
			Description: id.Description,
			Sources: DeclaredSources{
				Website: id.SubnetURL,
				Github:  id.GithubRepo,
				Discord: id.Discord,
				Contact: id.SubnetContact,
			},
			FetchedAt: time.Now().UTC(),
		}

		if s, ok := statsByID[subnet.NetUID]; ok {
			if s.Emission != nil && totalEmission > 0 {
				subnet.Emission = *s.Emission / totalEmission * 100
			}
			if s.SubtokenEnabled != nil {
				subnet.Active = *s.SubtokenEnabled
			}
			subnet.RegistrationTimestamp = s.RegistrationTimestamp
		}

		subnets = append(subnets, subnet)
	}

	logrus.Infof("Fetched %d subnets from registry", len(subnets))
	return subnets, nil
}

func (c *Client) fetchIdentities(ctx context.Context) ([]identityRecord, error) {
	raw, err := c.get(ctx, "/subnet/identity/v1")
	if err != nil {
		return nil, err
	}

	var records []identityRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &faults.MalformedResponseError{
			Source: "taostats identity",
			Detail: fmt.Sprintf("data is not an identity array: %v", err),
		}
	}
	return records, nil
}

func (c *Client) fetchStats(ctx context.Context) ([]statsRecord, error) {
	raw, err := c.get(ctx, "/subnet/latest/v1")
	if err != nil {
		return nil, err
	}

	var records []statsRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &faults.MalformedResponseError{
			Source: "taostats stats",
			Detail: fmt.Sprintf("data is not a stats array: %v", err),
		}
	}
	return records, nil
}

// get performs an authenticated GET under the retry policy and returns the
// payload's data array.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	endpoint := c.baseURL + path

	var data json.RawMessage
	err := c.policy.Do(ctx, "taostats "+path, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &faults.UpstreamError{Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &faults.UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &faults.UpstreamError{Endpoint: endpoint, Err: err}
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return &faults.MalformedResponseError{
				Source: "taostats",
				Detail: fmt.Sprintf("invalid JSON envelope: %v", err),
			}
		}
		if env.Data == nil {
			return &faults.MalformedResponseError{
				Source: "taostats",
				Detail: "response missing data field",
			}
		}

		data = env.Data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}
