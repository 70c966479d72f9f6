// Package sourcedata retrieves raw map descriptors and enrichment data from
// the upstream services and normalizes them into strict descriptors.
package sourcedata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/raidatlas/internal/maps"
	perrors "github.com/louisbranch/raidatlas/internal/platform/errors"
)

// Client talks to the descriptor feed and the query-based enrichment
// service. Both responses are consumed read-only.
type Client struct {
	descriptorURL string
	queryURL      string
	userAgent     string
	httpClient    *http.Client
}

// NewClient creates a source data client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(descriptorURL, queryURL, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		descriptorURL: descriptorURL,
		queryURL:      queryURL,
		userAgent:     userAgent,
		httpClient:    httpClient,
	}
}

// FetchGroups downloads and decodes the raw descriptor feed.
func (c *Client) FetchGroups(ctx context.Context) ([]Group, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.descriptorURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build descriptor request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch descriptor feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, perrors.WithMetadata(perrors.CodeHTTPStatus,
			fmt.Sprintf("descriptor feed returned %s", resp.Status),
			map[string]string{"resource": "descriptor feed", "status": strconv.Itoa(resp.StatusCode)})
	}

	var groups []Group
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		return nil, perrors.Wrap(perrors.CodeDecodeFailed, "decode descriptor feed", err)
	}
	return groups, nil
}

const (
	namesQuery    = `{maps{normalizedName name}}`
	spawnsQuery   = `{maps{normalizedName spawns{position{x y z}sides categories}}}`
	extractsQuery = `{maps{normalizedName extracts{name faction position{x y z}}}}`
)

type queryPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type queryMaps struct {
	Maps []struct {
		NormalizedName string `json:"normalizedName"`
		Name           string `json:"name"`
		Spawns         []struct {
			Position   queryPosition `json:"position"`
			Sides      []string      `json:"sides"`
			Categories []string      `json:"categories"`
		} `json:"spawns"`
		Extracts []struct {
			Name     string         `json:"name"`
			Faction  string         `json:"faction"`
			Position *queryPosition `json:"position"`
		} `json:"extracts"`
	} `json:"maps"`
}

type queryEnvelope struct {
	Data   *queryMaps `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query POSTs one query document to the enrichment endpoint and returns the
// decoded data section. Response-level errors are hard failures.
func (c *Client) query(ctx context.Context, document string) (*queryMaps, error) {
	body, err := json.Marshal(map[string]string{"query": document})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query enrichment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, perrors.WithMetadata(perrors.CodeHTTPStatus,
			fmt.Sprintf("enrichment service returned %s", resp.Status),
			map[string]string{"resource": "enrichment service", "status": strconv.Itoa(resp.StatusCode)})
	}

	var envelope queryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, perrors.Wrap(perrors.CodeDecodeFailed, "decode enrichment response", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return nil, perrors.New(perrors.CodeQueryFailed, strings.Join(messages, "; "))
	}
	if envelope.Data == nil {
		return nil, perrors.New(perrors.CodeQueryNoData, "enrichment response missing data")
	}
	return envelope.Data, nil
}

// FetchNames returns display names keyed by normalized name.
func (c *Client) FetchNames(ctx context.Context) (map[string]string, error) {
	data, err := c.query(ctx, namesQuery)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(data.Maps))
	for _, m := range data.Maps {
		names[m.NormalizedName] = m.Name
	}
	return names, nil
}

// FetchSpawns returns player spawn points keyed by normalized name.
//
// The retention filter runs here, once: only spawns whose sides include
// "pmc" or "all" and whose categories include "player" survive. Viewers
// never re-filter.
func (c *Client) FetchSpawns(ctx context.Context) (map[string][]maps.Spawn, error) {
	data, err := c.query(ctx, spawnsQuery)
	if err != nil {
		return nil, err
	}

	spawns := make(map[string][]maps.Spawn, len(data.Maps))
	for _, m := range data.Maps {
		var kept []maps.Spawn
		for _, s := range m.Spawns {
			if !isPlayerSpawn(s.Sides, s.Categories) {
				continue
			}
			kept = append(kept, maps.Spawn{
				Position:   [3]float64{s.Position.X, s.Position.Y, s.Position.Z},
				Sides:      s.Sides,
				Categories: s.Categories,
			})
		}
		spawns[m.NormalizedName] = kept
	}
	return spawns, nil
}

func isPlayerSpawn(sides, categories []string) bool {
	eligible := false
	for _, side := range sides {
		if side == "pmc" || side == "all" {
			eligible = true
			break
		}
	}
	if !eligible {
		return false
	}
	for _, cat := range categories {
		if cat == "player" {
			return true
		}
	}
	return false
}

// FetchExtracts returns extraction points keyed by normalized name.
// Entries missing a name or faction are dropped.
func (c *Client) FetchExtracts(ctx context.Context) (map[string][]maps.Extract, error) {
	data, err := c.query(ctx, extractsQuery)
	if err != nil {
		return nil, err
	}

	extracts := make(map[string][]maps.Extract, len(data.Maps))
	for _, m := range data.Maps {
		var kept []maps.Extract
		for _, e := range m.Extracts {
			if e.Name == "" || e.Faction == "" {
				continue
			}
			extract := maps.Extract{Name: e.Name, Faction: e.Faction}
			if e.Position != nil {
				extract.Position = &[3]float64{e.Position.X, e.Position.Y, e.Position.Z}
			}
			kept = append(kept, extract)
		}
		extracts[m.NormalizedName] = kept
	}
	return extracts, nil
}
