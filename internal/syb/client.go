// Package syb talks to the music platform's GraphQL API: account and zone
// discovery, remote schedule creation and playlist-to-zone assignment.
package syb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"music-brief-scheduler/pkg/circuit"
	apperrors "music-brief-scheduler/pkg/errors"
	"music-brief-scheduler/pkg/logging"
)

const accountsPageSize = 200

// Account is one platform account (a business).
type Account struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
}

// Zone is one sound zone under an account.
type Zone struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"location"`
}

// Slot is one weekly RRULE slot in a remote schedule.
type Slot struct {
	RRule       string   `json:"rrule"`
	Start       string   `json:"start"` // HHMMSS
	Duration    int64    `json:"duration"` // milliseconds
	PlaylistIDs []string `json:"playlistIds"`
}

// ScheduleInput is the createSchedule payload.
type ScheduleInput struct {
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	PresentAs   string `json:"presentAs"`
	Description string `json:"description"`
	Slots       []Slot `json:"slots"`
}

// Client is the GraphQL adapter. Mutations run under a circuit breaker so a
// failing upstream trips fast for the executor.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
	log     *logging.ComponentLogger
}

func NewClient(token, baseURL string, breaker *circuit.Breaker, log *logging.Logger) *Client {
	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
		log:     log.WithComponent("syb"),
	}
}

// Configured reports whether a platform token is present.
func (c *Client) Configured() bool { return c.token != "" }

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if !c.Configured() {
		return apperrors.NewExternal("syb.do", "syb", "no API token configured", nil)
	}
	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return apperrors.NewExternal("syb.do", "syb", "marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewExternal("syb.do", "syb", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewExternal("syb.do", "syb", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewExternal("syb.do", "syb",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.NewExternal("syb.do", "syb", "decode response", err)
	}
	if len(envelope.Errors) > 0 {
		return apperrors.NewExternal("syb.do", "syb", envelope.Errors[0].Message, nil)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperrors.NewExternal("syb.do", "syb", "unmarshal data", err)
		}
	}
	return nil
}

// AccountsPage fetches one page of accounts.
func (c *Client) AccountsPage(ctx context.Context, cursor string) (accounts []Account, hasNext bool, endCursor string, err error) {
	query := `query Accounts($first: Int!, $after: String) {
		me { accounts(first: $first, after: $after) {
			pageInfo { hasNextPage endCursor }
			edges { node { id businessName } }
		} }
	}`
	variables := map[string]interface{}{"first": accountsPageSize}
	if cursor != "" {
		variables["after"] = cursor
	}

	var data struct {
		Me struct {
			Accounts struct {
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
				Edges []struct {
					Node Account `json:"node"`
				} `json:"edges"`
			} `json:"accounts"`
		} `json:"me"`
	}
	if err := c.do(ctx, query, variables, &data); err != nil {
		return nil, false, "", err
	}
	for _, e := range data.Me.Accounts.Edges {
		accounts = append(accounts, e.Node)
	}
	return accounts, data.Me.Accounts.PageInfo.HasNextPage, data.Me.Accounts.PageInfo.EndCursor, nil
}

// Zones lists up to 100 sound zones for an account.
func (c *Client) Zones(ctx context.Context, accountID string) ([]Zone, error) {
	query := `query Zones($id: ID!) {
		account(id: $id) { soundZones(first: 100) {
			edges { node { id name location { id name } } }
		} }
	}`
	var data struct {
		Account struct {
			SoundZones struct {
				Edges []struct {
					Node Zone `json:"node"`
				} `json:"edges"`
			} `json:"soundZones"`
		} `json:"account"`
	}
	if err := c.do(ctx, query, map[string]interface{}{"id": accountID}, &data); err != nil {
		return nil, err
	}
	var zones []Zone
	for _, e := range data.Account.SoundZones.Edges {
		zones = append(zones, e.Node)
	}
	return zones, nil
}

// CreateSchedule builds a remote schedule and returns its id.
func (c *Client) CreateSchedule(ctx context.Context, in ScheduleInput) (string, error) {
	query := `mutation CreateSchedule($input: CreateScheduleInput!) {
		createSchedule(input: $input) { schedule { id } }
	}`
	var data struct {
		CreateSchedule struct {
			Schedule struct {
				ID string `json:"id"`
			} `json:"schedule"`
		} `json:"createSchedule"`
	}
	err := c.mutate(ctx, func(ctx context.Context) error {
		return c.do(ctx, query, map[string]interface{}{"input": in}, &data)
	})
	if err != nil {
		return "", err
	}
	return data.CreateSchedule.Schedule.ID, nil
}

// AddToMusicLibrary links a source into an account's library. Best effort;
// callers log failures and move on.
func (c *Client) AddToMusicLibrary(ctx context.Context, accountID, sourceID string) error {
	query := `mutation AddToLibrary($input: AddToMusicLibraryInput!) {
		addToMusicLibrary(input: $input) { musicLibrary { id } }
	}`
	input := map[string]interface{}{"parent": accountID, "source": sourceID}
	return c.do(ctx, query, map[string]interface{}{"input": input}, nil)
}

// AssignSource points sound zones at a source: either a playlist (daily
// executor path) or a schedule (approval binding). Same mutation both ways.
func (c *Client) AssignSource(ctx context.Context, zoneIDs []string, sourceID string) error {
	query := `mutation Assign($input: SoundZoneAssignSourceInput!) {
		soundZoneAssignSource(input: $input) { soundZones }
	}`
	input := map[string]interface{}{"soundZones": zoneIDs, "source": sourceID}
	return c.mutate(ctx, func(ctx context.Context) error {
		return c.do(ctx, query, map[string]interface{}{"input": input}, nil)
	})
}

func (c *Client) mutate(ctx context.Context, op func(ctx context.Context) error) error {
	if c.breaker == nil {
		return op(ctx)
	}
	return c.breaker.Do(ctx, op, nil)
}
