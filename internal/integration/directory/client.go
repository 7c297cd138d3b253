package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"ylabs/internal/common"
)

// Person is one directory record, reduced to the fields used for
// provisioning.
type Person struct {
	NetID      string
	FirstName  string
	LastName   string
	Email      string
	Year       string
	SchoolCode string
	College    string
	Major      []string
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a directory client. perSecond <= 0 disables throttling.
func NewClient(baseURL, apiKey string, httpClient *http.Client, perSecond float64, burst int) *HTTPClient {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &HTTPClient{
		baseURL:    trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

type peopleRequest struct {
	Filters map[string][]string `json:"filters"`
}

type personPayload struct {
	NetID      string          `json:"netid"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Email      string          `json:"email"`
	Year       json.RawMessage `json:"year"`
	SchoolCode string          `json:"school_code"`
	College    string          `json:"college"`
	Major      json.RawMessage `json:"major"`
}

// Lookup fetches one person by netid. A person without first name, last name
// or email is reported as not found.
func (c *HTTPClient) Lookup(ctx context.Context, netid string) (*Person, error) {
	netid = strings.ToLower(strings.TrimSpace(netid))
	if netid == "" {
		return nil, common.NewValidationError("netid is required", nil)
	}
	if c.baseURL == "" {
		return nil, common.NewError(common.CodeNotFound, "directory not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("directory rate limit: %w", err)
	}
	body, err := json.Marshal(peopleRequest{Filters: map[string][]string{"netid": {netid}}})
	if err != nil {
		return nil, fmt.Errorf("encode directory request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/people", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create directory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send directory request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read directory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var people []personPayload
	if err := json.Unmarshal(payload, &people); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	if len(people) == 0 {
		return nil, common.NewError(common.CodeNotFound, "person not found in directory", nil)
	}
	p := people[0]
	if p.FirstName == "" || p.LastName == "" || p.Email == "" {
		return nil, common.NewError(common.CodeNotFound, "directory record incomplete", nil)
	}
	netID := strings.ToLower(p.NetID)
	if netID == "" {
		netID = netid
	}
	return &Person{
		NetID:      netID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Year:       flexString(p.Year),
		SchoolCode: p.SchoolCode,
		College:    p.College,
		Major:      flexStrings(p.Major),
	}, nil
}

// flexString accepts a JSON string or number.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// flexStrings accepts a JSON string or array of strings.
func flexStrings(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			return []string{}
		}
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return []string{}
}
