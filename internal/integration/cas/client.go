package cas

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ylabs/internal/common"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), httpClient: httpClient}
}

// LoginURL is where browsers are sent to sign in. CAS returns them to
// service with a ticket query parameter.
func (c *Client) LoginURL(service string) string {
	return c.baseURL + "/login?service=" + url.QueryEscape(service)
}

type serviceResponse struct {
	XMLName xml.Name `xml:"serviceResponse"`
	Success *struct {
		User string `xml:"user"`
	} `xml:"authenticationSuccess"`
	Failure *struct {
		Code    string `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"authenticationFailure"`
}

// Validate exchanges a service ticket for the authenticated netid using the
// CAS 2.0 serviceValidate endpoint.
func (c *Client) Validate(ctx context.Context, ticket, service string) (string, error) {
	if strings.TrimSpace(ticket) == "" {
		return "", common.NewError(common.CodeUnauthorized, "missing ticket", nil)
	}
	query := url.Values{"ticket": {ticket}, "service": {service}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/serviceValidate?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create cas request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send cas request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read cas response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cas error: status %d", resp.StatusCode)
	}
	var parsed serviceResponse
	if err := xml.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode cas response: %w", err)
	}
	if parsed.Success != nil && strings.TrimSpace(parsed.Success.User) != "" {
		return strings.ToLower(strings.TrimSpace(parsed.Success.User)), nil
	}
	if parsed.Failure != nil {
		return "", common.NewError(common.CodeUnauthorized, "CAS authentication failed", fmt.Errorf("%s: %s", parsed.Failure.Code, strings.TrimSpace(parsed.Failure.Message)))
	}
	return "", common.NewError(common.CodeUnauthorized, "CAS authentication failed", nil)
}
