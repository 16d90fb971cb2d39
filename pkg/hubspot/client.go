// Package hubspot provides access to the HubSpot CRM v3 REST API: exact
// contact search, property patches, and engagement object listings.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-qualifier/internal/resilience"
)

const (
	defaultBaseURL = "https://api.hubapi.com"

	// HubSpot private apps allow ~110 requests per 10 seconds.
	defaultRPS   = 10
	defaultBurst = 10
)

// Client defines the HubSpot API operations used by the pipeline.
type Client interface {
	SearchContactByEmail(ctx context.Context, email string) (*Contact, error)
	UpdateContact(ctx context.Context, contactID string, properties map[string]string) error
	ListObjects(ctx context.Context, objectType string, properties []string, limit int) ([]Object, error)
}

// Contact is a CRM contact row.
type Contact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Object is a generic CRM object (note, call, task, meeting).
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a HubSpot API client authenticated with a private-app token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int       `json:"total"`
	Results []Contact `json:"results"`
}

// SearchContactByEmail looks up a contact by exact email match. Returns nil
// when no contact matches.
func (c *httpClient) SearchContactByEmail(ctx context.Context, email string) (*Contact, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}},
		}},
		Properties: []string{"email", "hs_lead_status", "lifecyclestage"},
		Limit:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: marshal search request")
	}

	respBody, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", body)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal search response")
	}

	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}

// UpdateContact patches the given properties onto a contact.
func (c *httpClient) UpdateContact(ctx context.Context, contactID string, properties map[string]string) error {
	body, err := json.Marshal(map[string]any{"properties": properties})
	if err != nil {
		return eris.Wrap(err, "hubspot: marshal update request")
	}

	_, err = c.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+url.PathEscape(contactID), body)
	return err
}

type listResponse struct {
	Results []Object `json:"results"`
}

// ListObjects lists the most recent objects of the given type (notes,
// calls, tasks, meetings) with the requested properties.
func (c *httpClient) ListObjects(ctx context.Context, objectType string, properties []string, limit int) ([]Object, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("archived", "false")
	for _, p := range properties {
		q.Add("properties", p)
	}

	respBody, err := c.do(ctx, http.MethodGet, "/crm/v3/objects/"+url.PathEscape(objectType)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result listResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrapf(err, "hubspot: unmarshal %s list", objectType)
	}
	return result.Results, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hubspot: rate limiter")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("hubspot: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, truncate(string(respBody), 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
