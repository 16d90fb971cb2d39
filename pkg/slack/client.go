// Package slack provides the few Slack Web API methods the qualifier needs:
// posting messages, adding reactions, and opening direct-message channels.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/resilience"
)

const defaultBaseURL = "https://slack.com/api"

// Client defines the Slack Web API operations used by the dispatcher.
type Client interface {
	PostMessage(ctx context.Context, channel, text string) error
	AddReaction(ctx context.Context, channel, timestamp, name string) error
	OpenDM(ctx context.Context, userID string) (string, error)
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

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Slack Web API client with a bot token.
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
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// apiEnvelope is the common Slack response wrapper. Slack signals failure
// with ok=false and HTTP 200.
type apiEnvelope struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error"`
	Channel json.RawMessage `json:"channel"`
}

// PostMessage posts text to a channel (or DM channel).
func (c *httpClient) PostMessage(ctx context.Context, channel, text string) error {
	_, err := c.call(ctx, "chat.postMessage", map[string]any{
		"channel": channel,
		"text":    text,
	})
	return err
}

// AddReaction adds an emoji reaction to the message identified by channel
// and timestamp.
func (c *httpClient) AddReaction(ctx context.Context, channel, timestamp, name string) error {
	_, err := c.call(ctx, "reactions.add", map[string]any{
		"channel":   channel,
		"timestamp": timestamp,
		"name":      name,
	})
	return err
}

// OpenDM opens (or resumes) a direct-message channel with the user and
// returns its channel ID.
func (c *httpClient) OpenDM(ctx context.Context, userID string) (string, error) {
	env, err := c.call(ctx, "conversations.open", map[string]any{
		"users": userID,
	})
	if err != nil {
		return "", err
	}

	var ch struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Channel, &ch); err != nil {
		return "", eris.Wrap(err, "slack: unmarshal dm channel")
	}
	if ch.ID == "" {
		return "", eris.New("slack: conversations.open returned no channel id")
	}
	return ch.ID, nil
}

func (c *httpClient) call(ctx context.Context, method string, payload map[string]any) (*apiEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "slack: marshal %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "slack: create %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "slack: send %s", method)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "slack: read %s response", method)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("slack: %s: unexpected status %d", method, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, eris.Wrapf(err, "slack: unmarshal %s response", method)
	}
	if !env.OK {
		return nil, eris.Errorf("slack: %s failed: %s", method, env.Error)
	}

	return &env, nil
}
