// Package webhook hosts the Slack events endpoint and the operational API,
// and drives the per-lead processing pipeline behind them.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/extract"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
)

// slackEnvelope is the outer Slack Events API payload.
type slackEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	Event     slackEvent `json:"event"`
}

// slackEvent is the inner message event.
type slackEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	Ts      string `json:"ts"`
	User    string `json:"user"`
}

// Controller terminates the webhook transport and applies the inbound
// filters before handing leads to the pipeline.
type Controller struct {
	pipeline *Pipeline
	stats    *monitoring.Stats
	feed     *monitoring.Feed

	allowedChannels map[string]struct{}
	leadPhrases     []string

	// run schedules lead processing; the default detaches a goroutine.
	run func(fn func(ctx context.Context))
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithSyncProcessing makes the controller process leads inline instead of
// on a detached goroutine. Test hook.
func WithSyncProcessing() ControllerOption {
	return func(c *Controller) {
		c.run = func(fn func(ctx context.Context)) {
			fn(context.Background())
		}
	}
}

// NewController wires the webhook controller.
func NewController(pipeline *Pipeline, stats *monitoring.Stats, feed *monitoring.Feed, slackCfg config.SlackConfig, opts ...ControllerOption) *Controller {
	c := &Controller{
		pipeline:    pipeline,
		stats:       stats,
		feed:        feed,
		leadPhrases: slackCfg.LeadPhrases,
		run: func(fn func(ctx context.Context)) {
			// The request context dies with the response; processing
			// carries its own deadline.
			go fn(context.Background())
		},
	}
	if len(slackCfg.AllowedChannels) > 0 {
		c.allowedChannels = make(map[string]struct{}, len(slackCfg.AllowedChannels))
		for _, ch := range slackCfg.AllowedChannels {
			c.allowedChannels[ch] = struct{}{}
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Router builds the HTTP routes.
func (c *Controller) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Post("/webhook", c.handleWebhook)
	r.Get("/health", c.handleHealth)
	r.Get("/api/stats", c.handleStats)
	r.Get("/api/logs", c.handleLogs)

	return r
}

// handleWebhook terminates the Slack Events API. Every inbound event gets
// a response; processing outcomes are never surfaced here beyond a generic
// status.
func (c *Controller) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope slackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	switch envelope.Type {
	case "url_verification":
		writeJSON(w, http.StatusOK, map[string]string{"challenge": envelope.Challenge})
		return
	case "event_callback":
		c.handleEvent(envelope.Event)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvent applies the inbound filters and admits the lead. Extraction
// and ledger admission run synchronously so concurrent duplicate deliveries
// resolve before the handler returns; qualification runs detached.
func (c *Controller) handleEvent(ev slackEvent) {
	if ev.Type != "message" || ev.BotID != "" || ev.Subtype != "" {
		return
	}
	if ev.Text == "" || ev.Channel == "" {
		return
	}
	if c.allowedChannels != nil {
		if _, ok := c.allowedChannels[ev.Channel]; !ok {
			return
		}
	}
	if !c.matchesLeadPhrase(ev.Text) {
		return
	}

	lead := extract.Lead(ev.Text)
	lead.Channel = ev.Channel
	lead.Timestamp = ev.Ts

	if !c.pipeline.Accept(lead) {
		return
	}

	c.feed.Add(monitoring.LevelInfo, "lead received", lead.FullName, map[string]any{
		"email":   lead.Email,
		"channel": ev.Channel,
	})
	zap.L().Info("lead received",
		zap.String("email", lead.Email),
		zap.String("channel", ev.Channel))

	c.run(func(ctx context.Context) {
		c.pipeline.Process(ctx, lead)
	})
}

func (c *Controller) matchesLeadPhrase(text string) bool {
	if len(c.leadPhrases) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, phrase := range c.leadPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

func (c *Controller) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dental-lead-qualifier",
	})
}

func (c *Controller) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.stats.Snapshot())
}

func (c *Controller) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.feed.Recent(50))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
