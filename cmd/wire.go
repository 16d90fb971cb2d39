package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/crm"
	"github.com/sells-group/lead-qualifier/internal/dedup"
	"github.com/sells-group/lead-qualifier/internal/dispatch"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
	"github.com/sells-group/lead-qualifier/internal/qualify"
	"github.com/sells-group/lead-qualifier/internal/resilience"
	"github.com/sells-group/lead-qualifier/pkg/glm"
	"github.com/sells-group/lead-qualifier/pkg/hubspot"
	"github.com/sells-group/lead-qualifier/pkg/slack"
)

// services holds the wired application components shared by the commands.
type services struct {
	gateway    *crm.Gateway
	engine     *qualify.Engine
	dispatcher *dispatch.Dispatcher
	ledger     *dedup.Ledger
	stats      *monitoring.Stats
	feed       *monitoring.Feed
}

// initServices builds the component graph from config. Missing Slack or
// HubSpot credentials degrade the corresponding capability instead of
// failing startup; a missing oracle credential is fatal since no verdict
// can be produced without one.
func initServices(cfg *config.Config) (*services, error) {
	var hubClient hubspot.Client
	if cfg.HubSpot.Token != "" {
		hubClient = hubspot.NewClient(cfg.HubSpot.Token, hubspot.WithBaseURL(cfg.HubSpot.BaseURL))
	} else {
		zap.L().Warn("hubspot token not set, crm features disabled")
	}
	gateway := crm.NewGateway(hubClient)

	var slackClient slack.Client
	if cfg.Slack.Token != "" {
		slackClient = slack.NewClient(cfg.Slack.Token)
	} else {
		zap.L().Warn("slack token not set, reactions and dms disabled")
	}

	engine, err := buildEngine(cfg.Oracle)
	if err != nil {
		return nil, err
	}

	return &services{
		gateway:    gateway,
		engine:     engine,
		dispatcher: dispatch.NewDispatcher(gateway, slackClient, cfg.Slack.NotifyUser),
		ledger:     dedup.NewLedger(dedup.WithWindow(time.Duration(cfg.Dedup.WindowSecs) * time.Second)),
		stats:      monitoring.NewStats(),
		feed:       monitoring.NewFeed(),
	}, nil
}

func buildEngine(cfg config.OracleConfig) (*qualify.Engine, error) {
	switch cfg.Strategy {
	case "structured":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("wire: oracle.anthropic.key is required for the structured strategy")
		}
		oracle := qualify.NewStructuredOracle(cfg.Anthropic.Key, cfg.Anthropic.BaseURL, cfg.Anthropic.Model)
		return qualify.NewEngine(oracle, true, qualify.WithDoubleVerify(cfg.DoubleVerify)), nil

	case "marker", "":
		if cfg.GLM.Key == "" {
			return nil, eris.New("wire: oracle.glm.key is required for the marker strategy")
		}
		client := glm.NewClient(cfg.GLM.Key,
			glm.WithBaseURL(cfg.GLM.BaseURL),
			glm.WithModel(cfg.GLM.Model),
			glm.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}),
			glm.WithRetryPolicy(resilience.Policy{
				MaxAttempts:    cfg.MaxAttempts,
				InitialBackoff: 2 * time.Second,
			}),
		)
		oracle := qualify.NewMarkerOracle(client, cfg.GLM.Model)
		return qualify.NewEngine(oracle, false, qualify.WithDoubleVerify(cfg.DoubleVerify)), nil

	default:
		return nil, eris.Errorf("wire: unknown oracle strategy %q", cfg.Strategy)
	}
}
