package webhook

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/crm"
	"github.com/sells-group/lead-qualifier/internal/dedup"
	"github.com/sells-group/lead-qualifier/internal/dispatch"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
)

// processTimeout bounds one lead's end-to-end processing. Web-search
// qualification runs minutes, twice under double-verification.
const processTimeout = 10 * time.Minute

// Qualifier is the slice of the qualification engine the pipeline needs.
type Qualifier interface {
	Qualify(ctx context.Context, lead model.LeadRecord, history *model.EngagementHistory) (*model.QualificationVerdict, error)
}

// Pipeline runs the per-lead processing sequence: CRM check, engagement
// enrichment, qualification, accounting, and outcome dispatch.
type Pipeline struct {
	ledger     *dedup.Ledger
	crm        *crm.Gateway
	engine     Qualifier
	dispatcher *dispatch.Dispatcher
	stats      *monitoring.Stats
	feed       *monitoring.Feed
}

// NewPipeline wires the pipeline.
func NewPipeline(ledger *dedup.Ledger, gateway *crm.Gateway, engine Qualifier, dispatcher *dispatch.Dispatcher, stats *monitoring.Stats, feed *monitoring.Feed) *Pipeline {
	return &Pipeline{
		ledger:     ledger,
		crm:        gateway,
		engine:     engine,
		dispatcher: dispatcher,
		stats:      stats,
		feed:       feed,
	}
}

// Accept admits the lead into the dedup ledger. It must run synchronously
// in the webhook handler, before any asynchronous work, so that concurrent
// deliveries of the same lead race on the ledger and not on the pipeline.
func (p *Pipeline) Accept(lead model.LeadRecord) bool {
	if p.ledger.Admit(lead.Email) {
		return true
	}

	p.stats.RecordDuplicate()
	p.feed.Add(monitoring.LevelInfo, "duplicate suppressed", lead.FullName, map[string]any{
		"email": lead.Email,
	})
	zap.L().Info("duplicate lead suppressed",
		zap.String("email", lead.Email))
	return false
}

// Process runs the full sequence for an admitted lead. It never returns an
// error; failures are accounted and logged, and the pipeline stops short of
// CRM update and dispatch when no verdict was produced.
func (p *Pipeline) Process(ctx context.Context, lead model.LeadRecord) {
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	linkage := p.crm.Check(ctx, lead.Email)
	if p.crm.Configured() && lead.Email != "" {
		p.stats.RecordCrmCheck(linkage.Exists)
	}

	var history *model.EngagementHistory
	if linkage.Exists {
		history = p.crm.EngagementHistory(ctx, linkage.ContactID)
	}

	verdict, err := p.engine.Qualify(ctx, lead, history)
	if err != nil {
		p.stats.RecordError()
		p.feed.Add(monitoring.LevelError, "qualification failed", lead.FullName, map[string]any{
			"email": lead.Email,
			"error": err.Error(),
		})
		zap.L().Error("qualification failed",
			zap.String("email", lead.Email),
			zap.Error(err))
		return
	}

	p.stats.RecordVerdict(verdict.Qualified, verdict.Profile == model.ProfileSpam)

	level := monitoring.LevelWarning
	outcome := "lead not qualified"
	if verdict.Qualified {
		level = monitoring.LevelSuccess
		outcome = "lead qualified"
	}
	p.feed.Add(level, outcome, lead.FullName, map[string]any{
		"email":     lead.Email,
		"profile":   string(verdict.Profile),
		"score":     verdict.Score,
		"agreement": string(verdict.Agreement),
	})
	zap.L().Info(outcome,
		zap.String("email", lead.Email),
		zap.String("profile", string(verdict.Profile)),
		zap.Int("score", verdict.Score),
		zap.String("agreement", string(verdict.Agreement)))

	p.dispatcher.Dispatch(ctx, lead, verdict, linkage)

	p.ledger.Sweep()
}
