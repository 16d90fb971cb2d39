// Package dispatch fans a finished verdict out to the systems of record:
// the CRM status update, the channel reaction, and the notification DM.
// Every step is best-effort; one failing never suppresses the others.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-qualifier/internal/crm"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/slack"
)

const (
	reactionQualified    = "white_check_mark"
	reactionNotQualified = "x"

	reasoningPreviewRunes = 200
)

// Dispatcher applies a verdict's side effects.
type Dispatcher struct {
	crm        *crm.Gateway
	slack      slack.Client
	notifyUser string
}

// NewDispatcher wires the dispatcher. slack may be nil when no bot token
// is configured; notifyUser is the Slack user ID that receives DMs for
// qualified leads, empty to disable.
func NewDispatcher(gateway *crm.Gateway, slackClient slack.Client, notifyUser string) *Dispatcher {
	return &Dispatcher{
		crm:        gateway,
		slack:      slackClient,
		notifyUser: notifyUser,
	}
}

// Dispatch runs the three outcome steps concurrently. Failures are logged
// per step and never returned; by the time a verdict exists the pipeline
// must not abort.
func (d *Dispatcher) Dispatch(ctx context.Context, lead model.LeadRecord, verdict *model.QualificationVerdict, linkage model.CrmLinkage) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.updateCRM(ctx, lead, verdict, linkage)
		return nil
	})
	g.Go(func() error {
		d.react(ctx, lead, verdict)
		return nil
	})
	g.Go(func() error {
		d.notify(ctx, lead, verdict)
		return nil
	})

	_ = g.Wait()
}

func (d *Dispatcher) updateCRM(ctx context.Context, lead model.LeadRecord, verdict *model.QualificationVerdict, linkage model.CrmLinkage) {
	if linkage.ContactID == "" {
		return
	}
	if err := d.crm.Update(ctx, linkage.ContactID, verdict.Qualified); err != nil {
		zap.L().Warn("crm status update failed",
			zap.String("contact_id", linkage.ContactID),
			zap.String("email", lead.Email),
			zap.Error(err))
	}
}

func (d *Dispatcher) react(ctx context.Context, lead model.LeadRecord, verdict *model.QualificationVerdict) {
	if d.slack == nil || lead.Channel == "" || lead.Timestamp == "" {
		return
	}

	name := reactionNotQualified
	if verdict.Qualified {
		name = reactionQualified
	}
	if err := d.slack.AddReaction(ctx, lead.Channel, lead.Timestamp, name); err != nil {
		zap.L().Warn("reaction failed",
			zap.String("channel", lead.Channel),
			zap.String("reaction", name),
			zap.Error(err))
	}
}

func (d *Dispatcher) notify(ctx context.Context, lead model.LeadRecord, verdict *model.QualificationVerdict) {
	if d.slack == nil || d.notifyUser == "" || !verdict.Qualified {
		return
	}

	channelID, err := d.slack.OpenDM(ctx, d.notifyUser)
	if err != nil {
		zap.L().Warn("dm channel open failed",
			zap.String("user", d.notifyUser),
			zap.Error(err))
		return
	}
	if err := d.slack.PostMessage(ctx, channelID, FormatSummary(lead, verdict)); err != nil {
		zap.L().Warn("dm post failed",
			zap.String("user", d.notifyUser),
			zap.Error(err))
	}
}

// FormatSummary renders the human-readable verdict summary posted as a DM.
func FormatSummary(lead model.LeadRecord, verdict *model.QualificationVerdict) string {
	emoji, status := "❌", "NON QUALIFIE"
	if verdict.Qualified {
		emoji, status = "✅", "QUALIFIE"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s LEAD %s\n\n", emoji, status)
	fmt.Fprintf(&b, "👤 %s\n", orUnknown(lead.FullName))
	fmt.Fprintf(&b, "📧 %s\n", orUnknown(lead.Email))
	fmt.Fprintf(&b, "📞 %s\n", orUnknown(lead.Phone))
	fmt.Fprintf(&b, "🏥 %s\n", string(verdict.Profile))
	fmt.Fprintf(&b, "📊 Score: %d/100\n", verdict.Score)
	if verdict.Reasoning != "" {
		fmt.Fprintf(&b, "\n💡 %s", truncate(verdict.Reasoning, reasoningPreviewRunes))
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
