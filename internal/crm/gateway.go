// Package crm wraps the HubSpot client with the pipeline's degradation
// policy: a missing token or a failed lookup never stops lead processing,
// it only downgrades the lead to "unlinked".
package crm

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/hubspot"
)

const engagementLimit = 10

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Gateway exposes the three CRM operations the pipeline needs. A nil
// underlying client (no token configured) degrades every operation to a
// logged no-op.
type Gateway struct {
	client hubspot.Client
}

// NewGateway wraps a HubSpot client. Pass nil when no token is configured.
func NewGateway(client hubspot.Client) *Gateway {
	return &Gateway{client: client}
}

// Configured reports whether a CRM client is wired in.
func (g *Gateway) Configured() bool {
	return g.client != nil
}

// Check looks up a contact by exact email. Lookup failures and a missing
// token both yield an unlinked result, never an error.
func (g *Gateway) Check(ctx context.Context, email string) model.CrmLinkage {
	if g.client == nil || email == "" {
		return model.CrmLinkage{}
	}

	contact, err := g.client.SearchContactByEmail(ctx, email)
	if err != nil {
		zap.L().Warn("crm contact lookup failed, treating lead as new",
			zap.String("email", email),
			zap.Error(err))
		return model.CrmLinkage{}
	}
	if contact == nil {
		return model.CrmLinkage{}
	}

	return model.CrmLinkage{ContactID: contact.ID, Exists: true}
}

// Qualified and not-qualified property sets, written as-is to the contact.
var (
	qualifiedProperties = map[string]string{
		"lifecyclestage": "lead",
		"hs_lead_status": "OPEN",
		"lead_status":    "Qualified",
	}
	notQualifiedProperties = map[string]string{
		"hs_lead_status": "UNQUALIFIED",
		"lead_status":    "KO",
	}
)

// Update writes the verdict's property set to the contact. Failures are
// returned for accounting but must not block the rest of the pipeline.
func (g *Gateway) Update(ctx context.Context, contactID string, qualified bool) error {
	if g.client == nil {
		zap.L().Info("crm update skipped, no token configured",
			zap.String("contact_id", contactID))
		return nil
	}

	properties := notQualifiedProperties
	if qualified {
		properties = qualifiedProperties
	}
	return g.client.UpdateContact(ctx, contactID, properties)
}

// EngagementHistory fetches up to 10 recent notes, calls, tasks, and
// meetings, stripped of markup and truncated to short previews. Each
// category is best-effort: a failed fetch yields an empty list for that
// category only.
func (g *Gateway) EngagementHistory(ctx context.Context, contactID string) *model.EngagementHistory {
	history := &model.EngagementHistory{}
	if g.client == nil {
		return history
	}

	history.Notes = g.fetchCategory(ctx, contactID, "notes",
		[]string{"hs_note_body", "hs_createdate"},
		func(props map[string]string) model.EngagementItem {
			return model.EngagementItem{
				Date: shortDate(props["hs_createdate"]),
				Text: truncate(stripHTML(props["hs_note_body"]), 200),
			}
		})

	history.Calls = g.fetchCategory(ctx, contactID, "calls",
		[]string{"hs_call_title", "hs_call_body", "hs_createdate"},
		func(props map[string]string) model.EngagementItem {
			text := props["hs_call_title"]
			if body := stripHTML(props["hs_call_body"]); body != "" {
				if text != "" {
					text += ": "
				}
				text += truncate(body, 150)
			}
			return model.EngagementItem{
				Date: shortDate(props["hs_createdate"]),
				Text: text,
			}
		})

	history.Tasks = g.fetchCategory(ctx, contactID, "tasks",
		[]string{"hs_task_subject", "hs_task_status"},
		func(props map[string]string) model.EngagementItem {
			text := props["hs_task_subject"]
			if status := props["hs_task_status"]; status != "" {
				text += " (" + status + ")"
			}
			return model.EngagementItem{Text: text}
		})

	history.Meetings = g.fetchCategory(ctx, contactID, "meetings",
		[]string{"hs_meeting_title", "hs_meeting_starttime"},
		func(props map[string]string) model.EngagementItem {
			return model.EngagementItem{
				Date: shortDate(props["hs_meeting_starttime"]),
				Text: props["hs_meeting_title"],
			}
		})

	return history
}

func (g *Gateway) fetchCategory(ctx context.Context, contactID, objectType string, properties []string, toItem func(map[string]string) model.EngagementItem) []model.EngagementItem {
	objects, err := g.client.ListObjects(ctx, objectType, properties, engagementLimit)
	if err != nil {
		zap.L().Warn("crm engagement fetch failed",
			zap.String("contact_id", contactID),
			zap.String("object_type", objectType),
			zap.Error(err))
		return nil
	}

	var items []model.EngagementItem
	for _, obj := range objects {
		item := toItem(obj.Properties)
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// shortDate keeps the YYYY-MM-DD prefix of a CRM timestamp.
func shortDate(s string) string {
	if len(s) > 10 {
		return s[:10]
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
