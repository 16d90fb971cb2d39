package model

import "strings"

// LeadRecord is one parsed Slack lead notification. Fields absent from the
// message default to empty strings; extraction never fails.
type LeadRecord struct {
	RawMessage string `json:"raw_message"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	PhoneE164  string `json:"phone_e164,omitempty"`
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	FullName   string `json:"full_name"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Source     string `json:"source"`
	SalesOwner string `json:"sales_owner"`

	// EmailHintDental is true when the email address itself contains a
	// dentistry-related token (dr., cabinet, dentaire, ...).
	EmailHintDental bool `json:"email_hint_dental"`

	// Slack origin, needed for the acknowledgement reaction.
	Channel   string `json:"channel,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	// CRM linkage, attached after the CRM check.
	CRM CrmLinkage `json:"crm"`
}

// CrmLinkage records the result of the CRM existence check for a lead.
// An empty ContactID means "new lead, not yet in the CRM".
type CrmLinkage struct {
	ContactID  string             `json:"contact_id,omitempty"`
	Exists     bool               `json:"exists"`
	Engagement *EngagementHistory `json:"engagement,omitempty"`
}

// EngagementHistory is a best-effort summary of prior CRM activity on a
// contact, used to enrich the qualification prompt.
type EngagementHistory struct {
	Notes    []EngagementItem `json:"notes"`
	Calls    []EngagementItem `json:"calls"`
	Tasks    []EngagementItem `json:"tasks"`
	Meetings []EngagementItem `json:"meetings"`
}

// EngagementItem is one dated, markup-stripped activity preview.
type EngagementItem struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// Empty reports whether no engagement items were found in any category.
func (h *EngagementHistory) Empty() bool {
	if h == nil {
		return true
	}
	return len(h.Notes) == 0 && len(h.Calls) == 0 && len(h.Tasks) == 0 && len(h.Meetings) == 0
}

// SplitName derives first/last name from a full name: first whitespace
// token is the first name, the remainder is the last name.
func SplitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
