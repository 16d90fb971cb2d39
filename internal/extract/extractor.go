// Package extract parses free-text Slack lead notifications into structured
// lead records. Extraction is pattern-based: an ordered cascade of
// independent rules per field, first successful match wins, and a field with
// no match defaults to empty. Extraction never fails.
package extract

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/lead-qualifier/internal/model"
)

var (
	extractEmail = emailRule()
	extractPhone = phoneRule()
	extractName  = nameRule()
)

// Lead parses one raw message into a LeadRecord. The result is a pure
// function of the input text: re-running on the same text yields an
// identical record.
func Lead(text string) model.LeadRecord {
	lead := model.LeadRecord{RawMessage: text}

	if v, ok := extractEmail(text); ok {
		lead.Email = v
	}
	if v, ok := extractPhone(text); ok {
		lead.Phone = v
	}
	if v, ok := extractName(text); ok {
		lead.FullName = v
		lead.FirstName, lead.LastName = model.SplitName(v)
	}
	if m := countryRe.FindStringSubmatch(text); m != nil {
		lead.Country = strings.TrimSpace(m[1])
		lead.PostalCode = strings.TrimSpace(m[2])
	}
	if m := sourceRe.FindStringSubmatch(text); m != nil {
		lead.Source = strings.TrimSpace(m[1])
	}
	if m := salesOwnerRe.FindStringSubmatch(text); m != nil {
		lead.SalesOwner = strings.TrimSpace(m[1])
	}

	lead.EmailHintDental = lead.Email != "" && dentalHintRe.MatchString(strings.ToLower(lead.Email))
	lead.PhoneE164 = normalizeE164(lead.Phone, lead.Country)

	return lead
}

// countryRegions maps extracted country names to phone regions. The lead
// flow is French-speaking Europe; anything unrecognized falls back to FR.
var countryRegions = map[string]string{
	"france":      "FR",
	"belgique":    "BE",
	"belgium":     "BE",
	"suisse":      "CH",
	"switzerland": "CH",
	"luxembourg":  "LU",
	"canada":      "CA",
}

// normalizeE164 formats an extracted phone to E.164. Returns empty when the
// number does not parse or is not valid for the region; the raw extracted
// phone is always preserved alongside.
func normalizeE164(phone, country string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}

	region, ok := countryRegions[strings.ToLower(country)]
	if !ok {
		region = "FR"
	}

	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
