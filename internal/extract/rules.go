package extract

import (
	"regexp"
	"strings"
)

// A rule attempts to pull one field value out of raw message text.
// Rules are pure: same text in, same value out.
type rule func(text string) (string, bool)

// firstMatch composes rules first-success-wins.
func firstMatch(rules ...rule) rule {
	return func(text string) (string, bool) {
		for _, r := range rules {
			if v, ok := r(text); ok {
				return v, true
			}
		}
		return "", false
	}
}

// capture returns a rule matching re and returning the given capture group,
// trimmed. Group 0 returns the whole match.
func capture(re *regexp.Regexp, group int) rule {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil || group >= len(m) {
			return "", false
		}
		v := strings.TrimSpace(m[group])
		if v == "" {
			return "", false
		}
		return v, true
	}
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+`)

	// Slack wraps phone numbers as <tel:+33612345678|06 12 34 56 78>;
	// the display portion is what humans typed.
	telLinkRe = regexp.MustCompile(`<tel:([^|]+)\|([^>]+)>`)

	labelledPhoneRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Mobile\s*:\s*([+\d\s-]+)`),
		regexp.MustCompile(`(?i)Phone\s*:\s*([+\d\s-]+)`),
		regexp.MustCompile(`(?i)Tel\s*:\s*([+\d\s-]+)`),
		regexp.MustCompile(`(?i)Téléphone\s*:\s*([+\d\s-]+)`),
		regexp.MustCompile(`(?i)GSM\s*:\s*([+\d\s-]+)`),
	}

	barePhoneRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:0|\+\d{1,3})[\d\s-]{8,}`),
		regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
	}

	nameRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)A new lead(?: has arrived)?\s*:\s*(.+?)\s+-`),
		regexp.MustCompile(`(?i)The following lead has booked[^:]*:\s*(.+?)\s+-`),
	}

	countryRe    = regexp.MustCompile(`-\s*([A-Za-z]+)\s*\(([^)]+)\)`)
	sourceRe     = regexp.MustCompile(`(?i)Coming from\s+([^→-]+?)(?:\s+-|→)`)
	salesOwnerRe = regexp.MustCompile(`(?i)Sales owner\s*:\s*([^\n→]+)`)

	dentalHintRe = regexp.MustCompile(`(?i)(dr\.|doc|docteur|cabinet|dentaire|dent)`)
)

func emailRule() rule {
	return capture(emailRe, 0)
}

func phoneRule() rule {
	rules := []rule{capture(telLinkRe, 2)}
	for _, re := range labelledPhoneRes {
		rules = append(rules, capture(re, 1))
	}
	for _, re := range barePhoneRes {
		rules = append(rules, capture(re, 0))
	}
	return firstMatch(rules...)
}

func nameRule() rule {
	rules := make([]rule, 0, len(nameRes))
	for _, re := range nameRes {
		rules = append(rules, capture(re, 1))
	}
	return firstMatch(rules...)
}
