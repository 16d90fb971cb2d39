package model

import "strings"

// Profile classifies a lead per the oracle's judgment.
type Profile string

const (
	ProfileVerified Profile = "Dentiste" // verified dental professional
	ProfilePossible Profile = "Possible" // plausible but unverified
	ProfileSpam     Profile = "SPAM"     // non-professional / spam
	ProfileOther    Profile = "Autre"
)

// Qualification score thresholds, fixed policy.
const (
	ScoreQualified = 70
	ScorePossible  = 50
)

// Agreement records the outcome of double-verification.
type Agreement string

const (
	AgreementNone      Agreement = ""          // single-call mode
	AgreementAgreed    Agreement = "agreed"    // both calls returned the same qualified flag
	AgreementDisagreed Agreement = "disagreed" // calls diverged; verdict forced negative
)

// QualificationVerdict is the oracle's judgment on a lead.
type QualificationVerdict struct {
	Profile   Profile   `json:"profile"`
	Score     int       `json:"score"`
	Qualified bool      `json:"qualified"`
	Reasoning string    `json:"reasoning"`
	Sources   []string  `json:"sources,omitempty"`
	Agreement Agreement `json:"agreement,omitempty"`
}

// ParseProfile folds an oracle-supplied classification string into the
// fixed vocabulary. Unknown strings map to ProfileOther.
func ParseProfile(s string) Profile {
	switch v := strings.ToLower(strings.TrimSpace(s)); {
	case v == "spam" || strings.Contains(v, "not dentist") || strings.Contains(v, "non-professional"):
		return ProfileSpam
	case strings.Contains(v, "dentiste") || strings.Contains(v, "dentist") || strings.Contains(v, "orthodontiste"):
		return ProfileVerified
	case strings.Contains(v, "possible"):
		return ProfilePossible
	case v == "":
		return ProfileOther
	default:
		return ProfileOther
	}
}

// DeriveQualified applies the fixed threshold policy: a SPAM classification
// always loses, score >= 70 qualifies, 50-69 is "possible" (not qualified
// for CRM purposes), below 50 is not qualified.
func DeriveQualified(profile Profile, score int) bool {
	if profile == ProfileSpam {
		return false
	}
	return score >= ScoreQualified
}
