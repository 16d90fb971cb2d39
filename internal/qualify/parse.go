package qualify

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnparsable marks an oracle response that yielded no usable verdict.
// It is a distinct failure, never silently converted into a negative
// verdict: "the oracle said no" and "we could not read the oracle" must
// stay distinguishable downstream.
var ErrUnparsable = eris.New("qualify: unparsable oracle response")

// rawVerdict is the strict intermediate parse result, before the threshold
// policy and profile vocabulary are applied.
type rawVerdict struct {
	Profile   string
	Score     int
	Qualified bool
	Reasoning string
	Sources   []string
}

// oracleJSON mirrors the strict JSON contract of the structured strategy.
type oracleJSON struct {
	IsDentist   *bool    `json:"is_dentist"`
	ProfileType string   `json:"profile_type"`
	Score       *float64 `json:"score"`
	Qualified   *bool    `json:"qualified"`
	Sources     []string `json:"sources"`
	Reasoning   string   `json:"reasoning"`
}

// parseStructured decodes the strict-JSON contract. Markdown code fences
// are stripped first; when strict decoding fails, the first balanced {...}
// span is tried before giving up.
func parseStructured(text string) (*rawVerdict, error) {
	cleaned := strings.TrimSpace(stripCodeFences(text))
	if cleaned == "" {
		return nil, eris.Wrap(ErrUnparsable, "empty response")
	}

	var payload oracleJSON
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		span, ok := balancedBraceSpan(cleaned)
		if !ok {
			return nil, eris.Wrapf(ErrUnparsable, "no JSON object in response: %s", preview(cleaned))
		}
		if err := json.Unmarshal([]byte(span), &payload); err != nil {
			return nil, eris.Wrapf(ErrUnparsable, "invalid JSON object: %s", preview(span))
		}
	}

	if payload.Qualified == nil && payload.ProfileType == "" && payload.Score == nil {
		return nil, eris.Wrapf(ErrUnparsable, "JSON carries none of the contract keys: %s", preview(cleaned))
	}

	raw := &rawVerdict{
		Profile:   payload.ProfileType,
		Reasoning: payload.Reasoning,
		Sources:   payload.Sources,
	}
	if payload.Score != nil {
		raw.Score = int(*payload.Score)
	}
	if payload.Qualified != nil {
		raw.Qualified = *payload.Qualified
	}
	return raw, nil
}

var (
	profileLabelRe   = regexp.MustCompile(`(?im)^\s*PROFILE\s*:\s*\[?([^\]\n]+)\]?\s*$`)
	qualifiedLabelRe = regexp.MustCompile(`(?i)QUALIFIED\s*:\s*\[?\s*(yes|no|true|false)`)
	scoreLabelRe     = regexp.MustCompile(`(?i)SCORE\s*:\s*\[?\s*(\d+)`)
	reasoningLabelRe = regexp.MustCompile(`(?is)REASONING\s*:\s*(.+)$`)
	sourceLineRe     = regexp.MustCompile(`(?m)^\s*-\s*(https?://\S+)`)
)

// parseMarker decodes the labelled end-marker contract of the marker
// strategy. The qualified flag comes from the QUALIFIED label, or failing
// that a recognizable affirmative/negative phrase. Score defaults to 0 when
// the SCORE label is absent, except that a recognizable header block
// (PROFILE + QUALIFIED) with no numeric score defaults to 90 so that
// well-formed-but-incomplete responses are not penalized.
func parseMarker(text string) (*rawVerdict, error) {
	cleaned := strings.TrimSpace(stripCodeFences(text))
	if cleaned == "" {
		return nil, eris.Wrap(ErrUnparsable, "empty response")
	}

	raw := &rawVerdict{}

	profileFound := false
	if m := profileLabelRe.FindStringSubmatch(cleaned); m != nil {
		raw.Profile = strings.TrimSpace(m[1])
		profileFound = true
	}

	qualifiedFound := false
	if m := qualifiedLabelRe.FindStringSubmatch(cleaned); m != nil {
		v := strings.ToLower(m[1])
		raw.Qualified = v == "yes" || v == "true"
		qualifiedFound = true
	} else if q, ok := qualifiedFromPhrase(cleaned); ok {
		raw.Qualified = q
		qualifiedFound = true
	}

	scoreFound := false
	if m := scoreLabelRe.FindStringSubmatch(cleaned); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			raw.Score = n
			scoreFound = true
		}
	}
	if !scoreFound && profileFound && qualifiedFound {
		raw.Score = 90
	}

	if !qualifiedFound {
		return nil, eris.Wrapf(ErrUnparsable, "no qualification markers in response: %s", preview(cleaned))
	}

	if m := reasoningLabelRe.FindStringSubmatch(cleaned); m != nil {
		raw.Reasoning = strings.TrimSpace(m[1])
	}
	for _, m := range sourceLineRe.FindAllStringSubmatch(cleaned, -1) {
		raw.Sources = append(raw.Sources, m[1])
	}

	return raw, nil
}

// qualifiedFromPhrase recognizes affirmative/negative prose when the
// QUALIFIED label is missing. Negative phrases are checked first: "not
// qualified" contains "qualified".
func qualifiedFromPhrase(text string) (bool, bool) {
	lower := strings.ToLower(text)
	for _, p := range []string{"not qualified", "non qualifie", "non qualifié", "unqualified"} {
		if strings.Contains(lower, p) {
			return false, true
		}
	}
	for _, p := range []string{"lead qualified", "is qualified", "qualified: this lead"} {
		if strings.Contains(lower, p) {
			return true, true
		}
	}
	return false, false
}

// stripCodeFences removes markdown ``` fences (with or without a language
// tag) that models like to wrap output in.
func stripCodeFences(text string) string {
	out := strings.ReplaceAll(text, "```json", "")
	return strings.ReplaceAll(out, "```", "")
}

// balancedBraceSpan returns the first balanced {...} span in text.
func balancedBraceSpan(text string) (string, bool) {
	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func preview(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
