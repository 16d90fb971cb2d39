package qualify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Engine runs lead qualification against an oracle and applies the fixed
// threshold and consensus policy to the raw responses.
type Engine struct {
	oracle       Oracle
	parse        func(string) (*rawVerdict, error)
	structured   bool
	doubleVerify bool
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithDoubleVerify enables the two-call consensus protocol.
func WithDoubleVerify(enabled bool) EngineOption {
	return func(e *Engine) {
		e.doubleVerify = enabled
	}
}

// NewEngine builds an engine over the oracle. structured selects the
// strict-JSON output contract (and its parser); otherwise the labelled
// marker contract is used.
func NewEngine(oracle Oracle, structured bool, opts ...EngineOption) *Engine {
	e := &Engine{
		oracle:     oracle,
		structured: structured,
	}
	if structured {
		e.parse = parseStructured
	} else {
		e.parse = parseMarker
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Qualify produces the verdict for a lead. Oracle transport failures and
// unparsable responses surface as errors; no verdict is fabricated. In
// double-verification mode a single failed or malformed call aborts the
// whole qualification.
func (e *Engine) Qualify(ctx context.Context, lead model.LeadRecord, history *model.EngagementHistory) (*model.QualificationVerdict, error) {
	prompt := BuildPrompt(lead, history, e.structured)

	first, err := e.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if !e.doubleVerify {
		verdict := finalize(first)
		verdict.Agreement = model.AgreementNone
		return verdict, nil
	}

	// Second call is intentionally sequential. Two independent samples of
	// a noisy oracle; the identical prompt is reissued.
	second, err := e.call(ctx, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "qualify: verification call")
	}

	if first.Qualified != second.Qualified {
		zap.L().Warn("qualification calls disagreed",
			zap.String("email", lead.Email),
			zap.Int("first_score", first.Score),
			zap.Int("second_score", second.Score))

		return &model.QualificationVerdict{
			Profile:   model.ProfileSpam,
			Score:     min(first.Score, second.Score),
			Qualified: false,
			Reasoning: fmt.Sprintf("Verification calls disagreed (%d vs %d); forced not qualified. First: %s Second: %s",
				first.Score, second.Score, first.Reasoning, second.Reasoning),
			Agreement: model.AgreementDisagreed,
		}, nil
	}

	merged := &rawVerdict{
		Profile:   first.Profile,
		Score:     (first.Score + second.Score) / 2,
		Qualified: first.Qualified,
		Reasoning: first.Reasoning,
		Sources:   first.Sources,
	}
	verdict := finalize(merged)
	// The agreed boolean is the consensus outcome, subject only to the
	// spam override.
	verdict.Qualified = first.Qualified && verdict.Profile != model.ProfileSpam
	verdict.Agreement = model.AgreementAgreed
	return verdict, nil
}

func (e *Engine) call(ctx context.Context, prompt string) (*rawVerdict, error) {
	text, err := e.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "qualify: oracle call")
	}
	return e.parse(text)
}

// finalize folds a raw parse into the fixed vocabulary and threshold
// policy. Non-spam verdicts in the 50-69 band are remapped to the
// possible-but-unverified profile.
func finalize(raw *rawVerdict) *model.QualificationVerdict {
	profile := model.ParseProfile(raw.Profile)
	if profile != model.ProfileSpam && raw.Score >= model.ScorePossible && raw.Score < model.ScoreQualified {
		profile = model.ProfilePossible
	}

	return &model.QualificationVerdict{
		Profile:   profile,
		Score:     raw.Score,
		Qualified: model.DeriveQualified(profile, raw.Score),
		Reasoning: raw.Reasoning,
		Sources:   raw.Sources,
	}
}
