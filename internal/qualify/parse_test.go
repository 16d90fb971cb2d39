package qualify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    rawVerdict
		wantErr bool
	}{
		{
			name:  "strict_json",
			input: `{"is_dentist": true, "profile_type": "Dentiste", "score": 85, "qualified": true, "sources": ["https://www.doctolib.fr/dentiste/paris/jean-dupont"], "reasoning": "Found on Doctolib"}`,
			want: rawVerdict{
				Profile:   "Dentiste",
				Score:     85,
				Qualified: true,
				Reasoning: "Found on Doctolib",
				Sources:   []string{"https://www.doctolib.fr/dentiste/paris/jean-dupont"},
			},
		},
		{
			name:  "fenced_json",
			input: "```json\n{\"profile_type\": \"SPAM\", \"score\": 10, \"qualified\": false, \"reasoning\": \"No web presence\"}\n```",
			want: rawVerdict{
				Profile:   "SPAM",
				Score:     10,
				Reasoning: "No web presence",
			},
		},
		{
			name:  "json_embedded_in_prose",
			input: `After searching multiple sources, here is my verdict: {"profile_type": "Autre", "score": 40, "qualified": false, "reasoning": "Name found but no dental link"} I hope this helps.`,
			want: rawVerdict{
				Profile:   "Autre",
				Score:     40,
				Reasoning: "Name found but no dental link",
			},
		},
		{
			name:  "float_score",
			input: `{"profile_type": "Dentiste", "score": 72.5, "qualified": true, "reasoning": "ok"}`,
			want: rawVerdict{
				Profile:   "Dentiste",
				Score:     72,
				Qualified: true,
				Reasoning: "ok",
			},
		},
		{
			name:    "prose_only",
			input:   "I could not determine anything about this lead.",
			wantErr: true,
		},
		{
			name:    "json_without_contract_keys",
			input:   `{"message": "hello"}`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructured(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnparsable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    rawVerdict
		wantErr bool
	}{
		{
			name: "full_block",
			input: "PROFILE: Dentiste\nQUALIFIED: yes\nSCORE: 85\nSOURCES:\n- https://www.doctolib.fr/dentiste/paris/jean-dupont\n- https://annuaire.sante.fr/jean-dupont\nREASONING: Listed on Doctolib as chirurgien-dentiste in Paris.",
			want: rawVerdict{
				Profile:   "Dentiste",
				Score:     85,
				Qualified: true,
				Reasoning: "Listed on Doctolib as chirurgien-dentiste in Paris.",
				Sources: []string{
					"https://www.doctolib.fr/dentiste/paris/jean-dupont",
					"https://annuaire.sante.fr/jean-dupont",
				},
			},
		},
		{
			name:  "bracketed_values",
			input: "PROFILE: [SPAM]\nQUALIFIED: [no]\nSCORE: [5]\nREASONING: nothing found",
			want: rawVerdict{
				Profile:   "SPAM",
				Score:     5,
				Reasoning: "nothing found",
			},
		},
		{
			name:  "header_without_score_defaults_90",
			input: "PROFILE: Dentiste\nQUALIFIED: yes\nREASONING: verified on the order's registry",
			want: rawVerdict{
				Profile:   "Dentiste",
				Score:     90,
				Qualified: true,
				Reasoning: "verified on the order's registry",
			},
		},
		{
			name:  "phrase_fallback_negative",
			input: "After extensive searching this lead is not qualified. SCORE: 20",
			want: rawVerdict{
				Score: 20,
			},
		},
		{
			name:  "phrase_without_score_defaults_0",
			input: "This person appears nowhere, not qualified.",
			want:  rawVerdict{},
		},
		{
			name:    "no_markers_at_all",
			input:   "The weather in Paris is lovely today.",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMarker(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnparsable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestBalancedBraceSpan(t *testing.T) {
	t.Parallel()

	span, ok := balancedBraceSpan(`prefix {"a": {"b": 1}} suffix {"c": 2}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, span)

	_, ok = balancedBraceSpan("no braces here")
	assert.False(t, ok)

	_, ok = balancedBraceSpan(`{"unterminated": `)
	assert.False(t, ok)
}
