package qualify

import (
	"fmt"
	"strings"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Trusted directories the oracle is told to check before concluding spam.
var directoryHints = []string{"Doctolib.fr", "annuaire.sante.fr", "LinkedIn"}

// BuildPrompt renders the qualification instruction for a lead. The output
// contract differs per strategy: structured demands a single strict JSON
// object, marker demands a labelled PROFILE/QUALIFIED/SCORE block. When
// prior CRM engagement exists it is appended verbatim with an instruction
// that explicit negative signals force a negative verdict.
func BuildPrompt(lead model.LeadRecord, history *model.EngagementHistory, structured bool) string {
	var b strings.Builder

	b.WriteString("You are a dental lead qualification analyst for France. You MUST perform THOROUGH web searches.\n\n")

	b.WriteString("LEAD TO VERIFY:\n")
	fmt.Fprintf(&b, "Name: %s\n", orUnknown(lead.FullName))
	fmt.Fprintf(&b, "Email: %s\n", orUnknown(lead.Email))
	fmt.Fprintf(&b, "Phone: %s\n", orUnknown(lead.Phone))
	fmt.Fprintf(&b, "Country: %s\n", orUnknown(lead.Country))
	if lead.PostalCode != "" {
		fmt.Fprintf(&b, "Postal code: %s\n", lead.PostalCode)
	}

	b.WriteString("\nCRITICAL INSTRUCTIONS:\n")
	b.WriteString("1. You MUST search MULTIPLE sources before concluding SPAM\n")
	b.WriteString("2. Web search can be flaky - try different search variations\n")
	b.WriteString("3. If the first search finds nothing, try: name only, name + \"chirurgien dentiste\", name + \"doctolib\"\n")
	fmt.Fprintf(&b, "4. Check: %s, Google (general search)\n", strings.Join(directoryHints, ", "))
	b.WriteString("5. A Gmail address does NOT automatically mean SPAM - many French dentists use Gmail\n")

	if queries := searchQueries(lead.FullName); len(queries) > 0 {
		b.WriteString("\nSEARCH QUERIES TO TRY (in order):\n")
		for i, q := range queries {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}

	b.WriteString("\nSCORING (0-100):\n")
	b.WriteString("+50: Found on Doctolib.fr or annuaire.sante.fr as dentist\n")
	b.WriteString("+30: Email has dental domain (cabinet*.fr, *dentaire.fr, clinique*.fr)\n")
	b.WriteString("+20: Professional email (not gmail/yahoo/hotmail)\n")
	b.WriteString("+10: Complete info (name+email+phone)\n")
	b.WriteString("-20: Gmail address (ONLY if no web verification found)\n")

	b.WriteString("\nQUALIFICATION:\n")
	b.WriteString("Score >= 70: QUALIFIED\n")
	b.WriteString("Score 50-69: POSSIBLE\n")
	b.WriteString("Score < 50: NOT QUALIFIED\n")

	b.WriteString("\nONLY classify as SPAM if:\n")
	b.WriteString("- No web presence found AFTER THOROUGH SEARCHING\n")
	b.WriteString("- Name appears nowhere as dentist\n")
	b.WriteString("- No dental indicators at all\n")

	if !history.Empty() {
		b.WriteString("\nPRIOR CRM ENGAGEMENT HISTORY:\n")
		writeEngagement(&b, "Notes", history.Notes)
		writeEngagement(&b, "Calls", history.Calls)
		writeEngagement(&b, "Tasks", history.Tasks)
		writeEngagement(&b, "Meetings", history.Meetings)
		b.WriteString("\nIf the history contains explicit negative signals (e.g. \"wrong number\", \"not interested\", \"fake\"), the lead is NOT QUALIFIED regardless of any other evidence.\n")
	}

	if structured {
		b.WriteString("\nReturn ONLY JSON:\n")
		b.WriteString(`{"is_dentist": true/false, "profile_type": "Dentiste/Orthodontiste/Etudiant/Autre/SPAM", "score": 75, "qualified": true/false, "sources": ["http://..."], "reasoning": "What you found and where"}`)
		b.WriteString("\n")
	} else {
		b.WriteString("\nOUTPUT FORMAT (EXACT):\n")
		b.WriteString("PROFILE: [Dentiste / Autre / SPAM]\n")
		b.WriteString("QUALIFIED: [yes/no]\n")
		b.WriteString("SCORE: [0-100]\n")
		b.WriteString("SOURCES:\n")
		b.WriteString("- http://...\n")
		b.WriteString("REASONING: [brief explanation]\n")
	}

	return b.String()
}

// searchQueries builds name-variant web queries, capped at six. Variants
// strip honorifics so directory searches match registry spellings.
func searchQueries(fullName string) []string {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return nil
	}

	stripped := name
	for _, prefix := range []string{"Dr. ", "Dr ", "Pr. ", "Pr "} {
		stripped = strings.TrimPrefix(stripped, prefix)
	}
	stripped = strings.TrimSpace(stripped)

	variants := []string{name}
	if stripped != name && stripped != "" {
		variants = append(variants, stripped)
	}

	var queries []string
	for _, v := range variants[:min(2, len(variants))] {
		queries = append(queries,
			fmt.Sprintf(`site:fr "%s" dentiste`, v),
			fmt.Sprintf(`site:fr "%s" chirurgien dentiste`, v),
			fmt.Sprintf(`site:doctolib.fr "%s"`, v),
			fmt.Sprintf(`"%s" dentiste France`, v),
		)
	}
	if len(queries) > 6 {
		queries = queries[:6]
	}
	return queries
}

func writeEngagement(b *strings.Builder, label string, items []model.EngagementItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, it := range items {
		if it.Date != "" {
			fmt.Fprintf(b, "- [%s] %s\n", it.Date, it.Text)
		} else {
			fmt.Fprintf(b, "- %s\n", it.Text)
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
