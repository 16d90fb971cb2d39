package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/extract"
	"github.com/sells-group/lead-qualifier/internal/model"
)

var (
	qualifyText   string
	qualifyName   string
	qualifyEmail  string
	qualifyPhone  string
	qualifyUpdate bool
)

// qualifyCmd runs a single qualification from the command line, outside the
// webhook flow. Useful for prompt tuning and verifying credentials.
var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Qualify a single lead from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		var lead model.LeadRecord
		switch {
		case qualifyText != "":
			lead = extract.Lead(qualifyText)
		case qualifyName != "" || qualifyEmail != "":
			lead = model.LeadRecord{
				FullName: qualifyName,
				Email:    qualifyEmail,
				Phone:    qualifyPhone,
			}
			lead.FirstName, lead.LastName = model.SplitName(qualifyName)
		default:
			return eris.New("qualify: provide --text or at least one of --name/--email")
		}

		svc, err := initServices(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		linkage := svc.gateway.Check(ctx, lead.Email)
		var history *model.EngagementHistory
		if linkage.Exists {
			history = svc.gateway.EngagementHistory(ctx, linkage.ContactID)
			zap.L().Info("contact found in crm",
				zap.String("contact_id", linkage.ContactID))
		}

		verdict, err := svc.engine.Qualify(ctx, lead, history)
		if err != nil {
			return eris.Wrap(err, "qualify: run")
		}

		if qualifyUpdate && linkage.ContactID != "" {
			if err := svc.gateway.Update(ctx, linkage.ContactID, verdict.Qualified); err != nil {
				zap.L().Warn("crm update failed", zap.Error(err))
			}
		}

		out := struct {
			Lead    model.LeadRecord            `json:"lead"`
			Verdict *model.QualificationVerdict `json:"verdict"`
		}{Lead: lead, Verdict: verdict}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	qualifyCmd.Flags().StringVar(&qualifyText, "text", "", "raw lead notification text to extract and qualify")
	qualifyCmd.Flags().StringVar(&qualifyName, "name", "", "lead full name")
	qualifyCmd.Flags().StringVar(&qualifyEmail, "email", "", "lead email")
	qualifyCmd.Flags().StringVar(&qualifyPhone, "phone", "", "lead phone")
	qualifyCmd.Flags().BoolVar(&qualifyUpdate, "update", false, "write the verdict back to the CRM contact")
	rootCmd.AddCommand(qualifyCmd)
}
