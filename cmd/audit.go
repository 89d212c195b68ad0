package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/internal/audit"
	"github.com/brightway-clinics/seo-audit/internal/model"
)

var (
	auditURLs          []string
	auditSkipPageSpeed bool
	auditSkipGSC       bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a manual audit over the priority page list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch := initOrchestrator(st)

		runID, err := orch.RunAudit(ctx, audit.RunConfig{
			ScheduleType:     model.ScheduleManual,
			URLs:             auditURLs,
			IncludePageSpeed: !auditSkipPageSpeed,
			IncludeGSC:       !auditSkipGSC,
		})
		if err != nil {
			return eris.Wrap(err, "audit run")
		}

		results, err := st.GetAuditRunResults(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "fetch audit results")
		}

		zap.L().Info("audit complete",
			zap.String("run_id", runID),
			zap.Int("urls", len(results.URLs)),
			zap.Int("issues", len(results.Issues)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	auditCmd.Flags().StringSliceVar(&auditURLs, "url", nil, "audit only these URLs (repeatable; default: full priority list)")
	auditCmd.Flags().BoolVar(&auditSkipPageSpeed, "skip-pagespeed", false, "skip performance probing")
	auditCmd.Flags().BoolVar(&auditSkipGSC, "skip-gsc", false, "skip index inspection")
	rootCmd.AddCommand(auditCmd)
}
