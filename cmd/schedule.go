package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/internal/audit"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the nightly and weekly audit schedules",
	Long:  "Runs as a daemon, triggering the nightly subset audit and the weekly full audit on their cron schedules until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sched, err := audit.NewScheduler(initOrchestrator(st), cfg.Schedule)
		if err != nil {
			return err
		}

		sched.Start()
		zap.L().Info("schedule daemon running",
			zap.String("nightly", cfg.Schedule.Nightly),
			zap.String("weekly", cfg.Schedule.Weekly),
			zap.String("timezone", cfg.Schedule.Timezone),
		)

		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
