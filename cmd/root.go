package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "seo-audit",
	Short: "SEO audit pipeline for the clinic marketing site",
	Long:  "Audits the priority page list against the PageSpeed and Search Console APIs, classifies findings into severity-ranked issues, and serves results to the admin dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
