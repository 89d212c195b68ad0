package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brightway-clinics/seo-audit/internal/audit"
	"github.com/brightway-clinics/seo-audit/internal/store"
	"github.com/brightway-clinics/seo-audit/pkg/pagespeed"
	"github.com/brightway-clinics/seo-audit/pkg/searchconsole"
)

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	}
	if err != nil {
		return nil, eris.Wrapf(err, "init %s store", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initOrchestrator wires the measurement clients and the orchestrator.
// Missing credentials are tolerated: the probers surface them as soft
// errors, which the classifier turns into psi-error/gsc-error issues.
func initOrchestrator(st store.Store) *audit.Orchestrator {
	var psiClient pagespeed.Client
	if cfg.PageSpeed.Key != "" {
		psiClient = pagespeed.NewClient(cfg.PageSpeed.Key,
			pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL),
			pagespeed.WithRateLimit(cfg.PageSpeed.RPS),
		)
	}

	var gscClient searchconsole.Client
	if cfg.SearchConsole.Token != "" {
		gscClient = searchconsole.NewClient(cfg.SearchConsole.Token, cfg.SearchConsole.SiteURL,
			searchconsole.WithBaseURL(cfg.SearchConsole.BaseURL),
			searchconsole.WithRateLimit(cfg.SearchConsole.RPS),
		)
	}

	return audit.NewOrchestrator(
		st,
		audit.NewProber(psiClient),
		audit.NewInspector(gscClient),
		cfg.Audit.BaseURL,
		time.Duration(cfg.Audit.DelaySecs)*time.Second,
	)
}
