package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/internal/audit"
	"github.com/brightway-clinics/seo-audit/internal/model"
	"github.com/brightway-clinics/seo-audit/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch := initOrchestrator(st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, orch),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the dashboard API routes.
func newRouter(st store.Store, runner audit.AuditRunner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/audits", func(r chi.Router) {
		r.Post("/", handleStartAudit(runner))
		r.Get("/", handleListAudits(st))
		r.Get("/{runID}", handleGetAudit(st))
		r.Get("/{runID}/results", handleGetAuditResults(st))
	})

	return r
}

func handleStartAudit(runner audit.AuditRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ScheduleType string   `json:"schedule_type"`
			URLs         []string `json:"urls"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
		}

		// Only manual runs come through the API; nightly and weekly are the
		// scheduler's.
		if req.ScheduleType != "" && req.ScheduleType != string(model.ScheduleManual) {
			http.Error(w, `{"error":"schedule_type must be manual"}`, http.StatusBadRequest)
			return
		}

		runID, err := runner.StartAudit(r.Context(), audit.RunConfig{
			ScheduleType:     model.ScheduleManual,
			URLs:             req.URLs,
			IncludePageSpeed: true,
			IncludeGSC:       true,
		})
		if err != nil {
			zap.L().Error("start audit failed", zap.Error(err))
			http.Error(w, `{"error":"failed to start audit"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
	}
}

func handleListAudits(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
				return
			}
			limit = n
		}

		runs, err := st.ListAuditRuns(r.Context(), limit)
		if err != nil {
			zap.L().Error("list audits failed", zap.Error(err))
			http.Error(w, `{"error":"failed to list audits"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func handleGetAudit(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetAuditRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
				return
			}
			zap.L().Error("get audit failed", zap.Error(err))
			http.Error(w, `{"error":"failed to fetch run"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

func handleGetAuditResults(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := st.GetAuditRunResults(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
				return
			}
			zap.L().Error("get audit results failed", zap.Error(err))
			http.Error(w, `{"error":"failed to fetch results"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, results)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
