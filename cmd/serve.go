package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/orchestrate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *appEnv) http.Handler {
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

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", handleSearch(env))
		r.Get("/scans/{id}", handleGetScan(env))
		r.Post("/scans/{id}/step", handleScanStep(env))
		r.Post("/merge", handleMerge(env))
		r.Post("/brokers/scan", handleBrokerScan(env))
	})

	return r
}

// handleSearch starts a scan and returns it with the search phase outcome.
func handleSearch(env *appEnv) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
		model.SearchInput
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sc, err := env.Machine.Start(r.Context(), req.UserID, req.SearchInput)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

func handleGetScan(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := env.Store.GetScan(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

// handleScanStep advances a scan. A selected_match confirms that candidate
// and scrapes its detail page; omitting it rejects the presented candidates
// and continues the search at the remaining sources.
func handleScanStep(env *appEnv) http.HandlerFunc {
	type request struct {
		SelectedMatch string `json:"selected_match,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		scanID := chi.URLParam(r, "id")
		var (
			sc  *model.Scan
			err error
		)
		if req.SelectedMatch != "" {
			sc, err = env.Machine.Select(r.Context(), scanID, req.SelectedMatch)
		} else {
			sc, err = env.Machine.Reject(r.Context(), scanID)
		}
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

func handleMerge(env *appEnv) http.HandlerFunc {
	type request struct {
		Pairs []orchestrate.SourceURL `json:"pairs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		merged, err := env.Engine.MergeDetails(r.Context(), req.Pairs)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, merged)
	}
}

func handleBrokerScan(env *appEnv) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
		model.SearchInput
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		report, err := env.Sweeper.Run(r.Context(), req.UserID, req.SearchInput)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
