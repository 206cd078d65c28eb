package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/pipeline"
	"github.com/medlingo/transqa/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p := initPipeline(st)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeBody(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/v1/validate", handleValidate(p))
		r.Post("/v1/validate/batch", handleValidateBatch(p))
		r.Get("/v1/results/{id}", handleGetResult(st))

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "http server")
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "http shutdown")
		}
		zap.L().Info("http server stopped")
		return nil
	},
}

func handleValidate(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SourceText == "" || req.TranslatedText == "" {
			writeError(w, http.StatusBadRequest, "source_text and translated_text are required")
			return
		}
		result, err := p.Validate(r.Context(), req.SourceText, req.TranslatedText, req.SourceLang, req.TargetLang)
		if err != nil {
			zap.L().Error("validation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "validation failed")
			return
		}
		writeBody(w, http.StatusOK, result)
	}
}

func handleValidateBatch(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reqs []pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(reqs) == 0 {
			writeError(w, http.StatusBadRequest, "empty batch")
			return
		}
		results, err := p.ValidateBatch(r.Context(), reqs)
		if err != nil {
			zap.L().Error("batch validation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "batch validation failed")
			return
		}
		writeBody(w, http.StatusOK, results)
	}
}

func handleGetResult(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := st.GetResult(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		writeBody(w, http.StatusOK, result)
	}
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeBody(w, status, map[string]string{"error": msg})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
