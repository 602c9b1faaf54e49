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
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadrouter/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead scoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/v1/sessions/{id}", func(r chi.Router) {
			r.Post("/pageload", func(w http.ResponseWriter, req *http.Request) {
				sess := e.Sessions.Get(chi.URLParam(req, "id"))
				sink := session.NewMapSink()
				hydration := sess.PageLoad(req.Context(), req.URL.RawQuery, sink)
				writeJSON(w, http.StatusOK, map[string]any{
					"hydration": hydration,
					"fields":    sink.Fields,
				})
			})

			r.Post("/submit", func(w http.ResponseWriter, req *http.Request) {
				sess := e.Sessions.Get(chi.URLParam(req, "id"))

				var form session.Form
				if err := json.NewDecoder(req.Body).Decode(&form); err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
					return
				}

				sink := session.NewMapSink()
				outcome, err := sess.Submit(req.Context(), form, sink)
				if err != nil {
					status := http.StatusBadGateway
					if !session.IsConfigUnavailable(err) {
						status = http.StatusInternalServerError
					}
					zap.L().Error("submit failed",
						zap.String("session", sess.ID),
						zap.Error(err),
					)
					writeJSON(w, status, map[string]any{
						"error":  err.Error(),
						"fields": sink.Fields,
					})
					return
				}

				writeJSON(w, http.StatusOK, map[string]any{
					"outcome": outcome,
					"fields":  sink.Fields,
				})
			})

			r.Get("/booking", func(w http.ResponseWriter, req *http.Request) {
				sess := e.Sessions.Get(chi.URLParam(req, "id"))
				view, err := sess.Booking(req.Context(), req.URL.RawQuery)
				if err != nil {
					writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
					return
				}
				if view == nil {
					writeJSON(w, http.StatusOK, map[string]any{"view": nil})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"view": view})
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
