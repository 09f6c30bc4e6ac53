// ABOUTME: HTTP server exposing stored biometrics, archive upload, and sync triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/pulse/internal/cgm"
	"github.com/harperreed/pulse/internal/config"
	"github.com/harperreed/pulse/internal/fitbit"
	"github.com/harperreed/pulse/internal/importer"
	"github.com/harperreed/pulse/internal/storage"
)

// Server wires the HTTP routes. The sync functions are fields so tests can
// stand in for the real cloud clients.
type Server struct {
	cfg      *config.Config
	store    *storage.DB
	importer *importer.Importer
	log      *log.Logger

	syncFitbit  func(ctx context.Context) (map[string]string, error)
	syncGlucose func(ctx context.Context) (*cgm.SyncResult, error)
}

func NewServer(cfg *config.Config, store *storage.DB, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		importer: importer.New(store, logger),
		log:      logger,
	}
	s.syncFitbit = func(ctx context.Context) (map[string]string, error) {
		client, err := fitbit.NewClient(ctx, cfg, store, logger)
		if err != nil {
			return nil, err
		}
		return client.SyncAll(ctx), nil
	}
	s.syncGlucose = func(ctx context.Context) (*cgm.SyncResult, error) {
		return cgm.NewLinkUpClient(cfg, logger).Sync(ctx, store)
	}
	return s
}

// Routes builds the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", withMetrics(s.handleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/heart-rate", withMetrics(s.handleHeartRate, "heart_rate"))
	mux.HandleFunc("/api/heart-rate/daily", withMetrics(s.handleHeartRateDaily, "heart_rate_daily"))
	mux.HandleFunc("/api/sleep", withMetrics(s.handleSleep, "sleep"))
	mux.HandleFunc("/api/sleep/stages", withMetrics(s.handleSleepStages, "sleep_stages"))
	mux.HandleFunc("/api/activity", withMetrics(s.handleActivity, "activity"))
	mux.HandleFunc("/api/activity/intraday", withMetrics(s.handleActivityIntraday, "activity_intraday"))
	mux.HandleFunc("/api/exercises", withMetrics(s.handleExercises, "exercises"))
	mux.HandleFunc("/api/spo2", withMetrics(s.handleSpO2, "spo2"))
	mux.HandleFunc("/api/hrv", withMetrics(s.handleHRV, "hrv"))
	mux.HandleFunc("/api/breathing-rate", withMetrics(s.handleBreathingRate, "breathing_rate"))
	mux.HandleFunc("/api/skin-temperature", withMetrics(s.handleSkinTemperature, "skin_temperature"))
	mux.HandleFunc("/api/vo2max", withMetrics(s.handleVO2Max, "vo2max"))
	mux.HandleFunc("/api/stress", withMetrics(s.handleStress, "stress"))
	mux.HandleFunc("/api/readiness", withMetrics(s.handleReadiness, "readiness"))
	mux.HandleFunc("/api/glucose", withMetrics(s.handleGlucose, "glucose"))
	mux.HandleFunc("/api/glucose/latest", withMetrics(s.handleGlucoseLatest, "glucose_latest"))
	mux.HandleFunc("/api/sync/status", withMetrics(s.handleSyncStatus, "sync_status"))

	mux.HandleFunc("/api/upload", withMetrics(s.handleUpload, "upload"))
	mux.HandleFunc("/api/sync", withMetrics(s.handleSync, "sync"))
	mux.HandleFunc("/api/sync/cgm", withMetrics(s.handleSyncCGM, "sync_cgm"))
	mux.HandleFunc("/api/auth/login", withMetrics(s.handleAuthLogin, "auth_login"))
	mux.HandleFunc("/api/auth/callback", withMetrics(s.handleAuthCallback, "auth_callback"))

	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("http server listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// rangeParams reads the optional start/end query parameters (YYYY-MM-DD).
// Defaults to the last 30 days ending today.
func rangeParams(r *http.Request) (time.Time, time.Time, error) {
	end, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))
	start := end.AddDate(0, 0, -30)

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start; must be YYYY-MM-DD")
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end; must be YYYY-MM-DD")
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end before start")
	}
	return start, end, nil
}
