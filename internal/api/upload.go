// ABOUTME: Mutating endpoints: archive upload, cloud sync triggers, OAuth flow.
package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/harperreed/pulse/internal/fitbit"
	"github.com/harperreed/pulse/internal/importer"
)

// maxUploadBytes caps archive uploads at 1 GiB.
const maxUploadBytes = 1 << 30

// handleUpload accepts a multipart export archive, stages it to a temp file,
// and runs the full ingest.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing file field"))
		return
	}
	defer file.Close()

	staged := filepath.Join(os.TempDir(), "pulse-upload-"+uuid.NewString()+".zip")
	dst, err := os.Create(staged)
	if err != nil {
		s.log.Error("staging upload failed", "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	defer os.Remove(staged)

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		s.log.Error("staging upload failed", "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	if err := dst.Close(); err != nil {
		s.log.Error("staging upload failed", "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}

	summary, err := s.importer.Ingest(staged)
	if errors.Is(err, importer.ErrArchiveNotFound) {
		writeError(w, http.StatusBadRequest, errors.New("not a readable export archive"))
		return
	}
	if err != nil {
		s.log.Error("ingest failed", "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}

	for dataType, count := range summary {
		recordsIngested.WithLabelValues(dataType).Add(float64(count))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"summary": summary,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}

	results, err := s.syncFitbit(r.Context())
	if errors.Is(err, fitbit.ErrNotAuthenticated) {
		writeError(w, http.StatusUnauthorized, errors.New("not authenticated; visit /api/auth/login first"))
		return
	}
	if err != nil {
		s.log.Error("sync failed", "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"results": results,
	})
}

func (s *Server) handleSyncCGM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}

	result, err := s.syncGlucose(r.Context())
	if err != nil {
		s.log.Error("cgm sync failed", "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "success",
		"connections_synced": result.Connections,
		"readings_fetched":   result.Fetched,
		"readings_imported":  result.Imported,
	})
}

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.Redirect(w, r, fitbit.AuthCodeURL(s.cfg, state), http.StatusTemporaryRedirect)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing code"))
		return
	}
	if err := fitbit.Exchange(r.Context(), s.cfg, s.store, code); err != nil {
		s.log.Error("token exchange failed", "err", err)
		writeError(w, http.StatusBadGateway, errors.New("token exchange failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated"})
}
