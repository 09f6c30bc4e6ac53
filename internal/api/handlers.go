// ABOUTME: Read-only JSON endpoints over the stored biometrics.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/harperreed/pulse/internal/storage"
)

// listRange runs a date-ranged query and writes the result. Sample-level
// fetchers receive an exclusive end of the day after the requested one, so
// the end date is inclusive either way.
func (s *Server) listRange(w http.ResponseWriter, r *http.Request, fetch func(start, end time.Time) (any, error)) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	start, end, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := fetch(start, end)
	if err != nil {
		s.log.Error("query failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHeartRate(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListHeartRateSamples(start, end.AddDate(0, 0, 1))
	})
}

func (s *Server) handleHeartRateDaily(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListHeartRateDays(start, end)
	})
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListSleepSessions(start, end)
	})
}

func (s *Server) handleSleepStages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	logID := r.URL.Query().Get("log_id")
	if logID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing log_id"))
		return
	}
	stages, err := s.store.ListSleepStages(logID)
	if err != nil {
		s.log.Error("query failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListActivityDays(start, end)
	})
}

func (s *Server) handleActivityIntraday(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "steps"
	}
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListActivitySamples(metric, start, end.AddDate(0, 0, 1))
	})
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListExercises(start, end)
	})
}

func (s *Server) handleSpO2(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListSpO2Days(start, end)
	})
}

func (s *Server) handleHRV(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListHRVDays(start, end)
	})
}

func (s *Server) handleBreathingRate(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListBreathingRateDays(start, end)
	})
}

func (s *Server) handleSkinTemperature(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListSkinTemperatureDays(start, end)
	})
}

func (s *Server) handleVO2Max(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListVO2MaxDays(start, end)
	})
}

func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListStressDays(start, end)
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListReadinessDays(start, end)
	})
}

func (s *Server) handleGlucose(w http.ResponseWriter, r *http.Request) {
	s.listRange(w, r, func(start, end time.Time) (any, error) {
		return s.store.ListGlucoseReadings(start, end.AddDate(0, 0, 1))
	})
}

func (s *Server) handleGlucoseLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	reading, err := s.store.LatestGlucoseReading()
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("no glucose readings"))
		return
	}
	if err != nil {
		s.log.Error("query failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	cursors, err := s.store.ListSyncCursors()
	if err != nil {
		s.log.Error("query failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, nil)
		return
	}
	writeJSON(w, http.StatusOK, cursors)
}
