// ABOUTME: HTTP endpoint tests using httptest and an in-temp sqlite store.
package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pulse/internal/cgm"
	"github.com/harperreed/pulse/internal/config"
	"github.com/harperreed/pulse/internal/fitbit"
	"github.com/harperreed/pulse/internal/models"
	"github.com/harperreed/pulse/internal/storage"
)

func setupTest(t *testing.T) (*httptest.Server, *Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewServer(config.New(), db, log.New(io.Discard))
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv, s, db
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _, _ := setupTest(t)
	var body map[string]string
	if status := getJSON(t, srv.URL+"/healthz", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestHeartRateEndpoint(t *testing.T) {
	srv, _, db := setupTest(t)

	ts := time.Date(2024, 3, 11, 8, 0, 0, 0, time.Local)
	_, err := db.InsertHeartRateSamples([]*models.HeartRateSample{
		{Timestamp: ts, BPM: 61},
		{Timestamp: ts.Add(time.Minute), BPM: 63},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var samples []models.HeartRateSample
	url := srv.URL + "/api/heart-rate?start=2024-03-11&end=2024-03-11"
	if status := getJSON(t, url, &samples); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].BPM != 61 {
		t.Errorf("bpm = %d, want 61", samples[0].BPM)
	}
}

func TestRangeValidation(t *testing.T) {
	srv, _, _ := setupTest(t)
	if status := getJSON(t, srv.URL+"/api/sleep?start=notadate", nil); status != http.StatusBadRequest {
		t.Errorf("bad start: status = %d, want 400", status)
	}
	if status := getJSON(t, srv.URL+"/api/sleep?start=2024-03-11&end=2024-03-01", nil); status != http.StatusBadRequest {
		t.Errorf("inverted range: status = %d, want 400", status)
	}
}

func TestGlucoseLatest(t *testing.T) {
	srv, _, db := setupTest(t)

	if status := getJSON(t, srv.URL+"/api/glucose/latest", nil); status != http.StatusNotFound {
		t.Fatalf("empty store: status = %d, want 404", status)
	}

	_, err := db.InsertGlucoseReadings([]*models.GlucoseReading{
		{Timestamp: time.Date(2024, 3, 11, 8, 0, 0, 0, time.Local), Value: 98, Source: "csv_import"},
		{Timestamp: time.Date(2024, 3, 11, 9, 0, 0, 0, time.Local), Value: 104, Source: "csv_import"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var reading models.GlucoseReading
	if status := getJSON(t, srv.URL+"/api/glucose/latest", &reading); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if reading.Value != 104 {
		t.Errorf("value = %d, want 104 (most recent)", reading.Value)
	}
}

func TestUploadIngestsArchive(t *testing.T) {
	srv, _, db := setupTest(t)

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	f, err := zw.Create("Takeout/Fitbit/Global Export Data/heart_rate-2024-03-11.json")
	if err != nil {
		t.Fatalf("create zip member: %v", err)
	}
	io.WriteString(f, `[
		{"dateTime": "03/11/24 08:00:00", "value": {"bpm": 61, "confidence": 2}},
		{"dateTime": "03/11/24 08:00:05", "value": {"bpm": 62, "confidence": 3}}
	]`)
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	var reqBuf bytes.Buffer
	mw := multipart.NewWriter(&reqBuf)
	part, err := mw.CreateFormFile("file", "takeout.zip")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(zipBuf.Bytes())
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload", mw.FormDataContentType(), &reqBuf)
	if err != nil {
		t.Fatalf("post upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var body struct {
		Status  string         `json:"status"`
		Summary map[string]int `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("status = %q, want success", body.Status)
	}
	if body.Summary["heart_rate_intraday"] != 2 {
		t.Errorf("heart_rate_intraday = %d, want 2", body.Summary["heart_rate_intraday"])
	}

	samples, err := db.ListHeartRateSamples(
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local),
		time.Date(2024, 3, 12, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("got %d stored samples, want 2", len(samples))
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	srv, _, _ := setupTest(t)
	resp, err := http.Post(srv.URL+"/api/upload", "multipart/form-data; boundary=x", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSyncRequiresAuth(t *testing.T) {
	srv, s, _ := setupTest(t)
	s.syncFitbit = func(ctx context.Context) (map[string]string, error) {
		return nil, fitbit.ErrNotAuthenticated
	}

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSyncReportsResults(t *testing.T) {
	srv, s, _ := setupTest(t)
	s.syncFitbit = func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"sleep": "synced_3_days"}, nil
	}

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status  string            `json:"status"`
		Results map[string]string `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Results["sleep"] != "synced_3_days" {
		t.Errorf("sleep result = %q, want synced_3_days", body.Results["sleep"])
	}
}

func TestSyncCGM(t *testing.T) {
	srv, s, _ := setupTest(t)
	s.syncGlucose = func(ctx context.Context) (*cgm.SyncResult, error) {
		return &cgm.SyncResult{Connections: 1, Fetched: 12, Imported: 4}, nil
	}

	resp, err := http.Post(srv.URL+"/api/sync/cgm", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["readings_imported"] != float64(4) {
		t.Errorf("readings_imported = %v, want 4", body["readings_imported"])
	}
}

func TestSyncCGMFailure(t *testing.T) {
	srv, s, _ := setupTest(t)
	s.syncGlucose = func(ctx context.Context) (*cgm.SyncResult, error) {
		return nil, errors.New("login failed")
	}

	resp, err := http.Post(srv.URL+"/api/sync/cgm", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}
