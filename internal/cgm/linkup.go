// ABOUTME: LibreLinkUp client for pulling CGM glucose readings.
// ABOUTME: Handles the region redirect on login and re-authenticates once on 401.
package cgm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pulse/internal/config"
	"github.com/harperreed/pulse/internal/models"
	"github.com/harperreed/pulse/internal/storage"
)

const (
	apiBaseUS = "https://api-us.libreview.io"
	apiBaseEU = "https://api-eu.libreview.io"
)

// ErrLoginFailed means the credentials were rejected.
var ErrLoginFailed = errors.New("librelinkup login failed")

// LinkUpClient talks to Abbott's LibreLinkUp follower API.
type LinkUpClient struct {
	email    string
	password string
	base     string
	euBase   string
	token    string
	http     *http.Client
	log      *log.Logger
}

func NewLinkUpClient(cfg *config.Config, logger *log.Logger) *LinkUpClient {
	if logger == nil {
		logger = log.Default()
	}
	base := apiBaseUS
	if strings.EqualFold(cfg.LibreRegion, "eu") {
		base = apiBaseEU
	}
	return &LinkUpClient{
		email:    cfg.LibreEmail,
		password: cfg.LibrePassword,
		base:     base,
		euBase:   apiBaseEU,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      logger,
	}
}

// newTestLinkUpClient points the client at an arbitrary base URL, for tests.
func newTestLinkUpClient(email, password, base string, httpClient *http.Client, logger *log.Logger) *LinkUpClient {
	return &LinkUpClient{email: email, password: password, base: base, euBase: base, http: httpClient, log: logger}
}

func (c *LinkUpClient) headers(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Product", "llu.android")
	req.Header.Set("Version", "4.7.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// Login authenticates and stores the auth ticket. A status-2 response is a
// region redirect; the client switches to the EU base and retries once.
func (c *LinkUpClient) Login(ctx context.Context) error {
	return c.login(ctx, false)
}

func (c *LinkUpClient) login(ctx context.Context, redirected bool) error {
	payload, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return fmt.Errorf("encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/llu/auth/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	c.token = ""
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("librelinkup login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrLoginFailed
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("librelinkup login: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status int `json:"status"`
		Data   struct {
			Region     string `json:"region"`
			AuthTicket struct {
				Token string `json:"token"`
			} `json:"authTicket"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	if body.Status == 2 && !redirected {
		if strings.EqualFold(body.Data.Region, "EU") {
			c.log.Info("librelinkup account lives in EU, switching region")
			c.base = c.euBase
			return c.login(ctx, true)
		}
	}

	if body.Data.AuthTicket.Token == "" {
		return ErrLoginFailed
	}
	c.token = body.Data.AuthTicket.Token
	return nil
}

// get performs one authenticated GET, re-logging in and retrying once if the
// token has expired.
func (c *LinkUpClient) get(ctx context.Context, path string, out any) error {
	if c.token == "" {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		c.headers(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("librelinkup get %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			if err := c.Login(ctx); err != nil {
				return err
			}
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("librelinkup get %s: unexpected status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response for %s: %w", path, err)
		}
		return nil
	}
}

// Connection is one followed patient.
type Connection struct {
	PatientID string `json:"patientId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (c *LinkUpClient) Connections(ctx context.Context) ([]Connection, error) {
	var body struct {
		Data []Connection `json:"data"`
	}
	if err := c.get(ctx, "/llu/connections", &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

type graphReading struct {
	Timestamp string `json:"Timestamp"`
	Value     *int   `json:"Value"`
}

type graphResponse struct {
	Data struct {
		Connection struct {
			GlucoseItem *graphReading `json:"glucoseItem"`
		} `json:"connection"`
		GraphData []graphReading `json:"graphData"`
	} `json:"data"`
}

// Readings returns the recent glucose history for a patient. Malformed
// entries are skipped.
func (c *LinkUpClient) Readings(ctx context.Context, patientID string) ([]*models.GlucoseReading, error) {
	var body graphResponse
	if err := c.get(ctx, "/llu/connections/"+patientID+"/graph", &body); err != nil {
		return nil, err
	}

	var readings []*models.GlucoseReading
	for _, r := range body.Data.GraphData {
		reading := toReading(r)
		if reading == nil {
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// CurrentReading returns the latest reading from the sensor, or nil when the
// API has none.
func (c *LinkUpClient) CurrentReading(ctx context.Context, patientID string) (*models.GlucoseReading, error) {
	var body graphResponse
	if err := c.get(ctx, "/llu/connections/"+patientID+"/graph", &body); err != nil {
		return nil, err
	}
	if body.Data.Connection.GlucoseItem == nil {
		return nil, nil
	}
	return toReading(*body.Data.Connection.GlucoseItem), nil
}

func toReading(r graphReading) *models.GlucoseReading {
	if r.Value == nil || r.Timestamp == "" {
		return nil
	}
	ts, err := parseLinkUpTime(r.Timestamp)
	if err != nil {
		return nil
	}
	return &models.GlucoseReading{Timestamp: ts, Value: *r.Value, Source: "librelinkup"}
}

// parseLinkUpTime handles the ISO-ish timestamps LibreView returns, keeping
// the wall-clock time and dropping any zone suffix.
func parseLinkUpTime(raw string) (time.Time, error) {
	raw = strings.TrimSuffix(raw, "Z")
	if t, err := time.Parse("2006-01-02T15:04:05-07:00", raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
	}
	return time.Parse("2006-01-02T15:04:05", raw)
}

// SyncResult summarizes one LibreLinkUp pull.
type SyncResult struct {
	Connections int
	Fetched     int
	Imported    int
}

// Sync pulls readings for every connected patient and stores the ones not
// seen before.
func (c *LinkUpClient) Sync(ctx context.Context, store *storage.DB) (*SyncResult, error) {
	connections, err := c.Connections(ctx)
	if err != nil {
		return nil, err
	}
	if len(connections) == 0 {
		return nil, errors.New("no connected patients in librelinkup account")
	}

	result := &SyncResult{Connections: len(connections)}
	for _, conn := range connections {
		if conn.PatientID == "" {
			continue
		}
		readings, err := c.Readings(ctx, conn.PatientID)
		if err != nil {
			return nil, err
		}
		result.Fetched += len(readings)

		inserted, err := store.InsertGlucoseReadings(readings)
		if err != nil {
			return nil, err
		}
		result.Imported += inserted
	}
	c.log.Info("glucose sync complete",
		"connections", result.Connections, "fetched", result.Fetched, "imported", result.Imported)
	return result, nil
}
