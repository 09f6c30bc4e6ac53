// ABOUTME: Tests for the CGM CSV parser and the LibreLinkUp client.
package cgm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pulse/internal/storage"
)

const csvHeader = "class,value,time,length,photo_url,description,occurred_at,body,updated_at,started_at,ended_at,created_by\n"

func TestParseCSV(t *testing.T) {
	content := csvHeader +
		`GlucoseMeasurement,94,"","","","",2022-12-01 19:14:27 -0800,"","","","",""` + "\n" +
		`GlucoseMeasurement,79,"","","","",2022-12-01 19:45:01 -0800,"","","","",""` + "\n" +
		`StepCountMeasurement,2318,"","","","",2022-12-01 20:59:59 -0800,"","","","",""` + "\n" +
		`GlucoseMeasurement,55,"","","","",2022-12-01 20:00:01 -0800,"","","","",""` + "\n"

	readings, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("got %d readings, want 3 (step row excluded)", len(readings))
	}
	if readings[0].Value != 94 {
		t.Errorf("value = %d, want 94", readings[0].Value)
	}
	if readings[0].Timestamp.Year() != 2022 || readings[0].Timestamp.Month() != 12 {
		t.Errorf("timestamp = %s, want December 2022", readings[0].Timestamp)
	}
	if readings[0].Source != "csv_import" {
		t.Errorf("source = %q, want csv_import", readings[0].Source)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	readings, err := ParseCSV(strings.NewReader(csvHeader))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("got %d readings, want 0", len(readings))
	}
}

func TestParseCSVNoGlucoseRows(t *testing.T) {
	content := csvHeader +
		`StepCountMeasurement,2318,"","","","",2022-12-01 20:59:59 -0800,"","","","",""` + "\n" +
		`HeartRateMeasurement,72,"","","","",2022-12-01 20:59:59 -0800,"","","","",""` + "\n"

	readings, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("got %d readings, want 0", len(readings))
	}
}

func TestParseCSVSkipsInvalidRows(t *testing.T) {
	content := csvHeader +
		`GlucoseMeasurement,94,"","","","",2022-12-01 19:14:27 -0800,"","","","",""` + "\n" +
		`GlucoseMeasurement,invalid_value,"","","","",2022-12-01 19:45:01 -0800,"","","","",""` + "\n" +
		`GlucoseMeasurement,100,"","","","",invalid_date,"","","","",""` + "\n" +
		`GlucoseMeasurement,85,"","","","",2022-12-01 20:00:01 -0800,"","","","",""` + "\n"

	readings, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2 (invalid rows skipped)", len(readings))
	}
	if readings[0].Value != 94 || readings[1].Value != 85 {
		t.Errorf("values = %d, %d; want 94, 85", readings[0].Value, readings[1].Value)
	}
}

func linkUpTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/llu/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		io.WriteString(w, `{"status":0,"data":{"authTicket":{"token":"test-token"}}}`)
	})
	mux.HandleFunc("/llu/connections", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"data":[{"patientId":"patient-1","firstName":"Ada","lastName":"L"}]}`)
	})
	mux.HandleFunc("/llu/connections/patient-1/graph", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"data":{
			"connection":{"glucoseItem":{"Timestamp":"2024-03-11T08:20:00","Value":104}},
			"graphData":[
				{"Timestamp":"2024-03-11T08:00:00","Value":98},
				{"Timestamp":"2024-03-11T08:05:00","Value":101},
				{"Timestamp":"","Value":105},
				{"Timestamp":"2024-03-11T08:15:00"}
			]
		}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *LinkUpClient {
	t.Helper()
	return newTestLinkUpClient("user@example.com", "secret", srv.URL, srv.Client(), log.New(io.Discard))
}

func TestLinkUpLoginAndReadings(t *testing.T) {
	srv := linkUpTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	conns, err := c.Connections(ctx)
	if err != nil {
		t.Fatalf("connections: %v", err)
	}
	if len(conns) != 1 || conns[0].PatientID != "patient-1" {
		t.Fatalf("connections = %+v, want one patient-1", conns)
	}

	readings, err := c.Readings(ctx, "patient-1")
	if err != nil {
		t.Fatalf("readings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2 (malformed entries skipped)", len(readings))
	}
	if readings[0].Value != 98 || readings[0].Source != "librelinkup" {
		t.Errorf("first reading = %+v, want value 98 from librelinkup", readings[0])
	}

	current, err := c.CurrentReading(ctx, "patient-1")
	if err != nil {
		t.Fatalf("current reading: %v", err)
	}
	if current == nil || current.Value != 104 {
		t.Fatalf("current = %+v, want value 104", current)
	}
}

func TestLinkUpRegionRedirect(t *testing.T) {
	// A single server plays both regions: the first login answers with a
	// redirect status, the second with a ticket.
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/llu/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		if logins == 1 {
			io.WriteString(w, `{"status":2,"data":{"region":"EU"}}`)
			return
		}
		io.WriteString(w, `{"status":0,"data":{"authTicket":{"token":"eu-token"}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if logins != 2 {
		t.Errorf("logins = %d, want 2 (redirect then retry)", logins)
	}
	if c.token != "eu-token" {
		t.Errorf("token = %q, want eu-token", c.token)
	}
}

func TestLinkUpBadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/llu/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	if err := c.Login(context.Background()); err != ErrLoginFailed {
		t.Fatalf("err = %v, want ErrLoginFailed", err)
	}
}

func TestLinkUpReloginOnExpiredToken(t *testing.T) {
	tokens := []string{"stale", "fresh"}
	issued := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/llu/auth/login", func(w http.ResponseWriter, r *http.Request) {
		token := tokens[issued]
		if issued < len(tokens)-1 {
			issued++
		}
		io.WriteString(w, `{"status":0,"data":{"authTicket":{"token":"`+token+`"}}}`)
	})
	mux.HandleFunc("/llu/connections", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"data":[{"patientId":"p"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	conns, err := c.Connections(context.Background())
	if err != nil {
		t.Fatalf("connections: %v", err)
	}
	if len(conns) != 1 {
		t.Fatalf("got %d connections, want 1 after re-login", len(conns))
	}
}

func TestLinkUpSyncDedups(t *testing.T) {
	srv := linkUpTestServer(t)
	c := newTestClient(t, srv)

	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := c.Sync(context.Background(), db)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Connections != 1 || result.Fetched != 2 || result.Imported != 2 {
		t.Fatalf("result = %+v, want 1 connection, 2 fetched, 2 imported", result)
	}

	// Second pull fetches the same readings but imports none.
	result, err = c.Sync(context.Background(), db)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if result.Imported != 0 {
		t.Errorf("imported = %d, want 0 on resync", result.Imported)
	}
}
