package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calgrid/internal/config"
	"calgrid/internal/model"
)

func testServer(t *testing.T, auth *config.BasicAuthConfig) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WindowStart = model.Text("2024-01-01")
	cfg.WindowEnd = model.Text("2024-03-31")
	cfg.View = "quarter"
	cfg.BasicAuth = auth
	cfg.Events = []model.RawEvent{
		{Header: "kickoff", Start: model.Text("2024-01-08T09:00:00Z"), End: model.Text("2024-01-08T10:00:00Z")},
	}

	s := NewServer(cfg)
	s.Engine().SetEvents(cfg.Events)
	// Stale windows are ended explicitly by the tests.
	s.recompute = func() {}
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := testServer(t, &config.BasicAuthConfig{Username: "u", Password: "p"})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	s := testServer(t, &config.BasicAuthConfig{Username: "u", Password: "p"})
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/api/render", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no credentials = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/render", nil)
	req.SetBasicAuth("u", "p")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with credentials = %d, want 200", rec.Code)
	}
}

func TestRender(t *testing.T) {
	s := testServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/render", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Zone string `json:"zone"`
		View struct {
			Requested string `json:"requested"`
			Grid      string `json:"grid"`
		} `json:"view"`
		Items []struct {
			Header string `json:"header"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Zone != "UTC" || got.View.Requested != "quarter" || got.View.Grid != "month" {
		t.Fatalf("pass = %+v", got)
	}
}

func TestZoneChangeReportsRecomputing(t *testing.T) {
	s := testServer(t, nil)
	h := s.Handler()
	do(t, h, http.MethodGet, "/api/render", "")

	if rec := do(t, h, http.MethodPost, "/api/zone", `{"value":"Nowhere/Land"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid zone = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/render", ""); rec.Code != http.StatusOK {
		t.Fatalf("render after rejected zone = %d, want 200", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/zone", `{"value":"UTC-4"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("zone = %d, want 202", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/render", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"recomputing"`) {
		t.Fatalf("stale render = %d %s", rec.Code, rec.Body.String())
	}

	s.Engine().Render()
	rec = do(t, h, http.MethodGet, "/api/render", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"zone":"UTC-4"`) {
		t.Fatalf("render = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSelectDay(t *testing.T) {
	s := testServer(t, nil)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/api/interaction", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("interaction before click = %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/select-day", `{"date":"2024-02-10"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select-day = %d %s", rec.Code, rec.Body.String())
	}
	var click Interaction
	if err := json.Unmarshal(rec.Body.Bytes(), &click); err != nil {
		t.Fatal(err)
	}
	if click.Kind != "day" || click.Date.Format("2006-01-02") != "2024-02-10" {
		t.Fatalf("click = %+v", click)
	}

	if rec := do(t, h, http.MethodPost, "/api/select-day", `{"date":"2024-05-01"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-window select = %d, want 422", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/select-day", `{"date":"###"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid date = %d, want 400", rec.Code)
	}
}

func TestSelectEventAndShowMore(t *testing.T) {
	s := testServer(t, nil)
	h := s.Handler()
	s.Engine().Render()

	rec := do(t, h, http.MethodPost, "/api/select-event", `{"index":0}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"kind":"event"`) {
		t.Fatalf("select-event = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/api/select-event", `{"index":7}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown item = %d, want 404", rec.Code)
	}

	do(t, h, http.MethodPost, "/api/view", `{"value":"week"}`)
	rec = do(t, h, http.MethodPost, "/api/show-more", `{"date":"2024-01-08"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"grid":"month"`) {
		t.Fatalf("show-more = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSelectEventAfterInputChange(t *testing.T) {
	tests := []struct {
		name     string
		change   func(t *testing.T, s *Server)
		wantCode int
	}{
		{"events reloaded", func(t *testing.T, s *Server) {
			s.Engine().SetEvents([]model.RawEvent{
				{Header: "review", Start: model.Text("2024-01-09T09:00:00Z"), End: model.Text("2024-01-09T10:00:00Z")},
			})
		}, http.StatusOK},
		{"navigated", func(t *testing.T, s *Server) {
			s.Engine().Navigate(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
		}, http.StatusOK},
		{"zone pending", func(t *testing.T, s *Server) {
			if err := s.Engine().SetZone("UTC-4"); err != nil {
				t.Fatal(err)
			}
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(t, nil)
			h := s.Handler()
			s.Engine().Render()
			tt.change(t, s)

			rec := do(t, h, http.MethodPost, "/api/select-event", `{"index":0}`)
			if rec.Code != tt.wantCode {
				t.Fatalf("select-event = %d %s, want %d", rec.Code, rec.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestRejectsMalformedJSON(t *testing.T) {
	s := testServer(t, nil)
	if rec := do(t, s.Handler(), http.MethodPost, "/api/navigate", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
