package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealthHandlerReportsComponents(t *testing.T) {
	m := NewMonitor()
	m.RegisterComponent("watcher", "poll .")
	m.RegisterComponent("static", "/srv/dist")

	rec := httptest.NewRecorder()
	m.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/__devserver/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != string(StatusHealthy) {
		t.Fatalf("expected healthy, got %v", body["status"])
	}
	components := body["components"].([]interface{})
	if len(components) != 2 || components[0].(map[string]interface{})["name"] != "static" {
		t.Fatalf("expected two sorted components, got %v", components)
	}
}

func TestHealthHandlerUnhealthyComponent(t *testing.T) {
	m := NewMonitor()
	m.RegisterComponent("watcher", "")
	m.SetStatus("watcher", errors.New("root missing"))

	rec := httptest.NewRecorder()
	m.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	m.SetStatus("watcher", nil)
	if !m.Healthy() {
		t.Fatal("expected component to recover")
	}
	m.SetStatus("unknown", errors.New("ignored"))
	if !m.Healthy() {
		t.Fatal("unknown components must not affect health")
	}
}

func TestLivenessAndReadiness(t *testing.T) {
	m := NewMonitor()
	for name, handler := range map[string]http.HandlerFunc{
		"alive": m.LivenessHandler,
		"ready": m.ReadinessHandler,
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK || decode(t, rec)["status"] != name {
			t.Fatalf("expected %s, got %d %s", name, rec.Code, rec.Body.String())
		}
	}
}
