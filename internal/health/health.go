// Package health exposes liveness, readiness and a component summary for the
// dev server's internal endpoints.
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Monitor tracks the server's moving parts (static root, watcher, reload hub).
type Monitor struct {
	components map[string]*Component
	startTime  time.Time
	mu         sync.RWMutex
}

type Component struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewMonitor() *Monitor {
	return &Monitor{
		components: make(map[string]*Component),
		startTime:  time.Now(),
	}
}

// RegisterComponent adds name as healthy, replacing any earlier entry.
func (m *Monitor) RegisterComponent(name, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components[name] = &Component{
		Name:   name,
		Detail: detail,
		Status: StatusHealthy,
	}
}

// SetStatus records the outcome of a component's last run. A nil err marks
// it healthy again. Unknown names are ignored.
func (m *Monitor) SetStatus(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.components[name]
	if !ok {
		return
	}
	if err != nil {
		c.Status = StatusUnhealthy
		c.Error = err.Error()
		return
	}
	c.Status = StatusHealthy
	c.Error = ""
}

// Healthy reports whether every registered component is healthy.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components {
		if c.Status != StatusHealthy {
			return false
		}
	}
	return true
}

func (m *Monitor) snapshot() []Component {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Component, 0, len(m.components))
	for _, c := range m.components {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Monitor) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := StatusHealthy, http.StatusOK
	if !m.Healthy() {
		status, code = StatusUnhealthy, http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"uptime":     time.Since(m.startTime).Round(time.Second).String(),
		"components": m.snapshot(),
	})
}

func (m *Monitor) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler reports ready once the server is accepting requests;
// a failing watcher does not stop files from being served.
func (m *Monitor) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
