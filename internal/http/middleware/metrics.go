package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"commonthread/internal/auth"

	"github.com/labstack/echo/v4"
)

// RequestMetrics counts requests per route and outcome. Denials and
// expired-token answers are tracked separately since they are the
// authorization layer's own signals.
type RequestMetrics struct {
	active atomic.Int64
	now    func() time.Time

	mu        sync.Mutex
	start     time.Time
	total     int64
	errors    int64
	denied    int64
	expired   int64
	latencyMs int64
	maxMs     int64
	routes    map[string]*routeStats
	statuses  map[int]int64
}

type routeStats struct {
	count     int64
	latencyMs int64
}

// MetricsSnapshot is what GET /metrics/requests answers.
type MetricsSnapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	ActiveRequests int64            `json:"active_requests"`
	TotalErrors    int64            `json:"total_errors"`
	Denied         int64            `json:"denied"`
	ExpiredTokens  int64            `json:"expired_tokens"`
	ErrorRate      float64          `json:"error_rate_pct"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	MaxLatencyMs   int64            `json:"max_latency_ms"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
	RouteCounts    map[string]int64 `json:"route_counts"`
	RouteAvgMs     map[string]int64 `json:"route_avg_latency_ms"`
	StatusCodes    map[int]int64    `json:"status_codes"`
}

func NewRequestMetrics() *RequestMetrics {
	return &RequestMetrics{
		now:      time.Now,
		start:    time.Now(),
		routes:   make(map[string]*routeStats),
		statuses: make(map[int]int64),
	}
}

func (m *RequestMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.active.Add(1)
			start := m.now()

			// Let the error handler write the response first so its
			// status is what gets counted.
			if err := next(c); err != nil {
				c.Error(err)
			}

			m.active.Add(-1)
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			m.record(fmt.Sprintf("%s %s", c.Request().Method, path), c.Response().Status, m.now().Sub(start).Milliseconds())
			return nil
		}
	}
}

func (m *RequestMetrics) record(route string, status int, latencyMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latencyMs += latencyMs
	if latencyMs > m.maxMs {
		m.maxMs = latencyMs
	}

	rs, ok := m.routes[route]
	if !ok {
		rs = &routeStats{}
		m.routes[route] = rs
	}
	rs.count++
	rs.latencyMs += latencyMs
	m.statuses[status]++

	switch {
	case status == auth.StatusAccessExpired:
		m.expired++
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		m.denied++
		m.errors++
	case status >= http.StatusBadRequest:
		m.errors++
	}
}

func (m *RequestMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		TotalRequests:  m.total,
		ActiveRequests: m.active.Load(),
		TotalErrors:    m.errors,
		Denied:         m.denied,
		ExpiredTokens:  m.expired,
		MaxLatencyMs:   m.maxMs,
		UptimeSeconds:  m.now().Sub(m.start).Seconds(),
		RouteCounts:    make(map[string]int64, len(m.routes)),
		RouteAvgMs:     make(map[string]int64, len(m.routes)),
		StatusCodes:    make(map[int]int64, len(m.statuses)),
	}
	if m.total > 0 {
		s.AvgLatencyMs = float64(m.latencyMs) / float64(m.total)
		s.ErrorRate = float64(m.errors) / float64(m.total) * 100
	}
	for route, rs := range m.routes {
		s.RouteCounts[route] = rs.count
		s.RouteAvgMs[route] = rs.latencyMs / rs.count
	}
	for code, n := range m.statuses {
		s.StatusCodes[code] = n
	}
	return s
}

// Handler serves the current snapshot.
func (m *RequestMetrics) Handler(c echo.Context) error {
	return c.JSON(http.StatusOK, m.Snapshot())
}
