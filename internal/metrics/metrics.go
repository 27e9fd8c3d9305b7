package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the feature pipeline.
type Metrics struct {
	// Equity pipeline
	PipelineRuns        *prometheus.CounterVec // labels: result=ok|empty|error
	PipelineDur         prometheus.Histogram
	IndicatorComputeDur *prometheus.HistogramVec // labels: indicator
	RowsIn              prometheus.Counter
	RowsOut             prometheus.Counter
	RowsTrimmed         prometheus.Counter

	// Options pipeline
	OptionsAnalyses prometheus.Counter
	OptionsNoData   prometheus.Counter

	// Collaborators
	SQLiteQueryDur prometheus.Histogram
	RedisWriteDur  prometheus.Histogram
}

// NewMetrics creates all collectors and registers them with reg.
// A nil reg registers with the Prometheus default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "features_pipeline_runs_total",
			Help: "Feature pipeline invocations by outcome",
		}, []string{"result"}),
		PipelineDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "features_pipeline_duration_seconds",
			Help:    "End-to-end feature pipeline latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		IndicatorComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "features_indicator_compute_duration_seconds",
			Help:    "Per-indicator column compute latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"indicator"}),
		RowsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "features_rows_in_total",
			Help: "Bars fed into the feature pipeline",
		}),
		RowsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "features_rows_out_total",
			Help: "Feature rows retained after warm-up trimming",
		}),
		RowsTrimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "features_rows_trimmed_total",
			Help: "Feature rows dropped for containing undefined values",
		}),

		OptionsAnalyses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "features_options_analyses_total",
			Help: "Options chain analyses performed",
		}),
		OptionsNoData: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "features_options_no_data_total",
			Help: "Options analyses that returned the no-data result",
		}),

		SQLiteQueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "features_sqlite_query_duration_seconds",
			Help:    "SQLite bar/chain read latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "features_redis_write_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.PipelineRuns,
		m.PipelineDur,
		m.IndicatorComputeDur,
		m.RowsIn,
		m.RowsOut,
		m.RowsTrimmed,
		m.OptionsAnalyses,
		m.OptionsNoData,
		m.SQLiteQueryDur,
		m.RedisWriteDur,
	)

	return m
}

// ObserveIndicator records one indicator's compute time. Its signature
// matches indicator.Observer.
func (m *Metrics) ObserveIndicator(name string, d time.Duration) {
	m.IndicatorComputeDur.WithLabelValues(name).Observe(d.Seconds())
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastRunOK      bool      `json:"last_run_ok"`
	LastRunRows    int       `json:"last_run_rows"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`

	redisEnabled bool
}

// NewHealthStatus returns a default health status. With redisEnabled false
// Redis connectivity does not count against the overall status.
func NewHealthStatus(redisEnabled bool) *HealthStatus {
	return &HealthStatus{
		StartedAt:    time.Now(),
		redisEnabled: redisEnabled,
	}
}

// RecordRun stores the outcome of the latest pipeline invocation.
func (h *HealthStatus) RecordRun(ok bool, rows int) {
	h.mu.Lock()
	h.LastRunAt = time.Now()
	h.LastRunOK = ok
	h.LastRunRows = rows
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.SQLiteOK || (h.redisEnabled && !h.RedisConnected) || (!h.LastRunAt.IsZero() && !h.LastRunOK) {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		LastRunAt       string  `json:"last_run_at"`
		LastRunOK       bool    `json:"last_run_ok"`
		LastRunRows     int     `json:"last_run_rows"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		LastRunAt:       lastRun,
		LastRunOK:       h.LastRunOK,
		LastRunRows:     h.LastRunRows,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. A nil gatherer serves the
// Prometheus default registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handler exposes the server mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
