package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"EdgeTpuDetServer/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
	TransportGRPC      = "grpc"
)

var (
	registry = prometheus.NewRegistry()

	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detect_requests_total",
		Help: "Total number of detection requests by transport",
	}, []string{"transport"})
	failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detect_failures_total",
		Help: "Detection requests that returned an error, by transport",
	}, []string{"transport"})
	inference = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inference_duration_seconds",
		Help:    "Edge TPU invoke latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	registry.MustRegister(memUsage, cpuUsage, requests, failures, inference)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func ObserveRequest(transport string, err error) {
	requests.WithLabelValues(transport).Inc()
	if err != nil {
		failures.WithLabelValues(transport).Inc()
	}
}

func ObserveInference(d time.Duration) {
	inference.Observe(d.Seconds())
}

func checkProcessInfo(p *process.Process) {
	if mem, err := p.MemoryInfo(); err == nil {
		memUsage.Set(float64(mem.RSS / 1024 / 1024))
	}
	if cpu, err := p.CPUPercent(); err == nil {
		cpuUsage.Set(math.Round(cpu*100) / 100)
	}
}

// StartMon serves /metrics on port and samples this process every 500ms
// until ctx is done.
func StartMon(ctx context.Context, port int) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Log().Info("metrics server listening", zap.Int("port", port))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case <-ticker.C:
			checkProcessInfo(proc)
		}
	}
}
