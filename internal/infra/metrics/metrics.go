package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ReportGenerationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_generation_seconds",
		Help:    "Время генерации сравнительного отчёта",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	InsightsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insights_generated_total",
		Help: "Количество сгенерированных инсайтов",
	})

	ScrapeResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_results_total",
		Help: "Количество обработанных результатов скрейпа",
	}, []string{"status"})

	ProxyImageRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_image_requests_total",
		Help: "Запросы к прокси изображений",
	}, []string{"result"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ReportGenerationSeconds,
		InsightsGeneratedTotal,
		ScrapeResultsTotal,
		ProxyImageRequests,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveReportGeneration записывает длительность генерации отчёта.
func ObserveReportGeneration(start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ReportGenerationSeconds.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// AddInsightsGenerated увеличивает счётчик сгенерированных инсайтов.
func AddInsightsGenerated(count int) {
	if count > 0 {
		InsightsGeneratedTotal.Add(float64(count))
	}
}

// IncScrapeResult учитывает обработанное сообщение скрейпа.
func IncScrapeResult(status string) {
	ScrapeResultsTotal.WithLabelValues(status).Inc()
}

// IncProxyImage учитывает запрос к прокси изображений.
func IncProxyImage(result string) {
	ProxyImageRequests.WithLabelValues(result).Inc()
}
