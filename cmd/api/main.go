package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smm-analytics/internal/adapters/metaapi"
	"smm-analytics/internal/adapters/repo"
	"smm-analytics/internal/domain"
	"smm-analytics/internal/infra/cache"
	"smm-analytics/internal/infra/config"
	"smm-analytics/internal/infra/db"
	httpinfra "smm-analytics/internal/infra/http"
	infralog "smm-analytics/internal/infra/log"
	"smm-analytics/internal/infra/metrics"
	"smm-analytics/internal/usecase/analytics"
	"smm-analytics/internal/usecase/report"
)

func main() {
	cfg := config.Load()
	logger := infralog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.InitSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось инициализировать схему")
	}

	metaClient := metaapi.NewClient(cfg.Meta.PageID, cfg.Meta.AccessToken, cfg.Meta.BaseURL, cfg.Meta.Timeout)
	analyticsService := analytics.NewService(metaClient, repoAdapter, cfg.Meta.MediaLimit, logger.With().Str("component", "analytics").Logger())
	reportService := report.NewService(repoAdapter, repoAdapter, repoAdapter, report.NewNormalizer(nil), logger.With().Str("component", "report").Logger())

	var imageCache domain.Cache
	if cfg.RedisAddr != "" {
		imageCache = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger(), cfg.CORSOrigins)
	registerRoutes(server.Router, analyticsService, reportService, repoAdapter, imageCache, cfg, logger)

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func registerRoutes(r chi.Router, analyticsService *analytics.Service, reportService *report.Service, repoAdapter *repo.Postgres, imageCache domain.Cache, cfg config.AppConfig, logger zerolog.Logger) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httpinfra.WriteJSON(w, map[string]string{"message": "Social Media Analytics API", "status": "running"})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpinfra.WriteJSON(w, map[string]string{"status": "healthy"})
	})

	r.Get("/api/analytics", func(w http.ResponseWriter, req *http.Request) {
		account, err := analyticsService.Refresh(req.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: обновление аналитики")
			httpinfra.WriteError(w, http.StatusBadGateway, "analytics unavailable")
			return
		}
		httpinfra.WriteJSON(w, account)
	})

	r.Get("/api/analytics/cached", func(w http.ResponseWriter, req *http.Request) {
		accounts, err := analyticsService.Cached(req.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: чтение аналитики")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load analytics")
			return
		}
		if accounts == nil {
			accounts = []domain.Account{}
		}
		httpinfra.WriteJSON(w, accounts)
	})

	r.Get("/api/competitors", func(w http.ResponseWriter, req *http.Request) {
		competitors, err := repoAdapter.ListCompetitors(req.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: чтение конкурентов")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load competitors")
			return
		}
		if competitors == nil {
			competitors = []domain.Competitor{}
		}
		httpinfra.WriteJSON(w, competitors)
	})

	r.Get("/api/competitors/comparison/followers", func(w http.ResponseWriter, req *http.Request) {
		bars, err := followerComparison(req.Context(), analyticsService, repoAdapter)
		if err != nil {
			logger.Error().Err(err).Msg("api: сравнение подписчиков")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to build comparison")
			return
		}
		httpinfra.WriteJSON(w, bars)
	})

	r.Get("/api/competitors/{username}", func(w http.ResponseWriter, req *http.Request) {
		username := chi.URLParam(req, "username")
		competitor, err := repoAdapter.GetCompetitor(req.Context(), username)
		if errors.Is(err, domain.ErrNotFound) {
			httpinfra.WriteError(w, http.StatusNotFound, "competitor not found")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("api: чтение конкурента")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load competitor")
			return
		}
		httpinfra.WriteJSON(w, competitor)
	})

	r.Get("/api/insights", func(w http.ResponseWriter, req *http.Request) {
		insights, err := reportService.ListInsights(req.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: чтение инсайтов")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load insights")
			return
		}
		if insights == nil {
			insights = []domain.Insight{}
		}
		httpinfra.WriteJSON(w, insights)
	})

	r.Get("/api/insights/generate", func(w http.ResponseWriter, req *http.Request) {
		httpinfra.WriteJSON(w, reportService.Generate(req.Context()))
	})

	r.Get("/api/proxy", proxyHandler(imageCache, cfg.Proxy.Timeout, cfg.Proxy.CacheTTL, logger))
}

// followerComparison строит строки сравнения подписчиков без нормализации
// постов: достаточно профилей.
func followerComparison(ctx context.Context, analyticsService *analytics.Service, repoAdapter *repo.Postgres) ([]domain.FollowerBar, error) {
	var selfProfile domain.EntityProfile
	accounts, err := analyticsService.Cached(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		selfProfile = accounts[0].Profile()
	} else {
		selfProfile.IsSelf = true
	}
	if selfProfile.Username == "" {
		selfProfile.Username = "You"
	}

	competitors, err := repoAdapter.ListCompetitors(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.EntitySummary, 0, len(competitors))
	for _, c := range competitors {
		summaries = append(summaries, report.Aggregate(c.Profile(), nil))
	}
	return report.FollowerComparison(report.Aggregate(selfProfile, nil), summaries), nil
}

// proxyHandler отдаёт картинки чужих CDN от своего имени: браузерный
// User-Agent обходит hotlink-защиту, а Redis снимает повторные запросы.
func proxyHandler(imageCache domain.Cache, timeout, cacheTTL time.Duration, logger zerolog.Logger) http.HandlerFunc {
	client := &http.Client{Timeout: timeout}
	return func(w http.ResponseWriter, req *http.Request) {
		target := req.URL.Query().Get("url")
		if target == "" {
			metrics.IncProxyImage("bad_request")
			httpinfra.WriteError(w, http.StatusBadRequest, "url parameter is required")
			return
		}
		parsed, err := url.Parse(target)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			metrics.IncProxyImage("bad_request")
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid url")
			return
		}

		cacheKey := "proxy:" + target
		if imageCache != nil {
			if data, err := imageCache.Get(req.Context(), cacheKey); err == nil && len(data) > 0 {
				metrics.IncProxyImage("cache_hit")
				w.Header().Set("Content-Type", http.DetectContentType(data))
				w.Header().Set("Cache-Control", "public, max-age=3600")
				_, _ = w.Write(data)
				return
			}
		}

		upstream, err := http.NewRequestWithContext(req.Context(), http.MethodGet, target, nil)
		if err != nil {
			metrics.IncProxyImage("bad_request")
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid url")
			return
		}
		upstream.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		upstream.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

		start := time.Now()
		resp, err := client.Do(upstream)
		metrics.ObserveNetworkRequest("image_proxy", "fetch", parsed.Host, start, err)
		if err != nil {
			metrics.IncProxyImage("upstream_error")
			httpinfra.WriteError(w, http.StatusBadGateway, "failed to fetch image")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.IncProxyImage("upstream_error")
			status := http.StatusBadGateway
			if resp.StatusCode == http.StatusNotFound {
				status = http.StatusNotFound
			}
			httpinfra.WriteError(w, status, "upstream returned an error")
			return
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			metrics.IncProxyImage("upstream_error")
			httpinfra.WriteError(w, http.StatusBadGateway, "failed to read image")
			return
		}

		if imageCache != nil {
			if err := imageCache.Set(req.Context(), cacheKey, data, cacheTTL); err != nil {
				logger.Warn().Err(err).Msg("api: не удалось закэшировать картинку")
			}
		}

		metrics.IncProxyImage("ok")
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" || !strings.HasPrefix(contentType, "image/") {
			contentType = http.DetectContentType(data)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(data)
	}
}
