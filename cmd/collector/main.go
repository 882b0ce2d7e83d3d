package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smm-analytics/internal/adapters/metaapi"
	"smm-analytics/internal/adapters/notify"
	"smm-analytics/internal/adapters/repo"
	"smm-analytics/internal/domain"
	"smm-analytics/internal/infra/cache"
	"smm-analytics/internal/infra/config"
	"smm-analytics/internal/infra/db"
	applog "smm-analytics/internal/infra/log"
	"smm-analytics/internal/infra/metrics"
	"smm-analytics/internal/infra/queue"
	"smm-analytics/internal/usecase/analytics"
	"smm-analytics/internal/usecase/report"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("collector: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.InitSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("collector: не удалось инициализировать схему")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	var scrapeQueue domain.ScrapeQueue
	switch {
	case cfg.RabbitURL != "":
		rabbitQueue, err := queue.NewRabbitScrapeQueue(cfg.RabbitURL, cfg.Queues.ScrapeResults)
		if err != nil {
			logger.Fatal().Err(err).Msg("collector: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbitQueue.Close()
		scrapeQueue = rabbitQueue
	case redisClient != nil:
		logger.Warn().Msg("collector: RabbitMQ не настроен, читаем очередь из Redis")
		scrapeQueue = queue.NewRedisScrapeQueue(redisClient, cfg.Queues.ScrapeResults)
	default:
		logger.Fatal().Msg("collector: не настроена ни одна очередь (RABBITMQ_URL или REDIS_ADDR)")
	}

	notifier, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		logger.Fatal().Err(err).Msg("collector: не удалось создать нотификатор")
	}
	if !notifier.Enabled() {
		logger.Warn().Msg("collector: telegram не настроен, уведомления выключены")
	}

	var dedup domain.Cache
	if redisClient != nil {
		dedup = cache.NewRedis(redisClient)
	}

	metaClient := metaapi.NewClient(cfg.Meta.PageID, cfg.Meta.AccessToken, cfg.Meta.BaseURL, cfg.Meta.Timeout)
	var analyticsService *analytics.Service
	if metaClient.Configured() {
		analyticsService = analytics.NewService(metaClient, repoAdapter, cfg.Meta.MediaLimit, logger.With().Str("component", "analytics").Logger())
	}

	reportService := report.NewService(repoAdapter, repoAdapter, repoAdapter, report.NewNormalizer(nil), logger.With().Str("component", "report").Logger())

	worker := &resultWorker{
		log:         logger,
		queue:       scrapeQueue,
		competitors: repoAdapter,
		analytics:   analyticsService,
		reports:     reportService,
		notifier:    notifier,
		dedup:       dedup,
	}

	logger.Info().Msg("collector: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("collector: остановлен")
}

type resultWorker struct {
	log         zerolog.Logger
	queue       domain.ScrapeQueue
	competitors domain.CompetitorRepo
	analytics   *analytics.Service
	reports     *report.Service
	notifier    domain.Notifier
	dedup       domain.Cache
}

const notifyDedupTTL = 24 * time.Hour

func (w *resultWorker) Run(ctx context.Context) {
	for {
		result, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("collector: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		if result.JobID == "" {
			result.JobID = uuid.NewString()
		}
		jobLog := w.log.With().
			Str("job_id", result.JobID).
			Str("username", result.Username).
			Logger()

		if result.Username == "" {
			jobLog.Error().Msg("collector: результат без username, подтверждаем и пропускаем")
			metrics.IncScrapeResult("invalid")
			if err := ack(true); err != nil {
				jobLog.Error().Err(err).Msg("collector: не удалось подтвердить некорректный результат")
			}
			continue
		}

		if err := w.handleResult(ctx, result, jobLog); err != nil {
			jobLog.Error().Err(err).Msg("collector: обработка результата не удалась, вернём в очередь")
			metrics.IncScrapeResult("retry")
			if ackErr := ack(false); ackErr != nil {
				jobLog.Error().Err(ackErr).Msg("collector: не удалось вернуть результат в очередь")
			}
			time.Sleep(time.Second)
			continue
		}

		metrics.IncScrapeResult("ok")
		if err := ack(true); err != nil {
			jobLog.Error().Err(err).Msg("collector: не удалось подтвердить результат")
		}
	}
}

// handleResult сохраняет конкурента и перегенерирует отчёт. Ошибка возврата
// означает, что сообщение вернётся в очередь, поэтому сюда попадают только
// сбои хранилища: сбой уведомления отчёт не откатывает.
func (w *resultWorker) handleResult(ctx context.Context, result domain.ScrapeResult, jobLog zerolog.Logger) error {
	saved, err := w.competitors.UpsertCompetitor(ctx, result.Competitor())
	if err != nil {
		return fmt.Errorf("сохранение конкурента: %w", err)
	}
	jobLog.Info().Int64("competitor_id", saved.ID).Msg("collector: конкурент обновлён")

	// Перед сравнением подтягиваем свежую собственную аналитику; сбой
	// провайдера не блокирует отчёт — он соберётся на кэше.
	if w.analytics != nil {
		if _, err := w.analytics.Refresh(ctx); err != nil {
			jobLog.Warn().Err(err).Msg("collector: не удалось обновить собственную аналитику")
		}
	}

	generated := w.reports.Generate(ctx)
	jobLog.Info().
		Str("message", generated.Message).
		Int("insights", len(generated.Insights)).
		Msg("collector: отчёт перегенерирован")

	w.notify(ctx, generated, jobLog)
	return nil
}

func (w *resultWorker) notify(ctx context.Context, generated domain.GenerationResult, jobLog zerolog.Logger) {
	text := report.FormatSummary(generated)
	if text == "" {
		return
	}

	send := func() error { return w.notifier.Notify(ctx, text) }

	// Не чаще одного уведомления в сутки: скрейпер может присылать
	// результаты пачками по всем конкурентам сразу.
	if w.dedup != nil {
		key := "notify:summary:" + time.Now().UTC().Format("2006-01-02")
		if err := w.dedup.Once(ctx, key, notifyDedupTTL, send); err != nil {
			jobLog.Error().Err(err).Msg("collector: не удалось отправить уведомление")
		}
		return
	}
	if err := send(); err != nil {
		jobLog.Error().Err(err).Msg("collector: не удалось отправить уведомление")
	}
}
