package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Amsterdam"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Queues struct {
		ScrapeResults string `envconfig:"SCRAPE_RESULTS_QUEUE" default:"scrape_results"`
	} `envconfig:""`

	Meta struct {
		PageID      string        `envconfig:"META_PAGE_ID"`
		AccessToken string        `envconfig:"META_ACCESS_TOKEN"`
		BaseURL     string        `envconfig:"META_BASE_URL"`
		Timeout     time.Duration `envconfig:"META_TIMEOUT" default:"30s"`
		MediaLimit  int           `envconfig:"META_MEDIA_LIMIT" default:"25"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_OWNER_CHAT_ID"`
	} `envconfig:""`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	Proxy struct {
		Timeout  time.Duration `envconfig:"PROXY_TIMEOUT" default:"10s"`
		CacheTTL time.Duration `envconfig:"PROXY_CACHE_TTL" default:"15m"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения, подтягивая .env, если он есть.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
