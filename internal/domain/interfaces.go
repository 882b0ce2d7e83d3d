package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается репозиториями, когда запись отсутствует.
var ErrNotFound = errors.New("запись не найдена")

// ProviderProfile — профиль аккаунта, как его отдаёт внешний провайдер метрик.
type ProviderProfile struct {
	PageID         string
	Name           string
	Username       string
	FollowersCount int
	FollowsCount   int
	MediaCount     int
	ProfilePicURL  string
}

// MetricsProvider загружает собственную аналитику из внешнего API.
type MetricsProvider interface {
	FetchProfile(ctx context.Context) (ProviderProfile, error)
	FetchRecentMedia(ctx context.Context, limit int) ([]RawPost, error)
}

// AccountRepo управляет записями собственной аналитики.
type AccountRepo interface {
	UpsertAccount(ctx context.Context, account Account) (Account, error)
	GetAccount(ctx context.Context) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// CompetitorRepo управляет записями конкурентов.
type CompetitorRepo interface {
	UpsertCompetitor(ctx context.Context, competitor Competitor) (Competitor, error)
	GetCompetitor(ctx context.Context, username string) (Competitor, error)
	ListCompetitors(ctx context.Context) ([]Competitor, error)
}

// InsightRepo хранит инсайты. ReplaceInsights удаляет весь прежний набор и
// вставляет новый в одной транзакции: генерация деструктивна по контракту.
type InsightRepo interface {
	ListInsights(ctx context.Context) ([]Insight, error)
	ReplaceInsights(ctx context.Context, insights []Insight) ([]Insight, error)
}

// AckFunc подтверждает (true) или возвращает в очередь (false) сообщение.
type AckFunc func(ok bool) error

// ScrapeQueue отдаёт результаты скрейпа конкурентов.
type ScrapeQueue interface {
	Receive(ctx context.Context) (ScrapeResult, AckFunc, error)
}

// Notifier доставляет владельцу текстовое уведомление.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
