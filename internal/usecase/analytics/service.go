package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smm-analytics/internal/domain"
)

// ErrNoData возвращается, когда провайдер недоступен и кэшированной записи нет.
var ErrNoData = errors.New("нет данных аналитики: провайдер недоступен и кэш пуст")

const defaultMediaLimit = 25

const week = 7 * 24 * time.Hour

// Service обновляет собственную аналитику из внешнего провайдера метрик.
type Service struct {
	provider   domain.MetricsProvider
	accounts   domain.AccountRepo
	mediaLimit int
	now        func() time.Time
	log        zerolog.Logger
}

// NewService создаёт сервис аналитики.
func NewService(provider domain.MetricsProvider, accounts domain.AccountRepo, mediaLimit int, logger zerolog.Logger) *Service {
	if mediaLimit <= 0 {
		mediaLimit = defaultMediaLimit
	}
	return &Service{provider: provider, accounts: accounts, mediaLimit: mediaLimit, now: func() time.Time { return time.Now().UTC() }, log: logger}
}

// Refresh запрашивает профиль и свежие посты, пересчитывает производные
// метрики и сохраняет запись. Если провайдер недоступен, отдаётся последняя
// сохранённая запись — дашборд продолжает работать на устаревших данных.
func (s *Service) Refresh(ctx context.Context) (domain.Account, error) {
	profile, err := s.provider.FetchProfile(ctx)
	if err != nil {
		return s.fallback(ctx, fmt.Errorf("запрос профиля: %w", err))
	}
	media, err := s.provider.FetchRecentMedia(ctx, s.mediaLimit)
	if err != nil {
		return s.fallback(ctx, fmt.Errorf("запрос постов: %w", err))
	}

	account := ComputeStats(profile, media, s.now())
	saved, err := s.accounts.UpsertAccount(ctx, account)
	if err != nil {
		return domain.Account{}, fmt.Errorf("сохранение аналитики: %w", err)
	}
	return saved, nil
}

// Cached возвращает сохранённые записи без обращения к провайдеру.
func (s *Service) Cached(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

func (s *Service) fallback(ctx context.Context, cause error) (domain.Account, error) {
	cached, err := s.accounts.GetAccount(ctx)
	if err == nil {
		s.log.Warn().AnErr("cause", cause).Msg("analytics: провайдер недоступен, отдаём кэш")
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("чтение кэша: %w", err)
	}
	return domain.Account{}, fmt.Errorf("%w: %s", ErrNoData, cause)
}

// ComputeStats пересчитывает производные метрики из сырого ответа провайдера
// и приводит посты к каноническим именам полей первой стороны.
// Engagement rate = средние взаимодействия на пост / подписчики * 100.
func ComputeStats(profile domain.ProviderProfile, media []domain.RawPost, now time.Time) domain.Account {
	followers := profile.FollowersCount
	if followers == 0 {
		followers = 1
	}

	totalLikes := 0
	totalComments := 0
	postsLastWeek := 0
	posts := make([]domain.RawPost, 0, len(media))

	for _, m := range media {
		likes := rawInt(m, "like_count")
		comments := rawInt(m, "comments_count")
		totalLikes += likes
		totalComments += comments

		post := domain.RawPost{
			"id":           rawString(m, "id"),
			"caption":      rawString(m, "caption"),
			"content_type": rawString(m, "media_type"),
			"likes":        likes,
			"comments":     comments,
		}
		if url := rawString(m, "permalink"); url != "" {
			post["permalink"] = url
			post["url"] = url
		} else if url := rawString(m, "media_url"); url != "" {
			post["url"] = url
		}
		if ts := rawString(m, "timestamp"); ts != "" {
			post["timestamp"] = ts
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil && now.Sub(parsed) <= week {
				postsLastWeek++
			}
		}
		posts = append(posts, post)
	}

	postCount := len(media)
	avgLikes := 0
	avgComments := 0
	engagementRate := 0.0
	if postCount > 0 {
		avgLikes = totalLikes / postCount
		avgComments = totalComments / postCount
		avgInteractions := float64(totalLikes+totalComments) / float64(postCount)
		engagementRate = avgInteractions / float64(followers) * 100
	}

	return domain.Account{
		PageID:         profile.PageID,
		Username:       profile.Username,
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowsCount,
		PostsCount:     profile.MediaCount,
		ProfilePicURL:  profile.ProfilePicURL,
		EngagementRate: engagementRate,
		AvgLikes:       avgLikes,
		AvgComments:    avgComments,
		PostsPerWeek:   postsLastWeek,
		RecentPosts:    posts,
		LastUpdated:    now,
	}
}

func rawInt(raw domain.RawPost, key string) int {
	switch v := raw[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func rawString(raw domain.RawPost, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
