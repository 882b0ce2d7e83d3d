package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smm-analytics/internal/domain"
)

type stubProvider struct {
	profile    domain.ProviderProfile
	media      []domain.RawPost
	profileErr error
	mediaErr   error
}

func (p *stubProvider) FetchProfile(context.Context) (domain.ProviderProfile, error) {
	return p.profile, p.profileErr
}

func (p *stubProvider) FetchRecentMedia(context.Context, int) ([]domain.RawPost, error) {
	return p.media, p.mediaErr
}

type stubAccounts struct {
	stored   *domain.Account
	upserted []domain.Account
	getErr   error
}

func (s *stubAccounts) UpsertAccount(_ context.Context, account domain.Account) (domain.Account, error) {
	account.ID = 1
	s.upserted = append(s.upserted, account)
	saved := account
	s.stored = &saved
	return account, nil
}

func (s *stubAccounts) GetAccount(context.Context) (domain.Account, error) {
	if s.getErr != nil {
		return domain.Account{}, s.getErr
	}
	if s.stored == nil {
		return domain.Account{}, domain.ErrNotFound
	}
	return *s.stored, nil
}

func (s *stubAccounts) ListAccounts(context.Context) ([]domain.Account, error) {
	if s.stored == nil {
		return nil, nil
	}
	return []domain.Account{*s.stored}, nil
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	profile := domain.ProviderProfile{
		PageID:         "42",
		Username:       "mybrand",
		FollowersCount: 1000,
		FollowsCount:   10,
		MediaCount:     120,
	}
	media := []domain.RawPost{
		{"id": "1", "like_count": float64(100), "comments_count": float64(20), "media_type": "IMAGE", "permalink": "https://p/1", "timestamp": "2024-06-08T10:00:00Z"},
		{"id": "2", "like_count": float64(50), "comments_count": float64(10), "media_type": "VIDEO", "media_url": "https://m/2", "timestamp": "2024-05-01T10:00:00Z"},
	}

	account := ComputeStats(profile, media, now)

	if account.AvgLikes != 75 || account.AvgComments != 15 {
		t.Fatalf("неверные средние: %+v", account)
	}
	// (75+15)/1000*100 = 9
	if account.EngagementRate != 9 {
		t.Fatalf("неверный engagement rate: %v", account.EngagementRate)
	}
	if account.PostsPerWeek != 1 {
		t.Fatalf("за последнюю неделю только один пост, получили %d", account.PostsPerWeek)
	}
	if account.PostsCount != 120 || account.FollowingCount != 10 {
		t.Fatalf("профильные поля не перенесены: %+v", account)
	}

	first := account.RecentPosts[0]
	if first["likes"] != 100 || first["content_type"] != "IMAGE" {
		t.Fatalf("пост не приведён к каноническим полям: %+v", first)
	}
	if first["url"] != "https://p/1" || first["permalink"] != "https://p/1" {
		t.Fatalf("permalink должен дублироваться в url: %+v", first)
	}
	if account.RecentPosts[1]["url"] != "https://m/2" {
		t.Fatalf("без permalink берётся media_url: %+v", account.RecentPosts[1])
	}
}

func TestComputeStatsZeroFollowers(t *testing.T) {
	media := []domain.RawPost{{"like_count": float64(10)}}
	account := ComputeStats(domain.ProviderProfile{}, media, time.Now().UTC())
	if account.EngagementRate != 1000 {
		t.Fatalf("нулевые подписчики заменяются единицей: %v", account.EngagementRate)
	}
}

func TestComputeStatsNoMedia(t *testing.T) {
	account := ComputeStats(domain.ProviderProfile{FollowersCount: 100}, nil, time.Now().UTC())
	if account.AvgLikes != 0 || account.EngagementRate != 0 || account.PostsPerWeek != 0 {
		t.Fatalf("без постов производные метрики равны нулю: %+v", account)
	}
	if account.RecentPosts == nil {
		t.Fatalf("список постов должен быть пустым, но не nil")
	}
}

func TestRefreshPersistsAccount(t *testing.T) {
	provider := &stubProvider{
		profile: domain.ProviderProfile{PageID: "42", Username: "mybrand", FollowersCount: 1000},
		media:   []domain.RawPost{{"id": "1", "like_count": float64(10)}},
	}
	accounts := &stubAccounts{}
	service := NewService(provider, accounts, 25, zerolog.Nop())

	account, err := service.Refresh(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if account.ID != 1 || account.Username != "mybrand" {
		t.Fatalf("должна вернуться сохранённая запись: %+v", account)
	}
	if len(accounts.upserted) != 1 {
		t.Fatalf("запись должна сохраниться ровно один раз")
	}
}

func TestRefreshFallsBackToCache(t *testing.T) {
	provider := &stubProvider{profileErr: errors.New("токен истёк")}
	cached := domain.Account{ID: 7, Username: "mybrand"}
	accounts := &stubAccounts{stored: &cached}
	service := NewService(provider, accounts, 25, zerolog.Nop())

	account, err := service.Refresh(context.Background())
	if err != nil {
		t.Fatalf("при живом кэше ошибки быть не должно: %v", err)
	}
	if account.ID != 7 {
		t.Fatalf("должна вернуться кэшированная запись: %+v", account)
	}
}

func TestRefreshNoDataWhenCacheEmpty(t *testing.T) {
	provider := &stubProvider{mediaErr: errors.New("сеть недоступна")}
	service := NewService(provider, &stubAccounts{}, 25, zerolog.Nop())

	_, err := service.Refresh(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("ожидали ErrNoData, получили %v", err)
	}
}
