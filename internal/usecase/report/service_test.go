package report

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"smm-analytics/internal/domain"
)

type stubStorage struct {
	accounts    []domain.Account
	competitors []domain.Competitor
	insights    []domain.Insight

	listAccountsErr    error
	listCompetitorsErr error
	replaceErr         error

	replaced [][]domain.Insight
}

func (s *stubStorage) UpsertAccount(_ context.Context, account domain.Account) (domain.Account, error) {
	return account, nil
}

func (s *stubStorage) GetAccount(context.Context) (domain.Account, error) {
	if len(s.accounts) == 0 {
		return domain.Account{}, domain.ErrNotFound
	}
	return s.accounts[0], nil
}

func (s *stubStorage) ListAccounts(context.Context) ([]domain.Account, error) {
	return s.accounts, s.listAccountsErr
}

func (s *stubStorage) UpsertCompetitor(_ context.Context, competitor domain.Competitor) (domain.Competitor, error) {
	return competitor, nil
}

func (s *stubStorage) GetCompetitor(context.Context, string) (domain.Competitor, error) {
	return domain.Competitor{}, domain.ErrNotFound
}

func (s *stubStorage) ListCompetitors(context.Context) ([]domain.Competitor, error) {
	return s.competitors, s.listCompetitorsErr
}

func (s *stubStorage) ListInsights(context.Context) ([]domain.Insight, error) {
	return s.insights, nil
}

func (s *stubStorage) ReplaceInsights(_ context.Context, insights []domain.Insight) ([]domain.Insight, error) {
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	s.replaced = append(s.replaced, insights)
	saved := make([]domain.Insight, len(insights))
	copy(saved, insights)
	for i := range saved {
		saved[i].ID = int64(i + 1)
	}
	s.insights = saved
	return saved, nil
}

func newTestService(storage *stubStorage) *Service {
	norm := NewNormalizer(rand.New(rand.NewSource(7)))
	return NewService(storage, storage, storage, norm, zerolog.Nop())
}

func TestGenerateNoCompetitors(t *testing.T) {
	storage := &stubStorage{}
	result := newTestService(storage).Generate(context.Background())

	if result.Message != "No competitors found" {
		t.Fatalf("ожидали сообщение об отсутствии конкурентов, получили %q", result.Message)
	}
	if len(result.Insights) != 0 || result.ComparativeData != nil {
		t.Fatalf("без конкурентов отчёта нет: %+v", result)
	}
	if len(storage.replaced) != 0 {
		t.Fatalf("инсайты не должны перезаписываться")
	}
}

func TestGenerateRepositoryFailureDegrades(t *testing.T) {
	storage := &stubStorage{listCompetitorsErr: errors.New("БД недоступна")}
	result := newTestService(storage).Generate(context.Background())

	if result.Message != "Error" {
		t.Fatalf("сбой хранилища должен давать деградированный ответ, получили %q", result.Message)
	}
	if result.Insights == nil || len(result.Insights) != 0 {
		t.Fatalf("инсайты должны быть пустым списком, а не nil или данными: %+v", result.Insights)
	}
}

func TestGenerateReplaceFailureDegrades(t *testing.T) {
	storage := &stubStorage{
		competitors: []domain.Competitor{{Username: "alpha"}},
		replaceErr:  errors.New("транзакция не прошла"),
	}
	result := newTestService(storage).Generate(context.Background())
	if result.Message != "Error" {
		t.Fatalf("сбой перезаписи должен давать деградированный ответ, получили %q", result.Message)
	}
}

func fullyPopulatedStorage() *stubStorage {
	return &stubStorage{
		accounts: []domain.Account{{
			Username:       "mybrand",
			FollowersCount: 2000,
			PostsCount:     50,
			AvgLikes:       100,
			EngagementRate: 6,
			PostsPerWeek:   4,
			RecentPosts: []domain.RawPost{
				{"id": "s1", "caption": "тёплый лонгрид о продукте", "likes": 150, "comments": 12, "timestamp": "2024-06-01T10:00:00Z"},
				{"id": "s2", "caption": "анонс", "likes": 90, "comments": 4, "timestamp": "2024-06-02T10:00:00Z"},
			},
		}},
		competitors: []domain.Competitor{
			{
				Username:       "alpha",
				FollowersCount: 5000,
				PostsCount:     80,
				AvgLikes:       200,
				EngagementRate: 3,
				PostsPerWeek:   6,
				RecentPosts: []domain.RawPost{
					{"id": "a1", "likesCount": 400, "commentsCount": 30, "timestamp": "2024-06-01T12:00:00Z"},
				},
			},
			{
				Username:       "beta",
				FollowersCount: 1000,
				PostsCount:     20,
				AvgLikes:       50,
				EngagementRate: 1,
				PostsPerWeek:   2,
				RecentPosts: []domain.RawPost{
					{"id": "b1", "likesCount": 60, "timestamp": "2024-06-02T12:00:00Z"},
				},
			},
		},
	}
}

func TestGenerateFullReport(t *testing.T) {
	storage := fullyPopulatedStorage()
	result := newTestService(storage).Generate(context.Background())

	if result.Message != "Generated insights" {
		t.Fatalf("ожидали успешную генерацию, получили %q", result.Message)
	}
	if len(storage.replaced) != 1 {
		t.Fatalf("инсайты должны быть перезаписаны ровно один раз")
	}
	if len(result.Insights) == 0 || result.Insights[0].ID == 0 {
		t.Fatalf("в ответ попадают сохранённые инсайты с идентификаторами: %+v", result.Insights)
	}

	data := result.ComparativeData
	if data == nil {
		t.Fatalf("ожидали сравнительный отчёт")
	}
	if data.You.Username != "mybrand" || data.You.Followers != 2000 {
		t.Fatalf("неверная собственная статистика: %+v", data.You)
	}
	if data.Velocity != 1.5 {
		t.Fatalf("ожидали velocity 1.5, получили %v", data.Velocity)
	}
	if len(data.CompNames) != 2 || data.CompNames[0] != "alpha" {
		t.Fatalf("неверные имена конкурентов: %+v", data.CompNames)
	}
	if data.MarketAvg.Engagement != 2 {
		t.Fatalf("средний engagement по рынку должен быть 2, получили %v", data.MarketAvg.Engagement)
	}
	if len(data.TopPosts) != 4 {
		t.Fatalf("ожидали все 4 поста в топе, получили %d", len(data.TopPosts))
	}
	if data.TopPosts[0].ID != "a1" {
		t.Fatalf("первым в топе должен быть пост с 400 лайками: %+v", data.TopPosts[0])
	}
	if len(data.RealHistory) != 2 {
		t.Fatalf("ожидали хронологию из 2 дней, получили %d", len(data.RealHistory))
	}
	if len(data.EngagementShare) != 3 {
		t.Fatalf("ожидали 3 доли, получили %d", len(data.EngagementShare))
	}
	if len(data.MyPostsChart) != 2 {
		t.Fatalf("ожидали 2 точки собственной серии, получили %d", len(data.MyPostsChart))
	}
	if len(data.FollowerComparison) != 3 {
		t.Fatalf("ожидали 3 столбца сравнения, получили %d", len(data.FollowerComparison))
	}
	if data.CompetitorWatch.MyBest == nil || data.CompetitorWatch.MyBest.ID != "s1" {
		t.Fatalf("мой лучший пост определён неверно: %+v", data.CompetitorWatch.MyBest)
	}
	if data.CompetitorWatch.TheirBest == nil || data.CompetitorWatch.TheirBest.ID != "a1" {
		t.Fatalf("лучший пост конкурента определён неверно: %+v", data.CompetitorWatch.TheirBest)
	}
	if len(data.DeepDive) != 3 || !data.DeepDive[0].IsMe {
		t.Fatalf("deep dive начинается с собственного аккаунта: %+v", data.DeepDive)
	}
	if data.DeepDive[1].Username != "@alpha" {
		t.Fatalf("конкуренты в deep dive идут с @: %q", data.DeepDive[1].Username)
	}
	if len(data.ExecutiveSummary) != 4 {
		t.Fatalf("сводка должна состоять из 4 строк: %+v", data.ExecutiveSummary)
	}
}

func TestGenerateWithoutOwnAccount(t *testing.T) {
	storage := fullyPopulatedStorage()
	storage.accounts = nil
	result := newTestService(storage).Generate(context.Background())

	if result.Message != "Generated insights" {
		t.Fatalf("отсутствие собственной записи не должно ломать генерацию: %q", result.Message)
	}
	if result.ComparativeData.You.Username != "You" {
		t.Fatalf("пустой аккаунт подписывается как You: %q", result.ComparativeData.You.Username)
	}
}

func TestListInsightsReturnsStored(t *testing.T) {
	storage := fullyPopulatedStorage()
	storage.insights = []domain.Insight{{ID: 5, Title: "старый"}}

	insights, err := newTestService(storage).ListInsights(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(insights) != 1 || insights[0].ID != 5 {
		t.Fatalf("должны вернуться сохранённые инсайты: %+v", insights)
	}
	if len(storage.replaced) != 0 {
		t.Fatalf("генерация не должна запускаться при непустой базе")
	}
}

func TestListInsightsGeneratesWhenEmpty(t *testing.T) {
	storage := fullyPopulatedStorage()
	insights, err := newTestService(storage).ListInsights(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(insights) == 0 {
		t.Fatalf("пустая база должна запускать генерацию")
	}
	if len(storage.replaced) != 1 {
		t.Fatalf("генерация должна была перезаписать инсайты")
	}
}
