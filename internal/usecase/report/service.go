package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smm-analytics/internal/domain"
	"smm-analytics/internal/infra/metrics"
)

// Ответы генерации, которые фронтенд показывает как есть.
const (
	messageGenerated      = "Generated insights"
	messageNoCompetitors  = "No competitors found"
	messageGenerationFail = "Error"
)

const captionPreviewLimit = 20

// Service реализует генерацию сравнительного отчёта и инсайтов.
type Service struct {
	accounts    domain.AccountRepo
	competitors domain.CompetitorRepo
	insights    domain.InsightRepo
	norm        *Normalizer
	log         zerolog.Logger
}

// NewService создаёт сервис отчётов.
func NewService(accounts domain.AccountRepo, competitors domain.CompetitorRepo, insights domain.InsightRepo, norm *Normalizer, logger zerolog.Logger) *Service {
	return &Service{accounts: accounts, competitors: competitors, insights: insights, norm: norm, log: logger}
}

// ListInsights возвращает сохранённые инсайты; при пустой базе сначала
// прогоняет генерацию.
func (s *Service) ListInsights(ctx context.Context) ([]domain.Insight, error) {
	stored, err := s.insights.ListInsights(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение инсайтов: %w", err)
	}
	if len(stored) > 0 {
		return stored, nil
	}
	result := s.Generate(ctx)
	return result.Insights, nil
}

// Generate строит отчёт и перезаписывает сохранённые инсайты. Любая ошибка
// или паника внутри превращается в деградированный ответ: дашборд не должен
// получать 500 ни при каком состоянии данных.
func (s *Service) Generate(ctx context.Context) domain.GenerationResult {
	start := time.Now()
	result, err := s.generate(ctx)
	metrics.ObserveReportGeneration(start, err)
	if err != nil {
		s.log.Error().Err(err).Msg("report: генерация не удалась")
		return domain.GenerationResult{Message: messageGenerationFail, Insights: []domain.Insight{}}
	}
	return result
}

func (s *Service) generate(ctx context.Context) (result domain.GenerationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при генерации: %v", r)
		}
	}()

	var self domain.Account
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("загрузка собственной аналитики: %w", err)
	}
	if len(accounts) > 0 {
		self = accounts[0]
	}

	competitors, err := s.competitors.ListCompetitors(ctx)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("загрузка конкурентов: %w", err)
	}
	if len(competitors) == 0 {
		return domain.GenerationResult{Message: messageNoCompetitors, Insights: []domain.Insight{}}, nil
	}

	selfProfile := self.Profile()
	if selfProfile.Username == "" {
		selfProfile.Username = "You"
	}

	selfPosts := make([]domain.NormalizedPost, 0, len(self.RecentPosts))
	for _, raw := range self.RecentPosts {
		selfPosts = append(selfPosts, s.norm.Normalize(raw, domain.SchemaFirstParty, "You", "you"))
	}
	selfSummary := Aggregate(selfProfile, selfPosts)

	allPosts := append([]domain.NormalizedPost(nil), selfPosts...)
	compNames := make([]string, 0, len(competitors))
	compSummaries := make([]domain.EntitySummary, 0, len(competitors))
	for i, competitor := range competitors {
		graphKey := fmt.Sprintf("c%d", i+1)
		owner := "@" + competitor.Username
		posts := make([]domain.NormalizedPost, 0, len(competitor.RecentPosts))
		for _, raw := range competitor.RecentPosts {
			posts = append(posts, s.norm.Normalize(raw, domain.SchemaScraped, owner, graphKey))
		}
		compNames = append(compNames, competitor.Username)
		compSummaries = append(compSummaries, Aggregate(competitor.Profile(), posts))
		allPosts = append(allPosts, posts...)
	}

	market := MarketAverages(compSummaries)
	velocity := Velocity()
	now := time.Now().UTC()

	insights := Synthesize(selfSummary, market, velocity, now)
	stored, err := s.insights.ReplaceInsights(ctx, insights)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("перезапись инсайтов: %w", err)
	}
	metrics.AddInsightsGenerated(len(stored))

	watch := domain.CompetitorWatch{MyBest: selfSummary.BestPost}
	if len(compSummaries) > 0 {
		watch.TheirBest = compSummaries[0].BestPost
	}

	deepDive := make([]domain.DeepDiveEntry, 0, len(compSummaries)+1)
	deepDive = append(deepDive, domain.DeepDiveEntry{
		Username:   selfSummary.Username,
		IsMe:       true,
		ProfilePic: selfSummary.ProfilePicURL,
		Followers:  selfSummary.Followers,
		Engagement: selfSummary.Engagement,
		TotalPosts: selfSummary.PostsCount,
		BestPost:   selfSummary.BestPost,
	})
	for _, c := range compSummaries {
		deepDive = append(deepDive, domain.DeepDiveEntry{
			Username:   "@" + c.Username,
			ProfilePic: c.ProfilePicURL,
			Followers:  c.Followers,
			Engagement: c.Engagement,
			TotalPosts: c.PostsCount,
			BestPost:   c.BestPost,
		})
	}

	reportData := &domain.ComparativeReport{
		You: domain.SelfStats{
			Username:     selfSummary.Username,
			Followers:    selfSummary.Followers,
			Engagement:   selfSummary.Engagement,
			Posts:        selfSummary.PostsCount,
			AvgLikes:     selfSummary.AvgLikes,
			PostsPerWeek: selfSummary.PostsPerWeek,
			ProfilePic:   selfSummary.ProfilePicURL,
			GrowthRate:   selfGrowthRate,
		},
		MarketAvg:           market,
		Velocity:            velocity,
		TopPosts:            TopPosts(allPosts),
		ExecutiveSummary:    executiveSummary(selfSummary, velocity, len(allPosts)),
		RealHistory:         BuildTimeline(allPosts, compNames),
		CompNames:           compNames,
		EngagementShare:     EngagementShare(selfSummary, compSummaries),
		MyPostsChart:        selfSummary.Series,
		ContentDistribution: ContentDistribution(selfPosts),
		FollowerComparison:  FollowerComparison(selfSummary, compSummaries),
		CompetitorWatch:     watch,
		DeepDive:            deepDive,
	}

	return domain.GenerationResult{Message: messageGenerated, Insights: stored, ComparativeData: reportData}, nil
}

func executiveSummary(self domain.EntitySummary, velocity float64, totalPosts int) []string {
	bestLine := "No recent posts."
	if self.BestPost != nil {
		caption := []rune(self.BestPost.Caption)
		if len(caption) > captionPreviewLimit {
			caption = caption[:captionPreviewLimit]
		}
		bestLine = fmt.Sprintf("Latest Post: %s... (%d likes)", string(caption), self.BestPost.Likes)
	}
	return []string{
		fmt.Sprintf("Growth is %.1fx market speed.", velocity),
		bestLine,
		fmt.Sprintf("You have %d posts analyzed.", len(self.Series)),
		fmt.Sprintf("Comparisons based on %d total posts.", totalPosts),
	}
}
