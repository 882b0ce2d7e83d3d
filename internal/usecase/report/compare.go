package report

import (
	"math"
	"sort"

	"smm-analytics/internal/domain"
)

// Константы темпа роста — заглушки до появления реальной истории изменения
// подписчиков. TODO: считать оба темпа из дневных дельт followers_count,
// когда collector начнёт их сохранять.
const (
	selfGrowthRate   = 2.4
	marketGrowthRate = 1.6
)

const topPostsLimit = 5

const selfColor = "#8b5cf6"

// Палитра конкурентов, цвет выбирается по индексу по модулю.
var competitorPalette = []string{"#10b981", "#f59e0b", "#06b6d4"}

const followerNameLimit = 10

// Минимальная доля, чтобы сущность с нулевыми лайками оставалась видимой
// на пропорциональной диаграмме.
const minVisibleShare = 0.1

// MarketAverages считает средние по конкурентам. Пустой список даёт нули.
func MarketAverages(competitors []domain.EntitySummary) domain.MarketAverages {
	avg := domain.MarketAverages{GrowthRate: marketGrowthRate}
	if len(competitors) == 0 {
		avg.GrowthRate = 0
		return avg
	}
	for _, c := range competitors {
		avg.Engagement += c.Engagement
		avg.PostsWeek += float64(c.PostsPerWeek)
		avg.Followers += float64(c.Followers)
		avg.TotalPosts += float64(c.PostsCount)
	}
	count := float64(len(competitors))
	avg.Engagement /= count
	avg.PostsWeek /= count
	avg.Followers /= count
	avg.TotalPosts /= count
	return avg
}

// Velocity возвращает отношение собственного темпа роста к рыночному.
func Velocity() float64 {
	if marketGrowthRate <= 0 {
		return 1.0
	}
	return selfGrowthRate / marketGrowthRate
}

// EngagementShare раскладывает суммарные лайки по сущностям в процентах.
// Нулевая сущность при ненулевом общем итоге получает минимальную долю,
// чтобы не исчезать с диаграммы.
func EngagementShare(self domain.EntitySummary, competitors []domain.EntitySummary) []domain.ShareSlice {
	grandTotal := self.TotalLikes
	for _, c := range competitors {
		grandTotal += c.TotalLikes
	}
	if grandTotal <= 0 {
		return nil
	}

	shares := make([]domain.ShareSlice, 0, len(competitors)+1)
	shares = append(shares, domain.ShareSlice{
		Name:  "You",
		Value: shareValue(self.TotalLikes, grandTotal),
		Color: selfColor,
	})
	for i, c := range competitors {
		shares = append(shares, domain.ShareSlice{
			Name:  "@" + c.Username,
			Value: shareValue(c.TotalLikes, grandTotal),
			Color: competitorPalette[i%len(competitorPalette)],
		})
	}
	return shares
}

func shareValue(total, grandTotal int) float64 {
	if total <= 0 {
		return minVisibleShare
	}
	return roundOne(float64(total) / float64(grandTotal) * 100)
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// FollowerComparison строит столбцы сравнения подписчиков: свой аккаунт
// плюс конкуренты с усечёнными для легенды именами.
func FollowerComparison(self domain.EntitySummary, competitors []domain.EntitySummary) []domain.FollowerBar {
	bars := make([]domain.FollowerBar, 0, len(competitors)+1)
	bars = append(bars, domain.FollowerBar{Name: "You", Followers: self.Followers, Color: selfColor})
	for i, c := range competitors {
		name := c.Username
		if len([]rune(name)) > followerNameLimit {
			name = string([]rune(name)[:followerNameLimit])
		}
		bars = append(bars, domain.FollowerBar{
			Name:      "@" + name,
			Followers: c.Followers,
			Color:     competitorPalette[i%len(competitorPalette)],
		})
	}
	return bars
}

// TopPosts сортирует объединённый список постов по лайкам и отдаёт первые
// пять. Сортировка стабильная: при равенстве сохраняется исходный порядок.
func TopPosts(all []domain.NormalizedPost) []domain.NormalizedPost {
	sorted := append([]domain.NormalizedPost(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Likes > sorted[j].Likes })
	if len(sorted) > topPostsLimit {
		sorted = sorted[:topPostsLimit]
	}
	return sorted
}

// ContentDistribution считает распределение типов контента по постам.
// Пустой список даёт запись-заглушку, чтобы диаграмма не оставалась пустой.
func ContentDistribution(posts []domain.NormalizedPost) []domain.ContentTypeCount {
	if len(posts) == 0 {
		return []domain.ContentTypeCount{{Type: "N/A", Count: 0}}
	}
	order := make([]string, 0)
	counts := make(map[string]int)
	for _, p := range posts {
		if _, ok := counts[p.ContentType]; !ok {
			order = append(order, p.ContentType)
		}
		counts[p.ContentType]++
	}
	distribution := make([]domain.ContentTypeCount, 0, len(order))
	for _, t := range order {
		distribution = append(distribution, domain.ContentTypeCount{Type: t, Count: counts[t]})
	}
	return distribution
}
