package report

import (
	"math"
	"testing"

	"smm-analytics/internal/domain"
)

func TestMarketAveragesEmpty(t *testing.T) {
	avg := MarketAverages(nil)
	if avg.Engagement != 0 || avg.Followers != 0 || avg.PostsWeek != 0 || avg.TotalPosts != 0 || avg.GrowthRate != 0 {
		t.Fatalf("без конкурентов все средние равны нулю: %+v", avg)
	}
}

func TestMarketAverages(t *testing.T) {
	competitors := []domain.EntitySummary{
		{Engagement: 2, PostsPerWeek: 3, Followers: 1000, PostsCount: 100},
		{Engagement: 4, PostsPerWeek: 5, Followers: 3000, PostsCount: 200},
	}
	avg := MarketAverages(competitors)
	if avg.Engagement != 3 {
		t.Fatalf("ожидали средний engagement 3, получили %v", avg.Engagement)
	}
	if avg.Followers != 2000 {
		t.Fatalf("ожидали средних подписчиков 2000, получили %v", avg.Followers)
	}
	if avg.GrowthRate != 1.6 {
		t.Fatalf("рыночный темп роста должен быть 1.6, получили %v", avg.GrowthRate)
	}
}

func TestVelocity(t *testing.T) {
	if v := Velocity(); v != 1.5 {
		t.Fatalf("ожидали 2.4/1.6=1.5, получили %v", v)
	}
}

func TestEngagementShareZeroTotal(t *testing.T) {
	if shares := EngagementShare(domain.EntitySummary{}, []domain.EntitySummary{{}}); shares != nil {
		t.Fatalf("при нулевых лайках долей нет: %+v", shares)
	}
}

func TestEngagementShare(t *testing.T) {
	self := domain.EntitySummary{TotalLikes: 600}
	competitors := []domain.EntitySummary{
		{Username: "alpha", TotalLikes: 300},
		{Username: "beta", TotalLikes: 100},
	}
	shares := EngagementShare(self, competitors)
	if len(shares) != 3 {
		t.Fatalf("ожидали 3 доли, получили %d", len(shares))
	}
	if shares[0].Name != "You" || shares[0].Value != 60 || shares[0].Color != "#8b5cf6" {
		t.Fatalf("неверная собственная доля: %+v", shares[0])
	}
	if shares[1].Name != "@alpha" || shares[1].Value != 30 {
		t.Fatalf("неверная доля первого конкурента: %+v", shares[1])
	}
	if shares[1].Color != "#10b981" || shares[2].Color != "#f59e0b" {
		t.Fatalf("палитра должна идти по индексу: %+v", shares)
	}

	var sum float64
	for _, s := range shares {
		sum += s.Value
	}
	if math.Abs(sum-100) > 0.5 {
		t.Fatalf("доли должны складываться примерно в 100, получили %v", sum)
	}
}

func TestEngagementShareZeroEntityStaysVisible(t *testing.T) {
	self := domain.EntitySummary{TotalLikes: 0}
	competitors := []domain.EntitySummary{{Username: "alpha", TotalLikes: 500}}
	shares := EngagementShare(self, competitors)
	if shares[0].Value != 0.1 {
		t.Fatalf("нулевая сущность получает минимальную долю 0.1, получили %v", shares[0].Value)
	}
}

func TestEngagementShareRounding(t *testing.T) {
	self := domain.EntitySummary{TotalLikes: 1}
	competitors := []domain.EntitySummary{{Username: "alpha", TotalLikes: 2}}
	shares := EngagementShare(self, competitors)
	if shares[0].Value != 33.3 {
		t.Fatalf("доля округляется до одного знака, получили %v", shares[0].Value)
	}
	if shares[1].Value != 66.7 {
		t.Fatalf("доля округляется до одного знака, получили %v", shares[1].Value)
	}
}

func TestFollowerComparisonTruncatesNames(t *testing.T) {
	self := domain.EntitySummary{Followers: 1200}
	competitors := []domain.EntitySummary{
		{Username: "verylongusername", Followers: 900},
		{Username: "short", Followers: 100},
	}
	bars := FollowerComparison(self, competitors)
	if len(bars) != 3 {
		t.Fatalf("ожидали 3 столбца, получили %d", len(bars))
	}
	if bars[0].Name != "You" || bars[0].Followers != 1200 {
		t.Fatalf("первый столбец — свой аккаунт: %+v", bars[0])
	}
	if bars[1].Name != "@verylongus" {
		t.Fatalf("имя должно усекаться до 10 символов: %q", bars[1].Name)
	}
	if bars[2].Name != "@short" {
		t.Fatalf("короткое имя не усекается: %q", bars[2].Name)
	}
}

func TestTopPostsLimitAndStability(t *testing.T) {
	posts := []domain.NormalizedPost{
		{ID: "a", Likes: 10},
		{ID: "b", Likes: 50},
		{ID: "c", Likes: 50},
		{ID: "d", Likes: 5},
		{ID: "e", Likes: 70},
		{ID: "f", Likes: 1},
		{ID: "g", Likes: 20},
	}
	top := TopPosts(posts)
	if len(top) != 5 {
		t.Fatalf("ожидали 5 постов, получили %d", len(top))
	}
	if top[0].ID != "e" {
		t.Fatalf("первым должен быть самый популярный: %q", top[0].ID)
	}
	if top[1].ID != "b" || top[2].ID != "c" {
		t.Fatalf("при равенстве лайков порядок сохраняется: %+v", top[1:3])
	}
	if posts[0].ID != "a" {
		t.Fatalf("исходный список не должен меняться")
	}
}

func TestContentDistribution(t *testing.T) {
	posts := []domain.NormalizedPost{
		{ContentType: "Image"},
		{ContentType: "Video"},
		{ContentType: "Image"},
	}
	dist := ContentDistribution(posts)
	if len(dist) != 2 {
		t.Fatalf("ожидали 2 типа, получили %d", len(dist))
	}
	if dist[0].Type != "Image" || dist[0].Count != 2 {
		t.Fatalf("порядок появления должен сохраняться: %+v", dist)
	}

	empty := ContentDistribution(nil)
	if len(empty) != 1 || empty[0].Type != "N/A" || empty[0].Count != 0 {
		t.Fatalf("пустой список даёт заглушку N/A: %+v", empty)
	}
}
