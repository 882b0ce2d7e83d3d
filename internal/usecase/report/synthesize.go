package report

import (
	"fmt"
	"time"

	"smm-analytics/internal/domain"
)

const categoryGrowth = "Growth"

// Synthesize применяет набор правил к агрегатам и выдаёт инсайты.
// Правила намеренно простые: предикат над статистикой плюс типизированное
// текстовое описание; новые правила добавляются тем же шаблоном.
func Synthesize(self domain.EntitySummary, market domain.MarketAverages, velocity float64, now time.Time) []domain.Insight {
	insights := make([]domain.Insight, 0, 2)

	growthType := domain.InsightTypeOpportunity
	if velocity <= 1 {
		growthType = domain.InsightTypeRisk
	}
	insights = append(insights, domain.Insight{
		Type:        growthType,
		Title:       "🚀 Growth Velocity",
		Description: fmt.Sprintf("You are growing %.1fx faster than the market average.", velocity),
		Priority:    domain.PriorityHigh,
		Category:    categoryGrowth,
		CreatedAt:   now,
	})

	if self.Engagement > market.Engagement {
		insights = append(insights, domain.Insight{
			Type:        domain.InsightTypeOpportunity,
			Title:       "💎 Quality Audience",
			Description: fmt.Sprintf("Your engagement (%.2f%%) beats market avg (%.2f%%).", self.Engagement, market.Engagement),
			Priority:    domain.PriorityHigh,
			Category:    categoryGrowth,
			CreatedAt:   now,
		})
	}

	return insights
}
