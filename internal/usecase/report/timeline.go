package report

import (
	"sort"

	"smm-analytics/internal/domain"
)

const dateLayout = "2006-01-02"

// BuildTimeline сводит посты всех сущностей в дневную хронологию. Для каждой
// даты и каждого graph key записывается максимум лайков за день — серия
// «лучший пост дня», по которой фронтенд рисует линии трендов. Имена первых
// двух конкурентов подкладываются в точки для подписей легенды.
func BuildTimeline(posts []domain.NormalizedPost, compNames []string) []domain.TimelinePoint {
	byDate := make(map[string]domain.TimelinePoint)
	for _, p := range posts {
		day := p.Timestamp.Format(dateLayout)
		point, ok := byDate[day]
		if !ok {
			point = domain.TimelinePoint{"date": day}
			byDate[day] = point
		}

		key := p.GraphKey
		if key == "" {
			key = "other"
		}
		current, _ := point[key].(int)
		if p.Likes > current {
			current = p.Likes
		}
		point[key] = current

		if key == "c1" && len(compNames) > 0 {
			point["c1_name"] = compNames[0]
		}
		if key == "c2" && len(compNames) > 1 {
			point["c2_name"] = compNames[1]
		}
	}

	timeline := make([]domain.TimelinePoint, 0, len(byDate))
	for _, point := range byDate {
		timeline = append(timeline, point)
	}
	sort.Slice(timeline, func(i, j int) bool {
		di, _ := timeline[i]["date"].(string)
		dj, _ := timeline[j]["date"].(string)
		return di < dj
	})
	return timeline
}
