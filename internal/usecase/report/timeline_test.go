package report

import (
	"testing"
	"time"

	"smm-analytics/internal/domain"
)

func day(d int, hour int) time.Time {
	return time.Date(2024, 6, d, hour, 0, 0, 0, time.UTC)
}

func TestBuildTimelineDailyMax(t *testing.T) {
	posts := []domain.NormalizedPost{
		{GraphKey: "you", Likes: 10, Timestamp: day(1, 9)},
		{GraphKey: "you", Likes: 40, Timestamp: day(1, 18)},
		{GraphKey: "c1", Likes: 25, Timestamp: day(1, 12)},
		{GraphKey: "you", Likes: 5, Timestamp: day(2, 10)},
	}
	timeline := BuildTimeline(posts, []string{"alpha"})

	if len(timeline) != 2 {
		t.Fatalf("ожидали 2 дня, получили %d", len(timeline))
	}
	first := timeline[0]
	if first["date"] != "2024-06-01" {
		t.Fatalf("дни должны идти по возрастанию: %v", first["date"])
	}
	if first["you"] != 40 {
		t.Fatalf("за день берётся максимум лайков, получили %v", first["you"])
	}
	if first["c1"] != 25 {
		t.Fatalf("неверное значение конкурента: %v", first["c1"])
	}
	if first["c1_name"] != "alpha" {
		t.Fatalf("точка должна нести имя первого конкурента: %v", first["c1_name"])
	}
	if timeline[1]["you"] != 5 {
		t.Fatalf("второй день собран неверно: %v", timeline[1])
	}
}

func TestBuildTimelineSecondCompetitorName(t *testing.T) {
	posts := []domain.NormalizedPost{
		{GraphKey: "c2", Likes: 7, Timestamp: day(3, 12)},
	}
	timeline := BuildTimeline(posts, []string{"alpha", "beta"})
	if timeline[0]["c2_name"] != "beta" {
		t.Fatalf("ожидали имя второго конкурента: %v", timeline[0]["c2_name"])
	}
}

func TestBuildTimelineEmptyGraphKey(t *testing.T) {
	posts := []domain.NormalizedPost{{Likes: 3, Timestamp: day(4, 12)}}
	timeline := BuildTimeline(posts, nil)
	if timeline[0]["other"] != 3 {
		t.Fatalf("пустой graph key должен попадать в other: %v", timeline[0])
	}
}

func TestBuildTimelineEmptyInput(t *testing.T) {
	if timeline := BuildTimeline(nil, nil); len(timeline) != 0 {
		t.Fatalf("без постов хронология пустая, получили %d точек", len(timeline))
	}
}
