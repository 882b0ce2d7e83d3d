package report

import (
	"fmt"

	"smm-analytics/internal/domain"
)

// Aggregate строит сводку по одной сущности из её нормализованных постов.
// Порядок постов сохраняется: серия для графика не сортируется, а при
// равенстве лайков лучшим считается более ранний пост.
func Aggregate(profile domain.EntityProfile, posts []domain.NormalizedPost) domain.EntitySummary {
	summary := domain.EntitySummary{
		Username:      profile.Username,
		IsSelf:        profile.IsSelf,
		Followers:     profile.Followers,
		Engagement:    profile.Engagement,
		PostsCount:    profile.PostsCount,
		AvgLikes:      profile.AvgLikes,
		PostsPerWeek:  profile.PostsPerWeek,
		ProfilePicURL: profile.ProfilePicURL,
	}

	for idx := range posts {
		post := posts[idx]
		summary.TotalLikesRecent += post.Likes
		if summary.BestPost == nil || post.Likes > summary.BestPost.Likes {
			best := post
			summary.BestPost = &best
		}
		summary.Series = append(summary.Series, domain.PostChartPoint{
			Name:     fmt.Sprintf("Post %d", idx+1),
			Likes:    post.Likes,
			Comments: post.Comments,
			Type:     post.ContentType,
		})
	}

	// Если детальная история не была собрана, итог восстанавливается из
	// предрассчитанного среднего: сумма по свежим постам занижала бы цифру.
	estimated := profile.AvgLikes * profile.PostsCount
	summary.TotalLikes = summary.TotalLikesRecent
	if estimated > summary.TotalLikes {
		summary.TotalLikes = estimated
	}

	return summary
}
