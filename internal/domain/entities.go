package domain

import "time"

// RawPost представляет сырой пост как есть: имена полей зависят от источника
// (Apify-скрейп или Graph API), любое поле может отсутствовать.
type RawPost map[string]any

// Схемы сырых постов.
const (
	// SchemaFirstParty — посты собственного аккаунта из Graph API.
	SchemaFirstParty = "first_party"
	// SchemaScraped — посты конкурентов из внешнего скрейпера.
	SchemaScraped = "scraped"
)

// NormalizedPost — канонический вид поста после нормализации.
// Имена JSON-полей являются контрактом с фронтендом.
type NormalizedPost struct {
	ID          string    `json:"id"`
	Caption     string    `json:"caption"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Shares      int       `json:"shares"`
	Views       int       `json:"views"`
	MediaURL    string    `json:"url"`
	Permalink   string    `json:"post_url"`
	Owner       string    `json:"owner"`
	Timestamp   time.Time `json:"timestamp"`
	ContentType string    `json:"type"`
	GraphKey    string    `json:"graph_key,omitempty"`
}

// Account хранит аналитику собственного аккаунта из Graph API.
type Account struct {
	ID             int64     `json:"-"`
	PageID         string    `json:"page_id"`
	Username       string    `json:"username"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostsCount     int       `json:"posts_count"`
	ProfilePicURL  string    `json:"profile_pic_url"`
	EngagementRate float64   `json:"engagement_rate"`
	AvgLikes       int       `json:"avg_likes"`
	AvgComments    int       `json:"avg_comments"`
	PostsPerWeek   int       `json:"posts_per_week"`
	RecentPosts    []RawPost `json:"recent_posts"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Competitor хранит данные конкурента, полученные от скрейпера.
type Competitor struct {
	ID             int64     `json:"-"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostsCount     int       `json:"posts_count"`
	ProfilePicURL  string    `json:"profile_pic_url"`
	Biography      string    `json:"biography"`
	IsVerified     bool      `json:"is_verified"`
	EngagementRate float64   `json:"engagement_rate"`
	AvgLikes       int       `json:"avg_likes"`
	PostsPerWeek   int       `json:"posts_per_week"`
	RecentPosts    []RawPost `json:"recent_posts"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// Типы инсайтов.
const (
	InsightTypeGapAnalysis    = "gap_analysis"
	InsightTypeRecommendation = "recommendation"
	InsightTypeTrend          = "trend"
	InsightTypeOpportunity    = "opportunity"
	InsightTypeRisk           = "risk"
	InsightTypeAction         = "action"
)

// Приоритеты инсайтов.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Insight — сохраняемая рекомендация. Набор полностью перезаписывается
// при каждой генерации отчёта.
type Insight struct {
	ID          int64     `json:"id,omitempty"`
	Type        string    `json:"insight_type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntityProfile — общий срез профиля для агрегации: либо свой аккаунт,
// либо конкурент.
type EntityProfile struct {
	Username      string
	IsSelf        bool
	Followers     int
	Engagement    float64
	PostsCount    int
	AvgLikes      int
	PostsPerWeek  int
	ProfilePicURL string
}

// Profile приводит аккаунт к общему срезу.
func (a Account) Profile() EntityProfile {
	return EntityProfile{
		Username:      a.Username,
		IsSelf:        true,
		Followers:     a.FollowersCount,
		Engagement:    a.EngagementRate,
		PostsCount:    a.PostsCount,
		AvgLikes:      a.AvgLikes,
		PostsPerWeek:  a.PostsPerWeek,
		ProfilePicURL: a.ProfilePicURL,
	}
}

// Profile приводит конкурента к общему срезу.
func (c Competitor) Profile() EntityProfile {
	return EntityProfile{
		Username:      c.Username,
		Followers:     c.FollowersCount,
		Engagement:    c.EngagementRate,
		PostsCount:    c.PostsCount,
		AvgLikes:      c.AvgLikes,
		PostsPerWeek:  c.PostsPerWeek,
		ProfilePicURL: c.ProfilePicURL,
	}
}

// EntitySummary — агрегат по одной сущности, пересчитывается на каждую
// генерацию и нигде не сохраняется.
type EntitySummary struct {
	Username         string
	IsSelf           bool
	Followers        int
	Engagement       float64
	PostsCount       int
	AvgLikes         int
	PostsPerWeek     int
	ProfilePicURL    string
	TotalLikesRecent int
	TotalLikes       int
	BestPost         *NormalizedPost
	Series           []PostChartPoint
}

// PostChartPoint — точка графика «мои посты».
type PostChartPoint struct {
	Name     string `json:"name"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	Type     string `json:"type"`
}

// SelfStats — блок «you» в сравнительном отчёте.
type SelfStats struct {
	Username     string  `json:"username"`
	Followers    int     `json:"followers"`
	Engagement   float64 `json:"engagement"`
	Posts        int     `json:"posts"`
	AvgLikes     int     `json:"avg_likes"`
	PostsPerWeek int     `json:"posts_per_week"`
	ProfilePic   string  `json:"profile_pic"`
	GrowthRate   float64 `json:"growth_rate"`
}

// MarketAverages — средние показатели по конкурентам.
type MarketAverages struct {
	Engagement float64 `json:"engagement"`
	PostsWeek  float64 `json:"posts_week"`
	GrowthRate float64 `json:"growth_rate"`
	Followers  float64 `json:"followers"`
	TotalPosts float64 `json:"total_posts"`
}

// ShareSlice — доля сущности в суммарных лайках для круговой диаграммы.
type ShareSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// FollowerBar — столбец сравнения подписчиков.
type FollowerBar struct {
	Name      string `json:"name"`
	Followers int    `json:"followers"`
	Color     string `json:"color"`
}

// ContentTypeCount — количество постов данного типа контента.
type ContentTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TimelinePoint — запись таймлайна за один день: поле "date" плюс
// максимум лайков по каждому graph key, встреченному в этот день.
type TimelinePoint map[string]any

// CompetitorWatch — сравнение лучших постов: свой против первого конкурента.
type CompetitorWatch struct {
	MyBest    *NormalizedPost `json:"my_best"`
	TheirBest *NormalizedPost `json:"their_best"`
}

// DeepDiveEntry — сводный блок по сущности: профиль плюс лучший пост.
type DeepDiveEntry struct {
	Username   string          `json:"username"`
	IsMe       bool            `json:"is_me"`
	ProfilePic string          `json:"profile_pic"`
	Followers  int             `json:"followers"`
	Engagement float64         `json:"engagement"`
	TotalPosts int             `json:"total_posts"`
	BestPost   *NormalizedPost `json:"best_post"`
}

// ComparativeReport — итоговый отчёт генерации. Строится заново на каждый
// запрос; имена JSON-полей рендерятся фронтендом напрямую.
type ComparativeReport struct {
	You                 SelfStats          `json:"you"`
	MarketAvg           MarketAverages     `json:"market_avg"`
	Velocity            float64            `json:"velocity"`
	TopPosts            []NormalizedPost   `json:"top_posts"`
	ExecutiveSummary    []string           `json:"executive_summary"`
	RealHistory         []TimelinePoint    `json:"real_history"`
	CompNames           []string           `json:"comp_names"`
	EngagementShare     []ShareSlice       `json:"engagement_share"`
	MyPostsChart        []PostChartPoint   `json:"my_posts_chart"`
	ContentDistribution []ContentTypeCount `json:"content_distribution"`
	FollowerComparison  []FollowerBar      `json:"follower_comparison"`
	CompetitorWatch     CompetitorWatch    `json:"competitor_watch"`
	DeepDive            []DeepDiveEntry    `json:"deep_dive"`
}

// GenerationResult — ответ генерации инсайтов целиком.
type GenerationResult struct {
	Message         string             `json:"message"`
	Insights        []Insight          `json:"insights"`
	ComparativeData *ComparativeReport `json:"comparative_data,omitempty"`
}

// ScrapeResult — сообщение из очереди с результатом скрейпа конкурента.
type ScrapeResult struct {
	JobID          string    `json:"job_id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostsCount     int       `json:"posts_count"`
	ProfilePicURL  string    `json:"profile_pic_url"`
	Biography      string    `json:"biography"`
	IsVerified     bool      `json:"is_verified"`
	EngagementRate float64   `json:"engagement_rate"`
	AvgLikes       int       `json:"avg_likes"`
	PostsPerWeek   int       `json:"posts_per_week"`
	RecentPosts    []RawPost `json:"recent_posts"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// Competitor собирает сущность конкурента из результата скрейпа.
func (r ScrapeResult) Competitor() Competitor {
	scrapedAt := r.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}
	return Competitor{
		Username:       r.Username,
		FullName:       r.FullName,
		FollowersCount: r.FollowersCount,
		FollowingCount: r.FollowingCount,
		PostsCount:     r.PostsCount,
		ProfilePicURL:  r.ProfilePicURL,
		Biography:      r.Biography,
		IsVerified:     r.IsVerified,
		EngagementRate: r.EngagementRate,
		AvgLikes:       r.AvgLikes,
		PostsPerWeek:   r.PostsPerWeek,
		RecentPosts:    r.RecentPosts,
		ScrapedAt:      scrapedAt,
	}
}
