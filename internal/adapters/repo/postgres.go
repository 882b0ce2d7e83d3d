package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"smm-analytics/internal/domain"
	"smm-analytics/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.AccountRepo    = (*Postgres)(nil)
	_ domain.CompetitorRepo = (*Postgres)(nil)
	_ domain.InsightRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// InitSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS user_analytics (
id BIGSERIAL PRIMARY KEY,
page_id TEXT UNIQUE NOT NULL,
username TEXT NOT NULL DEFAULT '',
followers_count INT NOT NULL DEFAULT 0,
following_count INT NOT NULL DEFAULT 0,
posts_count INT NOT NULL DEFAULT 0,
profile_pic_url TEXT NOT NULL DEFAULT '',
engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
avg_likes INT NOT NULL DEFAULT 0,
avg_comments INT NOT NULL DEFAULT 0,
posts_per_week INT NOT NULL DEFAULT 0,
recent_posts JSONB NOT NULL DEFAULT '[]',
last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS competitors (
id BIGSERIAL PRIMARY KEY,
username TEXT UNIQUE NOT NULL,
full_name TEXT NOT NULL DEFAULT '',
followers_count INT NOT NULL DEFAULT 0,
following_count INT NOT NULL DEFAULT 0,
posts_count INT NOT NULL DEFAULT 0,
profile_pic_url TEXT NOT NULL DEFAULT '',
biography TEXT NOT NULL DEFAULT '',
is_verified BOOLEAN NOT NULL DEFAULT false,
engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
avg_likes INT NOT NULL DEFAULT 0,
posts_per_week INT NOT NULL DEFAULT 0,
recent_posts JSONB NOT NULL DEFAULT '[]',
scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS insights (
id BIGSERIAL PRIMARY KEY,
insight_type TEXT NOT NULL,
title TEXT NOT NULL,
description TEXT NOT NULL DEFAULT '',
priority TEXT NOT NULL DEFAULT 'medium',
category TEXT NOT NULL DEFAULT 'General',
created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	}
	for _, q := range queries {
		if _, err := p.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("инициализация схемы: %w", err)
		}
	}
	return nil
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func marshalPosts(posts []domain.RawPost) ([]byte, error) {
	if posts == nil {
		posts = []domain.RawPost{}
	}
	return json.Marshal(posts)
}

func unmarshalPosts(data []byte) []domain.RawPost {
	if len(data) == 0 {
		return nil
	}
	var posts []domain.RawPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil
	}
	return posts
}

// UpsertAccount сохраняет собственную аналитику по ключу page_id.
func (p *Postgres) UpsertAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	posts, err := marshalPosts(account.RecentPosts)
	if err != nil {
		return domain.Account{}, fmt.Errorf("сериализация постов: %w", err)
	}
	if account.LastUpdated.IsZero() {
		account.LastUpdated = time.Now().UTC()
	}

	start := time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO user_analytics (page_id, username, followers_count, following_count, posts_count, profile_pic_url, engagement_rate, avg_likes, avg_comments, posts_per_week, recent_posts, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (page_id) DO UPDATE SET
username = EXCLUDED.username,
followers_count = EXCLUDED.followers_count,
following_count = EXCLUDED.following_count,
posts_count = EXCLUDED.posts_count,
profile_pic_url = EXCLUDED.profile_pic_url,
engagement_rate = EXCLUDED.engagement_rate,
avg_likes = EXCLUDED.avg_likes,
avg_comments = EXCLUDED.avg_comments,
posts_per_week = EXCLUDED.posts_per_week,
recent_posts = EXCLUDED.recent_posts,
last_updated = EXCLUDED.last_updated
RETURNING id
`, account.PageID, account.Username, account.FollowersCount, account.FollowingCount, account.PostsCount, account.ProfilePicURL, account.EngagementRate, account.AvgLikes, account.AvgComments, account.PostsPerWeek, posts, account.LastUpdated).Scan(&account.ID)
	metrics.ObserveNetworkRequest("postgres", "upsert_account", "user_analytics", start, err)
	if err != nil {
		return domain.Account{}, fmt.Errorf("сохранение аналитики: %w", err)
	}
	return account, nil
}

const accountColumns = `id, page_id, username, followers_count, following_count, posts_count, profile_pic_url, engagement_rate, avg_likes, avg_comments, posts_per_week, recent_posts, last_updated`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var account domain.Account
	var posts []byte
	err := row.Scan(&account.ID, &account.PageID, &account.Username, &account.FollowersCount, &account.FollowingCount, &account.PostsCount, &account.ProfilePicURL, &account.EngagementRate, &account.AvgLikes, &account.AvgComments, &account.PostsPerWeek, &posts, &account.LastUpdated)
	if err != nil {
		return domain.Account{}, err
	}
	account.RecentPosts = unmarshalPosts(posts)
	return account, nil
}

// GetAccount возвращает запись собственной аналитики.
func (p *Postgres) GetAccount(ctx context.Context) (domain.Account, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	account, err := scanAccount(p.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM user_analytics ORDER BY id LIMIT 1`))
	metrics.ObserveNetworkRequest("postgres", "get_account", "user_analytics", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("чтение аналитики: %w", err)
	}
	return account, nil
}

// ListAccounts возвращает все записи собственной аналитики.
func (p *Postgres) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+accountColumns+` FROM user_analytics ORDER BY id`)
	metrics.ObserveNetworkRequest("postgres", "list_accounts", "user_analytics", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение аналитики: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("разбор строки аналитики: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpsertCompetitor сохраняет конкурента по ключу username.
func (p *Postgres) UpsertCompetitor(ctx context.Context, competitor domain.Competitor) (domain.Competitor, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	posts, err := marshalPosts(competitor.RecentPosts)
	if err != nil {
		return domain.Competitor{}, fmt.Errorf("сериализация постов: %w", err)
	}
	if competitor.ScrapedAt.IsZero() {
		competitor.ScrapedAt = time.Now().UTC()
	}

	start := time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO competitors (username, full_name, followers_count, following_count, posts_count, profile_pic_url, biography, is_verified, engagement_rate, avg_likes, posts_per_week, recent_posts, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (username) DO UPDATE SET
full_name = EXCLUDED.full_name,
followers_count = EXCLUDED.followers_count,
following_count = EXCLUDED.following_count,
posts_count = EXCLUDED.posts_count,
profile_pic_url = EXCLUDED.profile_pic_url,
biography = EXCLUDED.biography,
is_verified = EXCLUDED.is_verified,
engagement_rate = EXCLUDED.engagement_rate,
avg_likes = EXCLUDED.avg_likes,
posts_per_week = EXCLUDED.posts_per_week,
recent_posts = EXCLUDED.recent_posts,
scraped_at = EXCLUDED.scraped_at
RETURNING id
`, competitor.Username, competitor.FullName, competitor.FollowersCount, competitor.FollowingCount, competitor.PostsCount, competitor.ProfilePicURL, competitor.Biography, competitor.IsVerified, competitor.EngagementRate, competitor.AvgLikes, competitor.PostsPerWeek, posts, competitor.ScrapedAt).Scan(&competitor.ID)
	metrics.ObserveNetworkRequest("postgres", "upsert_competitor", "competitors", start, err)
	if err != nil {
		return domain.Competitor{}, fmt.Errorf("сохранение конкурента: %w", err)
	}
	return competitor, nil
}

const competitorColumns = `id, username, full_name, followers_count, following_count, posts_count, profile_pic_url, biography, is_verified, engagement_rate, avg_likes, posts_per_week, recent_posts, scraped_at`

func scanCompetitor(row pgx.Row) (domain.Competitor, error) {
	var competitor domain.Competitor
	var posts []byte
	err := row.Scan(&competitor.ID, &competitor.Username, &competitor.FullName, &competitor.FollowersCount, &competitor.FollowingCount, &competitor.PostsCount, &competitor.ProfilePicURL, &competitor.Biography, &competitor.IsVerified, &competitor.EngagementRate, &competitor.AvgLikes, &competitor.PostsPerWeek, &posts, &competitor.ScrapedAt)
	if err != nil {
		return domain.Competitor{}, err
	}
	competitor.RecentPosts = unmarshalPosts(posts)
	return competitor, nil
}

// GetCompetitor возвращает конкурента по username.
func (p *Postgres) GetCompetitor(ctx context.Context, username string) (domain.Competitor, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	competitor, err := scanCompetitor(p.pool.QueryRow(ctx, `SELECT `+competitorColumns+` FROM competitors WHERE username = $1`, username))
	metrics.ObserveNetworkRequest("postgres", "get_competitor", "competitors", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Competitor{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Competitor{}, fmt.Errorf("чтение конкурента: %w", err)
	}
	return competitor, nil
}

// ListCompetitors возвращает всех конкурентов.
func (p *Postgres) ListCompetitors(ctx context.Context) ([]domain.Competitor, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+competitorColumns+` FROM competitors ORDER BY id`)
	metrics.ObserveNetworkRequest("postgres", "list_competitors", "competitors", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение конкурентов: %w", err)
	}
	defer rows.Close()

	var competitors []domain.Competitor
	for rows.Next() {
		competitor, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("разбор строки конкурента: %w", err)
		}
		competitors = append(competitors, competitor)
	}
	return competitors, rows.Err()
}

// ListInsights возвращает сохранённые инсайты.
func (p *Postgres) ListInsights(ctx context.Context) ([]domain.Insight, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT id, insight_type, title, description, priority, category, created_at FROM insights ORDER BY id`)
	metrics.ObserveNetworkRequest("postgres", "list_insights", "insights", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение инсайтов: %w", err)
	}
	defer rows.Close()

	var insights []domain.Insight
	for rows.Next() {
		var insight domain.Insight
		if err := rows.Scan(&insight.ID, &insight.Type, &insight.Title, &insight.Description, &insight.Priority, &insight.Category, &insight.CreatedAt); err != nil {
			return nil, fmt.Errorf("разбор строки инсайта: %w", err)
		}
		insights = append(insights, insight)
	}
	return insights, rows.Err()
}

// ReplaceInsights удаляет прежний набор инсайтов и вставляет новый в одной
// транзакции: параллельные генерации не перемешивают свои наборы.
func (p *Postgres) ReplaceInsights(ctx context.Context, insights []domain.Insight) ([]domain.Insight, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "insights", start, err)
	if err != nil {
		return nil, fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM insights`); err != nil {
		return nil, fmt.Errorf("удаление инсайтов: %w", err)
	}

	saved := make([]domain.Insight, 0, len(insights))
	for _, insight := range insights {
		if insight.CreatedAt.IsZero() {
			insight.CreatedAt = time.Now().UTC()
		}
		err := tx.QueryRow(ctx, `
INSERT INTO insights (insight_type, title, description, priority, category, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`, insight.Type, insight.Title, insight.Description, insight.Priority, insight.Category, insight.CreatedAt).Scan(&insight.ID)
		if err != nil {
			return nil, fmt.Errorf("вставка инсайта: %w", err)
		}
		saved = append(saved, insight)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("фиксация транзакции: %w", err)
	}
	return saved, nil
}
