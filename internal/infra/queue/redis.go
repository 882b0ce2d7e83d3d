package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smm-analytics/internal/domain"
)

// RedisScrapeQueue реализует очередь результатов скрейпа на базе Redis lists.
// Используется как замена RabbitMQ в dev-окружении.
type RedisScrapeQueue struct {
	client *redis.Client
	key    string
}

// NewRedisScrapeQueue создаёт очередь по указанному ключу.
func NewRedisScrapeQueue(client *redis.Client, key string) *RedisScrapeQueue {
	return &RedisScrapeQueue{client: client, key: key}
}

// Enqueue публикует результат скрейпа в очередь.
func (q *RedisScrapeQueue) Enqueue(ctx context.Context, result domain.ScrapeResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal scrape result: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push scrape result: %w", err)
	}
	return nil
}

// Receive блокирующе читает результат скрейпа. Подтверждения у Redis-списка
// нет: ack(false) возвращает сообщение в начало очереди.
func (q *RedisScrapeQueue) Receive(ctx context.Context) (domain.ScrapeResult, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ScrapeResult{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.ScrapeResult{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.ScrapeResult{}, nil, err
		}
		if len(res) != 2 {
			return domain.ScrapeResult{}, nil, errors.New("redis queue: unexpected response")
		}
		payload := []byte(res[1])
		var result domain.ScrapeResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return domain.ScrapeResult{}, nil, fmt.Errorf("decode scrape result: %w", err)
		}
		ack := func(ok bool) error {
			if ok {
				return nil
			}
			return q.client.LPush(context.Background(), q.key, payload).Err()
		}
		return result, ack, nil
	}
}
