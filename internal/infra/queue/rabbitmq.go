package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"smm-analytics/internal/domain"
)

// RabbitScrapeQueue читает результаты скрейпа из очереди AMQP.
type RabbitScrapeQueue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
	queue      string
}

// NewRabbitScrapeQueue подключается к RabbitMQ и объявляет очередь.
func NewRabbitScrapeQueue(amqpURL, queue string) (*RabbitScrapeQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.Qos(1, 0, false); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("start consumer: %w", err)
	}
	return &RabbitScrapeQueue{conn: conn, channel: channel, deliveries: deliveries, queue: queue}, nil
}

// Receive блокирующе читает результат скрейпа. Сообщение с битым JSON
// отбрасывается без повторной доставки.
func (q *RabbitScrapeQueue) Receive(ctx context.Context) (domain.ScrapeResult, domain.AckFunc, error) {
	select {
	case <-ctx.Done():
		return domain.ScrapeResult{}, nil, ctx.Err()
	case delivery, ok := <-q.deliveries:
		if !ok {
			return domain.ScrapeResult{}, nil, errors.New("канал доставки закрыт")
		}
		var result domain.ScrapeResult
		if err := json.Unmarshal(delivery.Body, &result); err != nil {
			_ = delivery.Nack(false, false)
			return domain.ScrapeResult{}, nil, fmt.Errorf("decode scrape result: %w", err)
		}
		ack := func(ok bool) error {
			if ok {
				return delivery.Ack(false)
			}
			return delivery.Nack(false, true)
		}
		return result, ack, nil
	}
}

// Close закрывает канал и соединение.
func (q *RabbitScrapeQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
