package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Queues names the three queues that make up one work queue.
type Queues struct {
	Main  string
	Retry string
	DLQ   string
}

func QueuesFor(queue string) Queues {
	return Queues{Main: queue, Retry: queue + ".retry", DLQ: queue + ".dlq"}
}

// DeclareTopology declares the DLQ, the retry queue (TTL'd messages
// dead-letter back to main) and the main queue (rejects dead-letter to the
// DLQ). Publisher and consumer must both use it or the declares conflict.
func DeclareTopology(ch *amqp.Channel, queue string) (Queues, error) {
	q := QueuesFor(queue)

	if _, err := ch.QueueDeclare(
		q.DLQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return q, err
	}

	if _, err := ch.QueueDeclare(
		q.Retry,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": q.Main,
		},
	); err != nil {
		return q, err
	}

	if _, err := ch.QueueDeclare(
		q.Main,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": q.DLQ,
		},
	); err != nil {
		return q, err
	}
	return q, nil
}

type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queues Queues
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	q, err := DeclareTopology(ch, queue)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queues: q}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish sends a persistent JSON message to the main queue.
func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	return p.publish(ctx, p.queues.Main, body, nil, "")
}

// Retry parks a message on the retry queue; it returns to the main queue
// once delay expires. Callers stamp the attempt with WithRetryCount.
func (p *Publisher) Retry(ctx context.Context, body []byte, headers amqp.Table, delay time.Duration) error {
	return p.publish(ctx, p.queues.Retry, body, headers, Expiration(delay))
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte, headers amqp.Table, expiration string) error {
	cctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",    // default exchange
		queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			Headers:      headers,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			Expiration:   expiration,
		},
	)
}
