package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/db"
	"github.com/suPer8Hu/rag-chat/internal/logging"
	"github.com/suPer8Hu/rag-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/rag-chat/internal/usage"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		slog.Error("db connect", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		slog.Error("db migrate", "error", err)
		os.Exit(1)
	}
	recorder := usage.NewGormRecorder(gdb)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		slog.Error("rabbit dial", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("rabbit channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	queues, err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue)
	if err != nil {
		slog.Error("queue declare", "error", err)
		os.Exit(1)
	}

	// retries go out on their own channel so they never share a channel
	// with the consumer's acks
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		slog.Error("rabbit publisher", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		slog.Error("qos", "error", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(queues.Main, "", false, false, false, false, nil)
	if err != nil {
		slog.Error("consume", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("usage worker started", "queue", queues.Main, "concurrency", concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handleDelivery(ctx, workerID, recorder, pub, d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				slog.Warn("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}

func handleDelivery(ctx context.Context, workerID int, recorder usage.Recorder, pub *rabbitmq.Publisher, d amqp.Delivery) {
	rec, err := usage.Decode(d.Body)
	if err != nil || rec.SessionID == "" || rec.ModelKey == "" {
		slog.Warn("bad usage message", "worker", workerID, "error", err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := recorder.Record(ctx, rec); err != nil {
		attempts := rabbitmq.RetryCount(d)
		if attempts < maxRetries {
			if perr := pub.Retry(ctx, d.Body, rabbitmq.WithRetryCount(d.Headers, attempts+1), retryDelay); perr == nil {
				slog.Warn("usage record failed, retrying",
					"worker", workerID, "session_id", rec.SessionID, "attempt", attempts+1, "error", err)
				_ = d.Ack(false)
				return
			}
		}
		slog.Error("usage record failed",
			"worker", workerID, "session_id", rec.SessionID, "cost", time.Since(start), "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		slog.Warn("ack failed", "worker", workerID, "session_id", rec.SessionID, "error", err)
	}
}
