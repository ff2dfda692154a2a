// Package worker consumes queued chat turns and writes them to the database.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"propchat/internal/model"
	"propchat/internal/platform/logger"
	"propchat/internal/repository"
)

// TurnPersistWorker drains the turn queue into MySQL. It runs alongside the
// HTTP server and stops when its context is cancelled.
type TurnPersistWorker struct {
	conn  *amqp.Connection
	queue string
	repo  *repository.TurnRepository
	log   *logger.Logger
}

func NewTurnPersistWorker(conn *amqp.Connection, queue string, repo *repository.TurnRepository, log *logger.Logger) *TurnPersistWorker {
	return &TurnPersistWorker{conn: conn, queue: queue, repo: repo, log: log}
}

// Start blocks consuming the queue until ctx is cancelled or the delivery
// channel closes.
func (w *TurnPersistWorker) Start(ctx context.Context) error {
	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set channel qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queue,
		"turn-persist-worker", // consumer tag
		false,                 // autoAck
		false,                 // exclusive
		false,                 // noLocal
		false,                 // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %s failed: %w", w.queue, err)
	}

	w.log.Info("turn persist worker started", "queue", w.queue)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("turn persist worker stopping")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", w.queue)
			}
			w.handle(ctx, delivery)
		}
	}
}

func (w *TurnPersistWorker) handle(ctx context.Context, delivery amqp.Delivery) {
	var event model.TurnEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		w.log.Error("discarding malformed turn event", "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	sources, err := json.Marshal(event.Sources)
	if err != nil {
		w.log.Error("discarding turn event with unencodable sources",
			"session_id", event.SessionID, "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	record := &model.TurnRecord{
		SessionID: event.SessionID,
		Query:     event.Query,
		Answer:    event.Answer,
		Sources:   string(sources),
		Casual:    event.Casual,
	}
	if err := w.repo.Create(ctx, record); err != nil {
		w.log.Error("persisting turn record failed, requeueing",
			"session_id", event.SessionID, "error", err)
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)
}
