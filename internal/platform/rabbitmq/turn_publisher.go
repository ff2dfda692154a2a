package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"propchat/internal/model"
)

// TurnPublisher pushes completed chat turns onto the persistence queue.
type TurnPublisher struct {
	channel *amqp.Channel
	queue   string
}

func NewTurnPublisher(conn *amqp.Connection, queue string) (*TurnPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s failed: %w", queue, err)
	}

	return &TurnPublisher{channel: ch, queue: queue}, nil
}

func (p *TurnPublisher) PublishTurn(ctx context.Context, event model.TurnEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal turn event failed: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish turn event failed: %w", err)
	}
	return nil
}

func (p *TurnPublisher) Close() error {
	return p.channel.Close()
}
