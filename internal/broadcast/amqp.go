package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sokinpui/molgen.go/internal/models"
)

// AMQP broadcasts rounds through a fanout exchange with one exclusive queue
// per worker rank. Acks flow back through a shared queue the coordinator
// consumes, giving Publish the same all-ranks-received barrier as the Redis
// adapter.
type AMQP struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	group     string
	rank      int
	worldSize int
	rounds    <-chan amqp.Delivery
	acks      <-chan amqp.Delivery
}

func NewAMQP(url, group string, rank, worldSize int) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	a := &AMQP{
		conn:      conn,
		ch:        ch,
		group:     group,
		rank:      rank,
		worldSize: worldSize,
	}

	if err := ch.ExchangeDeclare(a.exchange(), "fanout", false, true, false, false, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(a.ackQueue(), false, true, false, false, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to declare ack queue: %w", err)
	}

	if rank == 0 {
		acks, err := ch.Consume(a.ackQueue(), "", true, false, false, false, nil)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to consume ack queue: %w", err)
		}
		a.acks = acks
		return a, nil
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to declare rank queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", a.exchange(), false, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to bind rank queue: %w", err)
	}
	rounds, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to consume rank queue: %w", err)
	}
	a.rounds = rounds
	return a, nil
}

func (a *AMQP) exchange() string {
	return a.group + ".rounds"
}

func (a *AMQP) ackQueue() string {
	return a.group + ".acks"
}

func (a *AMQP) Publish(ctx context.Context, msg *models.RoundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal round message: %w", err)
	}
	err = a.ch.PublishWithContext(ctx, a.exchange(), "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish round message: %w", err)
	}

	for received := 0; received < a.worldSize-1; {
		select {
		case d, ok := <-a.acks:
			if !ok {
				return fmt.Errorf("ack channel closed with %d/%d acks", received, a.worldSize-1)
			}
			if string(d.Body) == msg.ID {
				received++
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (a *AMQP) Receive(ctx context.Context) (*models.RoundMessage, error) {
	select {
	case d, ok := <-a.rounds:
		if !ok {
			return nil, fmt.Errorf("round channel closed")
		}
		var msg models.RoundMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round message: %w", err)
		}
		err := a.ch.PublishWithContext(ctx, "", a.ackQueue(), false, false, amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(msg.ID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ack round message: %w", err)
		}
		return &msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *AMQP) Close() error {
	if a.ch != nil {
		a.ch.Close()
	}
	return a.conn.Close()
}
