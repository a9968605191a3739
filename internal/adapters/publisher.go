// Package adapters connects the services' Publisher port to the ways
// journal events can leave the process.
package adapters

import (
	"context"
	"errors"

	"saku/internal/amqp"
	"saku/internal/core"
	"saku/internal/log"
)

// AMQPPublisher sends journal events to the broker for the mirror worker.
type AMQPPublisher struct {
	client *amqp.Client
}

func NewAMQPPublisher(client *amqp.Client) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev core.JournalEvent) error {
	return p.client.PublishJournalEvent(ctx, amqp.NewJournalEventMessage(ev))
}

func (p *AMQPPublisher) Close() error {
	return p.client.Close()
}

// EventHandler processes one journal event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev core.JournalEvent) error
}

// InlinePublisher hands events straight to a handler in the same process,
// for deployments without a broker. Handler failures are logged and
// swallowed like a failed publish.
type InlinePublisher struct {
	handler EventHandler
	logger  *log.Logger
}

func NewInlinePublisher(handler EventHandler, logger *log.Logger) *InlinePublisher {
	return &InlinePublisher{handler: handler, logger: logger}
}

func (p *InlinePublisher) Publish(ctx context.Context, ev core.JournalEvent) error {
	if p.handler == nil {
		return errors.New("inline publisher has no handler")
	}
	// The request context may end before the handler is done.
	ctx = context.WithoutCancel(ctx)
	if err := p.handler.HandleEvent(ctx, ev); err != nil {
		if p.logger != nil {
			p.logger.WithComponent(log.ComponentWorker).WarnContext(ctx, "Inline event handling failed",
				"type", string(ev.Type),
				log.FieldOwnerID, ev.Owner,
				log.FieldError, err)
		}
		return err
	}
	return nil
}

func (p *InlinePublisher) Close() error { return nil }
