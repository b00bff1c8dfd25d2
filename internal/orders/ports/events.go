package ports

import "context"

// EventPublisher announces order lifecycle facts on the event bus.
// accepted is false when the broker asked publishers to slow down; the event
// has still been handed off and the caller decides whether to care.
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, payload any) (accepted bool, err error)
}
