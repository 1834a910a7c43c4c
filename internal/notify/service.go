package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/davitr/go-storefront/internal/kafka"
	"github.com/davitr/go-storefront/internal/orders"
	"github.com/davitr/go-storefront/internal/redisx"
)

// Store is the slice of Repo the consumer needs.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
}

// Service turns order events into notification rows. Delivery is
// fire-and-forget downstream of the order transaction: a failure here never
// rolls back a completed order.
type Service struct {
	Store       Store
	Redis       *redis.Client // optional event dedup
	ServiceName string
}

func dedupKey(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, "notifier", eventID)
}

func (s *Service) seen(ctx context.Context, eventID string) bool {
	if s.Redis == nil {
		return false
	}
	ok, _ := redisx.Exists(ctx, s.Redis, dedupKey(eventID))
	return ok
}

// markSeen runs only after the inserts succeed, so a failed insert leaves
// the event unmarked and a kafka redelivery gets a second try.
func (s *Service) markSeen(ctx context.Context, eventID string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Set(ctx, dedupKey(eventID), "1", redisx.TTLDedup).Err()
}

// HandleOrderCreated is the consumer handler for the order-created topic.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Your order %s has been placed.", p.Number)
	if p.PaymentStatus == orders.PaymentPaid {
		msg = fmt.Sprintf("Your order %s has been placed and payment was received.", p.Number)
	}
	if err := s.Store.Insert(ctx, &Notification{
		Recipient: p.UserID,
		Sender:    s.ServiceName,
		Type:      "order",
		Message:   msg,
	}); err != nil {
		return err
	}
	s.markSeen(ctx, env.EventID)
	return nil
}

// HandleOrderStatus is the consumer handler for the status topic. One
// notification is written per changed axis, each with its own text.
func (s *Service) HandleOrderStatus(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusUpdated {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderStatusUpdatedPayload](env.Payload)
	if err != nil {
		return err
	}
	for _, axis := range p.Changed {
		var typ, msg string
		switch axis {
		case "order_status":
			typ, msg = "order", orderStatusMessage(p.Number, p.OrderStatus)
		case "payment_status":
			typ, msg = "payment", paymentStatusMessage(p.Number, p.PaymentStatus)
		default:
			continue
		}
		if err := s.Store.Insert(ctx, &Notification{
			Recipient: p.UserID,
			Sender:    s.ServiceName,
			Type:      typ,
			Message:   msg,
		}); err != nil {
			return err
		}
	}
	s.markSeen(ctx, env.EventID)
	return nil
}

func orderStatusMessage(number string, st orders.OrderStatus) string {
	switch st {
	case orders.StatusConfirmed:
		return fmt.Sprintf("Your order %s has been confirmed.", number)
	case orders.StatusProcessing:
		return fmt.Sprintf("Your order %s is being processed.", number)
	case orders.StatusShipped:
		return fmt.Sprintf("Your order %s has been shipped.", number)
	case orders.StatusOutForDelivery:
		return fmt.Sprintf("Your order %s is out for delivery.", number)
	case orders.StatusDelivered:
		return fmt.Sprintf("Your order %s has been delivered.", number)
	case orders.StatusCancelled:
		return fmt.Sprintf("Your order %s has been cancelled.", number)
	case orders.StatusReturned:
		return fmt.Sprintf("Your order %s has been marked as returned.", number)
	default:
		return fmt.Sprintf("Your order %s status changed to %s.", number, st)
	}
}

func paymentStatusMessage(number string, st orders.PaymentStatus) string {
	switch st {
	case orders.PaymentPaid:
		return fmt.Sprintf("Payment for order %s was received.", number)
	case orders.PaymentFailed:
		return fmt.Sprintf("Payment for order %s failed.", number)
	case orders.PaymentRefunded:
		return fmt.Sprintf("Payment for order %s was refunded.", number)
	default:
		return fmt.Sprintf("Payment for order %s is %s.", number, st)
	}
}
