package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/davitr/go-storefront/internal/kafka"
	"github.com/davitr/go-storefront/internal/orders"
)

type mockStore struct {
	inserted []Notification
	err      error
}

func (m *mockStore) Insert(_ context.Context, n *Notification) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, *n)
	return nil
}

func envelope(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      "evt-1",
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "storefront-api",
		Payload:      kafkax.MustMarshal(payload),
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func TestHandleOrderCreated(t *testing.T) {
	store := &mockStore{}
	svc := &Service{Store: store, ServiceName: "storefront-notifier"}

	msg := envelope(t, orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID:       "o-1",
		Number:        "SF-1A2B3C4D",
		UserID:        "u1",
		PaymentMethod: orders.MethodPayOnDelivery,
		PaymentStatus: orders.PaymentPending,
	})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))

	require.Len(t, store.inserted, 1)
	n := store.inserted[0]
	assert.Equal(t, "u1", n.Recipient)
	assert.Equal(t, "storefront-notifier", n.Sender)
	assert.Equal(t, "order", n.Type)
	assert.Equal(t, "Your order SF-1A2B3C4D has been placed.", n.Message)
}

func TestHandleOrderCreatedPaid(t *testing.T) {
	store := &mockStore{}
	svc := &Service{Store: store, ServiceName: "storefront-notifier"}

	msg := envelope(t, orders.EventOrderCreated, orders.OrderCreatedPayload{
		Number:        "SF-1A2B3C4D",
		UserID:        "u1",
		PaymentMethod: orders.MethodPayNow,
		PaymentStatus: orders.PaymentPaid,
	})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Your order SF-1A2B3C4D has been placed and payment was received.", store.inserted[0].Message)
}

func TestHandleOrderCreatedSkipsForeignEvents(t *testing.T) {
	store := &mockStore{}
	svc := &Service{Store: store}

	msg := envelope(t, "SomethingElse", orders.OrderCreatedPayload{})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Empty(t, store.inserted)
}

func TestHandleOrderCreatedInsertFailureSurfaces(t *testing.T) {
	// the error must reach the consumer so the offset is not committed and
	// the event is redelivered
	svc := &Service{Store: &mockStore{err: errors.New("db down")}}

	msg := envelope(t, orders.EventOrderCreated, orders.OrderCreatedPayload{
		Number: "SF-1A2B3C4D",
		UserID: "u1",
	})
	assert.Error(t, svc.HandleOrderCreated(context.Background(), msg))
}

func TestHandleOrderCreatedBadJSON(t *testing.T) {
	svc := &Service{Store: &mockStore{}}
	err := svc.HandleOrderCreated(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}

func TestHandleOrderStatusOnePerAxis(t *testing.T) {
	store := &mockStore{}
	svc := &Service{Store: store, ServiceName: "storefront-notifier"}

	msg := envelope(t, orders.EventOrderStatusUpdated, orders.OrderStatusUpdatedPayload{
		OrderID:       "o-1",
		Number:        "SF-1A2B3C4D",
		UserID:        "u1",
		OrderStatus:   orders.StatusShipped,
		PaymentStatus: orders.PaymentRefunded,
		Changed:       []string{"order_status", "payment_status"},
	})
	require.NoError(t, svc.HandleOrderStatus(context.Background(), msg))

	require.Len(t, store.inserted, 2)
	assert.Equal(t, "order", store.inserted[0].Type)
	assert.Equal(t, "Your order SF-1A2B3C4D has been shipped.", store.inserted[0].Message)
	assert.Equal(t, "payment", store.inserted[1].Type)
	assert.Equal(t, "Payment for order SF-1A2B3C4D was refunded.", store.inserted[1].Message)
}

func TestHandleOrderStatusIgnoresUnknownAxis(t *testing.T) {
	store := &mockStore{}
	svc := &Service{Store: store}

	msg := envelope(t, orders.EventOrderStatusUpdated, orders.OrderStatusUpdatedPayload{
		Number:  "SF-1A2B3C4D",
		UserID:  "u1",
		Changed: []string{"shoe_size"},
	})
	require.NoError(t, svc.HandleOrderStatus(context.Background(), msg))
	assert.Empty(t, store.inserted)
}

func TestOrderStatusMessages(t *testing.T) {
	cases := map[orders.OrderStatus]string{
		orders.StatusConfirmed:      "Your order SF-1 has been confirmed.",
		orders.StatusProcessing:     "Your order SF-1 is being processed.",
		orders.StatusShipped:        "Your order SF-1 has been shipped.",
		orders.StatusOutForDelivery: "Your order SF-1 is out for delivery.",
		orders.StatusDelivered:      "Your order SF-1 has been delivered.",
		orders.StatusCancelled:      "Your order SF-1 has been cancelled.",
		orders.StatusReturned:       "Your order SF-1 has been marked as returned.",
		orders.StatusPlaced:         "Your order SF-1 status changed to placed.",
	}
	for st, want := range cases {
		assert.Equal(t, want, orderStatusMessage("SF-1", st))
	}
}

func TestPaymentStatusMessages(t *testing.T) {
	cases := map[orders.PaymentStatus]string{
		orders.PaymentPaid:     "Payment for order SF-1 was received.",
		orders.PaymentFailed:   "Payment for order SF-1 failed.",
		orders.PaymentRefunded: "Payment for order SF-1 was refunded.",
		orders.PaymentPending:  "Payment for order SF-1 is pending.",
	}
	for st, want := range cases {
		assert.Equal(t, want, paymentStatusMessage("SF-1", st))
	}
}
