package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := events.NewInMemoryBus(zap.NewNop())
	var calls []string

	bus.Subscribe(events.NameEnquiryCreated, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		calls = append(calls, "first")
		return nil
	}))
	bus.Subscribe(events.NameEnquiryCreated, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		calls = append(calls, "second")
		return nil
	}))

	err := bus.PublishSync(context.Background(), events.EnquiryCreated{
		BaseEvent: events.NewBaseEvent(time.Now()),
		Enquiry:   domain.Enquiry{ContactName: "Jane"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 2, bus.HandlerCount(events.NameEnquiryCreated))
}

func TestInMemoryBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := events.NewInMemoryBus(zap.NewNop())
	reached := false

	bus.Subscribe(events.NameFollowUpCreated, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		return errors.New("boom")
	}))
	bus.Subscribe(events.NameFollowUpCreated, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		panic("worse")
	}))
	bus.Subscribe(events.NameFollowUpCreated, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		reached = true
		return nil
	}))

	err := bus.PublishSync(context.Background(), events.FollowUpCreated{BaseEvent: events.NewBaseEvent(time.Now())})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "handler panic")
	assert.True(t, reached)

	// Publish swallows the error
	reached = false
	bus.Publish(context.Background(), events.FollowUpCreated{BaseEvent: events.NewBaseEvent(time.Now())})
	assert.True(t, reached)
}

func TestInMemoryBus_UnknownEventIsNoop(t *testing.T) {
	bus := events.NewInMemoryBus(zap.NewNop())
	assert.NoError(t, bus.PublishSync(context.Background(), events.UserCreated{}))
}
