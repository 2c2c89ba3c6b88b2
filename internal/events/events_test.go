package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventType_Topic(t *testing.T) {
	assert.Equal(t, "event", EventApproved.Topic())
	assert.Equal(t, "registration", RegistrationStatusChanged.Topic())
	assert.Equal(t, "identity", AdminAccountCreated.Topic())
	assert.Equal(t, "plain", EventType("plain").Topic())
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventCreated, EventLifecycleData{EventID: "e1", ToStatus: "pending_approval"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventSource, e.Source)
	assert.Equal(t, "1.0", e.Version)
	assert.False(t, e.Timestamp.IsZero())
}

func TestInProcessEventPublisher_DeliversJSON(t *testing.T) {
	publisher, pubSub := NewInProcessEventPublisher("campusconnect", discardLogger())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "campusconnect.event")
	require.NoError(t, err)

	event := NewEvent(EventApproved, EventLifecycleData{EventID: "e1", ToStatus: "approved", ActorID: "x1"})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventApproved), msg.Metadata.Get("event_type"))

		var decoded struct {
			Type EventType          `json:"type"`
			Data EventLifecycleData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, EventApproved, decoded.Type)
		assert.Equal(t, "x1", decoded.Data.ActorID)
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(discardLogger())
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, NewEvent(EventCreated, nil)))
	require.NoError(t, mock.Publish(ctx, NewEvent(EventApproved, nil)))
	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(EventApproved), 1)

	mock.FailWith(errors.New("broker down"))
	assert.Error(t, mock.Publish(ctx, NewEvent(EventDeleted, nil)))

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
