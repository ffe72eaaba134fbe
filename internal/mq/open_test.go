package mq

import (
	"context"
	"testing"

	"github.com/acp-registry/apiserver/config"
	"github.com/acp-registry/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabled(t *testing.T) {
	for _, backend := range []string{"", BackendNone} {
		broker, err := Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: backend}})
		require.NoError(t, err)
		assert.Nil(t, broker)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: "kafka"}})
	assert.ErrorContains(t, err, `unknown mq backend "kafka"`)
}

// loopback delivers every published message to the next Subscribe call.
type loopback struct {
	channel   string
	published []Message
	closed    bool
}

func (l *loopback) Publish(ctx context.Context, channel string, msg Message) (string, error) {
	l.channel = channel
	l.published = append(l.published, msg)
	return "server-" + msg.ID, nil
}

func (l *loopback) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range l.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (l *loopback) Close() error {
	l.closed = true
	return nil
}

func TestPublishEvent(t *testing.T) {
	backend := &loopback{}
	broker := New(backend)

	event := types.Event{
		ID:         "evt-1",
		Type:       types.EventUserApproved,
		UserID:     1717171717171,
		Username:   "ann",
		OccurredAt: "2025-01-01T00:00:00.000Z",
	}
	id, err := broker.PublishEvent(context.Background(), "registry-events", event)
	require.NoError(t, err)
	assert.Equal(t, "server-evt-1", id)
	assert.Equal(t, "registry-events", backend.channel)

	require.Len(t, backend.published, 1)
	msg := backend.published[0]
	assert.Equal(t, "evt-1", msg.ID)
	assert.Equal(t, map[string]string{
		AttrEventID:   "evt-1",
		AttrEventType: "user.approved",
		AttrUserID:    "1717171717171",
	}, msg.Attributes)
	assert.JSONEq(t, `{"id":"evt-1","type":"user.approved","userId":1717171717171,"username":"ann","occurredAt":"2025-01-01T00:00:00.000Z"}`, string(msg.Data))

	require.NoError(t, broker.Close())
	assert.True(t, backend.closed)
}

func TestSubscribeEventsSkipsMalformedMessages(t *testing.T) {
	backend := &loopback{published: []Message{
		{ID: "m1", Data: []byte(`not json`)},
		{ID: "m2", Data: []byte(`{"userId":7}`), Attributes: map[string]string{AttrEventType: types.EventUserSubmitted}},
		{ID: "m3", Data: []byte(`{"userId":8}`)},
		{ID: "m4", Data: []byte(`{"id":"evt-4","type":"user.approved","userId":9}`)},
	}}
	broker := New(backend)

	var events []types.Event
	var skipped []string
	err := broker.SubscribeEvents(context.Background(), "registry-events",
		func(ctx context.Context, event types.Event) error {
			events = append(events, event)
			return nil
		},
		func(msg Message, err error) {
			skipped = append(skipped, msg.ID)
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m3"}, skipped)
	require.Len(t, events, 2)
	assert.Equal(t, types.Event{ID: "m2", Type: types.EventUserSubmitted, UserID: 7}, events[0])
	assert.Equal(t, "evt-4", events[1].ID)
	assert.Equal(t, int64(9), events[1].UserID)
}

func TestSubscribeEventsWithoutSkipCallback(t *testing.T) {
	backend := &loopback{published: []Message{{ID: "m1", Data: []byte(`[]`)}}}

	err := New(backend).SubscribeEvents(context.Background(), "registry-events",
		func(ctx context.Context, event types.Event) error {
			t.Fatalf("unexpected event %+v", event)
			return nil
		},
		nil,
	)
	assert.NoError(t, err)
}
