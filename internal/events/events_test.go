package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventEncodes(t *testing.T) {
	e := New(PostCreated, "user-1", map[string]string{"postId": "p1"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.OccurredAt.IsZero())

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "post.created", decoded["type"])
	assert.Equal(t, "user-1", decoded["key"])
	assert.Equal(t, "p1", decoded["data"].(map[string]any)["postId"])
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, New(UserRegistered, "a", nil)))
	require.NoError(t, r.Publish(ctx, New(FriendshipRequested, "a|b", nil)))

	assert.Equal(t, []Type{UserRegistered, FriendshipRequested}, r.Types())
	assert.Len(t, r.Events(), 2)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), New(PostCreated, "x", nil)))
	assert.NoError(t, p.Close())
}

func TestKafkaPublisherSplitsBrokers(t *testing.T) {
	p := NewKafkaPublisher(" kafka-1:9092, ,kafka-2:9092", "dailyduo.events")
	defer p.Close()

	assert.Equal(t, "tcp", p.w.Addr.Network())
	assert.Contains(t, p.w.Addr.String(), "kafka-2:9092")
	assert.Equal(t, "dailyduo.events", p.w.Topic)
}
