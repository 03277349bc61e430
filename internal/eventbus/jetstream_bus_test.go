package eventbus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldSubject(t *testing.T) {
	subj, err := worldSubject(SourceWorld, "tile_broken")
	require.NoError(t, err)
	assert.Equal(t, "world.tilecraft.tile_broken", subj)

	for _, bad := range []string{"", "a.b", "a b", "*", ">"} {
		_, err := worldSubject(SourceWorld, bad)
		assert.ErrorIs(t, err, ErrInvalidEnvelope, "тип %q", bad)
	}
}

func TestFilterSubject(t *testing.T) {
	cases := []struct {
		filter Filter
		want   string
	}{
		{Filter{}, "world.>"},
		{Filter{Sources: []string{SourceWorld}}, "world.tilecraft.*"},
		{Filter{Types: []string{"item_crafted"}}, "world.*.item_crafted"},
		{Filter{Sources: []string{SourceWorld}, Types: []string{"item_crafted"}}, "world.tilecraft.item_crafted"},
		{Filter{Types: []string{"tile_broken", "tile_placed"}}, "world.>"},
		{Filter{Sources: []string{"bad.source"}}, "world.>"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, filterSubject(tc.filter), "%+v", tc.filter)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	data, err := json.Marshal(&Envelope{ID: "1", EventType: "tile_broken", Source: SourceWorld})
	require.NoError(t, err)
	ev, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "tile_broken", ev.EventType)

	_, err = decodeEnvelope([]byte("{"))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
	_, err = decodeEnvelope([]byte(`{"id":"1"}`))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

// Требует NATS с JetStream: TEST_NATS_URL=nats://127.0.0.1:4222
func TestJetStreamBus_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL не задан")
	}
	stream := "WORLD_TEST_" + time.Now().Format("150405")
	bus, err := NewJetStreamBus(url, stream, time.Hour)
	require.NoError(t, err)
	defer bus.Close()
	defer bus.js.DeleteStream(stream)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *Envelope, 4)
	sub, err := bus.Subscribe(ctx, Filter{Types: []string{"tile_broken"}}, func(_ context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev := &Envelope{ID: "dup-1", Source: SourceWorld, EventType: "tile_broken", Timestamp: time.Now().UTC()}
	require.NoError(t, bus.Publish(ctx, ev))
	require.NoError(t, bus.Publish(ctx, ev), "повтор с тем же ID отбрасывается сервером")
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "other", Source: SourceWorld, EventType: "tile_placed"}))

	select {
	case received := <-got:
		assert.Equal(t, "dup-1", received.ID)
	case <-ctx.Done():
		t.Fatal("событие не доставлено")
	}
	select {
	case extra := <-got:
		t.Fatalf("лишнее событие %s", extra.ID)
	case <-time.After(300 * time.Millisecond):
	}

	assert.ErrorIs(t, bus.Publish(ctx, &Envelope{Source: SourceWorld, EventType: "x"}), ErrInvalidEnvelope)
}
