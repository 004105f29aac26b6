package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, EventSubtitleDownloaded)
	require.NoError(t, err)
	defer sub.Close()

	msg := Message{Topic: EventSubtitleDownloaded, Payload: map[string]any{"provider_name": "opensubtitles"}}
	require.NoError(t, b.Publish(ctx, EventSubtitleDownloaded, msg))

	select {
	case got := <-sub.C():
		assert.Equal(t, msg, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemoryBusPublishNoSubscribersIsNoop(t *testing.T) {
	b := NewMemoryBus()
	err := b.Publish(context.Background(), EventWantedScanComplete, Message{Topic: EventWantedScanComplete})
	assert.NoError(t, err)
}

func TestMemoryBusDropsOnCanceledContext(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, EventProviderFailed)
	require.NoError(t, err)
	defer sub.Close()

	// Fill the subscriber's buffered channel, then publish with an
	// already-canceled context so the send cannot succeed.
	for i := 0; i < 64; i++ {
		_ = b.Publish(ctx, EventProviderFailed, Message{Topic: EventProviderFailed})
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	err = b.Publish(canceled, EventProviderFailed, Message{Topic: EventProviderFailed})
	assert.Error(t, err)
}

func TestCatalogCoversAllDeclaredEvents(t *testing.T) {
	events := []string{
		EventSubtitleDownloaded, EventTranslationComplete, EventTranslationFailed,
		EventProviderSearchComplete, EventProviderFailed, EventWantedScanComplete,
		EventWantedItemProcessed, EventUpgradeComplete, EventBatchComplete,
		EventWebhookReceived, EventConfigUpdated, EventWhisperComplete,
		EventWhisperFailed, EventHookExecuted, EventStandaloneScanComplete,
		EventStandaloneFileDetected,
	}
	for _, e := range events {
		entry, ok := Catalog[e]
		assert.Truef(t, ok, "event %q missing from catalog", e)
		assert.NotEmpty(t, entry.PayloadKeys, "event %q has no payload keys", e)
	}
}
