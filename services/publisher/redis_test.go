package publisher

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 0})
	defer client.Close()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_listings", 1, 10)
	defer publisher.Close()
	defer client.Del(ctx, "test_listings:0")

	payload := []byte(`{"scrape_url":"https://example.com/1"}`)
	require.NoError(t, publisher.Publish("example.com", payload))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := client.XRange(ctx, "test_listings:0", "-", "+").Result()
		require.NoError(t, err)
		if len(entries) > 0 {
			encoded, ok := entries[0].Values["example.com"].(string)
			require.True(t, ok)
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
			require.NoError(t, publisher.TrimStreams())
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("published message never appeared on the stream")
}
