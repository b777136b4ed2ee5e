package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer upgrades every request and hands the connection to serve.
func wsServer(t *testing.T, serve func(c *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		serve(c)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func drain(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// confirmSubscription reads a slotSubscribe request and answers with subID.
func confirmSubscription(t *testing.T, c *websocket.Conn, subID int64) bool {
	_, msg, err := c.ReadMessage()
	if err != nil {
		return false
	}
	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Errorf("unmarshal request: %v", err)
		return false
	}
	assert.Equal(t, "slotSubscribe", req.Method)
	return c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": subID}) == nil
}

func slotNotification(subID int64, slot uint64) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "slotNotification",
		"params": map[string]interface{}{
			"subscription": subID,
			"result":       map[string]interface{}{"slot": slot, "parent": slot - 1, "root": slot - 32},
		},
	}
}

func TestWSClient_SubscribeSlots(t *testing.T) {
	url := wsServer(t, func(c *websocket.Conn) {
		if !confirmSubscription(t, c, 77) {
			return
		}
		_ = c.WriteJSON(slotNotification(77, 500))
		drain(c)
	})

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	require.NoError(t, err)

	select {
	case n := <-ch:
		assert.Equal(t, SlotNotification{Slot: 500, Parent: 499, Root: 468}, n)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_CoalescesWhenBehind(t *testing.T) {
	sent := make(chan struct{})
	url := wsServer(t, func(c *websocket.Conn) {
		if !confirmSubscription(t, c, 1) {
			return
		}
		for slot := uint64(100); slot < 110; slot++ {
			_ = c.WriteJSON(slotNotification(1, slot))
		}
		close(sent)
		drain(c)
	})

	cfg := DefaultWSConfig()
	cfg.BufferSize = 1
	ctx := context.Background()
	client, err := NewWSClient(ctx, url, &cfg)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	require.NoError(t, err)

	<-sent
	assert.Eventually(t, func() bool {
		select {
		case n := <-ch:
			return n.Slot == 109
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSClient_Close(t *testing.T) {
	url := wsServer(t, drain)

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close(), "second close is a no-op")

	_, err = client.SubscribeSlots(ctx)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	url := wsServer(t, drain)

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 50 * time.Millisecond
	client, err := NewWSClient(context.Background(), url, &cfg)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubscribeSlots(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription timeout")
}

func TestWSClient_DialFailure(t *testing.T) {
	_, err := NewWSClient(context.Background(), "ws://127.0.0.1:1", nil)
	assert.Error(t, err)
}
