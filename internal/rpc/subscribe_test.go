package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
)

func newTipServer(t *testing.T, reject bool, tips ...cell.Header) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req JsonRpcRequest
		if err := conn.ReadJSON(&req); err != nil || req.Method != "subscribe" {
			return
		}
		if reject {
			conn.WriteJSON(JsonRpcResponse{JsonRpc: "2.0", ID: req.ID, Error: &RpcError{Code: -32601, Message: "disabled"}})
			return
		}
		conn.WriteJSON(JsonRpcResponse{JsonRpc: "2.0", ID: req.ID, Result: json.RawMessage(`"0x0"`)})
		for _, h := range tips {
			raw, _ := json.Marshal(newHeaderView(h))
			var n subscriptionNotification
			n.Method = "subscribe"
			n.Params.Result = string(raw)
			n.Params.Subscription = "0x0"
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTipSubscriberDeliversHeaders(t *testing.T) {
	tips := []cell.Header{testHeader(10), testHeader(11)}
	s := NewTipSubscriber(newTipServer(t, false, tips...), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []cell.Header
	err := s.Run(ctx, func(h cell.Header) {
		got = append(got, h)
		if len(got) == len(tips) {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, tips, got)
}

func TestTipSubscriberRejected(t *testing.T) {
	s := NewTipSubscriber(newTipServer(t, true), nil)

	err := s.Run(context.Background(), func(cell.Header) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubscriptionRejected)
}

func TestTipSubscriberGivesUpAfterReconnects(t *testing.T) {
	s := NewTipSubscriber("ws://127.0.0.1:1", nil)
	s.MaxReconnectAttempts = 1
	s.backoff = 0

	err := s.Run(context.Background(), func(cell.Header) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum reconnect attempts")
}
