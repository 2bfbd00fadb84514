package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/log"
)

// ErrSubscriptionRejected is returned when the node refuses the subscription.
var ErrSubscriptionRejected = errors.New("subscription rejected")

const (
	topicNewTipHeader = "new_tip_header"

	defaultMaxReconnectAttempts = 5
	defaultWriteWait            = 10 * time.Second
)

// TipSubscriber follows new tip headers over the node's websocket endpoint.
type TipSubscriber struct {
	url    string
	dialer *websocket.Dialer
	logger log.Logger

	// MaxReconnectAttempts bounds consecutive failed redials.
	MaxReconnectAttempts int

	// backoff is the base delay between redials; it doubles per attempt.
	backoff time.Duration
}

// NewTipSubscriber returns a subscriber for the websocket endpoint at url.
func NewTipSubscriber(url string, logger log.Logger) *TipSubscriber {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TipSubscriber{
		url:                  url,
		dialer:               &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: defaultWriteWait},
		logger:               logger,
		MaxReconnectAttempts: defaultMaxReconnectAttempts,
		backoff:              time.Second,
	}
}

type subscriptionNotification struct {
	Method string `json:"method"`
	Params struct {
		Result       string `json:"result"`
		Subscription string `json:"subscription"`
	} `json:"params"`
}

// subscribe dials and registers for tip headers.
func (s *TipSubscriber) subscribe(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
	req := JsonRpcRequest{JsonRpc: "2.0", Method: "subscribe", Params: []interface{}{topicNewTipHeader}, ID: 1}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, err
	}
	var resp JsonRpcResponse
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return nil, err
	}
	if resp.Error != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrSubscriptionRejected, resp.Error)
	}
	return conn, nil
}

// Run delivers every new tip to handle until ctx is done. Dropped
// connections are redialed with exponential backoff.
func (s *TipSubscriber) Run(ctx context.Context, handle func(cell.Header)) error {
	attempt := 0
	for {
		conn, err := s.subscribe(ctx)
		if err == nil {
			attempt = 0
			err = s.read(ctx, conn, handle)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrSubscriptionRejected) {
			return err
		}
		attempt++
		if attempt > s.MaxReconnectAttempts {
			return fmt.Errorf("reached maximum reconnect attempts: %w", err)
		}
		s.logger.Info("reconnecting", "attempt", attempt, "err", err)

		d := s.backoff * time.Duration(math.Exp2(float64(attempt-1)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

func (s *TipSubscriber) read(ctx context.Context, conn *websocket.Conn, handle func(cell.Header)) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var n subscriptionNotification
		if err := conn.ReadJSON(&n); err != nil {
			return err
		}
		if n.Method != "subscribe" {
			continue
		}
		var v headerView
		if err := json.Unmarshal([]byte(n.Params.Result), &v); err != nil {
			s.logger.Error("invalid tip notification", "err", err)
			continue
		}
		handle(v.header())
	}
}
