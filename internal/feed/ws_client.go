package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dexsignal/internal/logging"
)

// WSConfig configures the feed transport.
type WSConfig struct {
	// ReconnectDelay is the initial redial backoff.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the redial backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is how often keepalive pings are sent.
	PingInterval time.Duration
	// ReadTimeout bounds a single read.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
	// SubscribeTimeout is how long to wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// StreamBuffer is the per-subscription channel capacity.
	StreamBuffer int
}

// DefaultWSConfig returns the default transport settings.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		StreamBuffer:      10000,
	}
}

// stream is one live subscription: its delivery channel, the teardown
// signal shared with the Subscription handle, and the filter needed to
// re-establish it after a redial.
type stream struct {
	ch     chan Notification
	done   chan struct{}
	filter SwapsFilter
}

// WSClient implements Client over gorilla/websocket. Transport failures stay
// internal: the read loop redials with exponential backoff and restores every
// live stream, so a subscriber's Done only fires on explicit Unsubscribe or
// Close.
type WSClient struct {
	endpoint string
	config   WSConfig
	log      zerolog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	closed    atomic.Bool
	redialing atomic.Bool
	nextReqID atomic.Uint64

	// streams is keyed by the server-assigned subscription ID.
	streamMu sync.RWMutex
	streams  map[int64]*stream

	// pending holds confirmation channels keyed by request ID.
	pendingMu sync.Mutex
	pending   map[uint64]chan int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient dials the feed endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig, log zerolog.Logger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = DefaultWSConfig().StreamBuffer
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		log:      logging.Component(log, "feed"),
		streams:  make(map[int64]*stream),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}

	if err := c.dial(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WSClient) dial(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed dial %s: %w", c.endpoint, err)
	}
	c.conn = conn
	return nil
}

// SubscribeSwaps subscribes to swap events for the filtered pool set.
func (c *WSClient) SubscribeSwaps(ctx context.Context, filter SwapsFilter) (*Subscription, error) {
	subID, err := c.requestSubscription(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Large buffer to absorb event bursts; dispatch blocks rather than drops.
	st := &stream{
		ch:     make(chan Notification, c.config.StreamBuffer),
		done:   make(chan struct{}),
		filter: filter,
	}
	c.streamMu.Lock()
	c.streams[subID] = st
	c.streamMu.Unlock()

	return &Subscription{id: subID, C: st.ch, done: st.done, filter: filter}, nil
}

// Unsubscribe tears down one subscription and signals its Done channel. The
// delivery channel is never closed: deliver may be mid-send on it, and a
// close would panic the read loop. The done signal frees a blocked deliver
// and tells the consumer to drain and stop.
func (c *WSClient) Unsubscribe(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return nil
	}

	c.streamMu.Lock()
	if st, ok := c.streams[sub.id]; ok {
		delete(c.streams, sub.id)
		close(st.done)
	}
	c.streamMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	return c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      c.nextReqID.Add(1),
		Method:  "swapsUnsubscribe",
		Params:  []any{sub.id},
	})
}

// requestSubscription sends the subscribe request and waits for the server
// to assign a subscription ID.
func (c *WSClient) requestSubscription(ctx context.Context, filter SwapsFilter) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("feed client closed")
	}

	reqID := c.nextReqID.Add(1)
	confirm := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = confirm
	c.pendingMu.Unlock()

	abandon := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	err := c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "swapsSubscribe",
		Params:  []any{map[string]any{"pools": filter.Pools}},
	})
	if err != nil {
		abandon()
		return 0, fmt.Errorf("send subscribe: %w", err)
	}

	select {
	case subID := <-confirm:
		return subID, nil
	case <-time.After(c.config.SubscribeTimeout):
		abandon()
		return 0, fmt.Errorf("no subscription confirm within %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("feed client closed")
	case <-ctx.Done():
		abandon()
		return 0, ctx.Err()
	}
}

// send writes one message under the connection lock.
func (c *WSClient) send(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// Close shuts the connection down and closes every stream. Idempotent.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.streamMu.Lock()
	for id, st := range c.streams {
		delete(c.streams, id)
		close(st.done)
	}
	c.streamMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads and dispatches messages, redialing on transport errors.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	backoff := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if !c.redialing.Swap(true) {
				go c.redial(backoff)
			}
			backoff = min(backoff*2, c.config.MaxReconnectDelay)
			if !c.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		backoff = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// sleep waits for d unless the client closes first.
func (c *WSClient) sleep(d time.Duration) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(d):
		return true
	}
}

// redial replaces the dead connection after a backoff delay and restores
// the live streams.
func (c *WSClient) redial(delay time.Duration) {
	defer c.redialing.Store(false)

	if c.closed.Load() || !c.sleep(delay) {
		return
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.dial(ctx); err != nil {
		c.log.Warn().Err(err).Msg("feed redial failed, retrying on next read error")
		return
	}

	c.log.Info().Msg("feed reconnected")
	c.restoreStreams()
}

// restoreStreams resubscribes every live stream on the fresh connection,
// moving each one to its new server-assigned ID.
func (c *WSClient) restoreStreams() {
	c.streamMu.RLock()
	stale := make(map[int64]*stream, len(c.streams))
	for id, st := range c.streams {
		stale[id] = st
	}
	c.streamMu.RUnlock()

	for oldID, st := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.requestSubscription(ctx, st.filter)
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Int64("sub", oldID).Msg("stream restore failed")
			continue
		}

		c.streamMu.Lock()
		delete(c.streams, oldID)
		c.streams[newID] = st
		c.streamMu.Unlock()
	}
}

func (c *WSClient) handleMessage(message []byte) {
	// Subscription confirmation first.
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		c.confirmSubscription(resp.ID, resp.Result)
		return
	}

	// Swap batch notification.
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "swapsNotification" {
		c.deliver(&notif)
		return
	}

	// Error responses are logged, never fatal; a pending subscribe will
	// time out on its own.
	var errResp struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		c.log.Warn().Int("code", errResp.Error.Code).Str("msg", errResp.Error.Message).Msg("feed error response")
	}
}

func (c *WSClient) confirmSubscription(reqID uint64, subID int64) {
	c.pendingMu.Lock()
	ch, ok := c.pending[reqID]
	if ok {
		delete(c.pending, reqID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- subID:
		default:
		}
	}
}

// deliver hands a batch to its stream, blocking until the consumer drains.
// Events are never dropped here. The stream's done arm covers an
// unsubscribe landing while the send is blocked on a full buffer.
func (c *WSClient) deliver(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	c.streamMu.RLock()
	st, ok := c.streams[notif.Params.Subscription]
	c.streamMu.RUnlock()
	if !ok {
		return
	}

	select {
	case st.ch <- Notification{Entries: notif.Params.Result.Entries}:
	case <-st.done:
	case <-c.done:
	}
}

// pingLoop keeps the connection alive. A failed ping surfaces as a read
// error, and the read loop owns redialing.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Wire types. The feed speaks a JSON-RPC shaped protocol: numbered requests,
// a numeric subscription ID in the confirm, and method-tagged notifications.

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64               `json:"subscription"`
	Result       wsNotificationValue `json:"result"`
}

type wsNotificationValue struct {
	Entries []SwapEntry `json:"entries"`
}

var _ Client = (*WSClient)(nil)
