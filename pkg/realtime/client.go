package realtime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/config"
	"github.com/Kush1612/BuckIt/pkg/logger"
)

// Phoenix channel events
const (
	EventJoin            = "phx_join"
	EventLeave           = "phx_leave"
	EventReply           = "phx_reply"
	EventError           = "phx_error"
	EventClose           = "phx_close"
	EventHeartbeat       = "heartbeat"
	EventAccessToken     = "access_token"
	EventPostgresChanges = "postgres_changes"
	EventSystem          = "system"
)

const (
	phoenixTopic = "phoenix"
	protocolVsn  = "1.0.0"
	writeWait    = 10 * time.Second
)

var (
	errClosed       = errors.New("realtime: client closed")
	errChannelClose = errors.New("realtime: channel closed by server")
)

// Message is a Phoenix channel frame
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

// ChangeType is the kind of row change carried by a postgres_changes event.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is a single row change.
type Change struct {
	Schema          string                 `json:"schema"`
	Table           string                 `json:"table"`
	Type            ChangeType             `json:"type"`
	CommitTimestamp string                 `json:"commit_timestamp"`
	Record          map[string]interface{} `json:"record"`
	OldRecord       map[string]interface{} `json:"old_record"`
}

// RowID returns the id of the changed row. Deletes only carry the old row.
func (c Change) RowID() string {
	for _, row := range []map[string]interface{}{c.Record, c.OldRecord} {
		if id, ok := row["id"].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// Item decodes the new row as a bucket list item.
func (c Change) Item() (*api.Item, error) {
	if len(c.Record) == 0 {
		return nil, fmt.Errorf("%s change has no record", c.Type)
	}
	data, err := json.Marshal(c.Record)
	if err != nil {
		return nil, err
	}
	var item api.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

// Subscription selects the row changes a channel receives.
type Subscription struct {
	Topic  string
	Event  string
	Schema string
	Table  string
	Filter string
}

// ItemsOfList subscribes to every change of the items in one list.
func ItemsOfList(listID string) Subscription {
	return Subscription{
		Topic:  "items",
		Event:  "*",
		Schema: "public",
		Table:  "items",
		Filter: "list_id=eq." + listID,
	}
}

func (s Subscription) topic() string {
	return "realtime:" + s.Topic
}

// Status is the channel lifecycle reported to status listeners.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusClosed       Status = "CLOSED"
)

// ConnectionState represents the socket connection state
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// Config holds realtime client configuration
type Config struct {
	URL                  string
	APIKey               string
	ConnectTimeoutMs     int
	HeartbeatIntervalMs  int
	JoinTimeoutMs        int
	ReconnectBaseDelayMs int
	ReconnectMaxDelayMs  int
	ReconnectJitterMs    int
	MaxReconnectAttempts int
}

// DefaultConfig returns the configuration for a Supabase project
func DefaultConfig(b config.Backend) Config {
	heartbeat := config.GetInt("realtime.heartbeat_interval") * 1000
	if heartbeat <= 0 {
		heartbeat = 30000
	}
	return Config{
		URL:                  b.URL,
		APIKey:               b.AnonKey,
		ConnectTimeoutMs:     15000,
		HeartbeatIntervalMs:  heartbeat,
		JoinTimeoutMs:        10000,
		ReconnectBaseDelayMs: 1000,
		ReconnectMaxDelayMs:  30000,
		ReconnectJitterMs:    1000,
		MaxReconnectAttempts: -1, // unlimited
	}
}

// SocketURL turns a project URL into the realtime websocket endpoint.
func SocketURL(base, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("realtime url %q has no host", base)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", protocolVsn)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ConnectionStats tracks connection statistics
type ConnectionStats struct {
	MessagesReceived int64
	MessagesSent     int64
	ChangesReceived  int64
	ReconnectCount   int
	LastError        string
	ConnectedAt      time.Time
	DisconnectedAt   time.Time
}

// Client is a single-channel Supabase Realtime client
type Client struct {
	config Config
	sub    Subscription

	mu      sync.Mutex
	conn    *websocket.Conn
	token   string
	joinRef string

	writeMu sync.Mutex
	state   atomic.Value
	joined  atomic.Bool
	started atomic.Bool
	ref     atomic.Uint64

	// owned by the run goroutine
	reconnectAttempts int

	listenersMu     sync.RWMutex
	nextListener    int
	changeListeners map[int]func(Change)
	statusListeners map[int]func(Status, error)

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	statsMu sync.RWMutex
	stats   ConnectionStats
}

// NewClient creates a client for one subscription
func NewClient(cfg Config, sub Subscription) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:          cfg,
		sub:             sub,
		changeListeners: make(map[int]func(Change)),
		statusListeners: make(map[int]func(Status, error)),
		ctx:             ctx,
		cancel:          cancel,
	}
	c.state.Store(StateDisconnected)
	return c
}

// SetAuthToken sets the user JWT sent on join. A joined channel is told about
// the new token straight away.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	conn, joinRef := c.conn, c.joinRef
	c.mu.Unlock()

	if conn == nil || !c.joined.Load() {
		return
	}
	payload := map[string]string{"access_token": token}
	if err := c.write(conn, c.sub.topic(), EventAccessToken, payload, c.nextRef(), &joinRef); err != nil {
		logger.Debug("Failed to push access token", "error", err)
	}
}

// Connect dials the socket and joins the channel. Reconnection happens in
// the background until Close.
func (c *Client) Connect(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return errClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("realtime: already connected")
	}

	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.started.Store(false)
		c.setState(StateError)
		c.recordError(err)
		return err
	}

	c.wg.Add(1)
	go c.run(conn)
	return nil
}

// Close leaves the channel, closes the socket and waits for the background
// goroutines to exit.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn, joinRef := c.conn, c.joinRef
		c.mu.Unlock()

		if conn != nil && c.joined.Load() {
			if err := c.write(conn, c.sub.topic(), EventLeave, struct{}{}, c.nextRef(), &joinRef); err != nil {
				logger.Debug("Failed to leave channel", "error", err)
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}

		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})

	c.wg.Wait()
	c.joined.Store(false)
	c.setState(StateDisconnected)
	return nil
}

// OnChange registers a row change listener and returns a function that removes it.
// Listeners run on the read goroutine.
func (c *Client) OnChange(cb func(Change)) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.changeListeners[id] = cb
	c.listenersMu.Unlock()

	return c.remover(func() { delete(c.changeListeners, id) })
}

// OnStatus registers a channel status listener.
func (c *Client) OnStatus(cb func(Status, error)) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.statusListeners[id] = cb
	c.listenersMu.Unlock()

	return c.remover(func() { delete(c.statusListeners, id) })
}

func (c *Client) remover(del func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			del()
			c.listenersMu.Unlock()
		})
	}
}

// State returns the connection state
func (c *Client) State() ConnectionState {
	return c.state.Load().(ConnectionState)
}

// IsConnected returns true when the channel is joined
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && c.joined.Load()
}

// Stats returns a snapshot of connection statistics
func (c *Client) Stats() ConnectionStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *Client) setState(s ConnectionState) {
	c.state.Store(s)
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := SocketURL(c.config.URL, c.config.APIKey)
	if err != nil {
		return nil, err
	}

	timeout := ms(c.config.ConnectTimeoutMs)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("Connecting to realtime", "topic", c.sub.topic())
	conn, resp, err := dialer.DialContext(dctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime: %w", err)
	}
	return conn, nil
}

func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		err := c.serve(conn)
		c.joined.Store(false)
		c.recordDisconnect(err)

		if c.ctx.Err() != nil {
			c.setState(StateDisconnected)
			c.notifyStatus(StatusClosed, nil)
			return
		}

		logger.Warn("Realtime connection lost", "error", err)
		if conn = c.reconnect(); conn == nil {
			c.setState(StateDisconnected)
			c.notifyStatus(StatusClosed, err)
			return
		}
	}
}

func (c *Client) serve(conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	// Close may have run before conn was published.
	if c.ctx.Err() != nil {
		return errClosed
	}

	c.setState(StateConnected)
	c.recordConnect()

	if err := c.join(conn); err != nil {
		return err
	}

	hbCtx, stop := context.WithCancel(c.ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		c.heartbeatLoop(hbCtx, conn)
	}()
	defer func() {
		stop()
		hb.Wait()
	}()

	return c.readLoop(conn)
}

type channelConfig struct {
	Broadcast struct {
		Self bool `json:"self"`
	} `json:"broadcast"`
	Presence struct {
		Key string `json:"key"`
	} `json:"presence"`
	PostgresChanges []postgresChange `json:"postgres_changes"`
}

type postgresChange struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPayload struct {
	Config      channelConfig `json:"config"`
	AccessToken string        `json:"access_token"`
}

func (c *Client) join(conn *websocket.Conn) error {
	ref := c.nextRef()

	c.mu.Lock()
	c.joinRef = ref
	token := c.token
	c.mu.Unlock()
	c.joined.Store(false)

	if token == "" {
		token = c.config.APIKey
	}

	payload := joinPayload{AccessToken: token}
	payload.Config.PostgresChanges = []postgresChange{{
		Event:  c.sub.Event,
		Schema: c.sub.Schema,
		Table:  c.sub.Table,
		Filter: c.sub.Filter,
	}}

	logger.Debug("Joining channel", "topic", c.sub.topic(), "filter", c.sub.Filter)
	return c.write(conn, c.sub.topic(), EventJoin, payload, ref, &ref)
}

func (c *Client) write(conn *websocket.Conn, topic, event string, payload interface{}, ref string, joinRef *string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	data, err := json.Marshal(Message{
		Topic:   topic,
		Event:   event,
		Payload: body,
		Ref:     &ref,
		JoinRef: joinRef,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.recordError(err)
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	c.recordSent()
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	idle := 2 * ms(c.config.HeartbeatIntervalMs)
	for {
		if idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return errClosed
			}
			return err
		}
		c.recordReceived()

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("Ignoring malformed realtime frame", "error", err)
			continue
		}
		if err := c.handle(msg); err != nil {
			return err
		}
	}
}

func (c *Client) handle(msg Message) error {
	if msg.Topic == phoenixTopic {
		return nil
	}
	if msg.Topic != c.sub.topic() {
		logger.Debug("Ignoring frame for unknown topic", "topic", msg.Topic, "event", msg.Event)
		return nil
	}

	switch msg.Event {
	case EventReply:
		if c.isJoinReply(msg) {
			return c.handleJoinReply(msg.Payload)
		}
	case EventPostgresChanges:
		c.handleChange(msg.Payload)
	case EventSystem:
		var sys struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Payload, &sys); err == nil && sys.Status == "error" {
			c.notifyStatus(StatusChannelError, errors.New(sys.Message))
		}
	case EventError:
		c.joined.Store(false)
		err := errors.New("realtime: channel error")
		c.notifyStatus(StatusChannelError, err)
		return err
	case EventClose:
		c.joined.Store(false)
		return errChannelClose
	}
	return nil
}

func (c *Client) isJoinReply(msg Message) bool {
	if msg.Ref == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return *msg.Ref == c.joinRef
}

func (c *Client) handleJoinReply(payload json.RawMessage) error {
	var reply struct {
		Status   string `json:"status"`
		Response struct {
			Reason string `json:"reason"`
		} `json:"response"`
	}
	if err := json.Unmarshal(payload, &reply); err != nil {
		return fmt.Errorf("invalid join reply: %w", err)
	}

	if reply.Status != "ok" {
		reason := reply.Response.Reason
		if reason == "" {
			reason = reply.Status
		}
		err := fmt.Errorf("realtime: join rejected: %s", reason)
		c.recordError(err)
		c.notifyStatus(StatusChannelError, err)
		return err
	}

	c.joined.Store(true)
	c.reconnectAttempts = 0
	logger.Debug("Channel joined", "topic", c.sub.topic())
	c.notifyStatus(StatusSubscribed, nil)
	return nil
}

func (c *Client) handleChange(payload json.RawMessage) {
	var body struct {
		Data Change `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		logger.Debug("Ignoring malformed change", "error", err)
		return
	}

	c.statsMu.Lock()
	c.stats.ChangesReceived++
	c.statsMu.Unlock()

	c.listenersMu.RLock()
	listeners := make([]func(Change), 0, len(c.changeListeners))
	for _, l := range c.changeListeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		safeCall(func() { l(body.Data) })
	}
}

func (c *Client) notifyStatus(s Status, err error) {
	c.listenersMu.RLock()
	listeners := make([]func(Status, error), 0, len(c.statusListeners))
	for _, l := range c.statusListeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		safeCall(func() { l(s, err) })
	}
}

func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Realtime listener panicked", "panic", r)
		}
	}()
	fn()
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	interval := ms(c.config.HeartbeatIntervalMs)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	joinTimeout := ms(c.config.JoinTimeoutMs)
	if joinTimeout <= 0 {
		joinTimeout = 10 * time.Second
	}
	joinTimer := time.NewTimer(joinTimeout)
	defer joinTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-joinTimer.C:
			if !c.joined.Load() {
				logger.Warn("Channel join timed out", "topic", c.sub.topic())
				c.notifyStatus(StatusTimedOut, nil)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(conn, phoenixTopic, EventHeartbeat, struct{}{}, c.nextRef(), nil); err != nil {
				logger.Debug("Heartbeat failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

// backoff returns the delay before the given reconnect attempt
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.config.ReconnectBaseDelayMs) * math.Pow(2, float64(attempt-1))
	if ceiling := float64(c.config.ReconnectMaxDelayMs); ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	d := time.Duration(delay) * time.Millisecond
	if c.config.ReconnectJitterMs > 0 {
		d += ms(rand.Intn(c.config.ReconnectJitterMs))
	}
	return d
}

func (c *Client) reconnect() *websocket.Conn {
	c.setState(StateReconnecting)

	for {
		if c.config.MaxReconnectAttempts >= 0 && c.reconnectAttempts >= c.config.MaxReconnectAttempts {
			logger.Error("Giving up on realtime", "attempts", c.reconnectAttempts)
			return nil
		}
		c.reconnectAttempts++
		delay := c.backoff(c.reconnectAttempts)
		logger.Debug("Reconnecting to realtime", "attempt", c.reconnectAttempts, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := c.dial(c.ctx)
		if err == nil {
			c.statsMu.Lock()
			c.stats.ReconnectCount++
			c.statsMu.Unlock()
			return conn
		}
		c.recordError(err)
		logger.Debug("Reconnect failed", "error", err)
	}
}

func (c *Client) recordConnect() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.ConnectedAt = time.Now()
}

func (c *Client) recordDisconnect(err error) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.DisconnectedAt = time.Now()
	if err != nil && !errors.Is(err, errClosed) {
		c.stats.LastError = err.Error()
	}
}

func (c *Client) recordSent() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.MessagesSent++
}

func (c *Client) recordReceived() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.MessagesReceived++
}

func (c *Client) recordError(err error) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.LastError = err.Error()
}
