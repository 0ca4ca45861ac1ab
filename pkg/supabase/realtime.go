package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrJoinRejected = errors.New("realtime: join rejected")
)

const (
	defaultHeartbeat   = 30 * time.Second
	defaultJoinTimeout = 10 * time.Second
)

// PostgresChangesConfig selects the row changes a channel receives.
type PostgresChangesConfig struct {
	Event  string `json:"event"` // INSERT, UPDATE, DELETE or *
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"` // column=eq.value
}

// PostgresChange is one row change pushed by the collaborator.
type PostgresChange struct {
	Type            string         `json:"type"`
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	CommitTimestamp string         `json:"commit_timestamp"`
	Record          map[string]any `json:"record"`
	OldRecord       map[string]any `json:"old_record"`
}

// ChangeHandler receives changes in arrival order on the read goroutine.
type ChangeHandler func(PostgresChange)

type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
	JoinRef string          `json:"join_ref,omitempty"`
}

type phoenixReply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Channel is a joined realtime topic.
type Channel struct {
	topic   string
	joinRef string
	handler ChangeHandler
	done    chan struct{}
	once    sync.Once
}

func newChannel(topic, joinRef string, handler ChangeHandler) *Channel {
	return &Channel{topic: topic, joinRef: joinRef, handler: handler, done: make(chan struct{})}
}

// Topic returns the channel topic.
func (c *Channel) Topic() string { return c.topic }

// Done is closed once the channel stops delivering: left, closed or errored
// by the server, or dropped with the connection.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) end() {
	c.once.Do(func() { close(c.done) })
}

// RealtimeClient is a phoenix-protocol websocket client for row changes.
type RealtimeClient struct {
	url         string
	dialer      websocket.Dialer
	heartbeat   time.Duration
	joinTimeout time.Duration

	mu          sync.Mutex
	writeMu     sync.Mutex
	conn        *websocket.Conn
	accessToken string
	channels    map[string]*Channel
	pending     map[string]chan phoenixReply
	ref         int
	done        chan struct{}
	lost        chan struct{}
}

// RealtimeOption customizes a RealtimeClient.
type RealtimeOption func(*RealtimeClient)

// WithHeartbeat overrides the heartbeat interval.
func WithHeartbeat(d time.Duration) RealtimeOption {
	return func(r *RealtimeClient) { r.heartbeat = d }
}

// WithJoinTimeout overrides how long Join waits for the server reply.
func WithJoinTimeout(d time.Duration) RealtimeOption {
	return func(r *RealtimeClient) { r.joinTimeout = d }
}

// NewRealtimeClient derives the websocket endpoint from the REST base URL.
func NewRealtimeClient(baseURL, apiKey string, opts ...RealtimeOption) *RealtimeClient {
	wsURL := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + wsURL[len("https"):]
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + wsURL[len("http"):]
	}
	wsURL += "/realtime/v1/websocket?apikey=" + apiKey + "&vsn=1.0.0"

	closed := make(chan struct{})
	close(closed)

	r := &RealtimeClient{
		url:         wsURL,
		dialer:      websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		heartbeat:   defaultHeartbeat,
		joinTimeout: defaultJoinTimeout,
		channels:    make(map[string]*Channel),
		pending:     make(map[string]chan phoenixReply),
		lost:        closed,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetAuth sets the user access token sent with subsequent joins and pushes
// it to every joined channel so they outlive the previous token.
func (r *RealtimeClient) SetAuth(accessToken string) {
	r.mu.Lock()
	r.accessToken = accessToken
	conn := r.conn
	var pushes []phoenixMessage
	if conn != nil && accessToken != "" {
		for topic, ch := range r.channels {
			pushes = append(pushes, phoenixMessage{Topic: topic, Event: "access_token", Ref: r.nextRef(), JoinRef: ch.joinRef})
		}
	}
	r.mu.Unlock()

	for _, msg := range pushes {
		// a failed write ends the read loop, which reports the loss
		if err := r.write(conn, msg, map[string]any{"access_token": accessToken}); err != nil {
			return
		}
	}
}

// Connect dials the websocket. It is a no-op when already connected.
func (r *RealtimeClient) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}

	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})
	r.lost = make(chan struct{})

	go r.readLoop(conn, r.lost)
	go r.heartbeatLoop(conn, r.done)

	return nil
}

// Lost is closed when the current connection ends for any reason. Before the
// first Connect it returns a closed channel.
func (r *RealtimeClient) Lost() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lost
}

// Connected reports whether a connection is open.
func (r *RealtimeClient) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// Disconnect closes the connection. Joined channels are dropped.
func (r *RealtimeClient) Disconnect() error {
	r.mu.Lock()
	conn := r.conn
	if conn == nil {
		r.mu.Unlock()
		return nil
	}
	r.conn = nil
	close(r.done)
	dropped := r.channels
	r.channels = make(map[string]*Channel)
	r.pending = make(map[string]chan phoenixReply)
	r.mu.Unlock()

	for _, ch := range dropped {
		ch.end()
	}

	r.writeMu.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	r.writeMu.Unlock()

	if cerr := conn.Close(); err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

// Join subscribes to row changes on topic and waits for the server to accept.
func (r *RealtimeClient) Join(ctx context.Context, topic string, cfg PostgresChangesConfig, handler ChangeHandler) (*Channel, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	r.mu.Lock()
	conn := r.conn
	if conn == nil {
		r.mu.Unlock()
		return nil, ErrNotConnected
	}
	ref := r.nextRef()
	ch := newChannel(topic, ref, handler)
	r.channels[topic] = ch
	reply := make(chan phoenixReply, 1)
	r.pending[ref] = reply

	payload := map[string]any{
		"config": map[string]any{
			"broadcast":        map[string]any{"self": false},
			"presence":         map[string]any{"key": ""},
			"postgres_changes": []PostgresChangesConfig{cfg},
		},
	}
	if r.accessToken != "" {
		payload["access_token"] = r.accessToken
	}
	lost := r.lost
	r.mu.Unlock()

	if err := r.write(conn, phoenixMessage{Topic: topic, Event: "phx_join", Ref: ref, JoinRef: ref}, payload); err != nil {
		r.forget(topic, ch, ref)
		return nil, fmt.Errorf("send join: %w", err)
	}

	timer := time.NewTimer(r.joinTimeout)
	defer timer.Stop()

	select {
	case rep := <-reply:
		if rep.Status != "ok" {
			r.forget(topic, ch, ref)
			return nil, fmt.Errorf("%w: %s %s", ErrJoinRejected, rep.Status, string(rep.Response))
		}
		return ch, nil
	case <-lost:
		r.forget(topic, ch, ref)
		return nil, ErrNotConnected
	case <-timer.C:
		r.forget(topic, ch, ref)
		return nil, fmt.Errorf("join %s: timed out", topic)
	case <-ctx.Done():
		r.forget(topic, ch, ref)
		return nil, ctx.Err()
	}
}

// Leave stops delivery for ch and tells the server. Leaving on a dropped
// connection only forgets the channel.
func (r *RealtimeClient) Leave(ctx context.Context, ch *Channel) error {
	if ch == nil {
		return nil
	}

	r.mu.Lock()
	if cur, ok := r.channels[ch.topic]; ok && cur == ch {
		delete(r.channels, ch.topic)
	}
	conn := r.conn
	var ref string
	if conn != nil {
		ref = r.nextRef()
	}
	r.mu.Unlock()
	ch.end()

	if conn == nil {
		return nil
	}
	if err := r.write(conn, phoenixMessage{Topic: ch.topic, Event: "phx_leave", Ref: ref, JoinRef: ch.joinRef}, map[string]any{}); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}

func (r *RealtimeClient) forget(topic string, ch *Channel, ref string) {
	r.mu.Lock()
	if cur, ok := r.channels[topic]; ok && cur == ch {
		delete(r.channels, topic)
	}
	delete(r.pending, ref)
	r.mu.Unlock()
	ch.end()
}

// nextRef must be called with r.mu held.
func (r *RealtimeClient) nextRef() string {
	r.ref++
	return strconv.Itoa(r.ref)
}

func (r *RealtimeClient) write(conn *websocket.Conn, msg phoenixMessage, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg.Payload = raw

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (r *RealtimeClient) readLoop(conn *websocket.Conn, lost chan struct{}) {
	defer func() {
		var dropped map[string]*Channel
		r.mu.Lock()
		if r.conn == conn {
			r.conn = nil
			close(r.done)
			dropped = r.channels
			r.channels = make(map[string]*Channel)
			r.pending = make(map[string]chan phoenixReply)
		}
		r.mu.Unlock()
		_ = conn.Close()
		close(lost)
		// after lost, so watchers see the connection loss first
		for _, ch := range dropped {
			ch.end()
		}
	}()

	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				continue
			}
			return
		}
		r.dispatch(msg)
	}
}

func (r *RealtimeClient) dispatch(msg phoenixMessage) {
	switch msg.Event {
	case "phx_reply":
		var rep phoenixReply
		if err := json.Unmarshal(msg.Payload, &rep); err != nil {
			return
		}
		r.mu.Lock()
		ch, ok := r.pending[msg.Ref]
		delete(r.pending, msg.Ref)
		r.mu.Unlock()
		if ok {
			ch <- rep
		}

	case "postgres_changes":
		var payload struct {
			Data PostgresChange `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		r.mu.Lock()
		ch, ok := r.channels[msg.Topic]
		r.mu.Unlock()
		if ok && ch.handler != nil {
			ch.handler(payload.Data)
		}

	case "phx_close", "phx_error":
		// v1 frames carry the join ref in ref; a frame naming an older join
		// of the same topic must not end its replacement
		ref := msg.JoinRef
		if ref == "" {
			ref = msg.Ref
		}
		r.mu.Lock()
		ch, ok := r.channels[msg.Topic]
		ok = ok && ref != "" && ref == ch.joinRef
		if ok {
			delete(r.channels, msg.Topic)
		}
		r.mu.Unlock()
		if ok {
			ch.end()
		}
	}
}

func (r *RealtimeClient) heartbeatLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			ref := r.nextRef()
			r.mu.Unlock()
			if err := r.write(conn, phoenixMessage{Topic: "phoenix", Event: "heartbeat", Ref: ref}, map[string]any{}); err != nil {
				// the read loop notices the closed socket and reports the loss
				_ = conn.Close()
				return
			}
		}
	}
}
