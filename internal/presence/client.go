package presence

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/providers"
	"crewboard/internal/structures"
	"errors"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/net/websocket"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateDegraded
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDegraded:
		return "degraded"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const defaultReconnectDelay = time.Second

// Dialer opens a transport to the push service.
type Dialer func(ctx context.Context) (*websocket.Conn, error)

type ClientInterface interface {
	Start(ctx context.Context)
	Stop()
	Subscribe(id string, cb Callback)
	Unsubscribe(id string)
	State() State
	Subscriptions() int
}

type Client struct {
	logger         providers.Logger
	metrics        providers.MetricsProviderInterface
	registry       *Registry
	dial           Dialer
	reconnectDelay time.Duration

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	heartbeat  chan struct{}
	heartbeats int
	cancel     context.CancelFunc
	done       chan struct{}

	writeMu sync.Mutex
}

func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(ctx, done)
}

// Stop closes the transport and waits for the connection loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Subscribe registers cb for id. While the connection is open the identity is
// announced right away; otherwise it goes out with the next bulk resubscribe.
func (c *Client) Subscribe(id string, cb Callback) {
	c.registry.Set(id, cb)

	c.mu.Lock()
	conn := c.conn
	if c.state != StateOpen {
		conn = nil
	}
	c.mu.Unlock()
	if conn == nil {
		return
	}

	frame, err := subscribeFrame([]string{id})
	if err == nil {
		err = c.send(conn, frame)
	}
	if err != nil {
		c.logger.Warnf(providers.TypePresence, "Unable to subscribe %s: %s", id, err)
	}
}

// Unsubscribe only drops the local registration. The push protocol has no
// unsubscribe frame, so late events for id are ignored on arrival.
func (c *Client) Unsubscribe(id string) {
	c.registry.Delete(id)
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Subscriptions() int {
	return c.registry.Len()
}

// ActiveHeartbeats is the number of heartbeat timers currently installed.
func (c *Client) ActiveHeartbeats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heartbeats
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warnf(providers.TypePresence, "Presence connect failed: %s", err)
			}
		} else {
			c.serve(ctx, conn)
		}

		if ctx.Err() != nil {
			c.setState(StateStopped)
			return
		}

		c.setState(StateReconnecting)
		c.metrics.IncPresenceReconnects()
		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateStopped)
			return
		case <-timer.C:
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	ids := c.registry.IDs()
	c.logger.Infof(providers.TypePresence, "Presence connection open, resubscribing %d identities", len(ids))
	frame, err := subscribeFrame(ids)
	if err == nil {
		err = c.send(conn, frame)
	}
	if err != nil {
		c.logger.Warnf(providers.TypePresence, "Bulk subscribe failed: %s", err)
	}

	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if ctx.Err() == nil {
				c.logger.Warnf(providers.TypePresence, "Presence transport error: %s", err)
				c.setState(StateDegraded)
			}
			break
		}
		c.handle(conn, raw)
	}

	c.mu.Lock()
	c.conn = nil
	c.stopHeartbeatLocked()
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Client) handle(conn *websocket.Conn, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warnf(providers.TypePresence, "Malformed presence frame: %s", err)
		return
	}

	switch frame.Op {
	case OpHello:
		var hello helloPayload
		if err := json.Unmarshal(frame.D, &hello); err != nil || hello.HeartbeatInterval <= 0 {
			c.logger.Warnf(providers.TypePresence, "Hello frame without a usable heartbeat interval")
			return
		}
		c.startHeartbeat(conn, time.Duration(hello.HeartbeatInterval)*time.Millisecond)
	case OpEvent:
		c.dispatch(frame.T, frame.D)
	}
}

// startHeartbeat replaces any running heartbeat, so repeated hello frames
// never stack timers.
func (c *Client) startHeartbeat(conn *websocket.Conn, interval time.Duration) {
	c.mu.Lock()
	c.stopHeartbeatLocked()
	stop := make(chan struct{})
	c.heartbeat = stop
	c.heartbeats++
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.send(conn, heartbeatFrame()); err != nil {
					c.logger.Debugf(providers.TypePresence, "Heartbeat failed: %s", err)
					return
				}
			}
		}
	}()
}

func (c *Client) stopHeartbeatLocked() {
	if c.heartbeat == nil {
		return
	}
	close(c.heartbeat)
	c.heartbeat = nil
	c.heartbeats--
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	if event != EventInitState && event != EventPresenceUpdate {
		return
	}
	c.metrics.IncPresenceEvents(event)

	var single models.PresenceSnapshot
	if err := json.Unmarshal(data, &single); err == nil && single.DiscordUser.ID != "" {
		c.deliver(single.DiscordUser.ID, &single)
		return
	}

	// A multi-identity INIT_STATE carries one presence per identity.
	if event == EventInitState {
		var many map[string]models.PresenceSnapshot
		if err := json.Unmarshal(data, &many); err == nil {
			for id, snapshot := range many {
				if snapshot.DiscordUser.ID == "" {
					snapshot.DiscordUser.ID = id
				}
				c.deliver(id, &snapshot)
			}
			return
		}
	}

	c.logger.Debugf(providers.TypePresence, "Ignoring %s without an identity", event)
}

func (c *Client) deliver(id string, snapshot *models.PresenceSnapshot) {
	cb, ok := c.registry.Get(id)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf(providers.TypePresence, "Presence callback for %s panicked: %v", id, r)
		}
	}()
	cb(snapshot)
}

func (c *Client) send(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return websocket.Message.Send(conn, string(frame))
}

// WebsocketDialer dials socketURL with an origin derived from its host.
func WebsocketDialer(socketURL string) (Dialer, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return nil, err
	}
	origin := &url.URL{Scheme: "http", Host: u.Host}
	switch u.Scheme {
	case "wss":
		origin.Scheme = "https"
	case "ws":
	default:
		return nil, errors.New("presence socket url must use ws or wss")
	}

	config, err := websocket.NewConfig(socketURL, origin.String())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (*websocket.Conn, error) {
		return config.DialContext(ctx)
	}, nil
}

func NewClientWithDialer(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, registry *Registry, dial Dialer) *Client {
	delay := conf.Presence.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	return &Client{
		logger:         logger,
		metrics:        metrics,
		registry:       registry,
		dial:           dial,
		reconnectDelay: delay,
		state:          StateConnecting,
	}
}

func NewClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, registry *Registry) (ClientInterface, error) {
	dial, err := WebsocketDialer(conf.Presence.SocketURL)
	if err != nil {
		return nil, err
	}
	return NewClientWithDialer(conf, logger, metrics, registry, dial), nil
}
