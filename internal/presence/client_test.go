package presence

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/structures"
	"crewboard/internal/testutil"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

const waitTimeout = 2 * time.Second

type fakeLanyard struct {
	srv    *httptest.Server
	conns  chan *websocket.Conn
	frames chan []byte
}

func newFakeLanyard(t *testing.T) *fakeLanyard {
	t.Helper()
	f := &fakeLanyard{
		conns:  make(chan *websocket.Conn, 8),
		frames: make(chan []byte, 64),
	}
	f.srv = httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		f.conns <- ws
		for {
			var raw []byte
			if err := websocket.Message.Receive(ws, &raw); err != nil {
				return
			}
			f.frames <- raw
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLanyard) socketURL() string {
	return "ws://" + strings.TrimPrefix(f.srv.URL, "http://")
}

func (f *fakeLanyard) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-f.conns:
		return ws
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for client connection")
	}
	return nil
}

func (f *fakeLanyard) nextFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case raw := <-f.frames:
		var frame Frame
		require.NoError(t, json.Unmarshal(raw, &frame))
		return frame
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for client frame")
	}
	return Frame{}
}

func (f *fakeLanyard) nextSubscribe(t *testing.T) []string {
	t.Helper()
	for {
		frame := f.nextFrame(t)
		if frame.Op != OpSubscribe {
			continue
		}
		var payload subscribePayload
		require.NoError(t, json.Unmarshal(frame.D, &payload))
		return payload.SubscribeToIDs
	}
}

func push(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, websocket.Message.Send(ws, frame))
}

func presenceUpdate(id, status string) string {
	return `{"op":0,"t":"PRESENCE_UPDATE","d":{"discord_user":{"id":"` + id + `","username":"u"},"discord_status":"` + status + `","activities":[]}}`
}

func newTestClient(t *testing.T, f *fakeLanyard) (*Client, *testutil.MockLogger, *testutil.MockMetrics) {
	t.Helper()
	dial, err := WebsocketDialer(f.socketURL())
	require.NoError(t, err)
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}
	conf := &structures.Config{Presence: structures.PresenceConfig{ReconnectDelay: 10 * time.Millisecond}}
	c := NewClientWithDialer(conf, logger, metrics, NewRegistry(), dial)
	t.Cleanup(c.Stop)
	return c, logger, metrics
}

func collect(ch chan *models.PresenceSnapshot) Callback {
	return func(s *models.PresenceSnapshot) { ch <- s }
}

func receive(t *testing.T, ch chan *models.PresenceSnapshot) *models.PresenceSnapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for presence callback")
	}
	return nil
}

func TestClient_ResubscribesAllIdentitiesOnReconnect(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, metrics := newTestClient(t, f)
	c.Subscribe("a", func(*models.PresenceSnapshot) {})
	c.Subscribe("b", func(*models.PresenceSnapshot) {})

	c.Start(context.Background())
	first := f.nextConn(t)
	assert.Equal(t, []string{"a", "b"}, f.nextSubscribe(t))
	assert.Equal(t, StateOpen, c.State())

	c.Subscribe("c", func(*models.PresenceSnapshot) {})
	assert.Equal(t, []string{"c"}, f.nextSubscribe(t))

	require.NoError(t, first.Close())
	f.nextConn(t)

	assert.Equal(t, []string{"a", "b", "c"}, f.nextSubscribe(t))
	assert.GreaterOrEqual(t, metrics.Reconnects.Load(), int64(1))
}

func TestClient_ReconnectDropsUnsubscribedIdentities(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, _ := newTestClient(t, f)
	c.Subscribe("a", func(*models.PresenceSnapshot) {})
	c.Subscribe("b", func(*models.PresenceSnapshot) {})

	c.Start(context.Background())
	first := f.nextConn(t)
	assert.Equal(t, []string{"a", "b"}, f.nextSubscribe(t))

	c.Unsubscribe("a")
	assert.Equal(t, 1, c.Subscriptions())

	closed := time.Now()
	require.NoError(t, first.Close())
	f.nextConn(t)

	assert.Equal(t, []string{"b"}, f.nextSubscribe(t))
	assert.Less(t, time.Since(closed), time.Second)
}

func TestClient_RepeatedHelloKeepsSingleHeartbeat(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, _ := newTestClient(t, f)
	updates := make(chan *models.PresenceSnapshot, 1)
	c.Subscribe("a", collect(updates))

	c.Start(context.Background())
	ws := f.nextConn(t)
	f.nextSubscribe(t)

	push(t, ws, `{"op":1,"d":{"heartbeat_interval":20}}`)
	push(t, ws, `{"op":1,"d":{"heartbeat_interval":20}}`)
	push(t, ws, presenceUpdate("a", "online"))
	receive(t, updates)

	assert.Equal(t, 1, c.ActiveHeartbeats())
	for {
		if f.nextFrame(t).Op == OpHeartbeat {
			break
		}
	}
}

func TestClient_HeartbeatStopsWithConnection(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, _ := newTestClient(t, f)

	c.Start(context.Background())
	ws := f.nextConn(t)
	f.nextSubscribe(t)
	push(t, ws, `{"op":1,"d":{"heartbeat_interval":20}}`)
	require.Eventually(t, func() bool { return c.ActiveHeartbeats() == 1 }, waitTimeout, 5*time.Millisecond)

	c.Stop()
	assert.Equal(t, 0, c.ActiveHeartbeats())
	assert.Equal(t, StateStopped, c.State())
}

func TestClient_UnsubscribedIdentityIsIgnored(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, _ := newTestClient(t, f)
	aUpdates := make(chan *models.PresenceSnapshot, 1)
	bUpdates := make(chan *models.PresenceSnapshot, 1)
	c.Subscribe("a", collect(aUpdates))
	c.Subscribe("b", collect(bUpdates))

	c.Start(context.Background())
	ws := f.nextConn(t)
	f.nextSubscribe(t)

	c.Unsubscribe("b")
	push(t, ws, presenceUpdate("b", "online"))
	push(t, ws, presenceUpdate("a", "idle"))

	s := receive(t, aUpdates)
	assert.Equal(t, models.StatusIdle, s.DiscordStatus)
	assert.Empty(t, bUpdates)
	assert.Equal(t, 1, c.Subscriptions())
}

func TestClient_PanickingCallbackIsIsolated(t *testing.T) {
	f := newFakeLanyard(t)
	c, logger, _ := newTestClient(t, f)
	updates := make(chan *models.PresenceSnapshot, 1)
	c.Subscribe("bad", func(*models.PresenceSnapshot) { panic("boom") })
	c.Subscribe("good", collect(updates))

	c.Start(context.Background())
	ws := f.nextConn(t)
	f.nextSubscribe(t)

	push(t, ws, presenceUpdate("bad", "online"))
	push(t, ws, presenceUpdate("good", "dnd"))

	s := receive(t, updates)
	assert.Equal(t, models.StatusDoNotDisturb, s.DiscordStatus)
	assert.True(t, logger.Contains("error", "panicked"))
	assert.Equal(t, StateOpen, c.State())
}

func TestClient_InitStateKeyedByIdentity(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, metrics := newTestClient(t, f)
	aUpdates := make(chan *models.PresenceSnapshot, 1)
	bUpdates := make(chan *models.PresenceSnapshot, 1)
	c.Subscribe("a", collect(aUpdates))
	c.Subscribe("b", collect(bUpdates))

	c.Start(context.Background())
	ws := f.nextConn(t)
	f.nextSubscribe(t)

	push(t, ws, `{"op":0,"t":"INIT_STATE","d":{"a":{"discord_status":"online"},"b":{"discord_user":{"id":"b"},"discord_status":"offline"}}}`)

	a := receive(t, aUpdates)
	b := receive(t, bUpdates)
	assert.Equal(t, "a", a.DiscordUser.ID)
	assert.Equal(t, models.StatusOnline, a.DiscordStatus)
	assert.Equal(t, models.StatusOffline, b.DiscordStatus)
	assert.Equal(t, int64(1), metrics.PresenceEvents.Load())
}

func TestClient_UnknownEventsAndGarbageAreIgnored(t *testing.T) {
	f := newFakeLanyard(t)
	c, logger, _ := newTestClient(t, f)
	updates := make(chan *models.PresenceSnapshot, 1)
	c.Subscribe("a", collect(updates))

	c.Start(context.Background())
	ws := f.nextConn(t)
	f.nextSubscribe(t)

	push(t, ws, `not json`)
	push(t, ws, `{"op":0,"t":"SOMETHING_ELSE","d":{"discord_user":{"id":"a"}}}`)
	push(t, ws, presenceUpdate("a", "online"))

	s := receive(t, updates)
	assert.Equal(t, models.StatusOnline, s.DiscordStatus)
	assert.Empty(t, updates)
	assert.True(t, logger.Contains("warn", "Malformed"))
}

func TestClient_RetriesWhenDialFails(t *testing.T) {
	f := newFakeLanyard(t)
	c, _, metrics := newTestClient(t, f)
	f.srv.Close()

	c.Start(context.Background())
	require.Eventually(t, func() bool { return metrics.Reconnects.Load() >= 2 }, waitTimeout, 5*time.Millisecond)
	assert.NotEqual(t, StateOpen, c.State())
}

func TestWebsocketDialer_RejectsNonSocketScheme(t *testing.T) {
	_, err := WebsocketDialer("https://example.com/socket")
	assert.Error(t, err)
}

func TestRegistry_IDsAreSorted(t *testing.T) {
	r := NewRegistry()
	r.Set("z", nil)
	r.Set("m", nil)
	r.Set("a", nil)
	r.Delete("m")

	assert.Equal(t, []string{"a", "z"}, r.IDs())
	assert.Equal(t, 2, r.Len())
	_, ok := r.Get("m")
	assert.False(t, ok)
}
