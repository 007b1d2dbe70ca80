package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Gather/internal/app"
	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
)

type testClient struct {
	t  *testing.T
	ws *websocket.Conn
	id domain.SessionID
}

func startServer(t *testing.T, opts Options) (*orch.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	o := orch.New(app.NewRegistry(), app.NewRoomManager(), nil, nil, orch.Options{})
	go func() { _ = o.Run(ctx) }()

	ctrl := NewSignalWSController(o, opts)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("client_token", "test-token")
		ctrl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	c := &testClient{t: t, ws: ws}
	var ev core.SessionEvent
	c.await(core.EvSession, &ev)
	c.id = ev.ID
	return c
}

func (c *testClient) send(v any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(v))
}

// await reads frames until one of type typ arrives and decodes it into v.
func (c *testClient) await(typ string, v any) {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(c.t, c.ws.SetReadDeadline(deadline))
		_, data, err := c.ws.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", typ)
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(c.t, json.Unmarshal(data, &env))
		if env.Type == typ {
			require.NoError(c.t, json.Unmarshal(data, v))
			return
		}
	}
}

func TestPingPong(t *testing.T) {
	_, url := startServer(t, Options{})
	c := dial(t, url)

	c.send(map[string]any{"type": "ping"})
	var pong core.PongEvent
	c.await(core.EvPong, &pong)
	assert.Equal(t, core.EvPong, pong.Type)
}

func TestChatOverWebsocket(t *testing.T) {
	_, url := startServer(t, Options{})
	x := dial(t, url)
	y := dial(t, url)

	x.send(map[string]any{"type": "sendMessage", "listner": y.id, "message": "hi"})

	var mine core.HistoryEvent
	x.await(core.EvReceiveMessage, &mine)
	require.Len(t, mine.Messages, 1)
	assert.Equal(t, "hi", mine.Messages[0].Body)

	var theirs core.HistoryEvent
	y.await(core.EvReceiveMessageSec, &theirs)
	assert.Equal(t, x.id, theirs.From)
	assert.Equal(t, mine.Messages, theirs.Messages)
}

func TestMalformedFramesRejected(t *testing.T) {
	o, url := startServer(t, Options{})
	c := dial(t, url)

	cases := []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"playerMovement","direction":"up"}`,
		`{"type":"sendMessage","message":"hi"}`,
		`{"type":"offer","to":"someone"}`,
		`{"type":"register"}`,
	}
	for _, raw := range cases {
		require.NoError(t, c.ws.WriteMessage(websocket.TextMessage, []byte(raw)))
		var errEv core.ErrorEvent
		c.await(core.EvError, &errEv)
		assert.NotEmpty(t, errEv.Error, raw)
	}
	assert.EqualValues(t, len(cases), o.Metrics.Rejected.Load())
}

func TestRelayLegacyPayloadKey(t *testing.T) {
	_, url := startServer(t, Options{})
	a := dial(t, url)
	b := dial(t, url)

	a.send(map[string]any{"type": "meeting-offer", "to": b.id, "offer": map[string]string{"sdp": "v=0"}})

	var fwd core.RelayEvent
	b.await(core.EvMeetingOffer, &fwd)
	assert.Equal(t, a.id, fwd.From)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(fwd.Payload))
}

func TestCallInviteThrottled(t *testing.T) {
	_, url := startServer(t, Options{InviteLimit: 1, InviteWindow: time.Minute})
	a := dial(t, url)
	b := dial(t, url)

	a.send(map[string]any{"type": "callUser", "targetId": b.id, "callerName": "Ann"})
	var call core.CallEvent
	b.await(core.EvReceiveCall, &call)
	assert.Equal(t, "Ann", call.CallerName)

	a.send(map[string]any{"type": "callUser", "targetId": b.id})
	var errEv core.ErrorEvent
	a.await(core.EvError, &errEv)
	assert.Equal(t, ErrInviteRateLimited.Error(), errEv.Error)
}

func TestCloseNotifiesOthers(t *testing.T) {
	o, url := startServer(t, Options{})
	a := dial(t, url)
	b := dial(t, url)

	require.NoError(t, a.ws.Close())

	var gone core.DepartedEvent
	b.await(core.EvPlayerDisconnected, &gone)
	assert.Equal(t, a.id, gone.ID)
	assert.False(t, o.Registry.Exists(a.id))
}

func TestInviteRateLimiterWindow(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewInviteRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))

	rl.Forget("a")
	assert.Empty(t, rl.history["a"])
}

func TestRoomNameTruncatedOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncateName("short", maxRoomNameLen))
	assert.Equal(t, strings.Repeat("a", 36), truncateName(strings.Repeat("a", 40), maxRoomNameLen))
	assert.Equal(t, "a"+strings.Repeat("я", 17), truncateName("a"+strings.Repeat("я", 30), maxRoomNameLen))

	_, url := startServer(t, Options{})
	c := dial(t, url)
	c.send(map[string]any{"type": "joinMeetingRoom", "room": strings.Repeat("я", 30)})

	var roster core.RosterEvent
	c.await(core.EvMeetingParticipants, &roster)
	assert.Equal(t, domain.RoomName(strings.Repeat("я", 18)), roster.Room)
	assert.True(t, utf8.ValidString(string(roster.Room)))
}
