package orch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Gather/internal/app"
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// ofType returns every received frame of the given wire type.
func (c *fakeConn) ofType(t *testing.T, typ string) []core.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.Frame
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		if env.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func decode[T any](t *testing.T, f core.Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f, &v))
	return v
}

func last[T any](t *testing.T, c *fakeConn, typ string) T {
	t.Helper()
	frames := c.ofType(t, typ)
	require.NotEmpty(t, frames, "no %s frame", typ)
	return decode[T](t, frames[len(frames)-1])
}

type hub struct {
	t *testing.T
	o *Orchestrator
}

func startHub(t *testing.T, policy app.Policy, opts Options) *hub {
	t.Helper()
	o := New(app.NewRegistry(), app.NewRoomManager(), policy, nil, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = o.Run(ctx) }()
	t.Cleanup(cancel)
	return &hub{t: t, o: o}
}

func (h *hub) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	h.t.Cleanup(cancel)
	return ctx
}

func (h *hub) connect() (domain.SessionID, *fakeConn) {
	h.t.Helper()
	conn := &fakeConn{}
	sid, err := h.o.Connect(h.ctx(), conn, "token", nil)
	require.NoError(h.t, err)
	return sid, conn
}

func (h *hub) do(sid domain.SessionID, ev any) {
	h.t.Helper()
	require.NoError(h.t, h.o.Submit(h.ctx(), sid, ev))
	require.NoError(h.t, h.o.Flush(h.ctx()))
}

func TestConnectSendsIdentityAndSnapshot(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	b, connB := h.connect()
	require.NoError(t, h.o.Flush(h.ctx()))

	first := decode[core.SessionEvent](t, connB.frames[0])
	assert.Equal(t, core.EvSession, first.Type)
	assert.Equal(t, b, first.ID)
	assert.Equal(t, "Player-"+string(b)[:4], first.Player.Name)

	snap := last[core.PlayersEvent](t, connB, core.EvCurrentPlayers)
	assert.Len(t, snap.Players, 1)
	assert.Contains(t, snap.Players, a)

	joined := last[core.PlayerEvent](t, connA, core.EvNewPlayer)
	assert.Equal(t, b, joined.Player.ID)
	assert.Empty(t, connB.ofType(t, core.EvNewPlayer))
}

func TestRequestPlayersResendsSnapshot(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	h.connect()

	h.do(a, RequestPlayers{})
	frames := connA.ofType(t, core.EvCurrentPlayers)
	require.Len(t, frames, 2)
	assert.Len(t, decode[core.PlayersEvent](t, frames[1]).Players, 1)
}

func TestMoveBroadcastsToEveryoneIncludingMover(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	_, connB := h.connect()

	tr := domain.Transform{Position: domain.Position{X: 200, Y: 300}, Direction: domain.DirLeft, Moving: true}
	h.do(a, Move{Transform: tr})

	for _, c := range []*fakeConn{connA, connB} {
		moved := last[core.PlayerEvent](t, c, core.EvPlayerMoved)
		assert.Equal(t, a, moved.Player.ID)
		assert.Equal(t, tr.Position, moved.Player.Position)
		assert.Equal(t, domain.DirLeft, moved.Player.Direction)
		assert.True(t, moved.Player.Moving)
	}
}

func TestMoveInvalidTransformRejected(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	_, connB := h.connect()

	h.do(a, Move{Transform: domain.Transform{Direction: "diagonal"}})

	assert.Empty(t, connB.ofType(t, core.EvPlayerMoved))
	errEv := last[core.ErrorEvent](t, connA, core.EvError)
	assert.Equal(t, domain.ErrBadDirection.Error(), errEv.Error)
}

func TestRegisterBroadcastsBindingsAndRename(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, _ := h.connect()
	_, connB := h.connect()

	h.do(a, Register{Name: "  alice "})

	online := last[core.OnlineUsersEvent](t, connB, core.EvOnlineUsers)
	assert.Equal(t, map[string]domain.SessionID{"alice": a}, online.Users)
	moved := last[core.PlayerEvent](t, connB, core.EvPlayerMoved)
	assert.Equal(t, "alice", moved.Player.Name)
}

func TestRegisterEmptyNameRejectedToRequesterOnly(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	_, connB := h.connect()
	before := connB.count()

	h.do(a, Register{Name: "   "})

	assert.NotEmpty(t, connA.ofType(t, core.EvError))
	assert.Equal(t, before, connB.count())
}

func TestStaleDisconnectKeepsNewerBinding(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, _ := h.connect()
	b, _ := h.connect()
	_, connC := h.connect()

	h.do(a, Register{Name: "sam"})
	h.do(b, Register{Name: "sam"})
	onlineBefore := len(connC.ofType(t, core.EvOnlineUsers))

	h.do(a, Disconnect{})

	assert.Len(t, connC.ofType(t, core.EvOnlineUsers), onlineBefore)
	online := last[core.OnlineUsersEvent](t, connC, core.EvOnlineUsers)
	assert.Equal(t, map[string]domain.SessionID{"sam": b}, online.Users)
}

func TestDisconnectCascadeNotifiesOnce(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	b, connB := h.connect()
	c, connC := h.connect()

	h.do(a, Register{Name: "alice"})
	h.do(a, RoomJoin{})
	h.do(b, RoomJoin{})

	h.do(a, Disconnect{})
	h.do(a, Disconnect{})

	assert.True(t, connA.closed)
	assert.False(t, h.o.Registry.Exists(a))
	for _, conn := range []*fakeConn{connB, connC} {
		gone := conn.ofType(t, core.EvPlayerDisconnected)
		require.Len(t, gone, 1)
		assert.Equal(t, a, decode[core.DepartedEvent](t, gone[0]).ID)

		online := last[core.OnlineUsersEvent](t, conn, core.EvOnlineUsers)
		assert.Empty(t, online.Users)
	}

	left := connB.ofType(t, core.EvMeetingUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, a, decode[core.MeetingMemberEvent](t, left[0]).UserID)
	assert.Empty(t, connC.ofType(t, core.EvMeetingUserLeft))

	room, ok := h.o.Rooms.Get(domain.DefaultRoom)
	require.True(t, ok)
	assert.Equal(t, []domain.SessionID{b}, room.Members())

	h.do(c, RequestPlayers{})
	snap := last[core.PlayersEvent](t, connC, core.EvCurrentPlayers)
	assert.NotContains(t, snap.Players, a)
}

func TestChatDeliversHistoryToBothSides(t *testing.T) {
	h := startHub(t, nil, Options{})
	x, connX := h.connect()
	y, connY := h.connect()
	h.do(x, Register{Name: "xena"})

	h.do(x, ChatSend{To: y, Body: "hi"})

	want := []domain.Message{{Sender: x, SenderName: "xena", Body: "hi", Kind: domain.KindText}}

	mine := last[core.HistoryEvent](t, connX, core.EvReceiveMessage)
	assert.Equal(t, want, mine.Messages)
	theirs := last[core.HistoryEvent](t, connY, core.EvReceiveMessageSec)
	assert.Equal(t, want, theirs.Messages)
	assert.Equal(t, x, theirs.From)

	h.do(y, ChatHistory{With: x})
	hist := last[core.HistoryEvent](t, connY, core.EvReceiveMessage)
	assert.Equal(t, want, hist.Messages)
	assert.Equal(t, x, hist.With)
}

func TestChatToOfflineRecipientIsStored(t *testing.T) {
	h := startHub(t, nil, Options{})
	x, connX := h.connect()

	h.do(x, ChatSend{To: "gone", Body: "anyone?", Kind: domain.KindFile})

	mine := last[core.HistoryEvent](t, connX, core.EvReceiveMessage)
	require.Len(t, mine.Messages, 1)
	assert.Equal(t, domain.KindFile, mine.Messages[0].Kind)
	assert.Equal(t, "Player-"+string(x)[:4], mine.Messages[0].SenderName)
	assert.Empty(t, connX.ofType(t, core.EvError))
}

func TestChatRejectsMalformed(t *testing.T) {
	h := startHub(t, nil, Options{})
	x, connX := h.connect()
	y, _ := h.connect()

	h.do(x, ChatSend{To: y, Body: ""})
	h.do(x, ChatSend{To: x, Body: "me"})
	h.do(x, ChatSend{Body: "nobody"})
	h.do(x, ChatSend{To: y, Body: "hi", Kind: "video"})

	assert.Len(t, connX.ofType(t, core.EvError), 4)
	assert.Empty(t, connX.ofType(t, core.EvReceiveMessage))
	assert.Zero(t, h.o.Metrics.MessagesStored.Load())
}

func TestCallInviteUsesPlayerName(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, _ := h.connect()
	b, connB := h.connect()

	h.do(a, CallInvite{To: b})

	call := last[core.CallEvent](t, connB, core.EvReceiveCall)
	assert.Equal(t, a, call.CallerID)
	assert.Equal(t, "Player-"+string(a)[:4], call.CallerName)
}

func TestRelayForwardsPayloadWithSender(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, _ := h.connect()
	b, connB := h.connect()

	h.do(a, Relay{Type: core.EvOffer, To: b, Payload: json.RawMessage(`{"sdp":"v=0"}`)})

	fwd := last[core.RelayEvent](t, connB, core.EvOffer)
	assert.Equal(t, a, fwd.From)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(fwd.Payload))
	assert.EqualValues(t, 1, h.o.Metrics.Relayed.Load())
}

func TestRelayToMissingTargetIsSilent(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()
	before := connA.count()

	h.do(a, Relay{Type: core.EvMeetingICECandidate, To: "ghost", Payload: json.RawMessage(`{}`)})
	h.do(a, CallInvite{To: "ghost"})

	assert.Equal(t, before, connA.count())
	assert.EqualValues(t, 2, h.o.Metrics.RelayMissing.Load())
}

func TestMeshJoinerGetsRosterMembersGetNotified(t *testing.T) {
	h := startHub(t, nil, Options{})
	p1, conn1 := h.connect()
	p2, conn2 := h.connect()
	p3, conn3 := h.connect()

	h.do(p1, RoomJoin{})
	h.do(p2, RoomJoin{})
	h.do(p3, RoomJoin{Room: "meeting"})

	roster := last[core.RosterEvent](t, conn3, core.EvMeetingParticipants)
	assert.Equal(t, []domain.SessionID{p1, p2}, roster.Participants)
	assert.Equal(t, domain.DefaultRoom, roster.Room)

	for _, c := range []*fakeConn{conn1, conn2} {
		joined := last[core.MeetingMemberEvent](t, c, core.EvMeetingUserJoined)
		assert.Equal(t, p3, joined.UserID)
	}
	assert.Empty(t, conn3.ofType(t, core.EvMeetingUserJoined))

	first := decode[core.RosterEvent](t, conn1.ofType(t, core.EvMeetingParticipants)[0])
	assert.NotNil(t, first.Participants)
	assert.Empty(t, first.Participants)

	h.do(p3, RoomJoin{})
	assert.Len(t, conn3.ofType(t, core.EvMeetingParticipants), 2)
	assert.Len(t, conn1.ofType(t, core.EvMeetingUserJoined), 2)
}

func TestLeaveDropsEmptyRoom(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, connA := h.connect()

	h.do(a, RoomLeave{})
	assert.Empty(t, connA.ofType(t, core.EvMeetingUserLeft))

	h.do(a, RoomJoin{Room: "standup"})
	assert.Len(t, h.o.Rooms.List(), 1)
	h.do(a, RoomLeave{Room: "standup"})
	assert.Empty(t, h.o.Rooms.List())
}

func TestBackpressureKickCancelsSession(t *testing.T) {
	h := startHub(t, app.SimplePolicy{Action: app.KickMember}, Options{})
	a, _ := h.connect()

	slow := &fakeConn{}
	canceled := make(chan struct{})
	var once sync.Once
	_, err := h.o.Connect(h.ctx(), slow, "slow", func() { once.Do(func() { close(canceled) }) })
	require.NoError(t, err)
	slow.mu.Lock()
	slow.full = true
	slow.mu.Unlock()

	h.do(a, Move{Transform: domain.Transform{Direction: domain.DirUp}})

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("slow session was not canceled")
	}
	assert.EqualValues(t, 1, h.o.Metrics.Kicked.Load())
}

func TestBackpressureDropKeepsSession(t *testing.T) {
	h := startHub(t, nil, Options{})
	a, _ := h.connect()
	b, connB := h.connect()
	connB.mu.Lock()
	connB.full = true
	connB.mu.Unlock()

	h.do(a, Move{Transform: domain.Transform{Direction: domain.DirUp}})

	assert.True(t, h.o.Registry.Exists(b))
	assert.EqualValues(t, 1, h.o.Metrics.FramesDropped.Load())
}

type halfZones struct{}

func (halfZones) ZoneAt(x, _ float64) string {
	if x >= 500 {
		return "lounge"
	}
	return ""
}

func TestAutoZoneJoinsAndLeaves(t *testing.T) {
	h := startHub(t, nil, Options{Zones: halfZones{}, AutoZone: true})
	a, connA := h.connect()
	b, _ := h.connect()

	h.do(b, Move{Transform: domain.Transform{Position: domain.Position{X: 600, Y: 10}, Direction: domain.DirRight}})
	h.do(a, Move{Transform: domain.Transform{Position: domain.Position{X: 700, Y: 10}, Direction: domain.DirRight}})

	roster := last[core.RosterEvent](t, connA, core.EvMeetingParticipants)
	assert.Equal(t, domain.RoomName("lounge"), roster.Room)
	assert.Equal(t, []domain.SessionID{b}, roster.Participants)

	h.do(b, Move{Transform: domain.Transform{Position: domain.Position{X: 100, Y: 10}, Direction: domain.DirLeft}})
	left := last[core.MeetingMemberEvent](t, connA, core.EvMeetingUserLeft)
	assert.Equal(t, b, left.UserID)
}

func TestAutoZoneRespectsExplicitLeave(t *testing.T) {
	h := startHub(t, nil, Options{Zones: halfZones{}, AutoZone: true})
	a, connA := h.connect()
	step := func(x float64) {
		h.do(a, Move{Transform: domain.Transform{Position: domain.Position{X: x, Y: 10}, Direction: domain.DirRight}})
	}

	step(600)
	require.Len(t, connA.ofType(t, core.EvMeetingParticipants), 1)

	h.do(a, RoomLeave{Room: "lounge"})
	_, ok := h.o.Rooms.Get("lounge")
	require.False(t, ok)

	step(650)
	assert.Len(t, connA.ofType(t, core.EvMeetingParticipants), 1)
	_, ok = h.o.Rooms.Get("lounge")
	assert.False(t, ok)

	step(100)
	step(600)
	assert.Len(t, connA.ofType(t, core.EvMeetingParticipants), 2)
}

func TestEventsFromUnknownSessionIgnored(t *testing.T) {
	h := startHub(t, nil, Options{})
	_, connA := h.connect()
	before := connA.count()

	h.do("ghost", Register{Name: "boo"})
	h.do("ghost", Disconnect{})

	assert.Equal(t, before, connA.count())
}

func TestSubmitAfterStop(t *testing.T) {
	o := New(app.NewRegistry(), app.NewRoomManager(), nil, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { _ = o.Run(ctx); close(stopped) }()
	cancel()
	<-stopped

	err := o.Submit(context.Background(), "a", RequestPlayers{})
	assert.ErrorIs(t, err, ErrStopped)
}
