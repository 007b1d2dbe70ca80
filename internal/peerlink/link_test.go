package peerlink

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dkeye/Gather/internal/domain"
)

type fakeNegotiator struct {
	mu         sync.Mutex
	hooks      Hooks
	remote     []webrtc.SessionDescription
	candidates []string
	closed     int
	failRemote bool
}

func (n *fakeNegotiator) CreateOffer(context.Context) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer"}, nil
}

func (n *fakeNegotiator) CreateAnswer(context.Context) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer"}, nil
}

func (n *fakeNegotiator) SetRemoteDescription(d webrtc.SessionDescription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failRemote {
		return errors.New("bad sdp")
	}
	n.remote = append(n.remote, d)
	return nil
}

func (n *fakeNegotiator) AddICECandidate(c webrtc.ICECandidateInit) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.candidates = append(n.candidates, c.Candidate)
	return nil
}

func (n *fakeNegotiator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed++
	return nil
}

func (n *fakeNegotiator) applied() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.candidates...)
}

type negotiators struct {
	mu   sync.Mutex
	made map[domain.SessionID]*fakeNegotiator
	err  error
}

func (f *negotiators) factory(peer domain.SessionID, hooks Hooks) (Negotiator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.made == nil {
		f.made = make(map[domain.SessionID]*fakeNegotiator)
	}
	n := &fakeNegotiator{hooks: hooks}
	f.made[peer] = n
	return n, nil
}

func (f *negotiators) get(peer domain.SessionID) *fakeNegotiator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made[peer]
}

type sent struct {
	kind string
	peer domain.SessionID
}

type recordingSignaler struct {
	mu  sync.Mutex
	out []sent
}

func (s *recordingSignaler) record(kind string, peer domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, sent{kind, peer})
	return nil
}

func (s *recordingSignaler) SendOffer(p domain.SessionID, _ webrtc.SessionDescription) error {
	return s.record("offer", p)
}

func (s *recordingSignaler) SendAnswer(p domain.SessionID, _ webrtc.SessionDescription) error {
	return s.record("answer", p)
}

func (s *recordingSignaler) SendCandidate(p domain.SessionID, _ webrtc.ICECandidateInit) error {
	return s.record("candidate", p)
}

func (s *recordingSignaler) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, o := range s.out {
		out = append(out, o.kind)
	}
	return out
}

func cand(s string) webrtc.ICECandidateInit { return webrtc.ICECandidateInit{Candidate: s} }

var (
	offer  = webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "remote-offer"}
	answer = webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "remote-answer"}
)

func TestInitiatorLifecycle(t *testing.T) {
	negs := &negotiators{}
	sig := &recordingSignaler{}
	l := newLink("peer", Initiator, negs.factory, sig, nil)

	require.NoError(t, l.Start(context.Background()))
	assert.Equal(t, RemoteAnswerPending, l.State())
	assert.Equal(t, []string{"offer"}, sig.kinds())

	require.NoError(t, l.HandleAnswer(answer))
	assert.ErrorIs(t, l.HandleAnswer(answer), ErrStaleNegotiation)

	negs.get("peer").hooks.OnConnected()
	assert.Equal(t, Connected, l.State())
}

func TestResponderLifecycle(t *testing.T) {
	negs := &negotiators{}
	sig := &recordingSignaler{}
	l := newLink("peer", Responder, negs.factory, sig, nil)

	assert.ErrorIs(t, l.Start(context.Background()), ErrNotInitiator)
	require.NoError(t, l.HandleOffer(context.Background(), offer))
	assert.Equal(t, LocalAnswerSent, l.State())
	assert.Equal(t, []string{"answer"}, sig.kinds())

	assert.ErrorIs(t, l.HandleOffer(context.Background(), offer), ErrStaleNegotiation)
	assert.ErrorIs(t, l.HandleAnswer(answer), ErrStaleNegotiation)

	l.MarkConnected()
	assert.Equal(t, Connected, l.State())
}

func TestAnswerBeforeOfferIsStale(t *testing.T) {
	l := newLink("peer", Initiator, (&negotiators{}).factory, &recordingSignaler{}, nil)
	assert.ErrorIs(t, l.HandleAnswer(answer), ErrStaleNegotiation)
	assert.Equal(t, Idle, l.State())
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	negs := &negotiators{}
	l := newLink("peer", Responder, negs.factory, &recordingSignaler{}, nil)

	require.NoError(t, l.HandleCandidate(cand("c1")))
	require.NoError(t, l.HandleCandidate(cand("c2")))
	assert.Equal(t, 2, l.Pending())

	require.NoError(t, l.HandleOffer(context.Background(), offer))
	assert.Zero(t, l.Pending())
	assert.Equal(t, []string{"c1", "c2"}, negs.get("peer").applied())

	require.NoError(t, l.HandleCandidate(cand("c3")))
	assert.Equal(t, []string{"c1", "c2", "c3"}, negs.get("peer").applied())
}

func TestPropertyCandidatesAppliedInArrivalOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		before := rapid.IntRange(0, 10).Draw(t, "before")
		after := rapid.IntRange(0, 10).Draw(t, "after")
		negs := &negotiators{}
		l := newLink("peer", Initiator, negs.factory, &recordingSignaler{}, nil)
		if err := l.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}

		var want []string
		for i := range before + after {
			if i == before {
				if err := l.HandleAnswer(answer); err != nil {
					t.Fatalf("answer: %v", err)
				}
			}
			c := string(rune('a' + i))
			want = append(want, c)
			if err := l.HandleCandidate(cand(c)); err != nil {
				t.Fatalf("candidate: %v", err)
			}
		}
		if after == 0 {
			if err := l.HandleAnswer(answer); err != nil {
				t.Fatalf("answer: %v", err)
			}
		}
		got := negs.get("peer").applied()
		if len(got) != len(want) {
			t.Fatalf("applied %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("applied %v, want %v", got, want)
			}
		}
	})
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	negs := &negotiators{}
	closedCalls := 0
	l := newLink("peer", Initiator, negs.factory, &recordingSignaler{}, func(*Link) { closedCalls++ })
	require.NoError(t, l.Start(context.Background()))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, Closed, l.State())
	assert.Equal(t, 1, negs.get("peer").closed)
	assert.Equal(t, 1, closedCalls)

	assert.ErrorIs(t, l.HandleCandidate(cand("late")), ErrClosed)
	assert.ErrorIs(t, l.HandleAnswer(answer), ErrStaleNegotiation)
	assert.ErrorIs(t, l.Start(context.Background()), ErrClosed)
	l.MarkConnected()
	assert.Equal(t, Closed, l.State())
}

func TestMediaFailureClosesLink(t *testing.T) {
	negs := &negotiators{err: errors.New("no microphone")}
	l := newLink("peer", Initiator, negs.factory, &recordingSignaler{}, nil)

	err := l.Start(context.Background())
	assert.ErrorIs(t, err, ErrMediaUnavailable)
	assert.Equal(t, Closed, l.State())
}

func TestBadRemoteOfferClosesLink(t *testing.T) {
	negs := &negotiators{}
	l := newLink("peer", Responder, func(p domain.SessionID, h Hooks) (Negotiator, error) {
		n, _ := negs.factory(p, h)
		n.(*fakeNegotiator).failRemote = true
		return n, nil
	}, &recordingSignaler{}, nil)

	assert.Error(t, l.HandleOffer(context.Background(), offer))
	assert.Equal(t, Closed, l.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "remote-answer-pending", RemoteAnswerPending.String())
	assert.Equal(t, "initiator", Initiator.String())
	assert.Equal(t, "state(42)", State(42).String())
}
