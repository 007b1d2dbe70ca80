// Package peerlink drives the negotiation lifecycle of one WebRTC peer
// connection. Only the initiator creates offers, remote candidates that
// arrive early are queued, and out-of-order descriptions are discarded.
package peerlink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Gather/internal/domain"
)

var (
	// ErrStaleNegotiation marks an offer or answer that arrived in a state
	// that cannot accept it. It is logged, never surfaced as a failure.
	ErrStaleNegotiation = errors.New("stale negotiation message")
	ErrNotInitiator     = errors.New("only the initiator creates offers")
	ErrClosed           = errors.New("link closed")
	ErrMediaUnavailable = errors.New("media unavailable")
)

type State int

const (
	Idle State = iota
	LocalOfferCreated
	RemoteAnswerPending
	RemoteOfferReceived
	LocalAnswerSent
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LocalOfferCreated:
		return "local-offer-created"
	case RemoteAnswerPending:
		return "remote-answer-pending"
	case RemoteOfferReceived:
		return "remote-offer-received"
	case LocalAnswerSent:
		return "local-answer-sent"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Role int

const (
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// Negotiator is the media stack underneath a link.
type Negotiator interface {
	// CreateOffer and CreateAnswer also install the result as the local description.
	CreateOffer(ctx context.Context) (webrtc.SessionDescription, error)
	CreateAnswer(ctx context.Context) (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(c webrtc.ICECandidateInit) error
	Close() error
}

// Hooks are the negotiator's callbacks into its link.
type Hooks struct {
	OnLocalCandidate func(webrtc.ICECandidateInit)
	OnConnected      func()
	OnFailed         func()
}

// NegotiatorFactory acquires media for a new link. An error closes the
// link attempt.
type NegotiatorFactory func(peer domain.SessionID, hooks Hooks) (Negotiator, error)

// Signaler carries a link's outgoing messages to the peer.
type Signaler interface {
	SendOffer(peer domain.SessionID, offer webrtc.SessionDescription) error
	SendAnswer(peer domain.SessionID, answer webrtc.SessionDescription) error
	SendCandidate(peer domain.SessionID, c webrtc.ICECandidateInit) error
}

type Link struct {
	peer    domain.SessionID
	role    Role
	factory NegotiatorFactory
	sig     Signaler
	onClose func(*Link)

	mu        sync.Mutex
	state     State
	neg       Negotiator
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func newLink(peer domain.SessionID, role Role, factory NegotiatorFactory, sig Signaler, onClose func(*Link)) *Link {
	return &Link{peer: peer, role: role, factory: factory, sig: sig, onClose: onClose, state: Idle}
}

func (l *Link) Peer() domain.SessionID { return l.peer }
func (l *Link) Role() Role             { return l.role }

func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pending is the number of queued remote candidates.
func (l *Link) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// negotiator must be called with l.mu held.
func (l *Link) negotiator() (Negotiator, error) {
	if l.neg != nil {
		return l.neg, nil
	}
	neg, err := l.factory(l.peer, Hooks{
		OnLocalCandidate: func(c webrtc.ICECandidateInit) { _ = l.sig.SendCandidate(l.peer, c) },
		OnConnected:      l.MarkConnected,
		OnFailed:         func() { _ = l.Close() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}
	l.neg = neg
	return neg, nil
}

// Start sends the initial offer.
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.role != Initiator {
		l.mu.Unlock()
		return ErrNotInitiator
	}
	if l.state != Idle {
		st := l.state
		l.mu.Unlock()
		if st == Closed {
			return ErrClosed
		}
		return ErrStaleNegotiation
	}
	err := l.offerLocked(ctx)
	l.mu.Unlock()
	if err != nil {
		_ = l.Close()
	}
	return err
}

func (l *Link) offerLocked(ctx context.Context) error {
	neg, err := l.negotiator()
	if err != nil {
		return err
	}
	offer, err := neg.CreateOffer(ctx)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	l.state = LocalOfferCreated
	if err := l.sig.SendOffer(l.peer, offer); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}
	l.state = RemoteAnswerPending
	return nil
}

// HandleOffer answers a remote offer. Only an idle responder accepts one.
func (l *Link) HandleOffer(ctx context.Context, offer webrtc.SessionDescription) error {
	l.mu.Lock()
	if l.role != Responder || l.state != Idle {
		l.mu.Unlock()
		return ErrStaleNegotiation
	}
	err := l.answerLocked(ctx, offer)
	l.mu.Unlock()
	if err != nil {
		_ = l.Close()
	}
	return err
}

func (l *Link) answerLocked(ctx context.Context, offer webrtc.SessionDescription) error {
	neg, err := l.negotiator()
	if err != nil {
		return err
	}
	if err := neg.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("apply offer: %w", err)
	}
	l.remoteSet = true
	l.state = RemoteOfferReceived
	l.drainLocked()

	answer, err := neg.CreateAnswer(ctx)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := l.sig.SendAnswer(l.peer, answer); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	l.state = LocalAnswerSent
	return nil
}

// HandleAnswer applies the answer to our offer. Any other state, a
// duplicate answer included, is stale.
func (l *Link) HandleAnswer(answer webrtc.SessionDescription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.role != Initiator || l.state != RemoteAnswerPending || l.remoteSet {
		return ErrStaleNegotiation
	}
	if err := l.neg.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("apply answer: %w", err)
	}
	l.remoteSet = true
	l.drainLocked()
	return nil
}

// HandleCandidate applies c, or queues it until the remote description
// is in place.
func (l *Link) HandleCandidate(c webrtc.ICECandidateInit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Closed {
		return ErrClosed
	}
	if !l.remoteSet {
		l.pending = append(l.pending, c)
		return nil
	}
	return l.neg.AddICECandidate(c)
}

// drainLocked applies queued candidates in arrival order.
func (l *Link) drainLocked() {
	pending := l.pending
	l.pending = nil
	for _, c := range pending {
		// a bad candidate must not block the ones behind it
		_ = l.neg.AddICECandidate(c)
	}
}

// placeholder reports whether l is an idle responder that never touched media.
func (l *Link) placeholder() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.role == Responder && l.state == Idle && l.neg == nil
}

// discard closes l without notifying its manager.
func (l *Link) discard() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Closed
	l.pending = nil
}

func (l *Link) MarkConnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case RemoteAnswerPending, LocalAnswerSent:
		if l.remoteSet {
			l.state = Connected
		}
	}
}

// Close releases the negotiator. It is idempotent and Closed is terminal.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.state == Closed {
		l.mu.Unlock()
		return nil
	}
	l.state = Closed
	l.pending = nil
	neg := l.neg
	l.mu.Unlock()

	var err error
	if neg != nil {
		err = neg.Close()
	}
	if l.onClose != nil {
		l.onClose(l)
	}
	return err
}
