package peerlink

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Gather/internal/domain"
)

// Manager owns the links of one call kind ("call" or "mesh"), one per peer.
type Manager struct {
	name    string
	factory NegotiatorFactory
	sig     Signaler

	mu    sync.Mutex
	links map[domain.SessionID]*Link
	// ended holds peers whose last link closed. Their candidates are
	// leftovers of that round until a new offer or Initiate.
	ended map[domain.SessionID]struct{}
}

func NewManager(name string, factory NegotiatorFactory, sig Signaler) *Manager {
	return &Manager{
		name:    name,
		factory: factory,
		sig:     sig,
		links:   make(map[domain.SessionID]*Link),
		ended:   make(map[domain.SessionID]struct{}),
	}
}

func (m *Manager) Get(peer domain.SessionID) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[peer]
	return l, ok
}

func (m *Manager) Peers() []domain.SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SessionID, 0, len(m.links))
	for p := range m.links {
		out = append(out, p)
	}
	return out
}

func (m *Manager) linkFor(peer domain.SessionID, role Role) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[peer]; ok {
		if role != Initiator || !l.placeholder() {
			return l, false
		}
		// early candidates from an abandoned negotiation
		l.discard()
	}
	delete(m.ended, peer)
	l := newLink(peer, role, m.factory, m.sig, m.forget)
	m.links[peer] = l
	return l, true
}

// candidateLink returns the link that should hold a candidate from peer,
// opening a placeholder unless peer's previous round has ended.
func (m *Manager) candidateLink(peer domain.SessionID) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[peer]; ok {
		return l, true
	}
	if _, ok := m.ended[peer]; ok {
		return nil, false
	}
	l := newLink(peer, Responder, m.factory, m.sig, m.forget)
	m.links[peer] = l
	return l, true
}

func (m *Manager) forget(l *Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[l.peer] == l {
		delete(m.links, l.peer)
		m.ended[l.peer] = struct{}{}
	}
}

// Initiate opens a link toward peer as the initiator and sends the offer.
// An existing link is left alone.
func (m *Manager) Initiate(ctx context.Context, peer domain.SessionID) error {
	l, created := m.linkFor(peer, Initiator)
	if !created {
		log.Debug().Str("module", "peerlink").Str("kind", m.name).Str("peer", string(peer)).Str("state", l.State().String()).Msg("link already exists")
		return nil
	}
	if err := l.Start(ctx); err != nil {
		log.Error().Err(err).Str("module", "peerlink").Str("kind", m.name).Str("peer", string(peer)).Msg("start link")
		return err
	}
	log.Info().Str("module", "peerlink").Str("kind", m.name).Str("peer", string(peer)).Msg("offer sent")
	return nil
}

// HandleOffer answers peer's offer, creating a responder link if needed.
func (m *Manager) HandleOffer(ctx context.Context, peer domain.SessionID, offer webrtc.SessionDescription) error {
	l, _ := m.linkFor(peer, Responder)
	return m.settle(peer, "offer", l.HandleOffer(ctx, offer))
}

func (m *Manager) HandleAnswer(peer domain.SessionID, answer webrtc.SessionDescription) error {
	l, ok := m.Get(peer)
	if !ok {
		return m.settle(peer, "answer", ErrStaleNegotiation)
	}
	return m.settle(peer, "answer", l.HandleAnswer(answer))
}

// HandleCandidate queues or applies a remote candidate. A candidate that
// beats the offer opens an idle responder link to hold it; one arriving
// after the peer's link closed is discarded.
func (m *Manager) HandleCandidate(peer domain.SessionID, c webrtc.ICECandidateInit) error {
	l, ok := m.candidateLink(peer)
	if !ok {
		return m.settle(peer, "candidate", ErrStaleNegotiation)
	}
	return m.settle(peer, "candidate", l.HandleCandidate(c))
}

// settle logs stale or late messages and swallows them.
func (m *Manager) settle(peer domain.SessionID, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleNegotiation), errors.Is(err, ErrClosed):
		log.Warn().Err(err).Str("module", "peerlink").Str("kind", m.name).Str("peer", string(peer)).Str("msg", what).Msg("discarded")
		return nil
	default:
		log.Error().Err(err).Str("module", "peerlink").Str("kind", m.name).Str("peer", string(peer)).Str("msg", what).Msg("negotiation failed")
		return err
	}
}

func (m *Manager) Close(peer domain.SessionID) bool {
	l, ok := m.Get(peer)
	if !ok {
		return false
	}
	_ = l.Close()
	log.Info().Str("module", "peerlink").Str("kind", m.name).Str("peer", string(peer)).Msg("link closed")
	return true
}

func (m *Manager) CloseAll() {
	for _, p := range m.Peers() {
		m.Close(p)
	}
}
