package core

import (
	"errors"
	"slices"

	"github.com/dkeye/Gather/internal/domain"
)

var (
	ErrSelfConversation = errors.New("conversation with self")
	ErrMissingParty     = errors.New("conversation party missing")
)

// ConversationKey identifies the history shared by an unordered pair.
type ConversationKey string

// KeyOf is commutative: KeyOf(a, b) == KeyOf(b, a).
func KeyOf(a, b domain.SessionID) (ConversationKey, error) {
	if a == "" || b == "" {
		return "", ErrMissingParty
	}
	if a == b {
		return "", ErrSelfConversation
	}
	if b < a {
		a, b = b, a
	}
	return ConversationKey(string(a) + "|" + string(b)), nil
}

// Conversations is the append-only chat history store. Conversations are
// never deleted, even after both parties are gone.
type Conversations struct {
	byKey map[ConversationKey][]domain.Message
}

func NewConversations() *Conversations {
	return &Conversations{byKey: make(map[ConversationKey][]domain.Message)}
}

// Append adds msg to the pair's history and returns the updated history.
func (c *Conversations) Append(a, b domain.SessionID, msg domain.Message) ([]domain.Message, error) {
	key, err := KeyOf(a, b)
	if err != nil {
		return nil, err
	}
	c.byKey[key] = append(c.byKey[key], msg)
	return slices.Clone(c.byKey[key]), nil
}

// History returns the pair's messages, creating an empty conversation on
// first contact.
func (c *Conversations) History(a, b domain.SessionID) ([]domain.Message, error) {
	key, err := KeyOf(a, b)
	if err != nil {
		return nil, err
	}
	msgs, ok := c.byKey[key]
	if !ok {
		msgs = []domain.Message{}
		c.byKey[key] = msgs
	}
	return slices.Clone(msgs), nil
}

func (c *Conversations) Len() int { return len(c.byKey) }
