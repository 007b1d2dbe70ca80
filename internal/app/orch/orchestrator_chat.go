package orch

import (
	"strings"

	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) chatSend(sid domain.SessionID, ev ChatSend) {
	kind := ev.Kind
	if kind == "" {
		kind = domain.KindText
	}
	switch {
	case strings.TrimSpace(ev.Body) == "":
		o.reject(sid, "empty message")
		return
	case ev.To == "":
		o.reject(sid, "missing recipient")
		return
	case ev.To == sid:
		o.reject(sid, core.ErrSelfConversation.Error())
		return
	case !kind.Valid():
		o.reject(sid, "unknown message kind")
		return
	}

	msg := domain.Message{Sender: sid, SenderName: o.displayName(sid), Body: ev.Body, Kind: kind}
	hist, err := o.convos.Append(sid, ev.To, msg)
	if err != nil {
		o.reject(sid, err.Error())
		return
	}
	o.Metrics.MessagesStored.Add(1)

	o.send(sid, core.HistoryEvent{Type: core.EvReceiveMessage, Messages: hist, With: ev.To})
	if !o.send(ev.To, core.HistoryEvent{Type: core.EvReceiveMessageSec, Messages: hist, From: sid}) {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("to", string(ev.To)).Msg("recipient offline, message stored")
	}
}

func (o *Orchestrator) chatHistory(sid domain.SessionID, ev ChatHistory) {
	hist, err := o.convos.History(sid, ev.With)
	if err != nil {
		o.reject(sid, err.Error())
		return
	}
	o.send(sid, core.HistoryEvent{Type: core.EvReceiveMessage, Messages: hist, With: ev.With})
}
