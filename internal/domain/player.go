package domain

import (
	"errors"
	"math"
)

var (
	ErrBadDirection = errors.New("unknown direction")
	ErrBadPosition  = errors.New("position is not finite")
)

type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform is what a movement report carries.
type Transform struct {
	Position  Position  `json:"position"`
	Direction Direction `json:"direction"`
	Moving    bool      `json:"moving"`
}

// Validate rejects transforms that must never reach the presence store.
func (t Transform) Validate() error {
	if !t.Direction.Valid() {
		return ErrBadDirection
	}
	for _, v := range []float64{t.Position.X, t.Position.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrBadPosition
		}
	}
	return nil
}

// PlayerState is the renderable state of one session.
type PlayerState struct {
	ID        SessionID `json:"id"`
	Position  Position  `json:"position"`
	Direction Direction `json:"direction"`
	Moving    bool      `json:"moving"`
	Name      string    `json:"name"`
}

func (p *PlayerState) Apply(t Transform) {
	p.Position = t.Position
	p.Direction = t.Direction
	p.Moving = t.Moving
}
