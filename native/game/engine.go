package game

import (
	"errors"

	"farmchain/core/types"
	"farmchain/crypto"
)

var (
	errNilState     = errors.New("game engine: state not configured")
	errInvalidMove  = errors.New("game engine: invalid move")
	errSelfPlay     = errors.New("game engine: host cannot challenge themselves")
	errGameExists   = errors.New("game engine: game already open for this pair")
	errGameNotFound = errors.New("game engine: game not found")
)

var (
	ErrInvalidMove  = errInvalidMove
	ErrGameExists   = errGameExists
	ErrGameNotFound = errGameNotFound
)

type engineState interface {
	GetGame(host, opponent crypto.Address) (*Game, error)
	PutGame(*Game) error
	DeleteGame(host, opponent crypto.Address) error
	ListGamesByHost(host crypto.Address) ([]*Game, error)
}

// Engine runs stone-paper-scissors challenges between two accounts.
type Engine struct {
	state engineState
	emit  func(*types.Event)
}

func NewEngine() *Engine {
	return &Engine{emit: func(*types.Event) {}}
}

func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

func (e *Engine) SetEmitter(fn func(*types.Event)) {
	if e == nil {
		return
	}
	if fn == nil {
		fn = func(*types.Event) {}
	}
	e.emit = fn
}

// StartGame opens a challenge against the opponent with the host's committed
// move. A pair can only have one open game at a time.
func (e *Engine) StartGame(host, opponent crypto.Address, move Move) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !move.Valid() {
		return errInvalidMove
	}
	if host.String() == opponent.String() {
		return errSelfPlay
	}
	existing, err := e.state.GetGame(host, opponent)
	if err != nil {
		return err
	}
	if existing != nil {
		return errGameExists
	}
	if err := e.state.PutGame(&Game{Host: host, Opponent: opponent, HostMove: move}); err != nil {
		return err
	}
	e.emit(startedEvent(host, opponent))
	return nil
}

// OpponentMove answers an open challenge and resolves it. A decisive round
// removes the game; a draw keeps it open with the host's committed move so
// the opponent can answer again.
func (e *Engine) OpponentMove(opponent, host crypto.Address, move Move) (Outcome, error) {
	if e == nil || e.state == nil {
		return OutcomeDraw, errNilState
	}
	if !move.Valid() {
		return OutcomeDraw, errInvalidMove
	}
	game, err := e.state.GetGame(host, opponent)
	if err != nil {
		return OutcomeDraw, err
	}
	if game == nil {
		return OutcomeDraw, errGameNotFound
	}
	outcome := resolve(game.HostMove, move)
	switch outcome {
	case OutcomeDraw:
		e.emit(drawEvent(host, opponent))
	case OutcomeHostWins:
		if err := e.state.DeleteGame(host, opponent); err != nil {
			return outcome, err
		}
		e.emit(resolvedEvent(host, opponent, host))
	case OutcomeOpponentWins:
		if err := e.state.DeleteGame(host, opponent); err != nil {
			return outcome, err
		}
		e.emit(resolvedEvent(host, opponent, opponent))
	}
	return outcome, nil
}

// ListGamesByHost returns every open game the host has started.
func (e *Engine) ListGamesByHost(host crypto.Address) ([]*Game, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.ListGamesByHost(host)
}
