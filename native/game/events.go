package game

import (
	"farmchain/core/types"
	"farmchain/crypto"
)

// Event types emitted by the game engine.
const (
	EventTypeStarted  = "game.started"
	EventTypeResolved = "game.resolved"
	EventTypeDraw     = "game.draw"
)

func startedEvent(host, opponent crypto.Address) *types.Event {
	return types.NewEvent(EventTypeStarted,
		"host", host.String(),
		"opponent", opponent.String(),
	)
}

func resolvedEvent(host, opponent, winner crypto.Address) *types.Event {
	return types.NewEvent(EventTypeResolved,
		"host", host.String(),
		"opponent", opponent.String(),
		"winner", winner.String(),
	)
}

func drawEvent(host, opponent crypto.Address) *types.Event {
	return types.NewEvent(EventTypeDraw,
		"host", host.String(),
		"opponent", opponent.String(),
	)
}
