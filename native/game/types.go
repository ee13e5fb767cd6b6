package game

import "farmchain/crypto"

// Move is one of the three playable hands.
type Move uint8

const (
	MoveStone Move = iota
	MovePaper
	MoveScissors
)

func (m Move) Valid() bool {
	return m <= MoveScissors
}

// ParseMove reads the wire form of a move.
func ParseMove(s string) (Move, error) {
	switch s {
	case "stone":
		return MoveStone, nil
	case "paper":
		return MovePaper, nil
	case "scissors":
		return MoveScissors, nil
	default:
		return 0, errInvalidMove
	}
}

func (m Move) String() string {
	switch m {
	case MoveStone:
		return "stone"
	case MovePaper:
		return "paper"
	case MoveScissors:
		return "scissors"
	default:
		return "unknown"
	}
}

// Game is an open challenge: the host has committed a move and waits for the
// named opponent to answer. At most one game exists per (host, opponent)
// pair.
type Game struct {
	Host     crypto.Address
	Opponent crypto.Address
	HostMove Move
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}

// Outcome of a resolved round.
type Outcome uint8

const (
	OutcomeDraw Outcome = iota
	OutcomeHostWins
	OutcomeOpponentWins
)

// resolve scores the host's committed move against the opponent's answer.
func resolve(host, opponent Move) Outcome {
	if host == opponent {
		return OutcomeDraw
	}
	// Each move beats the one before it in the stone < paper < scissors
	// cycle, and stone beats scissors.
	if (host+1)%3 == opponent {
		return OutcomeOpponentWins
	}
	return OutcomeHostWins
}
