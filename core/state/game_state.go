package state

import (
	"farmchain/crypto"
	"farmchain/native/game"
)

type storedGame struct {
	Host     storedAddress
	Opponent storedAddress
	HostMove uint8
}

// storedGameIndex lists the opponents a host has open games against, in
// start order. It backs the by-host listing without a range scan over the
// hashed key space.
type storedGameIndex struct {
	Opponents []storedAddress
}

func gameKey(host, opponent crypto.Address) []byte {
	return storageKey("game", "record", host.String(), opponent.String())
}

func gameIndexKey(host crypto.Address) []byte {
	return storageKey("game", "index", host.String())
}

func (m *Manager) GetGame(host, opponent crypto.Address) (*game.Game, error) {
	var row storedGame
	ok, err := m.getRow(gameKey(host, opponent), &row)
	if err != nil || !ok {
		return nil, err
	}
	return gameFromRow(row)
}

func (m *Manager) PutGame(g *game.Game) error {
	if err := m.putRow(gameKey(g.Host, g.Opponent), &storedGame{
		Host:     storeAddress(g.Host),
		Opponent: storeAddress(g.Opponent),
		HostMove: uint8(g.HostMove),
	}); err != nil {
		return err
	}
	index, err := m.gameIndex(g.Host)
	if err != nil {
		return err
	}
	for _, row := range index.Opponents {
		existing, err := loadAddress(row)
		if err != nil {
			return err
		}
		if existing.String() == g.Opponent.String() {
			return nil
		}
	}
	index.Opponents = append(index.Opponents, storeAddress(g.Opponent))
	return m.putRow(gameIndexKey(g.Host), index)
}

func (m *Manager) DeleteGame(host, opponent crypto.Address) error {
	if err := m.db.Delete(gameKey(host, opponent)); err != nil {
		return err
	}
	index, err := m.gameIndex(host)
	if err != nil {
		return err
	}
	kept := index.Opponents[:0]
	for _, row := range index.Opponents {
		existing, err := loadAddress(row)
		if err != nil {
			return err
		}
		if existing.String() != opponent.String() {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return m.db.Delete(gameIndexKey(host))
	}
	index.Opponents = kept
	return m.putRow(gameIndexKey(host), index)
}

func (m *Manager) ListGamesByHost(host crypto.Address) ([]*game.Game, error) {
	index, err := m.gameIndex(host)
	if err != nil {
		return nil, err
	}
	games := make([]*game.Game, 0, len(index.Opponents))
	for _, row := range index.Opponents {
		opponent, err := loadAddress(row)
		if err != nil {
			return nil, err
		}
		g, err := m.GetGame(host, opponent)
		if err != nil {
			return nil, err
		}
		if g != nil {
			games = append(games, g)
		}
	}
	return games, nil
}

func (m *Manager) gameIndex(host crypto.Address) (*storedGameIndex, error) {
	index := &storedGameIndex{}
	if _, err := m.getRow(gameIndexKey(host), index); err != nil {
		return nil, err
	}
	return index, nil
}

func gameFromRow(row storedGame) (*game.Game, error) {
	host, err := loadAddress(row.Host)
	if err != nil {
		return nil, err
	}
	opponent, err := loadAddress(row.Opponent)
	if err != nil {
		return nil, err
	}
	return &game.Game{Host: host, Opponent: opponent, HostMove: game.Move(row.HostMove)}, nil
}
