package state

import (
	"farmchain/native/amm"
	"farmchain/native/assets"
)

type storedPair struct {
	ID      string
	AssetA  assets.Info
	AssetB  assets.Info
	LPToken string
	Address storedAddress
}

func pairKey(id string) []byte { return storageKey("amm", "pair", id) }

func (m *Manager) GetPair(id string) (*amm.Pair, error) {
	var row storedPair
	ok, err := m.getRow(pairKey(id), &row)
	if err != nil || !ok {
		return nil, err
	}
	addr, err := loadAddress(row.Address)
	if err != nil {
		return nil, err
	}
	return &amm.Pair{
		ID:      row.ID,
		AssetA:  row.AssetA,
		AssetB:  row.AssetB,
		LPToken: row.LPToken,
		Address: addr,
	}, nil
}

func (m *Manager) PutPair(p *amm.Pair) error {
	return m.putRow(pairKey(p.ID), &storedPair{
		ID:      p.ID,
		AssetA:  p.AssetA,
		AssetB:  p.AssetB,
		LPToken: p.LPToken,
		Address: storeAddress(p.Address),
	})
}
