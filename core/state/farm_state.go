package state

import (
	"math/big"
	"strconv"

	"farmchain/native/assets"
	"farmchain/native/farm"
)

type storedFarm struct {
	BaseAsset            assets.Info
	OtherAsset           assets.Info
	LPToken              string
	TotalLiquidityShares *big.Int
}

type storedFarmPosition struct {
	ID             uint64
	Owner          storedAddress
	LiquidityShare *big.Int
}

type storedWorkflow struct {
	ID              string
	PositionID      uint64
	Owner           storedAddress
	DepositAmount   *big.Int
	BorrowAmount    *big.Int
	LPBalanceBefore *big.Int
}

func farmKey() []byte { return storageKey("farm", "record") }

func farmPositionKey(id uint64) []byte {
	return storageKey("farm", "position", strconv.FormatUint(id, 10))
}

func workflowKey(id string) []byte { return storageKey("farm", "workflow", id) }

func (m *Manager) GetFarm() (*farm.Farm, error) {
	var row storedFarm
	ok, err := m.getRow(farmKey(), &row)
	if err != nil || !ok {
		return nil, err
	}
	return &farm.Farm{
		BaseAsset:            row.BaseAsset,
		OtherAsset:           row.OtherAsset,
		LPToken:              row.LPToken,
		TotalLiquidityShares: row.TotalLiquidityShares,
	}, nil
}

func (m *Manager) PutFarm(f *farm.Farm) error {
	return m.putRow(farmKey(), &storedFarm{
		BaseAsset:            f.BaseAsset,
		OtherAsset:           f.OtherAsset,
		LPToken:              f.LPToken,
		TotalLiquidityShares: nonNil(f.TotalLiquidityShares),
	})
}

func (m *Manager) GetPosition(id uint64) (*farm.Position, error) {
	var row storedFarmPosition
	ok, err := m.getRow(farmPositionKey(id), &row)
	if err != nil || !ok {
		return nil, err
	}
	owner, err := loadAddress(row.Owner)
	if err != nil {
		return nil, err
	}
	return &farm.Position{ID: row.ID, Owner: owner, LiquidityShare: row.LiquidityShare}, nil
}

func (m *Manager) PutPosition(p *farm.Position) error {
	return m.putRow(farmPositionKey(p.ID), &storedFarmPosition{
		ID:             p.ID,
		Owner:          storeAddress(p.Owner),
		LiquidityShare: nonNil(p.LiquidityShare),
	})
}

func (m *Manager) DeletePosition(id uint64) error {
	return m.db.Delete(farmPositionKey(id))
}

func (m *Manager) GetWorkflow(id string) (*farm.Workflow, error) {
	var row storedWorkflow
	ok, err := m.getRow(workflowKey(id), &row)
	if err != nil || !ok {
		return nil, err
	}
	owner, err := loadAddress(row.Owner)
	if err != nil {
		return nil, err
	}
	return &farm.Workflow{
		ID:              row.ID,
		PositionID:      row.PositionID,
		Owner:           owner,
		DepositAmount:   row.DepositAmount,
		BorrowAmount:    row.BorrowAmount,
		LPBalanceBefore: row.LPBalanceBefore,
	}, nil
}

func (m *Manager) PutWorkflow(w *farm.Workflow) error {
	return m.putRow(workflowKey(w.ID), &storedWorkflow{
		ID:              w.ID,
		PositionID:      w.PositionID,
		Owner:           storeAddress(w.Owner),
		DepositAmount:   nonNil(w.DepositAmount),
		BorrowAmount:    nonNil(w.BorrowAmount),
		LPBalanceBefore: nonNil(w.LPBalanceBefore),
	})
}

func (m *Manager) DeleteWorkflow(id string) error {
	return m.db.Delete(workflowKey(id))
}
