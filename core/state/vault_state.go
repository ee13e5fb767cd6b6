package state

import (
	"math/big"
	"strconv"

	"farmchain/native/assets"
	"farmchain/native/vault"
)

type storedVault struct {
	Asset               assets.Info
	ClaimToken          string
	LastPositionID      uint64
	TotalDebt           *big.Int
	TotalDebtShares     *big.Int
	ReservePool         *big.Int
	ReservePoolBps      uint64
	Whitelist           []storedAddress
	Admin               storedAddress
	LastAccrueTimestamp uint64
}

type storedBorrowPosition struct {
	ID        uint64
	Borrower  storedAddress
	DebtShare *big.Int
}

func vaultKey() []byte { return storageKey("vault", "ledger") }

func borrowPositionKey(id uint64) []byte {
	return storageKey("vault", "position", strconv.FormatUint(id, 10))
}

func (m *Manager) GetVault() (*vault.Vault, error) {
	var row storedVault
	ok, err := m.getRow(vaultKey(), &row)
	if err != nil || !ok {
		return nil, err
	}
	whitelist, err := loadAddresses(row.Whitelist)
	if err != nil {
		return nil, err
	}
	admin, err := loadAddress(row.Admin)
	if err != nil {
		return nil, err
	}
	return &vault.Vault{
		Asset:                row.Asset,
		ClaimToken:           row.ClaimToken,
		LastPositionID:       row.LastPositionID,
		TotalDebt:            row.TotalDebt,
		TotalDebtShares:      row.TotalDebtShares,
		ReservePool:          row.ReservePool,
		ReservePoolBps:       row.ReservePoolBps,
		WhitelistedBorrowers: whitelist,
		Admin:                admin,
		LastAccrueTimestamp:  int64(row.LastAccrueTimestamp),
	}, nil
}

func (m *Manager) PutVault(v *vault.Vault) error {
	return m.putRow(vaultKey(), &storedVault{
		Asset:               v.Asset,
		ClaimToken:          v.ClaimToken,
		LastPositionID:      v.LastPositionID,
		TotalDebt:           nonNil(v.TotalDebt),
		TotalDebtShares:     nonNil(v.TotalDebtShares),
		ReservePool:         nonNil(v.ReservePool),
		ReservePoolBps:      v.ReservePoolBps,
		Whitelist:           storeAddresses(v.WhitelistedBorrowers),
		Admin:               storeAddress(v.Admin),
		LastAccrueTimestamp: uint64(v.LastAccrueTimestamp),
	})
}

func (m *Manager) GetBorrowPosition(id uint64) (*vault.BorrowPosition, error) {
	var row storedBorrowPosition
	ok, err := m.getRow(borrowPositionKey(id), &row)
	if err != nil || !ok {
		return nil, err
	}
	borrower, err := loadAddress(row.Borrower)
	if err != nil {
		return nil, err
	}
	return &vault.BorrowPosition{ID: row.ID, Borrower: borrower, DebtShare: row.DebtShare}, nil
}

func (m *Manager) PutBorrowPosition(p *vault.BorrowPosition) error {
	return m.putRow(borrowPositionKey(p.ID), &storedBorrowPosition{
		ID:        p.ID,
		Borrower:  storeAddress(p.Borrower),
		DebtShare: nonNil(p.DebtShare),
	})
}

func (m *Manager) DeleteBorrowPosition(id uint64) error {
	return m.db.Delete(borrowPositionKey(id))
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
