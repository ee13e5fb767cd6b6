package state

import (
	"math/big"

	"farmchain/crypto"
)

func bankBalanceKey(denom string, addr crypto.Address) []byte {
	return storageKey("bank", "balance", denom, addr.String())
}

func bankSupplyKey(denom string) []byte { return storageKey("bank", "supply", denom) }

func (m *Manager) GetBankBalance(denom string, addr crypto.Address) (*big.Int, error) {
	return m.getAmount(bankBalanceKey(denom, addr))
}

func (m *Manager) PutBankBalance(denom string, addr crypto.Address, amount *big.Int) error {
	return m.putRow(bankBalanceKey(denom, addr), nonNil(amount))
}

func (m *Manager) GetBankSupply(denom string) (*big.Int, error) {
	return m.getAmount(bankSupplyKey(denom))
}

func (m *Manager) PutBankSupply(denom string, amount *big.Int) error {
	return m.putRow(bankSupplyKey(denom), nonNil(amount))
}
