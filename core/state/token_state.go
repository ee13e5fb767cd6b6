package state

import (
	"math/big"

	"farmchain/crypto"
	"farmchain/native/token"
)

type storedTokenMeta struct {
	Symbol   string
	Name     string
	Decimals uint8
	Minter   storedAddress
}

func tokenMetaKey(symbol string) []byte { return storageKey("token", "meta", symbol) }

func tokenBalanceKey(symbol string, addr crypto.Address) []byte {
	return storageKey("token", "balance", symbol, addr.String())
}

func tokenAllowanceKey(symbol string, owner, spender crypto.Address) []byte {
	return storageKey("token", "allowance", symbol, owner.String(), spender.String())
}

func tokenSupplyKey(symbol string) []byte { return storageKey("token", "supply", symbol) }

func (m *Manager) GetTokenMeta(symbol string) (*token.Metadata, error) {
	var row storedTokenMeta
	ok, err := m.getRow(tokenMetaKey(symbol), &row)
	if err != nil || !ok {
		return nil, err
	}
	minter, err := loadAddress(row.Minter)
	if err != nil {
		return nil, err
	}
	return &token.Metadata{Symbol: row.Symbol, Name: row.Name, Decimals: row.Decimals, Minter: minter}, nil
}

func (m *Manager) PutTokenMeta(symbol string, meta *token.Metadata) error {
	return m.putRow(tokenMetaKey(symbol), &storedTokenMeta{
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
		Minter:   storeAddress(meta.Minter),
	})
}

func (m *Manager) GetTokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	return m.getAmount(tokenBalanceKey(symbol, addr))
}

func (m *Manager) PutTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error {
	return m.putRow(tokenBalanceKey(symbol, addr), nonNil(amount))
}

func (m *Manager) GetTokenAllowance(symbol string, owner, spender crypto.Address) (*big.Int, error) {
	return m.getAmount(tokenAllowanceKey(symbol, owner, spender))
}

func (m *Manager) PutTokenAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	return m.putRow(tokenAllowanceKey(symbol, owner, spender), nonNil(amount))
}

func (m *Manager) GetTokenSupply(symbol string) (*big.Int, error) {
	return m.getAmount(tokenSupplyKey(symbol))
}

func (m *Manager) PutTokenSupply(symbol string, amount *big.Int) error {
	return m.putRow(tokenSupplyKey(symbol), nonNil(amount))
}

// getAmount reads a bare big.Int row, zero when absent.
func (m *Manager) getAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.getRow(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}
