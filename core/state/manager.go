// Package state persists engine records as RLP rows under keccak-hashed,
// prefixed keys. One Manager serves every engine's narrow state interface;
// engines built over a transaction overlay observe and mutate the same rows
// atomically.
package state

import (
	"errors"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"farmchain/crypto"
	"farmchain/storage"
)

// Manager binds the row codecs to a database. Construct one per transaction
// scope: over the raw database for queries, over the host overlay inside
// transactions.
type Manager struct {
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func storageKey(parts ...string) []byte {
	return ethcrypto.Keccak256([]byte(strings.Join(parts, "/")))
}

// getRow decodes the row at key into out. Reports false with no error when
// the row does not exist.
func (m *Manager) getRow(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) putRow(key []byte, row interface{}) error {
	raw, err := rlp.EncodeToBytes(row)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

// storedAddress is the RLP shape of a bech32 address.
type storedAddress struct {
	Prefix string
	Raw    []byte
}

func storeAddress(addr crypto.Address) storedAddress {
	return storedAddress{Prefix: string(addr.Prefix()), Raw: addr.Bytes()}
}

func loadAddress(row storedAddress) (crypto.Address, error) {
	if len(row.Raw) == 0 {
		return crypto.Address{}, nil
	}
	return crypto.NewAddress(crypto.AddressPrefix(row.Prefix), row.Raw)
}

func storeAddresses(addrs []crypto.Address) []storedAddress {
	rows := make([]storedAddress, len(addrs))
	for i, addr := range addrs {
		rows[i] = storeAddress(addr)
	}
	return rows
}

func loadAddresses(rows []storedAddress) ([]crypto.Address, error) {
	addrs := make([]crypto.Address, len(rows))
	for i, row := range rows {
		addr, err := loadAddress(row)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	return addrs, nil
}
