package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 encoded address.
type AddressPrefix string

const (
	// AccountPrefix marks externally owned accounts.
	AccountPrefix AddressPrefix = "lyf"
	// ContractPrefix marks contract and module treasury accounts.
	ContractPrefix AddressPrefix = "lyfc"
)

// Address is a 20-byte account identifier carrying its prefix.
type Address struct {
	prefix AddressPrefix
	raw    []byte
}

// NewAddress wraps a 20-byte payload with the given prefix. The payload is
// cloned so callers cannot mutate the address after construction.
func NewAddress(prefix AddressPrefix, raw []byte) (Address, error) {
	if len(raw) != 20 {
		return Address{}, fmt.Errorf("address payload must be 20 bytes, got %d", len(raw))
	}
	return Address{prefix: prefix, raw: append([]byte(nil), raw...)}, nil
}

// String renders the bech32 form of the address.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.raw, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw 20-byte payload.
func (a Address) Bytes() []byte { return a.raw }

// Prefix returns the human-readable prefix.
func (a Address) Prefix() AddressPrefix { return a.prefix }

// IsZero reports whether the address carries no payload.
func (a Address) IsZero() bool { return len(a.raw) == 0 }

// Equal compares payload bytes; prefix differences are cosmetic for identity
// purposes since the payload is globally unique.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.raw, other.raw)
}

// DecodeAddress parses a bech32 string into an Address.
func DecodeAddress(encoded string) (Address, error) {
	prefix, decoded, err := bech32.Decode(encoded)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// --- Key management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	// The payload comes straight from an eth address, always 20 bytes.
	addr, err := NewAddress(AccountPrefix, crypto.PubkeyToAddress(*k.PublicKey).Bytes())
	if err != nil {
		panic(err)
	}
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
