// Package assets defines the closed asset union shared by the vault, farm and
// AMM engines. An asset is either a native denomination moved through bank
// transfers or a contract token moved through the token engine; every
// consumer resolves the two cases with a switch on Kind.
package assets

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Kind discriminates the two asset variants.
type Kind uint8

const (
	// Native is a bank denomination such as "uusd".
	Native Kind = iota
	// Token is a fungible token managed by the token engine, identified by
	// its registered symbol.
	Token
)

var errEmptyIdentifier = errors.New("assets: empty identifier")

// Info identifies an asset without an amount attached.
type Info struct {
	Kind Kind
	// Denom holds the bank denomination when Kind == Native.
	Denom string
	// Symbol holds the token symbol when Kind == Token.
	Symbol string
}

// NativeAsset builds the native variant.
func NativeAsset(denom string) Info {
	return Info{Kind: Native, Denom: strings.TrimSpace(denom)}
}

// TokenAsset builds the token variant.
func TokenAsset(symbol string) Info {
	return Info{Kind: Token, Symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

// ID returns the canonical identifier for the asset: the denom for native
// assets, the symbol for tokens. Event attributes and storage keys use this.
func (i Info) ID() string {
	if i.Kind == Native {
		return i.Denom
	}
	return i.Symbol
}

// Equal reports whether two infos identify the same asset.
func (i Info) Equal(other Info) bool {
	return i.Kind == other.Kind && i.ID() == other.ID()
}

// Validate checks the variant carries its identifier.
func (i Info) Validate() error {
	if i.ID() == "" {
		return errEmptyIdentifier
	}
	return nil
}

func (i Info) String() string {
	switch i.Kind {
	case Native:
		return fmt.Sprintf("native:%s", i.Denom)
	default:
		return fmt.Sprintf("token:%s", i.Symbol)
	}
}

// Asset pairs an Info with an amount.
type Asset struct {
	Info   Info
	Amount *big.Int
}

// NewAsset clones the amount so the caller keeps ownership of its value.
func NewAsset(info Info, amount *big.Int) Asset {
	cloned := big.NewInt(0)
	if amount != nil {
		cloned = new(big.Int).Set(amount)
	}
	return Asset{Info: info, Amount: cloned}
}
