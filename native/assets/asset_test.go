package assets

import (
	"errors"
	"math/big"
	"testing"

	"farmchain/crypto"
)

func TestInfoIdentity(t *testing.T) {
	uusd := NativeAsset(" uusd ")
	if uusd.Denom != "uusd" || uusd.ID() != "uusd" {
		t.Fatalf("native info = %+v", uusd)
	}
	lp := TokenAsset(" uulp ")
	if lp.Symbol != "UULP" || lp.ID() != "UULP" {
		t.Fatalf("token info = %+v", lp)
	}
	if uusd.Equal(lp) {
		t.Fatalf("native and token compared equal")
	}
	if !uusd.Equal(NativeAsset("uusd")) {
		t.Fatalf("same denom compared unequal")
	}
	if uusd.Equal(TokenAsset("uusd")) {
		t.Fatalf("kind ignored in comparison")
	}
	if err := (Info{}).Validate(); !errors.Is(err, errEmptyIdentifier) {
		t.Fatalf("empty info: got %v, want errEmptyIdentifier", err)
	}
	if got := lp.String(); got != "token:UULP" {
		t.Fatalf("String() = %q", got)
	}
}

func TestNewAssetClonesAmount(t *testing.T) {
	amount := big.NewInt(100)
	a := NewAsset(NativeAsset("uusd"), amount)
	amount.SetInt64(999)
	if a.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("asset amount tracked caller mutation: %s", a.Amount)
	}
	b := NewAsset(NativeAsset("uusd"), nil)
	if b.Amount == nil || b.Amount.Sign() != 0 {
		t.Fatalf("nil amount not normalized: %v", b.Amount)
	}
}

type recordingBank struct {
	sends int
}

func (b *recordingBank) Send(denom string, from, to crypto.Address, amount *big.Int) error {
	b.sends++
	return nil
}

func (b *recordingBank) Balance(denom string, addr crypto.Address) (*big.Int, error) {
	return big.NewInt(7), nil
}

type recordingTokens struct {
	transfers int
}

func (l *recordingTokens) Transfer(symbol string, sender, recipient crypto.Address, amount *big.Int) error {
	l.transfers++
	return nil
}

func (l *recordingTokens) BalanceOf(symbol string, holder crypto.Address) (*big.Int, error) {
	return big.NewInt(11), nil
}

func TestMoverDispatchesByKind(t *testing.T) {
	bank := &recordingBank{}
	tokens := &recordingTokens{}
	mover := Mover{Bank: bank, Tokens: tokens}

	raw := make([]byte, 20)
	addr, err := crypto.NewAddress(crypto.AccountPrefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}

	if err := mover.Transfer(NativeAsset("uusd"), addr, addr, big.NewInt(1)); err != nil {
		t.Fatalf("native transfer: %v", err)
	}
	if err := mover.Transfer(TokenAsset("UULP"), addr, addr, big.NewInt(1)); err != nil {
		t.Fatalf("token transfer: %v", err)
	}
	if bank.sends != 1 || tokens.transfers != 1 {
		t.Fatalf("dispatch counts = %d/%d", bank.sends, tokens.transfers)
	}

	balance, err := mover.Balance(TokenAsset("UULP"), addr)
	if err != nil || balance.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("token balance = %v, %v", balance, err)
	}
	if _, err := mover.Balance(Info{Kind: Kind(9), Denom: "x"}, addr); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}
