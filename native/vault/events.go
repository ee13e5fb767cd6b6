package vault

import (
	"math/big"
	"strconv"

	"farmchain/core/types"
	"farmchain/crypto"
)

// Event types emitted by the vault ledger.
const (
	EventTypeDeposit   = "vault.deposit"
	EventTypeWithdraw  = "vault.withdraw"
	EventTypeBorrow    = "vault.borrow"
	EventTypeRepay     = "vault.repay"
	EventTypeWhitelist = "vault.whitelist_add"
)

func depositEvent(depositor crypto.Address, amount, shares *big.Int) *types.Event {
	return types.NewEvent(EventTypeDeposit,
		"depositor", depositor.String(),
		"amount", amount.String(),
		"shares", shares.String(),
	)
}

func withdrawEvent(withdrawer crypto.Address, shares, amount *big.Int) *types.Event {
	return types.NewEvent(EventTypeWithdraw,
		"withdrawer", withdrawer.String(),
		"shares", shares.String(),
		"amount", amount.String(),
	)
}

func borrowEvent(positionID uint64, borrower crypto.Address, amount, debtShare *big.Int) *types.Event {
	return types.NewEvent(EventTypeBorrow,
		"position_id", strconv.FormatUint(positionID, 10),
		"borrower", borrower.String(),
		"amount", amount.String(),
		"debt_share", debtShare.String(),
	)
}

func repayEvent(positionID uint64, payer crypto.Address, paid, refunded *big.Int, closed bool) *types.Event {
	return types.NewEvent(EventTypeRepay,
		"position_id", strconv.FormatUint(positionID, 10),
		"payer", payer.String(),
		"paid", paid.String(),
		"refunded", refunded.String(),
		"closed", strconv.FormatBool(closed),
	)
}

func whitelistEvent(admin, borrower crypto.Address) *types.Event {
	return types.NewEvent(EventTypeWhitelist,
		"admin", admin.String(),
		"borrower", borrower.String(),
	)
}
