package amm

import (
	"math/big"

	"farmchain/core/types"
	"farmchain/native/assets"
)

// Event types and the action markers downstream reply handlers scan for.
const (
	EventTypeSwap              = "amm.swap"
	EventTypeProvideLiquidity  = "amm.provide_liquidity"
	EventTypeWithdrawLiquidity = "amm.withdraw_liquidity"

	ActionKey               = "action"
	ActionSwap              = "swap"
	ActionProvideLiquidity  = "provide_liquidity"
	ActionWithdrawLiquidity = "withdraw_liquidity"

	AttrShare = "share"
)

func swapEvent(pair *Pair, offer assets.Asset, ask assets.Info, returnAmount *big.Int) *types.Event {
	return types.NewEvent(EventTypeSwap,
		ActionKey, ActionSwap,
		"pair", pair.ID,
		"offer_asset", offer.Info.ID(),
		"ask_asset", ask.ID(),
		"offer_amount", offer.Amount.String(),
		"return_amount", returnAmount.String(),
	)
}

func provideLiquidityEvent(pair *Pair, amountA, amountB, minted *big.Int) *types.Event {
	return types.NewEvent(EventTypeProvideLiquidity,
		ActionKey, ActionProvideLiquidity,
		"pair", pair.ID,
		"amount_a", amountA.String(),
		"amount_b", amountB.String(),
		AttrShare, minted.String(),
	)
}

func withdrawLiquidityEvent(pair *Pair, burned, amountA, amountB *big.Int) *types.Event {
	return types.NewEvent(EventTypeWithdrawLiquidity,
		ActionKey, ActionWithdrawLiquidity,
		"pair", pair.ID,
		"withdrawn_share", burned.String(),
		"refund_a", amountA.String(),
		"refund_b", amountB.String(),
	)
}
