package farm

import (
	"math/big"
	"strconv"

	"farmchain/core/types"
	"farmchain/crypto"
)

// Event types emitted by the farm orchestrator.
const (
	EventTypeOpenStarted = "farm.open_started"
	EventTypeOpened      = "farm.opened"
	EventTypeClosed      = "farm.closed"
)

func openStartedEvent(workflowID string, positionID uint64, owner crypto.Address, deposit, borrow *big.Int) *types.Event {
	return types.NewEvent(EventTypeOpenStarted,
		"workflow_id", workflowID,
		"position_id", strconv.FormatUint(positionID, 10),
		"owner", owner.String(),
		"deposit", deposit.String(),
		"borrow", borrow.String(),
	)
}

func openedEvent(workflowID string, positionID uint64, owner crypto.Address, minted, share *big.Int) *types.Event {
	return types.NewEvent(EventTypeOpened,
		"workflow_id", workflowID,
		"position_id", strconv.FormatUint(positionID, 10),
		"owner", owner.String(),
		"lp_minted", minted.String(),
		"liquidity_share", share.String(),
	)
}

func closedEvent(positionID uint64, owner crypto.Address, lpAmount, debt, remainder *big.Int) *types.Event {
	return types.NewEvent(EventTypeClosed,
		"position_id", strconv.FormatUint(positionID, 10),
		"owner", owner.String(),
		"lp_amount", lpAmount.String(),
		"debt_repaid", debt.String(),
		"returned", remainder.String(),
	)
}
