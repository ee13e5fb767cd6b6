package escrow

import (
	"strconv"

	"farmchain/core/types"
)

const (
	EventTypeCreated = "escrow.request_created"
	EventTypePaid    = "escrow.request_paid"
	EventTypeSettled = "escrow.request_settled"
)

func createdEvent(r *PaymentRequest) *types.Event {
	return types.NewEvent(EventTypeCreated,
		"id", strconv.FormatUint(r.ID, 10),
		"merchant", r.Merchant.String(),
		"asset", r.Asset.ID(),
		"amount", r.Amount.String(),
		"order_id", r.OrderID,
	)
}

func paidEvent(r *PaymentRequest) *types.Event {
	return types.NewEvent(EventTypePaid,
		"id", strconv.FormatUint(r.ID, 10),
		"customer", r.Customer.String(),
		"amount", r.Amount.String(),
	)
}

func settledEvent(r *PaymentRequest) *types.Event {
	return types.NewEvent(EventTypeSettled,
		"id", strconv.FormatUint(r.ID, 10),
		"merchant", r.Merchant.String(),
		"amount", r.Amount.String(),
	)
}
