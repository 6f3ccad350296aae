package report

type WarningReason string

const (
	WarnMissingMenu          WarningReason = "missing_menu"
	WarnMissingMenuName      WarningReason = "missing_menu_name"
	WarnMissingCategory      WarningReason = "missing_category"
	WarnInvalidQuantity      WarningReason = "invalid_quantity"
	WarnMissingTotal         WarningReason = "missing_total_price"
	WarnUnknownPaymentMethod WarningReason = "unknown_payment_method"
)

// Warning is a malformed record that was left out of one aggregate. It never
// aborts the run. ItemIndex is -1 for order-level problems.
type Warning struct {
	OrderID   string        `json:"orderId"`
	ItemIndex int           `json:"itemIndex"`
	Reason    WarningReason `json:"reason"`
}

func newWarning(orderID string, itemIndex int, reason WarningReason) Warning {
	return Warning{OrderID: orderID, ItemIndex: itemIndex, Reason: reason}
}
