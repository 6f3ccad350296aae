package report

// AssignPaymentMethod applies the only modeled transition, unset to
// cash/upi/card, and returns the updated order. Aggregates are not patched;
// callers re-run Aggregate on the fresh order set.
func AssignPaymentMethod(order Order, method PaymentMethod) (Order, error) {
	target, ok := ParsePaymentMethod(string(method))
	if !ok || target == PaymentUnset {
		return order, ValidationError(ErrInvalidPaymentMethod, "Payment method must be one of cash, upi or card", map[string]any{
			"paymentMethod": string(method),
		})
	}

	current, _ := ParsePaymentMethod(string(order.PaymentMethod))
	if current != PaymentUnset {
		return order, ConflictError(ErrPaymentMethodAlreadySet, "Payment method is already set for this order", map[string]any{
			"orderId":       order.ID,
			"paymentMethod": string(current),
		})
	}

	order.PaymentMethod = target
	return order, nil
}
