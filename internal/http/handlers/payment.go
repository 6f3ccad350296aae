package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"genfity-order-reports/internal/report"
	"genfity-order-reports/pkg/response"

	"go.uber.org/zap"
)

type paymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (h *Handler) OrderPaymentMethodUpdate(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := partnerFromContext(w, r)
	if !ok {
		return
	}

	orderID := readPathString(r, "orderId")
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order ID is required")
		return
	}

	var body paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	method := report.PaymentMethod(strings.TrimSpace(body.PaymentMethod))
	order, err := h.Reports.AssignPaymentMethod(r.Context(), authCtx.PartnerID, orderID, method)
	if err != nil {
		h.writeReportError(w, r, "payment method update", err)
		return
	}

	h.Logger.Info("order payment method set",
		zap.String("partnerId", authCtx.PartnerID),
		zap.String("orderId", order.ID),
		zap.String("paymentMethod", string(order.PaymentMethod)),
		zap.String("userId", authCtx.UserID),
	)
	response.Success(w, map[string]any{
		"orderId":       order.ID,
		"displayId":     order.DisplayID,
		"paymentMethod": order.PaymentMethod,
		"label":         order.PaymentMethod.Label(),
	})
}
