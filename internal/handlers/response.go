package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"vr-theatre-marketplace/internal/models"
)

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	OrderGroupID string `json:"order_group_id,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorStatus maps a service error to its status, code and client message.
// Validation and inventory messages are safe to echo; everything else is generic.
func errorStatus(err error) (int, string, string) {
	var validation *models.ValidationError
	var inventory *models.InsufficientInventoryError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_error", validation.Error()
	case errors.Is(err, models.ErrInvalidTier):
		return http.StatusBadRequest, "invalid_tier", err.Error()
	case errors.Is(err, models.ErrMissingBuyerEmail):
		return http.StatusBadRequest, "missing_buyer_email", "A buyer email is required."
	case errors.Is(err, models.ErrSignatureVerification):
		return http.StatusBadRequest, "invalid_signature", "Invalid webhook request."
	case errors.As(err, &inventory):
		return http.StatusConflict, "insufficient_inventory", inventory.Error()
	case errors.Is(err, models.ErrInsufficientInventory):
		return http.StatusConflict, "insufficient_inventory", err.Error()
	case errors.Is(err, models.ErrAlreadyUsed):
		return http.StatusConflict, "already_used", "This ticket has already been used."
	case errors.Is(err, models.ErrContentMismatch):
		return http.StatusConflict, "content_mismatch", "This ticket is not valid for this performance."
	case errors.Is(err, models.ErrAlreadyFulfilled):
		return http.StatusConflict, "already_paid", "This order has already been paid."
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, models.ErrPaymentGatewayUnavailable):
		return http.StatusServiceUnavailable, "payment_unavailable", "The payment provider is unavailable. Please retry."
	case errors.Is(err, models.ErrNotSupported):
		return http.StatusNotImplemented, "payment_method_not_supported", "This payment method is not supported."
	case errors.Is(err, models.ErrFulfillmentFailed):
		return http.StatusInternalServerError, "fulfillment_failed", "Your order could not be completed."
	default:
		return http.StatusInternalServerError, "internal_error", "An unexpected error occurred."
	}
}

// respondError logs err and writes the mapped error body. Ids of unpaid
// orders travel with payment failures so the client can retry.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code, message := errorStatus(err)

	body := errorResponse{Error: code, Message: message}
	var payment *models.PaymentError
	if errors.As(err, &payment) {
		body.OrderGroupID = payment.OrderGroupID
		body.OrderID = payment.OrderID
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, body)
}
