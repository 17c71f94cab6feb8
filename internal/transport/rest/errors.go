package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/abgdnv/storesim/internal/checkout"
	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/payment"
	"github.com/abgdnv/storesim/pkg/web"
)

// statusClientClosedRequest is the nginx convention for a request abandoned by the client.
const statusClientClosedRequest = 499

// respondErr maps a domain error to its HTTP status. Unknown errors are logged and answered with 500.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := h.logger
	ctx := r.Context()

	var validationErr *shoperrors.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "Validation errors occurred", "errors", validationErr.Fields)
		web.RespondValidation(w, logger, validationErr.Fields)
		return
	}
	var stockErr *shoperrors.InsufficientStockError
	if errors.As(err, &stockErr) {
		web.RespondJSON(w, logger, http.StatusConflict, map[string]any{"error": err.Error(), "shortfalls": stockErr.Shortfalls})
		return
	}
	var transitionErr *checkout.TransitionError
	if errors.As(err, &transitionErr) {
		web.RespondJSON(w, logger, http.StatusConflict, map[string]any{"error": err.Error(), "state": transitionErr.State})
		return
	}

	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, fallback, "error", err)
		message = fallback
	} else {
		logger.DebugContext(ctx, "Request rejected", "status", status, "error", err)
	}
	web.RespondError(w, logger, status, message)
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, shoperrors.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shoperrors.ErrStockExceeded),
		errors.Is(err, shoperrors.ErrCheckoutInProgress),
		errors.Is(err, shoperrors.ErrUsernameTaken),
		errors.Is(err, shoperrors.ErrEmptyCart):
		return http.StatusConflict, err.Error()
	case errors.Is(err, shoperrors.ErrNoActiveUser), errors.Is(err, shoperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, shoperrors.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, payment.ErrDeclined):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, payment.ErrUnavailable):
		return http.StatusServiceUnavailable, "Payment service is temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The request timed out"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "Request cancelled"
	default:
		return http.StatusInternalServerError, ""
	}
}
