package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string, details any) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleServiceError maps an error kind to a status code. Server-side
// failures are logged and answered with a generic message.
func handleServiceError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)

	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "a backing service is unavailable"
	case http.StatusGatewayTimeout:
		msg = "request timed out"
	case http.StatusInternalServerError:
		msg = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.failed", err)
	}

	respondError(w, status, code, msg, errorDetails(err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDependency):
		return http.StatusServiceUnavailable, "dependency_failure"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorDetails(err error) any {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.details
	}

	var purgeErr *service.PurgeError
	if errors.As(err, &purgeErr) {
		failed := make(map[string]string, len(purgeErr.Failed))
		for id, cause := range purgeErr.Failed {
			failed[id] = cause.Error()
		}
		return map[string]any{
			"product_id": purgeErr.ProductID,
			"updated":    nonNil(purgeErr.Updated),
			"failed":     failed,
			"pending":    nonNil(purgeErr.Pending),
		}
	}

	var listErr *service.PurgeListError
	if errors.As(err, &listErr) {
		return map[string]any{
			"product_id":    listErr.Report.ProductID,
			"applied":       true,
			"updated":       nonNil(listErr.Report.Updated),
			"removed_items": listErr.Report.RemovedItems,
		}
	}

	var checkoutErr *service.CheckoutError
	if errors.As(err, &checkoutErr) {
		return map[string]any{"order_id": checkoutErr.Order.ID}
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
