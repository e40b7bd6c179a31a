package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/observability"
	"go.uber.org/zap"
)

const internalErrorMessage = "failed to process order request"

type errorResponse struct {
	Error     domain.ErrorKind `json:"error"`
	Message   string           `json:"message"`
	RequestID string           `json:"request_id,omitempty"`
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindEmptyOrder:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict,
		domain.KindInvalidTransition,
		domain.KindOrderNotCancellable,
		domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindItemNotFound,
		domain.KindInsufficientStock,
		domain.KindRefundExceedsTotal:
		return http.StatusUnprocessableEntity
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the JSON error envelope. Server side failures
// are logged and their details kept out of the response.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	status := statusForKind(kind)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		observability.FromContext(ctx, nil).Error("request failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
		message = internalErrorMessage
	}

	writeJSON(w, status, errorResponse{
		Error:     kind,
		Message:   message,
		RequestID: middleware.GetReqID(ctx),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
