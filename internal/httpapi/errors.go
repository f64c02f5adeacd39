package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"verisyntra.org/internal/auth"
	"verisyntra.org/internal/classify"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/registry"
	"verisyntra.org/internal/ropa"
	"verisyntra.org/internal/scan"
	"verisyntra.org/internal/scanjob"
	"verisyntra.org/internal/store"
)

// errorBody is the envelope every error response uses. Vietnamese is always
// present; message carries the English detail.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	MessageVi string `json:"message_vi"`
	Details   any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, tag, message, messageVi string) {
	writeJSON(w, code, errorBody{Error: tag, Message: message, MessageVi: messageVi})
}

// fail maps a domain error to its HTTP kind. Unknown errors are logged and
// surfaced as a generic internal error, never with internals attached.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidInput),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, classify.ErrInvalidModelType),
		errors.Is(err, scan.ErrUnknownScanner),
		errors.Is(err, scan.ErrInvalidConfig),
		errors.Is(err, ropa.ErrUnknownFormat):
		writeError(w, http.StatusBadRequest, "invalid_input",
			err.Error(), "Dữ liệu đầu vào không hợp lệ")
	case errors.Is(err, auth.ErrBadCredential),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongType),
		errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, "unauthorized",
			"authentication required", "Yêu cầu xác thực")
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, scanjob.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found",
			err.Error(), "Không tìm thấy tài nguyên")
	case errors.Is(err, registry.ErrConflict):
		writeError(w, http.StatusConflict, "conflict",
			err.Error(), "Dữ liệu đã tồn tại")
	case errors.Is(err, scanjob.ErrBadState):
		writeError(w, http.StatusConflict, "conflict",
			err.Error(), "Trạng thái không cho phép thao tác này")
	case errors.Is(err, registry.ErrUnavailable),
		errors.Is(err, classify.ErrUnavailable),
		errors.Is(err, ropa.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable",
			err.Error(), "Dịch vụ tạm thời không khả dụng")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout",
			"request timed out", "Hết thời gian xử lý")
	default:
		obs.Error("unhandled error", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal",
			"internal error", "Lỗi hệ thống")
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid_input",
		message, "Dữ liệu đầu vào không hợp lệ")
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "unauthorized",
		message, "Yêu cầu xác thực")
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden",
		"permission denied", "Không có quyền thực hiện thao tác này")
}
