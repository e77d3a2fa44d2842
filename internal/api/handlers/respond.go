package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/questlines/engine/internal/api/middleware"
	"github.com/questlines/engine/internal/api/types"
	appErr "github.com/questlines/engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// writeError picks the status from the error code.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(appErr.CodeOf(err)), types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeInvalid), Message: msg}})
}

func statusFor(code appErr.Code) int {
	switch code {
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
