package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apetrov/assetgate/internal/common"
)

// Envelope is the standard API response shape: {success, data | message}.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

// writeServiceError translates the sentinel error taxonomy into HTTP
// statuses. Unknown errors are masked as a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorInvalidKey),
		errors.Is(err, common.ErrorTTLOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrorCredentialExpired),
		errors.Is(err, common.ErrorUploadRejected):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, common.ErrorStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, common.ErrorStorageUnavailable.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
