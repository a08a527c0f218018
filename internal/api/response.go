package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

const (
	errNotAuthenticated   = "Not authenticated"
	errFetchTransactions  = "Failed to fetch transactions"
	errCreateTransaction  = "Failed to create transaction"
	errInvalidRequestBody = "Invalid request body"
	errInternal           = "Internal server error"
	errBodyTooLarge       = "Request body too large"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeBody reads a size-limited JSON body into v. On failure the error response is already
// written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}

	return true
}
