package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

var (
	ErrAddressRequired     = errors.New("Address required")
	ErrAllFieldsRequired   = errors.New("All fields required")
	ErrContractUnavailable = errors.New("contract binding not initialized")
)

const maxRequestBodyBytes = 100 << 10

// decodeJSON reads at most maxRequestBodyBytes of the request body into dst.
// An empty body decodes as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeResult is the boundary between core handler logic and the wire:
// every error becomes {success:false, error} and the status is always 200.
func writeResult(w http.ResponseWriter, logger *zap.Logger, data any, err error) bool {
	if err != nil {
		writeJSONResponse(w, logger, http.StatusOK, FailureResponse{Success: false, Error: err.Error()})
		return false
	}
	writeJSONResponse(w, logger, http.StatusOK, data)
	return true
}

// writeJSONResponse writes a JSON response with the specified status code
func writeJSONResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}
