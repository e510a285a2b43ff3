package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/metrics"
	"pullfunds/apps/pullfunds/internal/model"
)

// AddressStore persists submitted addresses
type AddressStore interface {
	StoreAddress(ctx context.Context, address string) (*model.StoredAddress, error)
}

// AddressHandler handles POST /store-user
type AddressHandler struct {
	store   AddressStore
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(store AddressStore, collector *metrics.Collector, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{
		store:   store,
		metrics: collector,
		logger:  logger,
	}
}

// StoreUser handles POST /store-user
func (h *AddressHandler) StoreUser(w http.ResponseWriter, r *http.Request) {
	var req StoreUserRequest
	var response *StoreUserResponse
	err := decodeJSON(w, r, &req)
	if err == nil {
		response, err = h.storeUser(r.Context(), req)
	}

	success := writeResult(w, h.logger, response, err)
	h.metrics.IncResult(storeUserRoute, success)
}

func (h *AddressHandler) storeUser(ctx context.Context, req StoreUserRequest) (*StoreUserResponse, error) {
	if !req.Address.Present() {
		return nil, ErrAddressRequired
	}

	if _, err := h.store.StoreAddress(ctx, req.Address.Text); err != nil {
		h.logger.Error("Failed to store address", zap.String("address", req.Address.Text), zap.Error(err))
		return nil, err
	}

	return &StoreUserResponse{
		Success: true,
		Message: "Address saved",
		Address: req.Address,
	}, nil
}
