package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/contract"
	"pullfunds/apps/pullfunds/internal/events"
	"pullfunds/apps/pullfunds/internal/metrics"
	"pullfunds/apps/pullfunds/internal/model"
)

const eventWriteTimeout = 5 * time.Second

// FundsPuller invokes pullFunds and waits for the transaction to be mined
type FundsPuller interface {
	PullFunds(ctx context.Context, args contract.PullFundsArgs) (common.Hash, error)
	Sender() common.Address
}

// EventRecorder stores domain events for later relay
type EventRecorder interface {
	StoreEvent(ctx context.Context, event model.OutboxEvent) error
}

// ContractHandler handles POST /run-contract
type ContractHandler struct {
	puller  FundsPuller
	events  EventRecorder
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewContractHandler creates a new ContractHandler. puller may be nil when
// the binding failed at startup; recorder may be nil when events are off.
func NewContractHandler(puller FundsPuller, recorder EventRecorder, collector *metrics.Collector, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		puller:  puller,
		events:  recorder,
		metrics: collector,
		logger:  logger,
	}
}

// RunContract handles POST /run-contract
func (h *ContractHandler) RunContract(w http.ResponseWriter, r *http.Request) {
	var req RunContractRequest
	var response *RunContractResponse
	err := decodeJSON(w, r, &req)
	if err == nil {
		response, err = h.runContract(r.Context(), req)
	}

	success := writeResult(w, h.logger, response, err)
	h.metrics.IncResult(runContractRoute, success)
}

func (h *ContractHandler) runContract(ctx context.Context, req RunContractRequest) (*RunContractResponse, error) {
	if !req.Token.Present() || !req.User.Present() || !req.Recipient.Present() || !req.Amount.Present() {
		h.metrics.IncContractCall(metrics.OutcomeRejected)
		return nil, ErrAllFieldsRequired
	}

	if h.puller == nil {
		h.metrics.IncContractCall(metrics.OutcomeUnavailable)
		return nil, ErrContractUnavailable
	}

	args := contract.PullFundsArgs{
		Token:     req.Token.Text,
		User:      req.User.Text,
		Recipient: req.Recipient.Text,
		Amount:    req.Amount.Text,
	}

	hash, err := h.puller.PullFunds(ctx, args)
	if err != nil {
		h.metrics.IncContractCall(metrics.OutcomeFailed)
		h.logger.Error("Failed to run pullFunds",
			zap.String("token", args.Token),
			zap.String("user", args.User),
			zap.String("recipient", args.Recipient),
			zap.String("amount", args.Amount),
			zap.Error(err))
		return nil, err
	}
	h.metrics.IncContractCall(metrics.OutcomeMined)

	h.recordFundsPulled(ctx, hash, args)

	return &RunContractResponse{
		Success: true,
		Message: "Transaction sent",
		Hash:    hash.Hex(),
	}, nil
}

// recordFundsPulled is best effort; the transaction is already mined and
// the caller gets the hash regardless.
func (h *ContractHandler) recordFundsPulled(ctx context.Context, hash common.Hash, args contract.PullFundsArgs) {
	if h.events == nil {
		return
	}

	event, err := model.NewOutboxEvent(events.FundsPulledEvent, args.User, events.FundsPulled{
		TxHash:    hash.Hex(),
		Sender:    h.puller.Sender().Hex(),
		Token:     args.Token,
		User:      args.User,
		Recipient: args.Recipient,
		Amount:    args.Amount,
	})
	if err == nil {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventWriteTimeout)
		defer cancel()
		err = h.events.StoreEvent(writeCtx, event)
	}
	if err != nil {
		h.logger.Error("Failed to record funds_pulled event", zap.String("tx_hash", hash.Hex()), zap.Error(err))
	}
}
