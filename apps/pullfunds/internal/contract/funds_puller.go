package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const PullFundsMethod = "pullFunds"

// PullFundsABI describes pullFunds(address,address,address,uint256)
const PullFundsABI = `[{
	"inputs": [
		{"internalType": "address", "name": "token", "type": "address"},
		{"internalType": "address", "name": "user", "type": "address"},
		{"internalType": "address", "name": "recipient", "type": "address"},
		{"internalType": "uint256", "name": "amount", "type": "uint256"}
	],
	"name": "pullFunds",
	"outputs": [],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// Backend is the subset of an RPC client the binding needs. Both
// *ethclient.Client and the simulated backend client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// PullFundsArgs carries the raw request values. Conversion to ABI types
// happens in PullFunds so conversion errors reach the caller verbatim.
type PullFundsArgs struct {
	Token     string
	User      string
	Recipient string
	Amount    string
}

// FundsPuller is a contract handle bound to one signing key. It is built
// once at startup and is safe for concurrent use.
type FundsPuller struct {
	contractAddress common.Address
	contract        *bind.BoundContract
	backend         Backend
	privateKey      *ecdsa.PrivateKey
	sender          common.Address
	chainID         *big.Int
	gasLimit        uint64 // zero estimates per call
	logger          *zap.Logger
}

// Dial connects to rpcURL and binds the contract
func Dial(ctx context.Context, rpcURL, privateKeyHex, contractAddress string, logger *zap.Logger) (*FundsPuller, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL is not configured")
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
	}

	puller, err := NewFundsPuller(ctx, client, privateKeyHex, contractAddress, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return puller, nil
}

// NewFundsPuller binds the contract at contractAddress on backend, signing
// with privateKeyHex (with or without 0x prefix).
func NewFundsPuller(ctx context.Context, backend Backend, privateKeyHex, contractAddress string, logger *zap.Logger) (*FundsPuller, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", contractAddress)
	}

	parsedABI, err := abi.JSON(strings.NewReader(PullFundsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pullFunds ABI: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	address := common.HexToAddress(contractAddress)
	return &FundsPuller{
		contractAddress: address,
		contract:        bind.NewBoundContract(address, parsedABI, backend, backend, backend),
		backend:         backend,
		privateKey:      privateKey,
		sender:          crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:         chainID,
		logger:          logger,
	}, nil
}

// Sender is the address transactions are signed from
func (p *FundsPuller) Sender() common.Address {
	return p.sender
}

func (p *FundsPuller) ContractAddress() common.Address {
	return p.contractAddress
}

func (p *FundsPuller) ChainID() *big.Int {
	return new(big.Int).Set(p.chainID)
}

// PullFunds sends pullFunds(token, user, recipient, amount) and blocks until
// the transaction is mined or ctx is done. A mined but reverted transaction
// is an error.
func (p *FundsPuller) PullFunds(ctx context.Context, args PullFundsArgs) (common.Hash, error) {
	token, err := parseAddress("token", args.Token)
	if err != nil {
		return common.Hash{}, err
	}
	user, err := parseAddress("user", args.User)
	if err != nil {
		return common.Hash{}, err
	}
	recipient, err := parseAddress("recipient", args.Recipient)
	if err != nil {
		return common.Hash{}, err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return common.Hash{}, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(p.privateKey, p.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = p.gasLimit

	tx, err := p.contract.Transact(opts, PullFundsMethod, token, user, recipient, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send pullFunds transaction: %w", err)
	}

	p.logger.Info("Sent pullFunds transaction",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()),
		zap.String("token", token.Hex()),
		zap.String("user", user.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", amount.String()))

	receipt, err := bind.WaitMined(ctx, p.backend, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("failed waiting for transaction %s: %w", tx.Hash().Hex(), err)
	}
	if err := checkReceipt(receipt); err != nil {
		return tx.Hash(), err
	}

	p.logger.Info("Mined pullFunds transaction",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("block_number", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return tx.Hash(), nil
}

func checkReceipt(receipt *types.Receipt) error {
	if receipt.Status == types.ReceiptStatusFailed {
		return fmt.Errorf("transaction %s reverted", receipt.TxHash.Hex())
	}
	return nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}

// parseAmount accepts decimal or 0x-hex integers, and integral values in
// exponent form such as 1e18.
func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("invalid amount: %q", value)
	}

	amount, ok := math.ParseBig256(value)
	if !ok {
		f, _, err := big.ParseFloat(value, 10, 512, big.ToNearestEven)
		if err != nil || !f.IsInt() {
			return nil, fmt.Errorf("invalid amount: %q", value)
		}
		// Checked before f.Int, which would materialize every digit.
		if f.MantExp(nil) > 256 {
			return nil, fmt.Errorf("amount overflows uint256: %q", value)
		}
		amount, _ = f.Int(nil)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative: %q", value)
	}
	return amount, nil
}
