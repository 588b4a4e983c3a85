package blockchain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	domainerrors "stablepay.backend/internal/domain/errors"
)

var (
	dialEVMClient    = ethclient.Dial
	getClientChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}
)

// EVMClient provides read access to one EVM chain: native and token balances
// for scanning, view calls for swap quoting, and receipt polling for step
// confirmation.
type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int
	rpcURL  string
	// test hooks, used when RPC sockets are unavailable
	testCallView func(ctx context.Context, to string, data []byte) ([]byte, error)
	testReceipt  func(ctx context.Context, txHash string) (*types.Receipt, error)
	testBalance  func(ctx context.Context, address string) (*big.Int, error)
}

// NewEVMClient creates a new EVM client
func NewEVMClient(rpcURL string) (*EVMClient, error) {
	client, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := getClientChainID(client, context.Background())
	if err != nil {
		return nil, err
	}

	return &EVMClient{
		client:  client,
		chainID: chainID,
		rpcURL:  rpcURL,
	}, nil
}

// NewEVMClientWithHooks creates an EVM client backed by injected call and
// receipt implementations. Intended for unit tests.
func NewEVMClientWithHooks(
	chainID *big.Int,
	callViewFn func(ctx context.Context, to string, data []byte) ([]byte, error),
	receiptFn func(ctx context.Context, txHash string) (*types.Receipt, error),
) *EVMClient {
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	return &EVMClient{
		chainID:      chainID,
		testCallView: callViewFn,
		testReceipt:  receiptFn,
	}
}

// ChainID returns the chain ID
func (c *EVMClient) ChainID() *big.Int {
	return c.chainID
}

// SetBalanceHook overrides native balance reads. Used by tests.
func (c *EVMClient) SetBalanceHook(fn func(ctx context.Context, address string) (*big.Int, error)) {
	c.testBalance = fn
}

// GetBalance gets the native token balance of an address
func (c *EVMClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if c.testBalance != nil {
		return c.testBalance(ctx, address)
	}
	addr := common.HexToAddress(address)
	return c.client.BalanceAt(ctx, addr, nil)
}

// GetTokenBalance gets the ERC20 token balance of an address
func (c *EVMClient) GetTokenBalance(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error) {
	token := common.HexToAddress(tokenAddress)
	owner := common.HexToAddress(ownerAddress)

	// balanceOf(address) selector: 0x70a08231
	data := append(common.Hex2Bytes("70a08231"), common.LeftPadBytes(owner.Bytes(), 32)...)

	result, err := c.CallView(ctx, token.Hex(), data)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(result), nil
}

// CallView executes a read-only contract call
func (c *EVMClient) CallView(ctx context.Context, to string, data []byte) ([]byte, error) {
	if c.testCallView != nil {
		return c.testCallView(ctx, to, data)
	}
	addr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}
	return c.client.CallContract(ctx, msg, nil)
}

// GetTransactionReceipt gets a transaction receipt, or ethereum.NotFound
// while the transaction is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	if c.testReceipt != nil {
		return c.testReceipt(ctx, txHash)
	}
	hash := common.HexToHash(txHash)
	return c.client.TransactionReceipt(ctx, hash)
}

// WaitForReceipt polls until the transaction is mined or ctx ends. A mined
// receipt with status 0 is a revert and fails the job rather than retrying.
func (c *EVMClient) WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetTransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, domainerrors.ErrTransactionReverted
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetBlockNumber gets the latest block number
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

// EstimateGas estimates gas for a transaction
func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
