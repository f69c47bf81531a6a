package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is what the gateway needs from a node: contract calls, sending
// transactions and fetching receipts.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client is a connected Base RPC endpoint.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
}

// Dial connects to rpcURL and checks the node serves the expected chain.
func Dial(ctx context.Context, rpcURL string, wantChainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: fetch chain id: %w", err)
	}
	if wantChainID > 0 && id.Int64() != wantChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: node serves chain %s, configured %d", id, wantChainID)
	}
	return &Client{eth: eth, chainID: id}, nil
}

// Backend exposes the client for contract bindings.
func (c *Client) Backend() Backend { return c.eth }

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// BlockNumber returns the latest block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain: block number: %w", err)
	}
	return n, nil
}

// Close releases the RPC connection.
func (c *Client) Close() { c.eth.Close() }
