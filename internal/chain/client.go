// Package chain implements the asset-ledger and trigger-oracle collaborators
// against an EVM chain: an ERC-20 token holds the pool, and a Chainlink-style
// aggregator publishes the weather index. The operator wallet's address is
// the pool account; farmers and investors approve it as spender before
// buying or depositing.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds connection and signing parameters for the chain client.
type ClientConfig struct {
	// RPCURL is the JSON-RPC endpoint of an execution node.
	RPCURL string

	// ChainID of the target network.
	ChainID int64

	// PrivateKeyHex is the operator wallet key (with or without 0x prefix),
	// already resolved by the key manager.
	PrivateKeyHex string
}

// Client wraps an ethclient connection and the operator wallet used to sign
// pool transfers.
type Client struct {
	eth     *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// Dial connects to the RPC endpoint, derives the operator address from the
// configured key, and verifies the node reports the expected chain id.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("chain: rpc url is required")
	}

	key, err := ethcrypto.HexToECDSA(trim0x(cfg.PrivateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid private key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	gotID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if cfg.ChainID != 0 && gotID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: node reports chain id %d, config expects %d", gotID.Int64(), cfg.ChainID)
	}

	return &Client{
		eth:     eth,
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: gotID,
	}, nil
}

// PoolAddress returns the operator wallet address, which doubles as the
// pool account on the asset ledger.
func (c *Client) PoolAddress() common.Address {
	return c.address
}

// PoolAccount returns the pool address in the string form the engine uses.
func (c *Client) PoolAccount() string {
	return c.address.Hex()
}

// transactOpts builds signing options bound to ctx for a single transaction.
func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("chain: transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Close tears down the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
