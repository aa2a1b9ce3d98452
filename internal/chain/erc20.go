package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cropshield/cropshield/internal/domain"
)

// erc20ABI covers the three entry points the pool needs. Amounts are base
// units of the token; the engine's int64 arithmetic assumes the token's
// decimals are already folded into the configured premium and threshold.
const erc20ABI = `[
  {"name":"transfer","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"transferFrom","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

// ERC20Ledger implements domain.AssetLedger on top of an ERC-20 token.
// Outbound transfers are signed by the operator wallet; inbound transfers
// pull from accounts that approved the pool address as spender.
type ERC20Ledger struct {
	client   *Client
	contract *bind.BoundContract
	token    common.Address
}

// NewERC20Ledger binds the token contract at addr.
func NewERC20Ledger(client *Client, addr string) (*ERC20Ledger, error) {
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("chain: invalid token address %q", addr)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	token := common.HexToAddress(addr)
	return &ERC20Ledger{
		client:   client,
		contract: bind.NewBoundContract(token, parsed, client.eth, client.eth, client.eth),
		token:    token,
	}, nil
}

// Transfer sends amount from the pool to the given account and waits for the
// transaction to be mined.
func (l *ERC20Ledger) Transfer(ctx context.Context, to string, amount int64) error {
	if !common.IsHexAddress(to) {
		return fmt.Errorf("chain: invalid recipient %q", to)
	}
	opts, err := l.client.transactOpts(ctx)
	if err != nil {
		return err
	}
	tx, err := l.contract.Transact(opts, "transfer", common.HexToAddress(to), big.NewInt(amount))
	if err != nil {
		return fmt.Errorf("chain: transfer: %w", err)
	}
	return l.waitMined(ctx, tx)
}

// TransferFrom pulls amount from the given account into the pool. The
// account must have approved the pool address for at least amount.
func (l *ERC20Ledger) TransferFrom(ctx context.Context, from string, amount int64) error {
	if !common.IsHexAddress(from) {
		return fmt.Errorf("chain: invalid sender %q", from)
	}
	opts, err := l.client.transactOpts(ctx)
	if err != nil {
		return err
	}
	tx, err := l.contract.Transact(opts, "transferFrom", common.HexToAddress(from), l.client.PoolAddress(), big.NewInt(amount))
	if err != nil {
		return fmt.Errorf("chain: transferFrom: %w", err)
	}
	return l.waitMined(ctx, tx)
}

// BalanceOf reads the token balance of an account.
func (l *ERC20Ledger) BalanceOf(ctx context.Context, account string) (int64, error) {
	if !common.IsHexAddress(account) {
		return 0, fmt.Errorf("chain: invalid account %q", account)
	}
	var out []interface{}
	err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(account))
	if err != nil {
		return 0, fmt.Errorf("chain: balanceOf: %w", err)
	}
	bal := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !bal.IsInt64() {
		return 0, fmt.Errorf("chain: balance %s overflows int64", bal)
	}
	return bal.Int64(), nil
}

func (l *ERC20Ledger) waitMined(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, l.client.eth, tx)
	if err != nil {
		return fmt.Errorf("chain: wait mined %s: %w", tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("chain: tx %s reverted: %w", tx.Hash(), domain.ErrTransferFailed)
	}
	return nil
}
