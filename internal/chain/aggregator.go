package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/cropshield/cropshield/internal/domain"
)

// aggregatorABI is the read side of a Chainlink-style data feed.
const aggregatorABI = `[
  {"name":"latestRoundData","type":"function","stateMutability":"view",
   "inputs":[],
   "outputs":[
     {"name":"roundId","type":"uint80"},
     {"name":"answer","type":"int256"},
     {"name":"startedAt","type":"uint256"},
     {"name":"updatedAt","type":"uint256"},
     {"name":"answeredInRound","type":"uint80"}
   ]}
]`

// AggregatorOracle implements domain.TriggerOracle against an on-chain data
// feed publishing the seasonal weather index.
type AggregatorOracle struct {
	contract *bind.BoundContract
	feed     common.Address
}

// NewAggregatorOracle binds the feed contract at addr.
func NewAggregatorOracle(client *Client, addr string) (*AggregatorOracle, error) {
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("chain: invalid feed address %q", addr)
	}
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse aggregator abi: %w", err)
	}
	feed := common.HexToAddress(addr)
	return &AggregatorOracle{
		contract: bind.NewBoundContract(feed, parsed, client.eth, client.eth, client.eth),
		feed:     feed,
	}, nil
}

// LatestReading fetches the feed's most recent round.
func (o *AggregatorOracle) LatestReading(ctx context.Context) (domain.OracleReading, error) {
	var out []interface{}
	err := o.contract.Call(&bind.CallOpts{Context: ctx}, &out, "latestRoundData")
	if err != nil {
		return domain.OracleReading{}, fmt.Errorf("chain: latestRoundData %s: %w", o.feed, err)
	}

	roundID := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	answer := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	updatedAt := *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)

	if !answer.IsInt64() {
		return domain.OracleReading{}, fmt.Errorf("chain: feed answer %s overflows int64", answer)
	}
	return domain.OracleReading{
		RoundID:   roundID.Uint64(),
		Value:     answer.Int64(),
		UpdatedAt: time.Unix(updatedAt.Int64(), 0).UTC(),
	}, nil
}
