package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// marketABIJSON covers the subset of the prediction-market contract used
// by the client.
const marketABIJSON = `[
 {"type":"function","name":"calculateOutcomePrice","stateMutability":"view",
  "inputs":[{"name":"marketId","type":"uint64"},{"name":"outcome","type":"uint8"}],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"marketCreationFee","stateMutability":"view","inputs":[],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"minInitialLiquidity","stateMutability":"view","inputs":[],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getAllMarketIds","stateMutability":"view","inputs":[],
  "outputs":[{"name":"","type":"uint64[]"}]},
 {"type":"function","name":"getMarketDetails","stateMutability":"view",
  "inputs":[{"name":"marketId","type":"uint64"}],
  "outputs":[{"name":"","type":"tuple","components":[
    {"name":"id","type":"uint64"},
    {"name":"title","type":"string"},
    {"name":"description","type":"string"},
    {"name":"resolutionCriteria","type":"string"},
    {"name":"creator","type":"address"},
    {"name":"creationTime","type":"uint64"},
    {"name":"endTime","type":"uint64"},
    {"name":"resolved","type":"bool"},
    {"name":"outcome","type":"uint8"},
    {"name":"yesPrice","type":"uint256"},
    {"name":"noPrice","type":"uint256"},
    {"name":"totalYesShares","type":"uint256"},
    {"name":"totalNoShares","type":"uint256"},
    {"name":"totalValueLocked","type":"uint256"},
    {"name":"participantCount","type":"uint64"}]}]},
 {"type":"function","name":"getUserPositionDetails","stateMutability":"view",
  "inputs":[{"name":"user","type":"address"},{"name":"marketId","type":"uint64"}],
  "outputs":[{"name":"","type":"tuple[]","components":[
    {"name":"id","type":"uint64"},
    {"name":"owner","type":"address"},
    {"name":"marketId","type":"uint64"},
    {"name":"outcome","type":"uint8"},
    {"name":"shares","type":"uint256"},
    {"name":"avgPrice","type":"uint256"},
    {"name":"timestamp","type":"uint64"}]}]},
 {"type":"function","name":"buyPosition","stateMutability":"nonpayable",
  "inputs":[{"name":"marketId","type":"uint64"},{"name":"outcome","type":"uint8"},
            {"name":"amount","type":"uint256"},{"name":"maxPrice","type":"uint256"}],
  "outputs":[]},
 {"type":"function","name":"sellPosition","stateMutability":"nonpayable",
  "inputs":[{"name":"marketId","type":"uint256"},{"name":"positionId","type":"uint256"},
            {"name":"shares","type":"uint256"},{"name":"minPrice","type":"uint256"}],
  "outputs":[]},
 {"type":"function","name":"claimWinnings","stateMutability":"nonpayable",
  "inputs":[{"name":"marketId","type":"uint256"},{"name":"positionId","type":"uint256"}],
  "outputs":[]},
 {"type":"function","name":"createMarket","stateMutability":"nonpayable",
  "inputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},
            {"name":"resolutionCriteria","type":"string"},{"name":"endTime","type":"uint64"},
            {"name":"oracle","type":"address"},{"name":"initialLiquidity","type":"uint256"}],
  "outputs":[]}
]`

// tokenABIJSON is the ERC-20 subset used for balances and approvals.
const tokenABIJSON = `[
 {"type":"function","name":"balanceOf","stateMutability":"view",
  "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"allowance","stateMutability":"view",
  "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable",
  "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
  "outputs":[{"name":"","type":"bool"}]}
]`

var (
	marketABI = mustParseABI(marketABIJSON)
	tokenABI  = mustParseABI(tokenABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("evm: parse abi: %v", err))
	}
	return parsed
}

// Field names follow abi.ToCamelCase of the tuple components so that
// abi.ConvertType can fill them.

type marketDetails struct {
	Id                 uint64
	Title              string
	Description        string
	ResolutionCriteria string
	Creator            common.Address
	CreationTime       uint64
	EndTime            uint64
	Resolved           bool
	Outcome            uint8
	YesPrice           *big.Int
	NoPrice            *big.Int
	TotalYesShares     *big.Int
	TotalNoShares      *big.Int
	TotalValueLocked   *big.Int
	ParticipantCount   uint64
}

type positionDetails struct {
	Id        uint64
	Owner     common.Address
	MarketId  uint64
	Outcome   uint8
	Shares    *big.Int
	AvgPrice  *big.Int
	Timestamp uint64
}
