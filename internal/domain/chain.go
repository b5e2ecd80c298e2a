package domain

import (
	"context"
	"fmt"
	"math/big"
)

// TxReceipt is the confirmed outcome of a ledger write.
type TxReceipt struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// ChainReader reads the authoritative market and token state. Token
// amounts are 18-decimal integers; prices are basis-point integers.
type ChainReader interface {
	Balance(ctx context.Context, owner string) (*big.Int, error)
	// Allowance is what owner has approved the market contract to spend.
	Allowance(ctx context.Context, owner string) (*big.Int, error)
	OutcomePrice(ctx context.Context, marketID uint64, side Outcome) (*big.Int, error)
	CreationFee(ctx context.Context) (*big.Int, error)
	MinInitialLiquidity(ctx context.Context) (*big.Int, error)
	MarketIDs(ctx context.Context) ([]uint64, error)
	Market(ctx context.Context, marketID uint64) (MarketState, error)
	Positions(ctx context.Context, owner string, marketID uint64) ([]Position, error)
}

// ChainWriter submits transactions and waits for their receipts. A write
// is never retried by the implementation.
type ChainWriter interface {
	Address() string
	Approve(ctx context.Context, amount *big.Int) (TxReceipt, error)
	BuyPosition(ctx context.Context, marketID uint64, side Outcome, amount, maxPrice *big.Int) (TxReceipt, error)
	SellPosition(ctx context.Context, marketID, positionID uint64, shares, minPrice *big.Int) (TxReceipt, error)
	ClaimWinnings(ctx context.Context, marketID, positionID uint64) (TxReceipt, error)
	CreateMarket(ctx context.Context, req CreateMarketRequest, oracle string) (TxReceipt, error)
}

// SuggestionRequest is one turn sent to the suggestion service. An empty
// SessionID starts a new search; otherwise the session is continued.
type SuggestionRequest struct {
	SessionID string
	UserID    string
	Text      string
	Context   string
}

// SuggestionReply is the normalised answer of the suggestion service.
type SuggestionReply struct {
	SessionID    string
	Suggestions  []Suggestion
	FromMarkets  bool
	Message      string
	AISuggestion string
	Proposal     *Proposal
	CurrentStep  *int
	Progress     string
	Prompt       string
	// Query is the search the backend actually ran, when it reports one.
	Query string
}

// SuggestionService is the conversational backend.
type SuggestionService interface {
	Suggest(ctx context.Context, req SuggestionRequest) (SuggestionReply, error)
}

// RewardAccrual is one off-chain points award.
type RewardAccrual struct {
	Wallet      string  `json:"wallet"`
	Points      float64 `json:"points"`
	ActionType  string  `json:"action_type"`
	Description string  `json:"description"`
}

// RewardService records off-chain reward points.
type RewardService interface {
	Award(ctx context.Context, a RewardAccrual) error
}

// ServiceError is a logical failure reported by the suggestion service
// (success=false or a non-OK status). Message may be empty.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("suggestion service: status %d", e.Status)
	}
	return fmt.Sprintf("suggestion service: status %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match ErrServiceUnavailable with errors.Is.
func (e *ServiceError) Unwrap() error { return ErrServiceUnavailable }
