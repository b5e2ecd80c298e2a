// Package evm is the on-chain ledger client: it reads market, position and
// token state from the market and ERC-20 contracts and submits the user's
// transactions.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/zento/internal/domain"
)

// Backend is what the client needs from a node connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Options configures a Client.
type Options struct {
	ChainID       int64
	MarketAddress string
	TokenAddress  string
	// CallTimeout bounds each read attempt.
	CallTimeout time.Duration
	// TxTimeout bounds submitting a write and waiting for its receipt.
	TxTimeout    time.Duration
	ReadAttempts int
	ReadBackoff  time.Duration
}

// Client implements domain.ChainReader and domain.ChainWriter.
type Client struct {
	backend Backend
	opts    Options
	market  common.Address
	token   common.Address
	txOpts  *bind.TransactOpts
	from    common.Address
	logger  *slog.Logger

	marketContract *bind.BoundContract
	tokenContract  *bind.BoundContract
}

// Compile-time interface checks.
var (
	_ domain.ChainReader = (*Client)(nil)
	_ domain.ChainWriter = (*Client)(nil)
)

// Dial connects to rpcURL and returns a Client. key may be nil for a
// read-only client.
func Dial(ctx context.Context, rpcURL string, opts Options, key *ecdsa.PrivateKey, logger *slog.Logger) (*Client, func(), error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}
	c, err := New(ec, opts, key, logger)
	if err != nil {
		ec.Close()
		return nil, nil, err
	}
	return c, ec.Close, nil
}

// New builds a Client over an existing backend.
func New(backend Backend, opts Options, key *ecdsa.PrivateKey, logger *slog.Logger) (*Client, error) {
	if backend == nil {
		return nil, errors.New("evm: nil backend")
	}
	if !common.IsHexAddress(opts.MarketAddress) {
		return nil, fmt.Errorf("evm: invalid market address %q", opts.MarketAddress)
	}
	if !common.IsHexAddress(opts.TokenAddress) {
		return nil, fmt.Errorf("evm: invalid token address %q", opts.TokenAddress)
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 2 * time.Minute
	}
	if opts.ReadAttempts <= 0 {
		opts.ReadAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		backend: backend,
		opts:    opts,
		market:  common.HexToAddress(opts.MarketAddress),
		token:   common.HexToAddress(opts.TokenAddress),
		logger:  logger.With(slog.String("component", "evm")),
	}
	c.marketContract = bind.NewBoundContract(c.market, marketABI, backend, backend, backend)
	c.tokenContract = bind.NewBoundContract(c.token, tokenABI, backend, backend, backend)

	if key != nil {
		txOpts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(opts.ChainID))
		if err != nil {
			return nil, fmt.Errorf("evm: transactor: %w", err)
		}
		c.txOpts = txOpts
		c.from = txOpts.From
	}
	return c, nil
}

// Address returns the signing wallet, or "" for a read-only client.
func (c *Client) Address() string {
	if c.txOpts == nil {
		return ""
	}
	return c.from.Hex()
}

// Balance returns owner's token balance.
func (c *Client) Balance(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	err = c.call(ctx, c.token, tokenABI, "balanceOf", func(res []any) error {
		return unpackBig(res, &out)
	}, addr)
	return out, err
}

// Allowance returns what owner has approved the market contract to spend.
func (c *Client) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	err = c.call(ctx, c.token, tokenABI, "allowance", func(res []any) error {
		return unpackBig(res, &out)
	}, addr, c.market)
	return out, err
}

// OutcomePrice returns the contract's current price of side in basis points.
func (c *Client) OutcomePrice(ctx context.Context, marketID uint64, side domain.Outcome) (*big.Int, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("evm: invalid outcome %d", side)
	}
	var out *big.Int
	err := c.call(ctx, c.market, marketABI, "calculateOutcomePrice", func(res []any) error {
		return unpackBig(res, &out)
	}, marketID, uint8(side))
	return out, err
}

// CreationFee returns the fee charged by createMarket.
func (c *Client) CreationFee(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := c.call(ctx, c.market, marketABI, "marketCreationFee", func(res []any) error {
		return unpackBig(res, &out)
	})
	return out, err
}

// MinInitialLiquidity returns the smallest liquidity createMarket accepts.
func (c *Client) MinInitialLiquidity(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := c.call(ctx, c.market, marketABI, "minInitialLiquidity", func(res []any) error {
		return unpackBig(res, &out)
	})
	return out, err
}

// MarketIDs lists every market id.
func (c *Client) MarketIDs(ctx context.Context) ([]uint64, error) {
	var out []uint64
	err := c.call(ctx, c.market, marketABI, "getAllMarketIds", func(res []any) error {
		if len(res) != 1 {
			return fmt.Errorf("unexpected output count %d", len(res))
		}
		ids, ok := res[0].([]uint64)
		if !ok {
			return fmt.Errorf("unexpected output type %T", res[0])
		}
		out = ids
		return nil
	})
	return out, err
}

// Market reads one market's details.
func (c *Client) Market(ctx context.Context, marketID uint64) (domain.MarketState, error) {
	var m domain.MarketState
	err := c.call(ctx, c.market, marketABI, "getMarketDetails", func(res []any) error {
		if len(res) != 1 {
			return fmt.Errorf("unexpected output count %d", len(res))
		}
		d, ok := abi.ConvertType(res[0], new(marketDetails)).(*marketDetails)
		if !ok {
			return fmt.Errorf("unexpected output type %T", res[0])
		}
		m = d.toDomain()
		return nil
	}, marketID)
	return m, err
}

// Positions reads owner's positions in one market.
func (c *Client) Positions(ctx context.Context, owner string, marketID uint64) ([]domain.Position, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	var out []domain.Position
	err = c.call(ctx, c.market, marketABI, "getUserPositionDetails", func(res []any) error {
		if len(res) != 1 {
			return fmt.Errorf("unexpected output count %d", len(res))
		}
		ps, ok := abi.ConvertType(res[0], new([]positionDetails)).(*[]positionDetails)
		if !ok {
			return fmt.Errorf("unexpected output type %T", res[0])
		}
		out = make([]domain.Position, 0, len(*ps))
		for _, p := range *ps {
			out = append(out, p.toDomain())
		}
		return nil
	}, addr, marketID)
	return out, err
}

// call packs method, runs an eth_call with bounded retries and hands the
// unpacked outputs to decode.
func (c *Client) call(ctx context.Context, to common.Address, contract abi.ABI, method string, decode func([]any) error, args ...any) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("evm: pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	var lastErr error
	for attempt := 1; attempt <= c.opts.ReadAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("evm: %s: %w", method, ctx.Err())
			case <-time.After(c.opts.ReadBackoff):
			}
		}
		out, err := c.callOnce(ctx, msg)
		if err != nil {
			lastErr = err
			if revert := revertFromError(method, err); revert != nil {
				return revert
			}
			c.logger.Debug("evm: read failed",
				slog.String("method", method),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			continue
		}
		res, err := contract.Unpack(method, out)
		if err != nil {
			return fmt.Errorf("evm: unpack %s: %w", method, err)
		}
		if err := decode(res); err != nil {
			return fmt.Errorf("evm: decode %s: %w", method, err)
		}
		return nil
	}
	return fmt.Errorf("evm: %s: %w", method, lastErr)
}

func (c *Client) callOnce(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	return c.backend.CallContract(ctx, msg, nil)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("evm: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func unpackBig(res []any, out **big.Int) error {
	if len(res) != 1 {
		return fmt.Errorf("unexpected output count %d", len(res))
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return fmt.Errorf("unexpected output type %T", res[0])
	}
	*out = v
	return nil
}

func (d marketDetails) toDomain() domain.MarketState {
	m := domain.MarketState{
		ID:                 d.Id,
		Title:              d.Title,
		Description:        d.Description,
		ResolutionCriteria: d.ResolutionCriteria,
		Creator:            d.Creator.Hex(),
		EndTime:            int64(d.EndTime),
		CreationTime:       int64(d.CreationTime),
		Resolved:           d.Resolved,
		YesPriceBp:         bigToInt64(d.YesPrice),
		NoPriceBp:          bigToInt64(d.NoPrice),
		TotalYesShares:     orZero(d.TotalYesShares),
		TotalNoShares:      orZero(d.TotalNoShares),
		TotalValueLocked:   orZero(d.TotalValueLocked),
		ParticipantCount:   d.ParticipantCount,
	}
	if d.Resolved {
		o := domain.Outcome(d.Outcome)
		if o.Valid() {
			m.Outcome = &o
		}
	}
	m.Normalize()
	return m
}

func (p positionDetails) toDomain() domain.Position {
	return domain.Position{
		ID:         p.Id,
		Owner:      p.Owner.Hex(),
		MarketID:   p.MarketId,
		Outcome:    domain.Outcome(p.Outcome),
		Shares:     orZero(p.Shares),
		AvgPriceBp: bigToInt64(p.AvgPrice),
		AcquiredAt: int64(p.Timestamp),
	}
}

func bigToInt64(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
