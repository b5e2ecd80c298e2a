package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/alanyoungcy/zento/internal/domain"
)

// RevertError is a write (or read) the contract rejected. Reason is the
// decoded Error(string) payload when the node returned one.
type RevertError struct {
	Method string
	Reason string
	TxHash string
	Err    error
}

func (e *RevertError) Error() string {
	msg := "evm: " + e.Method + " reverted"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil && e.Reason == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// RevertReason returns the decoded reason, possibly empty.
func (e *RevertError) RevertReason() string { return e.Reason }

// Unwrap matches domain.ErrWriteRejected and the underlying node error.
func (e *RevertError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrWriteRejected}
	}
	return []error{domain.ErrWriteRejected, e.Err}
}

// Approve lets the market contract spend amount of the wallet's tokens.
func (c *Client) Approve(ctx context.Context, amount *big.Int) (domain.TxReceipt, error) {
	return c.transact(ctx, c.tokenContract, c.token, tokenABI, "approve", c.market, amount)
}

// BuyPosition buys side of marketID for amount, reverting above maxPrice.
func (c *Client) BuyPosition(ctx context.Context, marketID uint64, side domain.Outcome, amount, maxPrice *big.Int) (domain.TxReceipt, error) {
	return c.transact(ctx, c.marketContract, c.market, marketABI, "buyPosition", marketID, uint8(side), amount, maxPrice)
}

// SellPosition sells shares of a position, reverting below minPrice.
func (c *Client) SellPosition(ctx context.Context, marketID, positionID uint64, shares, minPrice *big.Int) (domain.TxReceipt, error) {
	return c.transact(ctx, c.marketContract, c.market, marketABI, "sellPosition",
		new(big.Int).SetUint64(marketID), new(big.Int).SetUint64(positionID), shares, minPrice)
}

// ClaimWinnings redeems a winning position.
func (c *Client) ClaimWinnings(ctx context.Context, marketID, positionID uint64) (domain.TxReceipt, error) {
	return c.transact(ctx, c.marketContract, c.market, marketABI, "claimWinnings",
		new(big.Int).SetUint64(marketID), new(big.Int).SetUint64(positionID))
}

// CreateMarket opens a new market funded with req.InitialLiquidity.
func (c *Client) CreateMarket(ctx context.Context, req domain.CreateMarketRequest, oracle string) (domain.TxReceipt, error) {
	oracleAddr, err := parseAddress(oracle)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	if req.InitialLiquidity == nil {
		return domain.TxReceipt{}, errors.New("evm: createMarket: missing initial liquidity")
	}
	return c.transact(ctx, c.marketContract, c.market, marketABI, "createMarket",
		req.Title, req.Description, req.ResolutionCriteria, uint64(req.EndTime.Unix()), oracleAddr, req.InitialLiquidity)
}

// transact submits one transaction and waits for it to be mined. It is never
// retried: a failure is reported as-is.
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, to common.Address, parsed abi.ABI, method string, args ...any) (domain.TxReceipt, error) {
	if c.txOpts == nil {
		return domain.TxReceipt{}, fmt.Errorf("evm: %s: %w", method, domain.ErrWalletNotConnected)
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.TxTimeout)
	defer cancel()

	opts := *c.txOpts
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		if revert := revertFromError(method, err); revert != nil {
			return domain.TxReceipt{}, revert
		}
		return domain.TxReceipt{}, fmt.Errorf("evm: send %s: %w", method, err)
	}
	c.logger.Info("evm: transaction sent",
		slog.String("method", method),
		slog.String("tx", tx.Hash().Hex()),
	)

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return domain.TxReceipt{Hash: tx.Hash().Hex()}, fmt.Errorf("evm: wait %s: %w", method, err)
	}
	out := domain.TxReceipt{
		Hash:    tx.Hash().Hex(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := c.replayReason(ctx, to, parsed, method, args, receipt.BlockNumber)
		return out, &RevertError{Method: method, Reason: reason, TxHash: out.Hash}
	}
	return out, nil
}

// replayReason re-executes a mined, failed call to recover its revert
// reason. An empty string means the node did not return one.
func (c *Client) replayReason(ctx context.Context, to common.Address, parsed abi.ABI, method string, args []any, block *big.Int) string {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return ""
	}
	_, err = c.backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data}, block)
	if err == nil {
		return ""
	}
	if revert := revertFromError(method, err); revert != nil {
		return revert.Reason
	}
	return ""
}

// revertFromError recognises a node error that carries revert data or an
// "execution reverted" message.
func revertFromError(method string, err error) *RevertError {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return &RevertError{Method: method, Reason: reason, Err: err}
				}
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, "execution reverted"); i >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[i+len("execution reverted"):], ":"))
		return &RevertError{Method: method, Reason: reason, Err: err}
	}
	return nil
}
