package ledger

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/alanyoungcy/zento/internal/domain"
)

var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), oneToken)
}

func outcome(o domain.Outcome) *domain.Outcome { return &o }

func openMarket(id uint64, yesBp int64) domain.MarketState {
	return domain.MarketState{
		ID:             id,
		Title:          "Will it rain?",
		YesPriceBp:     yesBp,
		NoPriceBp:      domain.BasisPoints - yesBp,
		TotalYesShares: tokens(100),
		TotalNoShares:  tokens(100),
	}
}

func resolvedMarket(id uint64, winner domain.Outcome) domain.MarketState {
	m := openMarket(id, 5000)
	m.Resolved = true
	m.Outcome = outcome(winner)
	return m
}

func position(id, marketID uint64, side domain.Outcome, shares int64, avgBp int64) domain.Position {
	return domain.Position{
		ID:         id,
		Owner:      "0xabc",
		MarketID:   marketID,
		Outcome:    side,
		Shares:     tokens(shares),
		AvgPriceBp: avgBp,
		AcquiredAt: 1_700_000_000,
	}
}

func TestUpsertFromChainIdempotent(t *testing.T) {
	l := New()
	ps := []domain.Position{
		position(2, 7, domain.OutcomeNo, 5, 4000),
		position(1, 7, domain.OutcomeYes, 10, 6000),
	}
	l.UpsertFromChain(7, ps)
	first := l.Positions(7)
	l.UpsertFromChain(7, ps)
	second := l.Positions(7)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("state changed on re-apply:\n%v\n%v", first, second)
	}
	if len(second) != 2 || second[0].ID != 1 {
		t.Fatalf("unexpected positions %v", second)
	}
}

func TestUpsertFromChainReplaces(t *testing.T) {
	l := New()
	l.UpsertFromChain(7, []domain.Position{position(1, 7, domain.OutcomeYes, 10, 6000)})
	l.UpsertFromChain(7, []domain.Position{position(3, 7, domain.OutcomeNo, 1, 4000)})

	got := l.Positions(7)
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("positions = %v, want only id 3", got)
	}

	l.UpsertFromChain(7, nil)
	if got := l.Positions(7); len(got) != 0 {
		t.Fatalf("positions after empty read = %v", got)
	}
}

func TestUpsertFromChainDoesNotAlias(t *testing.T) {
	l := New()
	ps := []domain.Position{position(1, 7, domain.OutcomeYes, 10, 6000)}
	l.UpsertFromChain(7, ps)
	ps[0].Shares.SetInt64(0)

	if got := l.Positions(7)[0].Shares; got.Cmp(tokens(10)) != 0 {
		t.Fatalf("cached shares mutated through caller slice: %s", got)
	}
}

func TestCurrentValueAndPnL(t *testing.T) {
	m := openMarket(1, 7000)
	p := position(1, 1, domain.OutcomeYes, 100, 5000)

	if got := CurrentValue(p, m); got.Cmp(tokens(70)) != 0 {
		t.Errorf("CurrentValue = %s, want %s", got, tokens(70))
	}
	pnl := ComputePnL(p, m)
	if pnl.Absolute.Cmp(tokens(20)) != 0 {
		t.Errorf("PnL.Absolute = %s, want %s", pnl.Absolute, tokens(20))
	}
	if pnl.Percent != 40 {
		t.Errorf("PnL.Percent = %v, want 40", pnl.Percent)
	}
}

func TestPnLZeroCost(t *testing.T) {
	m := openMarket(1, 7000)
	p := position(1, 1, domain.OutcomeYes, 100, 0)

	pnl := ComputePnL(p, m)
	if pnl.Percent != 0 {
		t.Errorf("Percent = %v, want 0", pnl.Percent)
	}
	if pnl.Absolute.Cmp(tokens(70)) != 0 {
		t.Errorf("Absolute = %s, want %s", pnl.Absolute, tokens(70))
	}
}

func TestClaimEligibility(t *testing.T) {
	l := New()
	tests := []struct {
		name     string
		market   domain.MarketState
		side     domain.Outcome
		eligible bool
		status   domain.PositionStatus
	}{
		{"open market", openMarket(1, 5000), domain.OutcomeYes, false, domain.PositionOpen},
		{"winning side", resolvedMarket(1, domain.OutcomeYes), domain.OutcomeYes, true, domain.PositionClaimable},
		{"losing side", resolvedMarket(1, domain.OutcomeYes), domain.OutcomeNo, false, domain.PositionLost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := position(9, 1, tt.side, 3, 5000)
			if got := ClaimEligible(p, tt.market); got != tt.eligible {
				t.Errorf("ClaimEligible = %v, want %v", got, tt.eligible)
			}
			if got := l.Status(p, tt.market); got != tt.status {
				t.Errorf("Status = %q, want %q", got, tt.status)
			}
		})
	}
}

func TestMarkClaimed(t *testing.T) {
	l := New()
	m := resolvedMarket(4, domain.OutcomeNo)
	p := position(2, 4, domain.OutcomeNo, 3, 5000)

	if l.IsClaimed(4, 2) {
		t.Fatal("position claimed before MarkClaimed")
	}
	l.MarkClaimed(4, 2)
	if !l.IsClaimed(4, 2) {
		t.Fatal("IsClaimed = false after MarkClaimed")
	}
	if got := l.Status(p, m); got != domain.PositionClaimed {
		t.Errorf("Status = %q, want claimed", got)
	}
	if l.IsClaimed(2, 4) {
		t.Error("claim key must not be symmetric")
	}
}

func TestAggregates(t *testing.T) {
	l := New()
	l.UpsertMarket(openMarket(1, 6000))
	l.UpsertMarket(resolvedMarket(2, domain.OutcomeYes))
	l.UpsertMarket(resolvedMarket(3, domain.OutcomeNo))
	l.UpsertFromChain(1, []domain.Position{position(1, 1, domain.OutcomeYes, 10, 5000)})
	l.UpsertFromChain(2, []domain.Position{position(2, 2, domain.OutcomeYes, 10, 5000)})
	l.UpsertFromChain(3, []domain.Position{position(3, 3, domain.OutcomeYes, 10, 5000)})

	// 10*0.6 + 10*0.5 + 10*0.5
	if got := l.TotalValue(); got.Cmp(tokens(16)) != 0 {
		t.Errorf("TotalValue = %s, want %s", got, tokens(16))
	}
	if got := l.TotalShares(); got.Cmp(tokens(30)) != 0 {
		t.Errorf("TotalShares = %s, want %s", got, tokens(30))
	}
	if got := l.TotalCost(); got.Cmp(tokens(15)) != 0 {
		t.Errorf("TotalCost = %s, want %s", got, tokens(15))
	}
	if got := l.UnrealizedPnL(); got.Cmp(tokens(1)) != 0 {
		t.Errorf("UnrealizedPnL = %s, want %s", got, tokens(1))
	}
	wins, losses := l.Record()
	if wins != 1 || losses != 1 {
		t.Errorf("Record = %d/%d, want 1/1", wins, losses)
	}
	if got := l.WinRate(); got != 50 {
		t.Errorf("WinRate = %v, want 50", got)
	}
}

func TestWinRateWithoutResolvedMarkets(t *testing.T) {
	l := New()
	l.UpsertMarket(openMarket(1, 6000))
	l.UpsertFromChain(1, []domain.Position{position(1, 1, domain.OutcomeYes, 10, 5000)})
	if got := l.WinRate(); got != 0 {
		t.Errorf("WinRate = %v, want 0", got)
	}
}

func TestAvgHoldDays(t *testing.T) {
	l := New()
	l.UpsertMarket(openMarket(1, 6000))
	p1 := position(1, 1, domain.OutcomeYes, 1, 5000)
	p2 := position(2, 1, domain.OutcomeNo, 1, 5000)
	p1.AcquiredAt = 0
	p2.AcquiredAt = 2 * 86400
	l.UpsertFromChain(1, []domain.Position{p1, p2})

	now := time.Unix(4*86400, 0)
	if got := l.AvgHoldDays(now); got != 3 {
		t.Errorf("AvgHoldDays = %v, want 3", got)
	}
}

func TestSnapshot(t *testing.T) {
	l := New()
	m := resolvedMarket(5, domain.OutcomeYes)
	m.Creator = "0xABC"
	l.UpsertMarket(m)
	l.UpsertFromChain(5, []domain.Position{
		position(1, 5, domain.OutcomeYes, 4, 5000),
		position(2, 5, domain.OutcomeNo, 4, 5000),
	})
	l.MarkClaimed(5, 1)

	snap := l.Snapshot("0xabc", tokens(10), time.Unix(1_700_000_000, 0))
	if len(snap.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(snap.Positions))
	}
	if snap.Positions[0].Status != domain.PositionClaimed || snap.Positions[0].ClaimAllowed {
		t.Errorf("position 1 = %+v, want claimed and not claimable", snap.Positions[0])
	}
	if snap.Positions[1].Status != domain.PositionLost {
		t.Errorf("position 2 status = %q, want lost", snap.Positions[1].Status)
	}
	if snap.NetWorth.Cmp(tokens(14)) != 0 {
		t.Errorf("NetWorth = %s, want %s", snap.NetWorth, tokens(14))
	}
	if len(snap.Created) != 1 || snap.Created[0] != 5 {
		t.Errorf("Created = %v, want [5]", snap.Created)
	}
}
