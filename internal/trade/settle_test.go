package trade

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSettleAllWaitsForEveryTask(t *testing.T) {
	var done atomic.Int32
	slow := func(d time.Duration, err error) func(context.Context) error {
		return func(context.Context) error {
			time.Sleep(d)
			done.Add(1)
			return err
		}
	}

	s := SettleAll(context.Background(),
		Task{Name: "fast-fail", Run: slow(0, errors.New("boom"))},
		Task{Name: "slow-ok", Run: slow(30*time.Millisecond, nil)},
		Task{Name: "slow-fail", Run: slow(20*time.Millisecond, errors.New("late"))},
	)

	if got := done.Load(); got != 3 {
		t.Fatalf("SettleAll returned with %d of 3 tasks finished", got)
	}
	if s.Total != 3 || s.Failed() != 2 {
		t.Errorf("settlement = %+v", s)
	}
	if _, ok := s.Errors["slow-ok"]; ok {
		t.Error("successful task reported as failed")
	}
}

func TestSettleAllEmpty(t *testing.T) {
	s := SettleAll(context.Background())
	if s.Total != 0 || s.Failed() != 0 {
		t.Errorf("settlement = %+v", s)
	}
}
