// Package budget enforces the daily spend ceiling on paid-call
// endpoints.
package budget

import (
	"context"
	"fmt"
	"time"

	"ruleoracle/internal/store"
)

type Gate struct {
	costs    *store.CostRepo
	dailyCap float64
}

func New(costs *store.CostRepo, dailyCapUSD float64) *Gate {
	return &Gate{costs: costs, dailyCap: dailyCapUSD}
}

// Check returns (admit, retryAfter). retryAfter is only meaningful when
// admit is false, set to the next UTC midnight.
func (g *Gate) Check(ctx context.Context) (bool, time.Time, error) {
	spent, err := g.costs.Sum24h(ctx)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("budget: sum costs: %w", err)
	}
	if spent >= g.dailyCap {
		return false, nextUTCMidnight(time.Now().UTC()), nil
	}
	return true, time.Time{}, nil
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
