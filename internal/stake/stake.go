// Package stake implements the stake-search adapter that asks the
// wallet for a winning coinstake proof: the testnet rate-limit sleep
// and the wallet's CreateCoinStake call. The caller passes the result
// to blocktemplate.Build, which applies its time and stake pointer.
package stake

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/faults"
)

// testnetRateLimitWindow and testnetRateLimitSleep implement the
// testnet rate limit: if the network is testnet and the tip is
// younger than the window, sleep before searching, so a small testnet
// does not burn through stake-pointer reuse windows.
const (
	testnetRateLimitWindow = 30 * time.Second
	testnetRateLimitSleep  = 30 * time.Second
)

// Search asks the wallet for a winning stake proof at (height, bits),
// starting no earlier than startTime. It returns faults.StakeNotFound
// when the wallet's search comes back empty — the caller (the staking
// loop) treats that as routine and retries, never building a template
// for it.
func Search(ctx context.Context, chain chainiface.ChainView, wallet chainiface.Wallet, consensus chainiface.ConsensusParams, height uint64, bits uint32) (*chainiface.CoinstakeResult, error) {
	startTime := chain.AdjustedTime()

	if consensus.IsTestnet && startTime.Sub(chain.TipTime()) < testnetRateLimitWindow {
		if err := sleepInterruptible(ctx, testnetRateLimitSleep); err != nil {
			return nil, err
		}
		startTime = chain.AdjustedTime()
	}

	result, ok, err := wallet.CreateCoinStake(height, bits, startTime)
	if err != nil {
		return nil, errors.Wrap(faults.TemplateBuildFailure, err.Error())
	}
	if !ok {
		return nil, faults.StakeNotFound
	}
	return &result, nil
}

// sleepInterruptible blocks for d or until ctx is cancelled, whichever
// comes first — every sleep in this module honors the staking loop's
// cancellation signal.
func sleepInterruptible(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
