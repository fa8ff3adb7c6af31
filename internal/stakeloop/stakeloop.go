// Package stakeloop implements the staking loop state machine
// (Cold/Guarded/Idle/Work) that repeatedly asks the stake search and
// assembler for a proof-of-stake template and submits it. Start
// returns an owned *Handle rather than leaving the worker goroutine
// referenced only by a package-level variable.
package stakeloop

import (
	"context"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/pkg/errors"

	"github.com/crowngate/stakeassembler/internal/blocktemplate"
	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/faults"
	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/mempool"
	"github.com/crowngate/stakeassembler/internal/panics"
	"github.com/crowngate/stakeassembler/internal/selector"
	"github.com/crowngate/stakeassembler/internal/stake"
)

// Sleep durations for each phase of the Cold/Guarded/Idle/Work loop.
const (
	coldSleep         = 180 * time.Second
	walletLockedSleep = 60 * time.Second
	notEligibleSleep  = 10 * time.Second
	idleSleep         = 600 * time.Second
)

// Submitter hands a finished proof-of-stake template to the rest of
// the node. A rejection is treated as a bug, not a transient
// condition, so the loop exits permanently on error.
type Submitter interface {
	ProcessNewBlock(*blocktemplate.BlockTemplate) error
}

// Config bundles the collaborators and policy the loop needs.
type Config struct {
	View      mempool.View
	Chain     chainiface.ChainView
	Guard     chainiface.SyncGuard
	Wallet    chainiface.Wallet
	Resolvers chainiface.PayeeResolvers
	Consensus chainiface.ConsensusParams
	Submitter Submitter
	Log       btclog.Logger
	SelLog    selector.Logger

	RewardScript   []byte
	MinFeeRate     feerate.FeeRate
	MaxWeight      int64
	MaxSigops      int64
	IncludeWitness bool
	PrintPriority  bool
	Jumpstart      bool
}

// Handle is the caller-owned worker started by Start. The original
// ThreadStakeMiner left its thread reachable only through a
// process-global handle copied by value; Handle instead gives the
// caller the only reference, and Stop both signals and joins.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the staking loop in its own goroutine, panic-safe,
// and returns a Handle the caller must eventually Stop. cfg is copied,
// but the collaborators and slices it holds are shared with the
// worker; the caller must not mutate them after Start.
func Start(cfg Config) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	launch := panics.GoroutineWrapperFunc(cfg.Log)
	launch(func() {
		defer close(h.done)
		run(ctx, cfg)
	})

	return h
}

// Stop signals the worker to exit and blocks until it has returned.
// Every sleep is interruptible, so Stop returns promptly while the
// worker is sleeping; during a Work iteration it waits for that
// iteration to finish.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// phase names one step of the Guarded/Idle/Work state table.
type phase int

const (
	phaseWalletLocked phase = iota
	phaseNotEligible
	phaseNotSynced
	phaseIdle
	phaseWork
)

// evaluate is the pure decision half of the state table: given the
// current collaborator state, which row applies. Kept free of any
// sleeping or I/O so it can be exercised directly by tests.
func evaluate(cfg Config, height uint64) phase {
	if cfg.Wallet.IsLocked() {
		return phaseWalletLocked
	}

	tipInFuture := cfg.Chain.AdjustedTime().Before(cfg.Chain.TipTime())
	if height < cfg.Consensus.PoSStartHeight || !cfg.Guard.IsServiceNode() || tipInFuture {
		return phaseNotEligible
	}

	if !cfg.Guard.IsSynced() && !cfg.Jumpstart {
		return phaseNotSynced
	}

	if !cfg.Wallet.HasStakeableCoins() {
		return phaseIdle
	}

	return phaseWork
}

func run(ctx context.Context, cfg Config) {
	if sleepInterruptible(ctx, coldSleep) != nil {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		height := cfg.Chain.Height() + 1

		switch evaluate(cfg, height) {
		case phaseWalletLocked:
			cfg.Log.Infof("stakeloop: wallet is locked, waiting")
			if sleepInterruptible(ctx, walletLockedSleep) != nil {
				return
			}
		case phaseNotEligible, phaseNotSynced:
			if sleepInterruptible(ctx, notEligibleSleep) != nil {
				return
			}
		case phaseIdle:
			if sleepInterruptible(ctx, idleSleep) != nil {
				return
			}
		case phaseWork:
			if !work(ctx, cfg, height) {
				return
			}
		}
	}
}

// work runs one Work-state iteration: search for a stake, build a
// template, sign it, submit it. It returns false when the loop must
// exit permanently (a faults.TemplateInvalid build failure, submission
// rejection, or cancellation), true to loop back to Guarded for the
// next attempt.
func work(ctx context.Context, cfg Config, height uint64) bool {
	prev := chainiface.BlockHeader{PrevHash: cfg.Chain.TipHash()}
	bits := cfg.Chain.GetNextTarget(prev, cfg.Chain.AdjustedTime())

	stakeResult, err := stake.Search(ctx, cfg.Chain, cfg.Wallet, cfg.Consensus, height, bits)
	if err != nil {
		if errors.Is(err, faults.StakeNotFound) {
			return true
		}
		return ctx.Err() == nil
	}

	template, err := blocktemplate.Build(cfg.View, cfg.Chain, cfg.Resolvers, cfg.Consensus, blocktemplate.Params{
		RewardScript:   cfg.RewardScript,
		ProofOfStake:   true,
		Stake:          stakeResult,
		Bits:           bits,
		MinFeeRate:     cfg.MinFeeRate,
		MaxWeight:      cfg.MaxWeight,
		MaxSigops:      cfg.MaxSigops,
		IncludeWitness: cfg.IncludeWitness,
		PrintPriority:  cfg.PrintPriority,
	}, cfg.SelLog)
	if err != nil {
		if errors.Is(err, faults.TemplateInvalid) {
			cfg.Log.Criticalf("stakeloop: assembler self-check failed, exiting: %s", err)
			return false
		}
		cfg.Log.Warnf("stakeloop: template build failed: %s", err)
		return true
	}

	signature, err := cfg.Wallet.SignBlock(template.SigningPayload())
	if err != nil {
		cfg.Log.Warnf("stakeloop: signing failed: %s", err)
		return true
	}
	template.Signature = signature

	if err := cfg.Submitter.ProcessNewBlock(template); err != nil {
		cfg.Log.Criticalf("stakeloop: submission rejected, exiting: %s", err)
		return false
	}

	return true
}

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
