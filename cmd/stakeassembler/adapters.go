package main

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/crowngate/stakeassembler/internal/blocktemplate"
	"github.com/crowngate/stakeassembler/internal/chainiface"
)

// The collaborators below are a reference implementation of the
// chainiface/stakeloop ports: the host process is expected to supply
// its own concrete adapters. A real deployment replaces every type in
// this file with one backed by its actual chainstate, wallet, and
// payment system; none of that is in this module's scope. This demo
// harness exists so the binary built here actually exercises the
// whole assembler and staking-loop pipeline end to end rather than
// only type-checking against the ports.

// demoChain is a fixed, non-advancing chain view: no peer, no tip
// beyond the configured genesis stand-in. Good enough to drive one
// createNewBlock call; a real ChainView tracks an actual best tip.
type demoChain struct {
	height uint64
	tip    time.Time
	bits   uint32
}

func (c *demoChain) Height() uint64            { return c.height }
func (c *demoChain) TipHash() chainhash.Hash   { return chainhash.Hash{} }
func (c *demoChain) TipTime() time.Time        { return c.tip }
func (c *demoChain) MedianTimePast() time.Time { return c.tip }
func (c *demoChain) AdjustedTime() time.Time   { return time.Now() }
func (c *demoChain) GetNextTarget(chainiface.BlockHeader, time.Time) uint32 {
	return c.bits
}

var _ chainiface.ChainView = (*demoChain)(nil)

// demoGuard never claims to be a synced service node, so the staking
// loop's Guarded state never advances to Work without a real node
// behind it.
type demoGuard struct{}

func (demoGuard) IsServiceNode() bool { return false }
func (demoGuard) IsSynced() bool      { return false }

var _ chainiface.SyncGuard = demoGuard{}

// demoWallet reports itself permanently locked: no key material lives
// in this demo, so the staking loop logs and waits rather than ever
// attempting a stake search.
type demoWallet struct{}

func (demoWallet) IsLocked() bool          { return true }
func (demoWallet) HasStakeableCoins() bool { return false }
func (demoWallet) CreateCoinStake(uint64, uint32, time.Time) (chainiface.CoinstakeResult, bool, error) {
	return chainiface.CoinstakeResult{}, false, nil
}
func (demoWallet) SignBlock([]byte) ([]byte, error) {
	return nil, errors.New("demo wallet holds no signing key")
}

var _ chainiface.Wallet = demoWallet{}

// demoResolvers reports node payments as inactive and no superblock,
// so the PoW startup self-test in main.go runs the simplest path through the
// assembler's coinbase/coinstake construction.
type demoResolvers struct{}

func (demoResolvers) NodePaymentsActive(uint64) bool { return false }
func (demoResolvers) FillMasternodePayee(uint64) ([]byte, btcutil.Amount, bool) {
	return nil, 0, false
}
func (demoResolvers) FillSystemnodePayee(uint64) ([]byte, btcutil.Amount, bool) {
	return nil, 0, false
}
func (demoResolvers) IsBudgetPaymentBlock(uint64) bool { return false }

var _ chainiface.PayeeResolvers = demoResolvers{}

// demoSubmitter stands in for processNewBlock: it logs the template it
// was handed and always accepts it.
type demoSubmitter struct{}

func (demoSubmitter) ProcessNewBlock(t *blocktemplate.BlockTemplate) error {
	cmdLog.Infof("demo submitter accepted template %s at height %d (weight=%d fees=%d)",
		t.InvocationID, t.Height, t.Weight, t.Fees)
	return nil
}
