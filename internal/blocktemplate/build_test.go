package blocktemplate

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/mempool"
	"github.com/crowngate/stakeassembler/internal/txtypes"
)

// newTestEntry builds and adds a standalone mempool entry (no
// ancestors) carrying the given fee, vsize, and sigops cost.
func newTestEntry(pool *mempool.Pool, id byte, fee btcutil.Amount, size int64, sigops int64) *mempool.Entry {
	var txid chainhash.Hash
	txid[0] = id

	entry := &mempool.Entry{
		TxID:        txid,
		Tx:          &txtypes.Transaction{Outputs: txtypes.LegacyOutputs{{Value: fee + 1000, PkScript: []byte{0x51}}}},
		VirtualSize: size,
		Weight:      size,
		Fee:         fee,
		ModifiedFee: fee,
		SigopsCost:  sigops,
	}
	pool.Add(entry)
	return entry
}

type fakeChain struct {
	height uint64
	tip    time.Time
	mtp    time.Time
	bits   uint32
}

func (c *fakeChain) Height() uint64                 { return c.height }
func (c *fakeChain) TipHash() chainhash.Hash         { return chainhash.Hash{} }
func (c *fakeChain) TipTime() time.Time              { return c.tip }
func (c *fakeChain) MedianTimePast() time.Time       { return c.mtp }
func (c *fakeChain) AdjustedTime() time.Time         { return c.tip.Add(time.Second) }
func (c *fakeChain) GetNextTarget(chainiface.BlockHeader, time.Time) uint32 { return c.bits }

var _ chainiface.ChainView = (*fakeChain)(nil)

type fakeResolvers struct {
	active     bool
	mnScript   []byte
	mnReward   btcutil.Amount
	mnOK       bool
	snScript   []byte
	snReward   btcutil.Amount
	snOK       bool
	superblock bool
}

func (r *fakeResolvers) NodePaymentsActive(uint64) bool { return r.active }
func (r *fakeResolvers) FillMasternodePayee(uint64) ([]byte, btcutil.Amount, bool) {
	return r.mnScript, r.mnReward, r.mnOK
}
func (r *fakeResolvers) FillSystemnodePayee(uint64) ([]byte, btcutil.Amount, bool) {
	return r.snScript, r.snReward, r.snOK
}
func (r *fakeResolvers) IsBudgetPaymentBlock(uint64) bool { return r.superblock }

var _ chainiface.PayeeResolvers = (*fakeResolvers)(nil)

// TestBuildEmptyMempoolPoW verifies that an empty
// mempool produces a single-transaction template whose coinbase pays
// the configured reward script the full subsidy.
func TestBuildEmptyMempoolPoW(t *testing.T) {
	pool := mempool.NewPool()
	chain := &fakeChain{height: 99, tip: time.Unix(1_700_000_000, 0), bits: 0x1d00ffff}
	consensus := chainiface.ConsensusParams{
		Subsidy: func(height uint64) btcutil.Amount { return 5_000_000_000 },
	}

	template, err := Build(pool, chain, nil, consensus, Params{
		RewardScript:   []byte{0x51},
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		MaxWeight:      4_000_000,
		MaxSigops:      80_000,
		IncludeWitness: true,
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(template.Block.Transactions) != 1 {
		t.Fatalf("len(Transactions) = %d, want 1", len(template.Block.Transactions))
	}
	coinbase := template.Block.Transactions[0]
	if coinbase.Outputs.Value(0) != 5_000_000_000 {
		t.Fatalf("coinbase out0 = %d, want 5_000_000_000", coinbase.Outputs.Value(0))
	}
}

// TestBuildProofOfStakeWithNodePayments verifies that
// node payments decrement the coinstake's reward and are recorded in
// the header's payee fields.
func TestBuildProofOfStakeWithNodePayments(t *testing.T) {
	pool := mempool.NewPool()
	chain := &fakeChain{height: 500, tip: time.Unix(1_700_000_000, 0), bits: 0x1e0fffff}
	consensus := chainiface.ConsensusParams{IsTestnet: false}
	resolvers := &fakeResolvers{
		active: true, mnScript: []byte{0xaa}, mnReward: 100_000_000, mnOK: true,
		snScript: []byte{0xbb}, snReward: 100_000_000, snOK: true,
	}
	stake := &chainiface.CoinstakeResult{
		NewTime:     chain.tip.Add(2 * time.Second),
		RewardValue: 1_000_000_000,
	}

	template, err := Build(pool, chain, resolvers, consensus, Params{
		ProofOfStake:   true,
		Stake:          stake,
		Bits:           chain.bits,
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		MaxWeight:      4_000_000,
		MaxSigops:      80_000,
		IncludeWitness: true,
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(template.Block.Transactions) != 2 {
		t.Fatalf("len(Transactions) = %d, want 2 (coinbase + coinstake)", len(template.Block.Transactions))
	}
	coinbase, coinstake := template.Block.Transactions[0], template.Block.Transactions[1]
	if coinbase.Outputs.Value(0) != 0 {
		t.Fatalf("coinbase out0 = %d, want 0 (PoS reward pays via coinstake)", coinbase.Outputs.Value(0))
	}
	if coinbase.Outputs.Value(MNPaymentSlot) != 100_000_000 {
		t.Fatalf("coinbase MN slot = %d, want 100_000_000", coinbase.Outputs.Value(MNPaymentSlot))
	}
	wantCoinstake := btcutil.Amount(1_000_000_000 - 100_000_000 - 100_000_000)
	if coinstake.Outputs.Value(0) != wantCoinstake {
		t.Fatalf("coinstake out0 = %d, want %d", coinstake.Outputs.Value(0), wantCoinstake)
	}
	if string(template.Block.Header.PayeeMN) != string([]byte{0xaa}) {
		t.Fatalf("header.PayeeMN = %x, want aa", template.Block.Header.PayeeMN)
	}
}

// TestBuildPopulatesPerTxFeesAndSigops verifies that PerTxFees and
// PerTxSigops are populated in lockstep with Block.Transactions, with
// the coinbase carrying the negative of the block's total fees.
func TestBuildPopulatesPerTxFeesAndSigops(t *testing.T) {
	pool := mempool.NewPool()
	newTestEntry(pool, 1, 5000, 200, 2)

	chain := &fakeChain{height: 99, tip: time.Unix(1_700_000_000, 0), bits: 0x1d00ffff}
	consensus := chainiface.ConsensusParams{
		Subsidy: func(height uint64) btcutil.Amount { return 5_000_000_000 },
	}

	template, err := Build(pool, chain, nil, consensus, Params{
		RewardScript:   []byte{0x51},
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		MaxWeight:      4_000_000,
		MaxSigops:      80_000,
		IncludeWitness: true,
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(template.PerTxFees) != len(template.Block.Transactions) {
		t.Fatalf("len(PerTxFees) = %d, want %d", len(template.PerTxFees), len(template.Block.Transactions))
	}
	if len(template.PerTxSigops) != len(template.Block.Transactions) {
		t.Fatalf("len(PerTxSigops) = %d, want %d", len(template.PerTxSigops), len(template.Block.Transactions))
	}
	if template.PerTxFees[0] != -template.Fees {
		t.Fatalf("PerTxFees[0] = %d, want %d (negative of total fees)", template.PerTxFees[0], -template.Fees)
	}
	if template.PerTxFees[1] != 5000 {
		t.Fatalf("PerTxFees[1] = %d, want 5000", template.PerTxFees[1])
	}
	if template.PerTxSigops[1] != 2 {
		t.Fatalf("PerTxSigops[1] = %d, want 2", template.PerTxSigops[1])
	}
}

// TestBuildSuperblockSkipsDecrement verifies that on a
// superblock height the coinstake keeps the full block value even
// though node-payment outputs are still present.
func TestBuildSuperblockSkipsDecrement(t *testing.T) {
	pool := mempool.NewPool()
	chain := &fakeChain{height: 1000, tip: time.Unix(1_700_000_000, 0), bits: 0x1e0fffff}
	resolvers := &fakeResolvers{
		active: true, mnScript: []byte{0xaa}, mnReward: 100_000_000, mnOK: true,
		superblock: true,
	}
	stake := &chainiface.CoinstakeResult{NewTime: chain.tip, RewardValue: 1_000_000_000}

	template, err := Build(pool, chain, resolvers, chainiface.ConsensusParams{}, Params{
		ProofOfStake:   true,
		Stake:          stake,
		Bits:           chain.bits,
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		MaxWeight:      4_000_000,
		MaxSigops:      80_000,
		IncludeWitness: true,
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	coinstake := template.Block.Transactions[1]
	if coinstake.Outputs.Value(0) != 1_000_000_000 {
		t.Fatalf("coinstake out0 = %d, want 1_000_000_000 (no decrement on superblock)", coinstake.Outputs.Value(0))
	}
	if template.Block.Header.PayeeMN != nil {
		t.Fatalf("header.PayeeMN = %x, want nil on a superblock", template.Block.Header.PayeeMN)
	}
}
