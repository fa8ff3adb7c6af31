package selector

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/mempool"
	"github.com/crowngate/stakeassembler/internal/txtypes"
)

func newEntry(id byte, fee btcutil.Amount, size int64, spends ...chainhash.Hash) *mempool.Entry {
	var txid chainhash.Hash
	txid[0] = id

	tx := &txtypes.Transaction{
		Outputs: txtypes.LegacyOutputs{{Value: fee + 1000, PkScript: []byte{0x51}}},
	}
	for _, prev := range spends {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: prev, Index: 0}})
	}

	return &mempool.Entry{
		TxID:        txid,
		Tx:          tx,
		VirtualSize: size,
		Weight:      size,
		Fee:         fee,
		ModifiedFee: fee,
	}
}

func bigBudgets() Budgets {
	return Budgets{MaxWeight: 4_000_000, MaxSigops: 80_000}
}

// TestSelectAncestorPackageIncludesParentBeforeChild verifies that a
// child with a much higher standalone feerate than its
// parent must still only enter the block as part of the {parent, child}
// package, parent first.
func TestSelectAncestorPackageIncludesParentBeforeChild(t *testing.T) {
	pool := mempool.NewPool()

	a := newEntry(1, 2000, 200) // 10/byte standalone
	pool.Add(a)
	b := newEntry(2, 3000, 100, a.TxID) // 30/byte standalone, ancestor feerate (5000/300)=16.67/byte
	pool.Add(b)

	params := Params{
		Budgets:        bigBudgets(),
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		LockTimeCutoff: time.Unix(1<<31, 0),
		IncludeWitness: true,
	}

	result := Select(pool, params, 0, 0, nil)

	if len(result.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(result.Entries))
	}
	if result.Entries[0].TxID != a.TxID {
		t.Fatalf("Entries[0] = %v, want A (ancestor must precede descendant)", result.Entries[0].TxID)
	}
	if result.Entries[1].TxID != b.TxID {
		t.Fatalf("Entries[1] = %v, want B", result.Entries[1].TxID)
	}
	if result.Fees != a.ModifiedFee+b.ModifiedFee {
		t.Fatalf("Fees = %d, want %d", result.Fees, a.ModifiedFee+b.ModifiedFee)
	}
	if result.PackagesSelected != 1 {
		t.Fatalf("PackagesSelected = %d, want 1 (A and B commit as a single package)", result.PackagesSelected)
	}
}

// TestSelectOrdersIndependentEntriesByFeeRate verifies that an
// unrelated, lower-feerate transaction sorts after a higher-feerate
// package but is still included when the budget allows it.
func TestSelectOrdersIndependentEntriesByFeeRate(t *testing.T) {
	pool := mempool.NewPool()

	a := newEntry(1, 2000, 200)
	pool.Add(a)
	b := newEntry(2, 3000, 100, a.TxID)
	pool.Add(b)
	c := newEntry(3, 100, 200) // 0.5/byte, independent, lowest feerate
	pool.Add(c)

	params := Params{
		Budgets:        bigBudgets(),
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		LockTimeCutoff: time.Unix(1<<31, 0),
		IncludeWitness: true,
	}

	result := Select(pool, params, 0, 0, nil)

	if len(result.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(result.Entries))
	}
	if result.Entries[2].TxID != c.TxID {
		t.Fatalf("Entries[2] = %v, want C to sort last (lowest feerate)", result.Entries[2].TxID)
	}
}

// TestSelectStopsAtMinFeeRate verifies that once the
// best remaining package falls below blockMinTxFee the selector stops
// immediately rather than skipping ahead for a later, smaller one.
func TestSelectStopsAtMinFeeRate(t *testing.T) {
	pool := mempool.NewPool()

	a := newEntry(1, 2000, 200) // 10/byte
	pool.Add(a)
	b := newEntry(2, 50, 100) // 0.5/byte, independent
	pool.Add(b)

	params := Params{
		Budgets:        bigBudgets(),
		MinFeeRate:     feerate.FeeRate{Fee: 1, Size: 1}, // 1/byte floor
		LockTimeCutoff: time.Unix(1<<31, 0),
		IncludeWitness: true,
	}

	result := Select(pool, params, 0, 0, nil)

	if len(result.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1 (B is below the fee floor)", len(result.Entries))
	}
	if result.Entries[0].TxID != a.TxID {
		t.Fatalf("Entries[0] = %v, want A", result.Entries[0].TxID)
	}
}

// TestSelectRespectsWeightBudget verifies the budget-exhaustion
// case: a package that would overflow maxWeight is skipped without
// terminating the run, so a smaller later package can still be picked
// up.
func TestSelectRespectsWeightBudget(t *testing.T) {
	pool := mempool.NewPool()

	big := newEntry(1, 10_000, 1000) // 10/byte, but won't fit
	pool.Add(big)
	small := newEntry(2, 500, 100) // 5/byte, fits
	pool.Add(small)

	params := Params{
		Budgets:        Budgets{MaxWeight: 500, MaxSigops: 80_000},
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		LockTimeCutoff: time.Unix(1<<31, 0),
		IncludeWitness: true,
	}

	result := Select(pool, params, 0, 0, nil)

	if len(result.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(result.Entries))
	}
	if result.Entries[0].TxID != small.TxID {
		t.Fatalf("Entries[0] = %v, want the small entry that fits the budget", result.Entries[0].TxID)
	}
}

// TestSelectScalesVsizeIntoWeightForBudget verifies the budget test
// compares like units: a package whose real weight (not vsize) would
// overflow MaxWeight must be rejected even though its vsize alone
// looks like it fits.
func TestSelectScalesVsizeIntoWeightForBudget(t *testing.T) {
	pool := mempool.NewPool()

	entry := newEntry(1, 10_000, 300) // 33/byte, comfortably above the floor
	entry.Weight = 1200               // a witness-scale-factor-4 transaction
	pool.Add(entry)

	params := Params{
		Budgets:            Budgets{MaxWeight: 1000, MaxSigops: 80_000},
		MinFeeRate:         feerate.FeeRate{Fee: 0, Size: 1},
		LockTimeCutoff:     time.Unix(1<<31, 0),
		IncludeWitness:     true,
		WitnessScaleFactor: 4,
	}

	result := Select(pool, params, 0, 0, nil)

	if len(result.Entries) != 0 {
		t.Fatalf("len(Entries) = %d, want 0 (scaled weight 1200 exceeds MaxWeight 1000)", len(result.Entries))
	}
}

func TestSelectEmptyMempool(t *testing.T) {
	pool := mempool.NewPool()
	params := Params{
		Budgets:        bigBudgets(),
		MinFeeRate:     feerate.FeeRate{Fee: 0, Size: 1},
		LockTimeCutoff: time.Unix(1<<31, 0),
		IncludeWitness: true,
	}
	result := Select(pool, params, 0, 0, nil)
	if len(result.Entries) != 0 {
		t.Fatalf("len(Entries) = %d, want 0", len(result.Entries))
	}
}
