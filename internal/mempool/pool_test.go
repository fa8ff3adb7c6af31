package mempool

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/crowngate/stakeassembler/internal/txtypes"
)

// newTestEntry builds a minimal entry spending the given previous
// outpoints, with byte 0 of the txid set to id so tests can build a
// deterministic, orderable chain of fake transactions.
func newTestEntry(id byte, fee btcutil.Amount, size int64, spends ...chainhash.Hash) *Entry {
	var txid chainhash.Hash
	txid[0] = id

	tx := &txtypes.Transaction{
		Outputs: txtypes.LegacyOutputs{{Value: fee + 1000, PkScript: []byte{0x51}}},
	}
	for _, prev := range spends {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: prev, Index: 0},
		})
	}

	return &Entry{
		TxID:        txid,
		Tx:          tx,
		VirtualSize: size,
		Weight:      size * 4,
		Fee:         fee,
		ModifiedFee: fee,
	}
}

func TestPoolAncestorAggregatesAccumulateAcrossChain(t *testing.T) {
	pool := NewPool()

	parent := newTestEntry(1, 2000, 200)
	pool.Add(parent)

	child := newTestEntry(2, 3000, 100, parent.TxID)
	pool.Add(child)

	if child.Ancestor.Count != 2 {
		t.Fatalf("child ancestor count = %d, want 2", child.Ancestor.Count)
	}
	wantFee := parent.ModifiedFee + child.ModifiedFee
	if child.Ancestor.ModifiedFee != wantFee {
		t.Fatalf("child ancestor fee = %d, want %d", child.Ancestor.ModifiedFee, wantFee)
	}
	wantSize := parent.VirtualSize + child.VirtualSize
	if child.Ancestor.Size != wantSize {
		t.Fatalf("child ancestor size = %d, want %d", child.Ancestor.Size, wantSize)
	}

	if parent.Ancestor.Count != 1 {
		t.Fatalf("parent ancestor count = %d, want 1 (no in-mempool parents of its own)", parent.Ancestor.Count)
	}
}

func TestPoolOrderedByAncestorFeeRateDescending(t *testing.T) {
	pool := NewPool()

	low := newTestEntry(1, 100, 200)   // 0.5/byte
	high := newTestEntry(2, 900, 100)  // 9/byte
	mid := newTestEntry(3, 300, 100)   // 3/byte
	pool.Add(low)
	pool.Add(high)
	pool.Add(mid)

	ordered := pool.OrderedByAncestorFeeRate()
	if len(ordered) != 3 {
		t.Fatalf("len(ordered) = %d, want 3", len(ordered))
	}
	if ordered[0].TxID != high.TxID || ordered[1].TxID != mid.TxID || ordered[2].TxID != low.TxID {
		t.Fatalf("ordered = %v, %v, %v; want high, mid, low", ordered[0].TxID, ordered[1].TxID, ordered[2].TxID)
	}
}

func TestPoolCalculateDescendants(t *testing.T) {
	pool := NewPool()

	parent := newTestEntry(1, 1000, 100)
	pool.Add(parent)
	child := newTestEntry(2, 1000, 100, parent.TxID)
	pool.Add(child)
	grandchild := newTestEntry(3, 1000, 100, child.TxID)
	pool.Add(grandchild)

	descendants := pool.CalculateDescendants(parent)
	if len(descendants) != 2 {
		t.Fatalf("len(descendants) = %d, want 2", len(descendants))
	}
}

func TestLessTieBreaksOnSmallerTxID(t *testing.T) {
	a := newTestEntry(2, 1000, 100)
	b := newTestEntry(1, 1000, 100) // same feerate, smaller txid

	if !Less(a, b) {
		t.Fatalf("Less(a, b) = false, want true: equal feerate, b has the smaller txid and must rank higher")
	}
	if Less(b, a) {
		t.Fatalf("Less(b, a) = true, want false")
	}
}
