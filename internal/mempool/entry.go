// Package mempool provides the read-only indexed view of pending
// transactions the selector consumes, plus a reference in-memory
// implementation used by tests and by simple hosts that don't need a
// full admission-policy mempool — policy itself (signature checking,
// replace-by-fee, dust) is out of scope here.
package mempool

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/txtypes"
)

// EntryID is a stable handle into the mempool's arena, used as the key
// of the lookup maps rather than raw iterators. The ordered indices
// themselves key on (feerate, txid).
type EntryID uint64

// AncestorAggregates are the four running sums tracked over a
// transaction's in-mempool ancestor set.
type AncestorAggregates struct {
	Size        int64
	ModifiedFee btcutil.Amount
	SigopsCost  int64
	Count       int64
}

// Entry is an immutable handle identifying one pending transaction.
type Entry struct {
	ID          EntryID
	TxID        chainhash.Hash
	Tx          *txtypes.Transaction
	VirtualSize int64
	Weight      int64
	SigopsCost  int64
	Fee         btcutil.Amount
	ModifiedFee btcutil.Amount
	Witness     bool
	LockTime    uint32
	Ancestor    AncestorAggregates
}

// AncestorFeeRate is the entry's ancestor feerate: modified fee of the
// transaction plus all in-mempool ancestors, divided by their combined
// size. It is only ever used through FeeRate.Less, never divided
// directly.
func (e *Entry) AncestorFeeRate() feerate.FeeRate {
	return feerate.FeeRate{Fee: e.Ancestor.ModifiedFee, Size: e.Ancestor.Size}
}

// Less implements the entry total order, ascending: primary key
// ancestor feerate, tie-broken by txid for determinism.
// "Best" entries (highest ancestor feerate) sort last under this
// order; callers that want best-first iterate in reverse.
func Less(a, b *Entry) bool {
	fa, fb := a.AncestorFeeRate(), b.AncestorFeeRate()
	if fa.Less(fb) {
		return true
	}
	if fb.Less(fa) {
		return false
	}
	return lessTxID(a.TxID, b.TxID)
}

// lessTxID ranks a below b when a's txid is numerically larger, so
// that the smaller txid sorts last (highest rank) in the ascending
// order Less defines.
func lessTxID(a, b chainhash.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// View is the read-only, indexed handle to pending transactions the
// selector consumes.
type View interface {
	// OrderedByAncestorFeeRate returns entries ordered from best to
	// worst ancestor feerate, highest first.
	OrderedByAncestorFeeRate() []*Entry

	// CalculateAncestors returns every in-mempool ancestor of entry,
	// with no numeric limit (the mempool's own admission already
	// bounds the ancestor set).
	CalculateAncestors(entry *Entry) []*Entry

	// CalculateDescendants returns every in-mempool descendant of
	// entry.
	CalculateDescendants(entry *Entry) []*Entry
}
