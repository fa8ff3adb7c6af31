package selector

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/btree"

	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/mempool"
)

// modifiedEntry is a transient, re-sortable copy of a mempool entry
// whose ancestor aggregates have been decremented because some
// ancestor is already committed to the block. It shadows the original
// entry in the selector's ordering once created.
type modifiedEntry struct {
	root     *mempool.Entry
	ancestor mempool.AncestorAggregates
}

func (m *modifiedEntry) feeRate() feerate.FeeRate {
	return feerate.FeeRate{Fee: m.ancestor.ModifiedFee, Size: m.ancestor.Size}
}

type modifiedItem struct{ entry *modifiedEntry }

func (i modifiedItem) Less(other btree.Item) bool {
	o := other.(modifiedItem).entry
	fa, fb := i.entry.feeRate(), o.feeRate()
	if fa.Less(fb) {
		return true
	}
	if fb.Less(fa) {
		return false
	}
	return lessTxID(i.entry.root.TxID, o.root.TxID)
}

// lessTxID ranks a below b when a's txid is numerically larger, so the
// smaller txid sorts last (highest rank) — kept consistent with
// mempool.Less's own "smaller txid wins" tie-break.
func lessTxID(a, b [32]byte) bool {
	for idx := range a {
		if a[idx] != b[idx] {
			return a[idx] > b[idx]
		}
	}
	return false
}

// modifiedSet is the ancestor-feerate-ordered index over modified
// entries, keyed by (feerate, txid) — a second ordered index
// maintained over a separate arena of owned copies, so decrementing
// one entry's aggregates never mutates the original mempool entry.
type modifiedSet struct {
	byID map[mempool.EntryID]*modifiedEntry
	tree *btree.BTree
}

func newModifiedSet() *modifiedSet {
	return &modifiedSet{
		byID: make(map[mempool.EntryID]*modifiedEntry),
		tree: btree.New(32),
	}
}

func (s *modifiedSet) len() int { return len(s.byID) }

func (s *modifiedSet) get(id mempool.EntryID) (*modifiedEntry, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// upsert creates a new modified record for root if one doesn't exist
// yet, seeded from root's own (unmodified) ancestor aggregates, then
// subtracts (size, modifiedFee, sigops) from it. If a record already
// exists it is decremented in place.
func (s *modifiedSet) upsert(root *mempool.Entry, size int64, fee btcutil.Amount, sigops int64) {
	m, ok := s.byID[root.ID]
	if !ok {
		m = &modifiedEntry{root: root, ancestor: root.Ancestor}
		s.byID[root.ID] = m
		m.ancestor.Size -= size
		m.ancestor.ModifiedFee -= fee
		m.ancestor.SigopsCost -= sigops
		s.tree.ReplaceOrInsert(modifiedItem{m})
		return
	}
	s.tree.Delete(modifiedItem{m})
	m.ancestor.Size -= size
	m.ancestor.ModifiedFee -= fee
	m.ancestor.SigopsCost -= sigops
	s.tree.ReplaceOrInsert(modifiedItem{m})
}

// erase removes root's modified record entirely (it committed, or it
// failed and is being demoted to the failed set).
func (s *modifiedSet) erase(id mempool.EntryID) {
	m, ok := s.byID[id]
	if !ok {
		return
	}
	s.tree.Delete(modifiedItem{m})
	delete(s.byID, id)
}

// best returns the modified entry with the highest ancestor feerate,
// without removing it.
func (s *modifiedSet) best() (*modifiedEntry, bool) {
	item := s.tree.Max()
	if item == nil {
		return nil, false
	}
	return item.(modifiedItem).entry, true
}
