package mempool

import (
	"sync"

	"github.com/google/btree"
)

// entryItem adapts *Entry to btree.Item using the ascending order
// Less defines.
type entryItem struct{ entry *Entry }

func (i entryItem) Less(other btree.Item) bool {
	return Less(i.entry, other.(entryItem).entry)
}

// Pool is a reference in-memory implementation of View. It tracks
// parent/child adjacency by outpoint so ancestor/descendant sets can
// be walked without consulting an external UTXO set — admission
// policy (signature checks, RBF, dust) is the caller's job, not this
// package's.
type Pool struct {
	mu sync.RWMutex

	byID      map[EntryID]*Entry
	byFeeRate *btree.BTree // ascending; best-first iteration reverses it

	// parents/children map an entry's ID to the IDs of its direct
	// in-mempool parents/children, derived from TxIn.PreviousOutPoint.
	parents  map[EntryID]map[EntryID]struct{}
	children map[EntryID]map[EntryID]struct{}

	// outpointOwner maps an output identity (txid:index encoded as a
	// string) to the mempool entry that creates that output, so a
	// newly added transaction can discover its in-mempool parents.
	outpointOwner map[string]EntryID
	spends        map[EntryID][]string

	nextID EntryID
}

// NewPool returns an empty reference mempool.
func NewPool() *Pool {
	return &Pool{
		byID:          make(map[EntryID]*Entry),
		byFeeRate:     btree.New(32),
		parents:       make(map[EntryID]map[EntryID]struct{}),
		children:      make(map[EntryID]map[EntryID]struct{}),
		outpointOwner: make(map[string]EntryID),
		spends:        make(map[EntryID][]string),
	}
}

func outpointKey(txid [32]byte, index uint32) string {
	b := make([]byte, 36)
	copy(b, txid[:])
	b[32] = byte(index)
	b[33] = byte(index >> 8)
	b[34] = byte(index >> 16)
	b[35] = byte(index >> 24)
	return string(b)
}

// Add inserts a new transaction into the pool. Base aggregates (size,
// fee, sigops) are the transaction's own; ancestor aggregates are
// computed by walking already-admitted parents. Every output of
// entry.Tx is recorded in outpointOwner so descendants can find this
// entry as a parent.
func (p *Pool) Add(entry *Entry) EntryID {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	entry.ID = id

	parentIDs := make(map[EntryID]struct{})
	for _, in := range entry.Tx.TxIn {
		key := outpointKey(in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
		if parentID, ok := p.outpointOwner[key]; ok {
			parentIDs[parentID] = struct{}{}
			if p.children[parentID] == nil {
				p.children[parentID] = make(map[EntryID]struct{})
			}
			p.children[parentID][id] = struct{}{}
		}
	}
	p.parents[id] = parentIDs

	// Seed this entry's ancestor aggregates from its own values, then
	// fold in every ancestor's own (non-ancestor) contribution.
	entry.Ancestor = AncestorAggregates{
		Size:        entry.VirtualSize,
		ModifiedFee: entry.ModifiedFee,
		SigopsCost:  entry.SigopsCost,
		Count:       1,
	}
	for _, ancestor := range p.calculateAncestorsLocked(id) {
		entry.Ancestor.Size += ancestor.VirtualSize
		entry.Ancestor.ModifiedFee += ancestor.ModifiedFee
		entry.Ancestor.SigopsCost += ancestor.SigopsCost
		entry.Ancestor.Count++
	}

	p.byID[id] = entry
	p.byFeeRate.ReplaceOrInsert(entryItem{entry})

	for i := 0; i < entry.Tx.Outputs.Len(); i++ {
		key := outpointKey(entry.TxID, uint32(i))
		p.outpointOwner[key] = id
		p.spends[id] = append(p.spends[id], key)
	}

	return id
}

// OrderedByAncestorFeeRate implements View.
func (p *Pool) OrderedByAncestorFeeRate() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*Entry, 0, p.byFeeRate.Len())
	p.byFeeRate.Descend(func(item btree.Item) bool {
		entries = append(entries, item.(entryItem).entry)
		return true
	})
	return entries
}

// CalculateAncestors implements View.
func (p *Pool) CalculateAncestors(entry *Entry) []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calculateAncestorsLocked(entry.ID)
}

func (p *Pool) calculateAncestorsLocked(id EntryID) []*Entry {
	seen := make(map[EntryID]struct{})
	var result []*Entry
	var walk func(EntryID)
	walk = func(cur EntryID) {
		for parentID := range p.parents[cur] {
			if _, ok := seen[parentID]; ok {
				continue
			}
			seen[parentID] = struct{}{}
			if parent, ok := p.byID[parentID]; ok {
				result = append(result, parent)
			}
			walk(parentID)
		}
	}
	walk(id)
	return result
}

// CalculateDescendants implements View.
func (p *Pool) CalculateDescendants(entry *Entry) []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[EntryID]struct{})
	var result []*Entry
	var walk func(EntryID)
	walk = func(cur EntryID) {
		for childID := range p.children[cur] {
			if _, ok := seen[childID]; ok {
				continue
			}
			seen[childID] = struct{}{}
			if child, ok := p.byID[childID]; ok {
				result = append(result, child)
			}
			walk(childID)
		}
	}
	walk(entry.ID)
	return result
}

// Len returns the number of entries currently tracked.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}

var _ View = (*Pool)(nil)
