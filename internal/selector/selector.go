// Package selector implements the modified-entry index and the
// package selector: the core loop that walks the mempool in
// ancestor-feerate order, folds in already-committed ancestors via the
// modified set, and appends validated packages to a block in
// topological order. This mirrors Bitcoin Core's addPackageTxs /
// UpdatePackagesForAdded / SkipMapTxEntry / SortForBlock family rather
// than a flat priority queue, since ancestor-package selection is what
// lets a low-feerate parent ride in alongside a high-feerate child.
//
// Ancestor aggregates in this package are tracked in vsize, the same
// unit the mempool's own ancestor-feerate ordering uses; the budget
// test scales a candidate package's vsize into weight units via
// WitnessScaleFactor before comparing it against MaxWeight, since the
// running total it compares against accumulates committed entries'
// actual weight.
package selector

import (
	"bytes"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/mempool"
)

// maxConsecutiveFailures is the fill heuristic's threshold: once more
// than this many candidates in a row fail the budget test near a full block, the
// selector stops looking rather than scanning the rest of the mempool.
const maxConsecutiveFailures = 1000

// nearFullWeightMargin is how close to maxWeight the block must be
// before the fill heuristic gives up.
const nearFullWeightMargin = 4000

// Budgets bounds the selector's output.
type Budgets struct {
	MaxWeight int64
	MaxSigops int64
}

// Params configures one run of the selector.
type Params struct {
	Budgets
	MinFeeRate     feerate.FeeRate
	Height         uint64
	LockTimeCutoff time.Time
	IncludeWitness bool
	PrintPriority  bool

	// WitnessScaleFactor converts a candidate package's ancestor vsize
	// (the unit Ancestor.Size is tracked in) into the weight units the
	// budget test and MaxWeight are expressed in. Treated as 1 when
	// unset, matching an unscaled vsize-as-weight caller.
	WitnessScaleFactor int64
}

// Logger is the minimal interface the selector needs for
// printpriority logging. Per-transaction rejections are never logged:
// most are routine, a package too large for the remaining budget.
type Logger interface {
	Tracef(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Tracef(string, ...interface{}) {}

// Result is the outcome of one selector run.
type Result struct {
	// Entries are the committed entries in the order they must be
	// appended to the block (ancestors before descendants).
	Entries []*mempool.Entry
	Weight  int64
	Sigops  int64
	Fees    btcutil.Amount

	PackagesSelected   int
	DescendantsUpdated int
}

// Select runs the package selector against view, starting from a
// block that already reserves reservedWeight/reservedSigops for the
// coinbase's own footprint.
func Select(view mempool.View, params Params, reservedWeight, reservedSigops int64, log Logger) *Result {
	if log == nil {
		log = noopLogger{}
	}

	scaleFactor := params.WitnessScaleFactor
	if scaleFactor <= 0 {
		scaleFactor = 1
	}

	s := &runState{
		view:        view,
		params:      params,
		inBlock:     make(map[mempool.EntryID]struct{}),
		failed:      make(map[mempool.EntryID]struct{}),
		modified:    newModifiedSet(),
		weight:      reservedWeight,
		sigops:      reservedSigops,
		log:         log,
		ordered:     view.OrderedByAncestorFeeRate(),
		scaleFactor: scaleFactor,
	}
	s.run()
	return &Result{
		Entries:            s.result,
		Weight:             s.weight,
		Sigops:             s.sigops,
		Fees:               s.fees,
		PackagesSelected:   s.packagesSelected,
		DescendantsUpdated: s.descendantUpdated,
	}
}

type runState struct {
	view     mempool.View
	params   Params
	inBlock  map[mempool.EntryID]struct{}
	failed   map[mempool.EntryID]struct{}
	modified *modifiedSet
	weight   int64
	sigops   int64
	fees     btcutil.Amount
	log      Logger

	ordered     []*mempool.Entry
	cursorA     int
	scaleFactor int64

	consecutiveFailed int
	packagesSelected  int
	descendantUpdated int
	result            []*mempool.Entry
}

func (s *runState) isSkippable(id mempool.EntryID) bool {
	if _, ok := s.inBlock[id]; ok {
		return true
	}
	if _, ok := s.failed[id]; ok {
		return true
	}
	if _, ok := s.modified.get(id); ok {
		return true
	}
	return false
}

// rankGreater reports whether (rate1, txid1) outranks (rate2, txid2):
// higher feerate wins; on an exact tie the smaller txid wins.
func rankGreater(rate1 feerate.FeeRate, txid1 chainhash.Hash, rate2 feerate.FeeRate, txid2 chainhash.Hash) bool {
	if rate1.Less(rate2) {
		return false
	}
	if rate2.Less(rate1) {
		return true
	}
	return bytes.Compare(txid1[:], txid2[:]) < 0
}

// run is the two-cursor merge loop: one cursor over the mempool's
// ancestor-feerate order, one over the modified set's best candidate.
func (s *runState) run() {
	for {
		for s.cursorA < len(s.ordered) && s.isSkippable(s.ordered[s.cursorA].ID) {
			s.cursorA++
		}

		aExhausted := s.cursorA >= len(s.ordered)
		best, bHasBest := s.modified.best()
		if aExhausted && !bHasBest {
			return
		}

		var (
			candidate     *mempool.Entry
			packageSize   int64
			packageFee    btcutil.Amount
			packageSigops int64
			fromModified  bool
		)

		switch {
		case aExhausted:
			fromModified = true
		case !bHasBest:
			fromModified = false
			s.cursorA++
		default:
			a := s.ordered[s.cursorA]
			if rankGreater(best.feeRate(), best.root.TxID, a.AncestorFeeRate(), a.TxID) {
				fromModified = true
			} else {
				fromModified = false
				s.cursorA++
			}
		}

		if fromModified {
			candidate = best.root
			packageSize = best.ancestor.Size
			packageFee = best.ancestor.ModifiedFee
			packageSigops = best.ancestor.SigopsCost
		} else {
			candidate = s.ordered[s.cursorA-1]
			packageSize = candidate.Ancestor.Size
			packageFee = candidate.Ancestor.ModifiedFee
			packageSigops = candidate.Ancestor.SigopsCost
		}

		// Step 3: early exit.
		packageRate := feerate.FeeRate{Fee: packageFee, Size: packageSize}
		if packageRate.Less(s.params.MinFeeRate) {
			return
		}

		// Step 4: budget test. packageSize is the package's ancestor
		// vsize; scale it into weight units before testing against
		// MaxWeight, since s.weight accumulates entry.Weight.
		packageWeight := packageSize * s.scaleFactor
		if s.weight+packageWeight > s.params.MaxWeight || s.sigops+packageSigops > s.params.MaxSigops {
			if fromModified {
				s.modified.erase(candidate.ID)
				s.failed[candidate.ID] = struct{}{}
			}
			s.consecutiveFailed++
			if s.consecutiveFailed > maxConsecutiveFailures && s.weight > s.params.MaxWeight-nearFullWeightMargin {
				return
			}
			continue
		}

		// Step 5: materialize ancestors (no numeric limit — the
		// mempool's own admission already bounds the set).
		ancestors := s.view.CalculateAncestors(candidate)
		packageSet := make([]*mempool.Entry, 0, len(ancestors)+1)
		for _, ancestor := range ancestors {
			if _, ok := s.inBlock[ancestor.ID]; ok {
				continue
			}
			packageSet = append(packageSet, ancestor)
		}
		packageSet = append(packageSet, candidate)

		// Step 6: finality & witness test.
		if !s.testPackageTransactions(packageSet) {
			if fromModified {
				s.modified.erase(candidate.ID)
				s.failed[candidate.ID] = struct{}{}
			}
			continue
		}

		// This package will make it in; reset the failed counter.
		s.consecutiveFailed = 0

		// Step 7: commit, sorted by ancestor count ascending so every
		// ancestor precedes its descendants.
		sortByAncestorCount(packageSet)
		for _, entry := range packageSet {
			s.commit(entry)
		}
		s.packagesSelected++
		s.descendantUpdated += s.updatePackagesForAdded(packageSet)
	}
}

// testPackageTransactions applies the per-transaction checks a
// candidate package must pass: finality under the locktime cutoff,
// and (when the block excludes witness data) no witness-carrying
// transaction.
func (s *runState) testPackageTransactions(pkg []*mempool.Entry) bool {
	cutoff := s.params.LockTimeCutoff
	for _, entry := range pkg {
		if entry.LockTime != 0 {
			// A non-zero nLockTime is interpreted as either a block
			// height (< 500000000) or a timestamp; the assembler only
			// ever compares timestamps here since height-based
			// finality is decided by the mempool's own admission
			// check before an entry ever reaches this view.
			if int64(entry.LockTime) > cutoff.Unix() {
				return false
			}
		}
		if !s.params.IncludeWitness && entry.Witness {
			return false
		}
	}
	return true
}

func sortByAncestorCount(pkg []*mempool.Entry) {
	// A transaction's own ancestor count (including itself) is a
	// monotonic proxy for topological depth: if A depends on B, A's
	// ancestor count is strictly greater than B's.
	less := func(i, j int) bool { return pkg[i].Ancestor.Count < pkg[j].Ancestor.Count }
	insertionSort(pkg, less)
}

func insertionSort(pkg []*mempool.Entry, less func(i, j int) bool) {
	for i := 1; i < len(pkg); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			pkg[j], pkg[j-1] = pkg[j-1], pkg[j]
		}
	}
}

func (s *runState) commit(entry *mempool.Entry) {
	s.inBlock[entry.ID] = struct{}{}
	s.modified.erase(entry.ID)
	s.weight += entry.Weight
	s.sigops += entry.SigopsCost
	s.fees += entry.ModifiedFee
	s.result = append(s.result, entry)

	if s.params.PrintPriority {
		s.log.Tracef("fee %d/wu txid %s", int64(entry.ModifiedFee)/max64(entry.Weight, 1), entry.TxID)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// updatePackagesForAdded walks the descendants of every entry just
// added and creates-or-updates their modified record, subtracting the
// committed entry's own (vsize, modifiedFee, sigops) — the same units
// Ancestor.Size is tracked in, not the entry's weight.
func (s *runState) updatePackagesForAdded(added []*mempool.Entry) int {
	updated := 0
	for _, entry := range added {
		for _, descendant := range s.view.CalculateDescendants(entry) {
			if _, ok := s.inBlock[descendant.ID]; ok {
				continue
			}
			updated++
			s.modified.upsert(descendant, entry.VirtualSize, entry.ModifiedFee, entry.SigopsCost)
		}
	}
	return updated
}
