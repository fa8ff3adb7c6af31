// Package chainiface declares the narrow ports the assembler consumes
// from collaborators that live outside this module's scope: the chain
// state, the wallet, the node-payment resolvers, and the frozen
// consensus parameters. None of these are implemented here — the host
// process supplies concrete adapters.
package chainiface

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeader is the minimal set of header fields the assembler reads
// from or writes to a candidate/previous block.
type BlockHeader struct {
	Version   int32
	PrevHash  chainhash.Hash
	Bits      uint32
	Time      time.Time
	PayeeMN   []byte
	PayeeSN   []byte
}

// ChainView exposes tip/height/difficulty state. It is read, never
// mutated, by the assembler.
type ChainView interface {
	// Height returns the height of the current best tip; the next block
	// connects at Height()+1.
	Height() uint64

	// TipHash returns the hash of the current best tip.
	TipHash() chainhash.Hash

	// TipTime returns the timestamp of the current best tip.
	TipTime() time.Time

	// MedianTimePast returns the median of the previous 11 block
	// timestamps, used as the locktime cutoff when the median-time-past
	// rule is active.
	MedianTimePast() time.Time

	// AdjustedTime returns the node's network-adjusted clock.
	AdjustedTime() time.Time

	// GetNextTarget computes the proof-of-work target bits for a
	// candidate block with the given header time, given the previous
	// block header.
	GetNextTarget(prev BlockHeader, candidateTime time.Time) uint32
}

// SyncGuard exposes the node-level gating state the staking loop needs
// to decide whether to even attempt a PoS search — none of it is
// otherwise visible to the assembler itself.
type SyncGuard interface {
	// IsServiceNode reports whether this node is configured to
	// perform masternode/systemnode duties, a precondition for staking.
	IsServiceNode() bool

	// IsSynced reports whether the node believes its chain is caught
	// up with the network (the initial-block-download gate).
	IsSynced() bool
}

// StakePointer references the UTXO that proved stake for a coinstake
// transaction.
type StakePointer struct {
	BlockHash chainhash.Hash
	TxIndex   uint32
	OutIndex  uint32
}

// CoinstakeResult is returned by Wallet.CreateCoinStake on success.
type CoinstakeResult struct {
	// NewTime is the header timestamp at which the kernel hash
	// satisfied the target.
	NewTime time.Time
	Pointer StakePointer
	// RewardValue is the stake reward the coinstake's first output
	// should carry before node-payment slots are subtracted.
	RewardValue btcutil.Amount
	// InputOutpoint is the hash of the transaction holding the stake
	// UTXO; with Pointer.OutIndex it forms the outpoint the coinstake
	// spends as its sole input.
	InputOutpoint chainhash.Hash
}

// Wallet is the external collaborator that owns keys, signs blocks,
// and searches for a winning stake proof. None of its internals are in
// scope here: the proof-of-stake kernel-hash function itself is a
// property of the wallet's key material, not the assembler.
type Wallet interface {
	// IsLocked reports whether the wallet can currently sign.
	IsLocked() bool

	// HasStakeableCoins reports whether the wallet holds any UTXO
	// eligible to stake.
	HasStakeableCoins() bool

	// CreateCoinStake searches the wallet's eligible UTXO set for a
	// kernel hash that satisfies the target at or after the given
	// time. ok is false if no stake was found before the capability's
	// own bounded search gave up.
	CreateCoinStake(height uint64, bits uint32, startTime time.Time) (result CoinstakeResult, ok bool, err error)

	// SignBlock signs a finalized proof-of-stake block with the key
	// controlling the stake output.
	SignBlock(blockBytesToSign []byte) (signature []byte, err error)
}

// PayeeResolvers resolves node-payment winners and superblock gating.
// Both masternode and systemnode payments are resolved independently.
type PayeeResolvers interface {
	// NodePaymentsActive reports whether node payments should be
	// attempted at all at the given height (the MN_PAYMENTS_ENABLED
	// equivalent gate).
	NodePaymentsActive(height uint64) bool

	// FillMasternodePayee resolves the masternode winner at height, if
	// any. ok is false when there is no eligible winner this block.
	FillMasternodePayee(height uint64) (payeeScript []byte, reward btcutil.Amount, ok bool)

	// FillSystemnodePayee resolves the systemnode winner at height, if
	// any.
	FillSystemnodePayee(height uint64) (payeeScript []byte, reward btcutil.Amount, ok bool)

	// IsBudgetPaymentBlock reports whether height is a superblock at
	// which the budget system, not the miner, disburses rewards
	// (a budget-funded block).
	IsBudgetPaymentBlock(height uint64) bool
}

// ConsensusParams is the frozen set of network parameters the
// assembler treats as read-only configuration.
type ConsensusParams struct {
	PowAllowMinDifficulty bool
	SubsidyAsset          [4]byte
	PoSStartHeight        uint64
	WitnessScaleFactor    int64
	MaxBlockWeight        int64
	MaxBlockSigops        int64
	IsTestnet             bool

	// Subsidy computes the block reward at height, excluding fees.
	Subsidy func(height uint64) btcutil.Amount
}
