// Package blocktemplate implements the coinbase/coinstake builder and
// the BlockTemplate lifecycle: finalize, regenerate commitment, update
// extra nonce, update block time. This generalizes a CreateNewBlock-
// style coinbase/coinstake assembly and an UpdateExtraNonce /
// UpdateBlockTime / buildUTXOCommitment lifecycle to a dual PoW/PoS,
// masternode+systemnode payment-slot shape.
package blocktemplate

import (
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/txtypes"
)

// MNPaymentSlot and SNPaymentSlot are the fixed output indices the
// node-payment hooks write to. Index 0 is always the miner/coinstake's
// own reward.
const (
	MNPaymentSlot = 1
	SNPaymentSlot = 2
)

// Block is the assembler's working block: a header plus an ordered
// transaction list. Position 0 is always the coinbase; in PoS mode
// position 1 is always the coinstake.
type Block struct {
	Header       chainiface.BlockHeader
	Transactions []*txtypes.Transaction
	StakePointer *chainiface.StakePointer
}

// BlockTemplate is the finalized handoff to a caller: the block plus
// parallel per-transaction fee/sigops vectors and the coinbase
// commitment.
type BlockTemplate struct {
	Block              *Block
	Height             uint64
	PerTxFees          []btcutil.Amount
	PerTxSigops        []int64
	CoinbaseCommitment []byte
	Weight             int64
	Sigops             int64
	Fees               btcutil.Amount
	// InvocationID correlates this template's log lines back to the
	// createNewBlock call that produced it.
	InvocationID string
	// Signature is the wallet's signature over SigningPayload(), set by
	// the staking loop once a proof-of-stake template has been signed;
	// empty for PoW templates.
	Signature []byte

	extraNonce uint64
}

// coinbaseScriptSig returns the height-prefixed scriptSig required of
// every coinbase input ("<height> OP_0"); a non-zero extraNonce is
// pushed in place of the OP_0.
func coinbaseScriptSig(height uint64, extraNonce uint64) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(height))
	if extraNonce == 0 {
		builder.AddOp(txscript.OP_0)
	} else {
		builder.AddInt64(int64(extraNonce))
	}
	return builder.Script()
}

// merkleRoot computes the block's transaction merkle root, pairwise
// double-SHA256 over each transaction's ID, duplicating the final
// element of an odd-length level (the standard Bitcoin-style tree).
func merkleRoot(txs []*txtypes.Transaction) chainhash.Hash {
	if len(txs) == 0 {
		return chainhash.Hash{}
	}
	level := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.ID()
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [chainhash.HashSize * 2]byte
			copy(buf[:chainhash.HashSize], level[2*i][:])
			copy(buf[chainhash.HashSize:], level[2*i+1][:])
			next[i] = chainhash.DoubleHashH(buf[:])
		}
		level = next
	}
	return level[0]
}

// coinbaseCommitment computes the commitment to every witness-carrying
// transaction's ID, embedded in the coinbase so a light client can
// detect a tampered witness set. This hashes a derived per-block data
// set rather than reproducing the exact BIP141 commitment byte layout,
// since witness-commitment placement inside the coinbase's own script
// is outside this package's scope.
func coinbaseCommitment(txs []*txtypes.Transaction) []byte {
	var buf []byte
	for _, tx := range txs {
		if tx.HasWitness() {
			id := tx.ID()
			buf = append(buf, id[:]...)
		}
	}
	commitment := chainhash.DoubleHashH(buf)
	return commitment[:]
}

func (t *BlockTemplate) finalize() {
	t.CoinbaseCommitment = coinbaseCommitment(t.Block.Transactions)
}

// MerkleRoot returns the template's current transaction merkle root.
func (t *BlockTemplate) MerkleRoot() chainhash.Hash {
	return merkleRoot(t.Block.Transactions)
}

// UpdateExtraNonce rewrites the coinbase's scriptSig with a fresh
// extra-nonce push, without re-running selection. MerkleRoot reflects
// the change, since it is computed from the current transactions.
func (t *BlockTemplate) UpdateExtraNonce(height uint64) error {
	t.extraNonce++
	sigScript, err := coinbaseScriptSig(height, t.extraNonce)
	if err != nil {
		return err
	}
	if len(sigScript) > 100 {
		return errTooLong
	}
	coinbase := t.Block.Transactions[0]
	coinbase.TxIn[0].SignatureScript = sigScript
	return nil
}

// RegenerateCommitment drops and recomputes the coinbase witness
// commitment without re-running the selector.
func (t *BlockTemplate) RegenerateCommitment() {
	t.finalize()
}

// UpdateBlockTime re-stamps the header's timestamp to the larger of
// MedianTimePast plus one second and the node's adjusted clock (a
// header time already later than that is kept), and recomputes the
// PoW target when the network allows minimum-difficulty blocks.
func (t *BlockTemplate) UpdateBlockTime(chain chainiface.ChainView, powAllowMinDifficulty bool) {
	mtp := chain.MedianTimePast()
	adjusted := chain.AdjustedTime()
	newTime := mtp.Add(time.Second)
	if adjusted.After(newTime) {
		newTime = adjusted
	}
	if t.Block.Header.Time.Before(newTime) {
		t.Block.Header.Time = newTime
	}
	if powAllowMinDifficulty {
		prev := chainiface.BlockHeader{PrevHash: t.Block.Header.PrevHash}
		t.Block.Header.Bits = chain.GetNextTarget(prev, t.Block.Header.Time)
	}
}

// SigningPayload returns the bytes a proof-of-stake block's signature
// covers: the previous hash, the merkle root, the time and the bits.
// This binds the signature to the exact prevHash/time/bits/merkle-root
// the kernel hash was checked against; the header's version and payee
// fields are not part of the payload.
func (t *BlockTemplate) SigningPayload() []byte {
	root := t.MerkleRoot()
	buf := make([]byte, 0, chainhash.HashSize*2+12)
	buf = append(buf, t.Block.Header.PrevHash[:]...)
	buf = append(buf, root[:]...)
	var timeBits [12]byte
	binary.LittleEndian.PutUint64(timeBits[:8], uint64(t.Block.Header.Time.Unix()))
	binary.LittleEndian.PutUint32(timeBits[8:], t.Block.Header.Bits)
	buf = append(buf, timeBits[:]...)
	return buf
}

var errTooLong = scriptTooLongError{}

type scriptTooLongError struct{}

func (scriptTooLongError) Error() string {
	return "block template: coinbase scriptSig exceeds 100 bytes"
}
