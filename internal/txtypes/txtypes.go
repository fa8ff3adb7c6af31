// Package txtypes defines the transaction and output shapes shared by
// the mempool view, the selector, and the block-template builder. The
// dual on-wire output representation is modeled as a tagged variant
// rather than two parallel fields, so callers never branch on
// transaction version directly.
package txtypes

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ExtendedTxVersion is the transaction version at or above which the
// extended (multi-asset) output layout applies.
const ExtendedTxVersion = 2

// AssetID identifies which asset an extended output is denominated in.
type AssetID [4]byte

// TxOutLegacy is a single-asset output: the pre-extended wire format.
type TxOutLegacy struct {
	Value    btcutil.Amount
	PkScript []byte
}

// TxOutExtended is a multi-asset output carrying an explicit AssetID
// alongside value and script.
type TxOutExtended struct {
	Value    btcutil.Amount
	Asset    AssetID
	PkScript []byte
}

// Outputs is the tagged variant over a transaction's output vector.
// Exactly one of LegacyOutputs or ExtendedOutputs implements it for
// any given transaction; the two representations are never mixed
// within one transaction.
type Outputs interface {
	Len() int
	Value(i int) btcutil.Amount
	Script(i int) []byte
	// SetValue rewrites the value of output i in place, used when a
	// node-payment slot decrements the miner's reward.
	SetValue(i int, value btcutil.Amount)
	// SetScript rewrites the script of output i in place.
	SetScript(i int, script []byte)
	isOutputs()
}

// LegacyOutputs is the pre-extended single-asset output vector.
type LegacyOutputs []TxOutLegacy

func (o LegacyOutputs) Len() int                  { return len(o) }
func (o LegacyOutputs) Value(i int) btcutil.Amount { return o[i].Value }
func (o LegacyOutputs) Script(i int) []byte        { return o[i].PkScript }
func (o LegacyOutputs) SetValue(i int, value btcutil.Amount) { o[i].Value = value }
func (o LegacyOutputs) SetScript(i int, script []byte)       { o[i].PkScript = script }
func (o LegacyOutputs) isOutputs()                 {}

// ExtendedOutputs is the multi-asset output vector selected at
// ExtendedTxVersion and above.
type ExtendedOutputs []TxOutExtended

func (o ExtendedOutputs) Len() int                  { return len(o) }
func (o ExtendedOutputs) Value(i int) btcutil.Amount { return o[i].Value }
func (o ExtendedOutputs) Script(i int) []byte        { return o[i].PkScript }
func (o ExtendedOutputs) SetValue(i int, value btcutil.Amount) { o[i].Value = value }
func (o ExtendedOutputs) SetScript(i int, script []byte)       { o[i].PkScript = script }
func (o ExtendedOutputs) isOutputs()                 {}

// Transaction is the assembler's working representation of a
// transaction: wire-compatible inputs and witnesses, plus the tagged
// output variant.
type Transaction struct {
	Version  int32
	TxIn     []*wire.TxIn
	Outputs  Outputs
	LockTime uint32
}

// ID computes the transaction's identifying hash. Script execution and
// full wire serialization are out of scope; the assembler only needs a
// stable identity, so this hashes the fields that determine it via the
// standard double-SHA256 used throughout the wire format.
func (tx *Transaction) ID() chainhash.Hash {
	var buf []byte
	for _, in := range tx.TxIn {
		buf = append(buf, in.PreviousOutPoint.Hash[:]...)
		buf = append(buf, byte(in.PreviousOutPoint.Index))
		buf = append(buf, in.SignatureScript...)
	}
	for i := 0; i < tx.Outputs.Len(); i++ {
		v := tx.Outputs.Value(i)
		buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		buf = append(buf, tx.Outputs.Script(i)...)
	}
	return chainhash.DoubleHashH(buf)
}

// HasWitness reports whether any input carries witness data.
func (tx *Transaction) HasWitness() bool {
	for _, in := range tx.TxIn {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// IsExtended reports whether tx uses the extended output layout.
func (tx *Transaction) IsExtended() bool {
	_, ok := tx.Outputs.(ExtendedOutputs)
	return ok
}
