package blocktemplate

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/txtypes"
)

// outputVersion picks the transaction version whose output layout the
// coinbase/coinstake must use. Extended applies everywhere except a
// named testnet genesis exception carried forward verbatim (see
// DESIGN.md's Open Question decisions).
func outputVersion(params chainiface.ConsensusParams, height uint64) int32 {
	if params.IsTestnet && height < 1 {
		return 1
	}
	return txtypes.ExtendedTxVersion
}

func newOutputs(version int32, n int) txtypes.Outputs {
	if version >= txtypes.ExtendedTxVersion {
		return make(txtypes.ExtendedOutputs, n)
	}
	return make(txtypes.LegacyOutputs, n)
}

func setOutput(outputs txtypes.Outputs, i int, value btcutil.Amount, script []byte) {
	outputs.SetValue(i, value)
	outputs.SetScript(i, script)
}

// buildCoinbase constructs the coinbase transaction: a single null
// input with a height-prefixed scriptSig, and either a single reward
// output (PoW) or a zeroed reward output (PoS, paid via the coinstake
// instead).
func buildCoinbase(height uint64, version int32, rewardScript []byte, rewardValue btcutil.Amount) (*txtypes.Transaction, error) {
	sigScript, err := coinbaseScriptSig(height, 0)
	if err != nil {
		return nil, err
	}

	tx := &txtypes.Transaction{
		Version: version,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
			SignatureScript:  sigScript,
		}},
		Outputs: newOutputs(version, 1),
	}
	setOutput(tx.Outputs, 0, rewardValue, rewardScript)
	return tx, nil
}

// buildCoinstake constructs the PoS second transaction. Its sole input
// is the stake UTXO; its first output carries the mining reward, set
// by the caller once node-payment slots are known.
func buildCoinstake(height uint64, version int32, stakeOutpoint wire.OutPoint) (*txtypes.Transaction, error) {
	sigScript, err := coinbaseScriptSig(height, 0)
	if err != nil {
		return nil, err
	}
	tx := &txtypes.Transaction{
		Version: version,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: stakeOutpoint,
			SignatureScript:  sigScript,
		}},
		Outputs: newOutputs(version, 1),
	}
	return tx, nil
}

// nodePaymentResult carries the total value diverted to node-payment
// slots, used to decrement the miner's own reward.
type nodePaymentResult struct {
	MNScript []byte
	SNScript []byte
	Total    btcutil.Amount
}

// fillNodePayments appends the masternode/systemnode payment outputs
// to rewardTx at MNPaymentSlot/SNPaymentSlot when node payments are
// active, resolving each winner independently.
func fillNodePayments(rewardTx *txtypes.Transaction, version int32, height uint64, fees btcutil.Amount, resolvers chainiface.PayeeResolvers) nodePaymentResult {
	var result nodePaymentResult
	if resolvers == nil || !resolvers.NodePaymentsActive(height) {
		return result
	}

	if script, reward, ok := resolvers.FillMasternodePayee(height); ok {
		growOutputs(rewardTx, version, MNPaymentSlot+1)
		setOutput(rewardTx.Outputs, MNPaymentSlot, reward, script)
		result.MNScript = script
		result.Total += reward
	}
	if script, reward, ok := resolvers.FillSystemnodePayee(height); ok {
		growOutputs(rewardTx, version, SNPaymentSlot+1)
		setOutput(rewardTx.Outputs, SNPaymentSlot, reward, script)
		result.SNScript = script
		result.Total += reward
	}
	return result
}

// growOutputs extends tx's output vector to at least n elements,
// preserving the existing ones, since node-payment slots are sparse
// (only populated when a winner exists).
func growOutputs(tx *txtypes.Transaction, version int32, n int) {
	if tx.Outputs.Len() >= n {
		return
	}
	grown := newOutputs(version, n)
	for i := 0; i < tx.Outputs.Len(); i++ {
		setOutput(grown, i, tx.Outputs.Value(i), tx.Outputs.Script(i))
	}
	tx.Outputs = grown
}

// minerRewardValue computes the miner's own reward-output value
// (coinstake out0 in PoS mode, coinbase out0 in PoW mode): the full
// block value on a superblock height (the budget system pays
// separately), or the block value minus every node-payment total
// otherwise.
func minerRewardValue(blockValue btcutil.Amount, nodePayments btcutil.Amount, isSuperblock bool) btcutil.Amount {
	if isSuperblock {
		return blockValue
	}
	return blockValue - nodePayments
}
