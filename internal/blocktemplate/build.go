package blocktemplate

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/faults"
	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/mempool"
	"github.com/crowngate/stakeassembler/internal/selector"
	"github.com/crowngate/stakeassembler/internal/txtypes"
)

// reservedWeight and reservedSigops pre-charge the coinbase's own
// footprint before the selector considers any mempool package.
const (
	reservedWeight = 4000
	reservedSigops = 400
)

// Params configures one createNewBlock-equivalent invocation. In PoS
// mode, Stake must already hold a winning proof — the caller (the
// staking loop's stake search) runs that search and discards the
// attempt with faults.StakeNotFound before ever calling Build if none
// is found, so Build itself never needs to.
type Params struct {
	RewardScript []byte
	ProofOfStake bool
	Stake        *chainiface.CoinstakeResult
	// Bits is the PoW target the stake search already proved against
	// (the caller computes it before searching); required when
	// ProofOfStake is set, since the final header must carry the exact
	// target the kernel hash was checked against.
	Bits           uint32
	MinFeeRate     feerate.FeeRate
	MaxWeight      int64
	MaxSigops      int64
	IncludeWitness bool
	PrintPriority  bool
}

// Build runs the full assembler pipeline: package selection over view,
// then coinbase/coinstake construction, node-payment fill-in, header
// fields, and the coinbase commitment. The merkle root is not stored;
// MerkleRoot computes it from the current transactions.
func Build(
	view mempool.View,
	chain chainiface.ChainView,
	resolvers chainiface.PayeeResolvers,
	consensus chainiface.ConsensusParams,
	params Params,
	log selector.Logger,
) (*BlockTemplate, error) {
	if log == nil {
		log = noopLogger{}
	}
	invocationID := uuid.New().String()
	log.Tracef("createNewBlock %s: starting at height %d", invocationID, chain.Height()+1)

	height := chain.Height() + 1

	cutoff := chain.TipTime()
	mtp := chain.MedianTimePast()
	if !mtp.IsZero() {
		cutoff = mtp
	}

	selResult := selector.Select(view, selector.Params{
		Budgets:            selector.Budgets{MaxWeight: params.MaxWeight, MaxSigops: params.MaxSigops},
		MinFeeRate:         params.MinFeeRate,
		Height:             height,
		LockTimeCutoff:     cutoff,
		IncludeWitness:     params.IncludeWitness,
		PrintPriority:      params.PrintPriority,
		WitnessScaleFactor: consensus.WitnessScaleFactor,
	}, reservedWeight, reservedSigops, log)

	version := outputVersion(consensus, height)
	fees := selResult.Fees

	var blockValue btcutil.Amount
	if params.ProofOfStake {
		if params.Stake == nil {
			return nil, errors.Wrap(faults.TemplateBuildFailure, "proof-of-stake template requires a winning stake result")
		}
		blockValue = params.Stake.RewardValue + fees
	} else if consensus.Subsidy != nil {
		blockValue = consensus.Subsidy(height) + fees
	}

	// The coinbase's own reward output is set to its final value below,
	// once node payments are known; it starts at zero in both modes.
	coinbase, err := buildCoinbase(height, version, params.RewardScript, 0)
	if err != nil {
		return nil, errors.Wrap(faults.TemplateBuildFailure, err.Error())
	}

	// perTxFees and perTxSigops shadow txs entry-for-entry: the coinbase
	// carries -fees (it collects, rather than pays, the block's fees),
	// the coinstake (if any) carries neither, and every selected entry
	// carries its own modified fee and sigops cost.
	txs := make([]*txtypes.Transaction, 0, len(selResult.Entries)+2)
	perTxFees := make([]btcutil.Amount, 0, len(selResult.Entries)+2)
	perTxSigops := make([]int64, 0, len(selResult.Entries)+2)

	txs = append(txs, coinbase)
	perTxFees = append(perTxFees, -fees)
	perTxSigops = append(perTxSigops, reservedSigops)

	var coinstake *txtypes.Transaction
	var stakePointer *chainiface.StakePointer
	var header chainiface.BlockHeader
	header.PrevHash = chain.TipHash()
	header.Time = chain.AdjustedTime()

	if params.ProofOfStake {
		stakeInput := wire.OutPoint{Hash: params.Stake.InputOutpoint, Index: params.Stake.Pointer.OutIndex}
		coinstake, err = buildCoinstake(height, version, stakeInput)
		if err != nil {
			return nil, errors.Wrap(faults.TemplateBuildFailure, err.Error())
		}
		txs = append(txs, coinstake)
		perTxFees = append(perTxFees, 0)
		perTxSigops = append(perTxSigops, 0)
		header.Time = params.Stake.NewTime
		pointer := params.Stake.Pointer
		stakePointer = &pointer
	}

	// Node-payment slots always live on the coinbase in both modes;
	// the decrement lands on whichever transaction carries the miner's
	// own reward.
	payments := fillNodePayments(coinbase, version, height, fees, resolvers)

	isSuperblock := resolvers != nil && resolvers.IsBudgetPaymentBlock(height)
	if params.ProofOfStake {
		coinstake.Outputs.SetValue(0, minerRewardValue(blockValue, payments.Total, isSuperblock))
	} else {
		coinbase.Outputs.SetValue(0, minerRewardValue(blockValue, payments.Total, isSuperblock))
	}

	if !isSuperblock {
		header.PayeeMN = payments.MNScript
		header.PayeeSN = payments.SNScript
	}

	for _, entry := range selResult.Entries {
		txs = append(txs, entry.Tx)
		perTxFees = append(perTxFees, entry.ModifiedFee)
		perTxSigops = append(perTxSigops, entry.SigopsCost)
	}

	if params.ProofOfStake {
		header.Bits = params.Bits
	} else {
		header.Bits = chain.GetNextTarget(chainiface.BlockHeader{PrevHash: header.PrevHash}, header.Time)
	}

	block := &Block{Header: header, Transactions: txs, StakePointer: stakePointer}
	template := &BlockTemplate{
		Block:        block,
		Height:       height,
		PerTxFees:    perTxFees,
		PerTxSigops:  perTxSigops,
		Weight:       selResult.Weight,
		Sigops:       selResult.Sigops,
		Fees:         fees,
		InvocationID: invocationID,
	}
	template.finalize()

	// A selfCheck failure means the assembler's own bookkeeping
	// disagrees with the template it just built — a programming error,
	// not a transient condition. Callers must treat faults.TemplateInvalid
	// as fatal rather than retrying.
	if err := selfCheck(template, consensus); err != nil {
		return nil, errors.Wrap(faults.TemplateInvalid, err.Error())
	}

	return template, nil
}

// selfCheck is the final validity pass, minus PoW/merkle re-check
// (that belongs to the external chain processor, not this module). It
// only re-verifies the assembler's own bookkeeping: weight and sigops
// budgets honored and at least one transaction present. The order of
// the coinbase and coinstake is not re-checked.
func selfCheck(t *BlockTemplate, consensus chainiface.ConsensusParams) error {
	if consensus.MaxBlockWeight > 0 && t.Weight > consensus.MaxBlockWeight {
		return errWeightExceeded
	}
	if consensus.MaxBlockSigops > 0 && t.Sigops > consensus.MaxBlockSigops {
		return errSigopsExceeded
	}
	if len(t.Block.Transactions) == 0 {
		return errNoCoinbase
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Tracef(string, ...interface{}) {}

var (
	errWeightExceeded = simpleError("assembler bookkeeping exceeds maxWeight")
	errSigopsExceeded = simpleError("assembler bookkeeping exceeds maxSigops")
	errNoCoinbase     = simpleError("template has no coinbase transaction")
)

type simpleError string

func (e simpleError) Error() string { return string(e) }
