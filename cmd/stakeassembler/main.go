package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/crowngate/stakeassembler/internal/blocktemplate"
	"github.com/crowngate/stakeassembler/internal/chainiface"
	"github.com/crowngate/stakeassembler/internal/mempool"
	"github.com/crowngate/stakeassembler/internal/stakeloop"
)

func main() {
	defer handlePanic()

	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}

	rewardScript, err := hex.DecodeString(cfg.RewardAddress)
	if err != nil {
		cmdLog.Errorf("invalid -rewardaddress: %s", err)
		os.Exit(1)
	}

	pool := mempool.NewPool()

	chain := &demoChain{height: 0, tip: time.Now(), bits: 0x1d00ffff}
	consensus := chainiface.ConsensusParams{
		IsTestnet:          cfg.TestNet,
		WitnessScaleFactor: 4,
		MaxBlockWeight:     maxBlockWeight,
		MaxBlockSigops:     80_000,
		PoSStartHeight:     1,
		Subsidy:            func(uint64) btcutil.Amount { return 5_000_000_000 },
	}

	template, err := blocktemplate.Build(pool, chain, demoResolvers{}, consensus, blocktemplate.Params{
		RewardScript:   rewardScript,
		MinFeeRate:     cfg.minFeeRate(),
		MaxWeight:      cfg.BlockMaxWeight,
		MaxSigops:      consensus.MaxBlockSigops,
		IncludeWitness: true,
		PrintPriority:  cfg.PrintPriority,
	}, selLog)
	if err != nil {
		cmdLog.Errorf("startup self-test template build failed: %s", err)
	} else {
		cmdLog.Infof("startup self-test template %s built: height=%d weight=%d fees=%d",
			template.InvocationID, template.Height, template.Weight, template.Fees)
	}

	loop := stakeloop.Start(stakeloop.Config{
		View:           pool,
		Chain:          chain,
		Guard:          demoGuard{},
		Wallet:         demoWallet{},
		Resolvers:      demoResolvers{},
		Consensus:      consensus,
		Submitter:      demoSubmitter{},
		Log:            stakLog,
		SelLog:         selLog,
		RewardScript:   rewardScript,
		MinFeeRate:     cfg.minFeeRate(),
		MaxWeight:      cfg.BlockMaxWeight,
		MaxSigops:      consensus.MaxBlockSigops,
		IncludeWitness: true,
		PrintPriority:  cfg.PrintPriority,
		Jumpstart:      cfg.Jumpstart,
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	cmdLog.Info("shutting down")
	loop.Stop()
}

func handlePanic() {
	if err := recover(); err != nil {
		cmdLog.Criticalf("fatal error: %+v", err)
	}
}
