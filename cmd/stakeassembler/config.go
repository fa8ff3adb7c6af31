package main

import (
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/crowngate/stakeassembler/internal/feerate"
	"github.com/crowngate/stakeassembler/internal/logs"
)

// maxBlockWeight mirrors the consensus-wide MAX_BLOCK_WEIGHT this
// module's caller is expected to configure; stakeassembler ships its
// own default since it runs standalone for this demo binary.
const maxBlockWeight = 4_000_000

const defaultBlockMinTxFeeSatoshisPerKB = 1000

const (
	defaultLogFilename = "stakeassembler.log"
	defaultDataDirname = "stakeassembler"
	defaultDebugLevel  = "info"
)

var defaultHomeDir = filepath.Join(".", defaultDataDirname)

// config holds the assembler's policy flags plus the logging/network
// flags every node binary carries.
type config struct {
	BlockMaxWeight int64  `long:"blockmaxweight" description:"Target block weight ceiling, clamped to [4000, MAX_BLOCK_WEIGHT-4000]"`
	BlockMinTxFee  int64  `long:"blockmintxfee" description:"Minimum fee rate (satoshis per 1000 bytes of virtual size) a package must clear to be included"`
	PrintPriority  bool   `long:"printpriority" description:"Log the feerate of every transaction as it is accepted into a template"`
	Jumpstart      bool   `long:"jumpstart" description:"Ignore the initial-block-download gate in the staking loop"`
	TestNet        bool   `long:"testnet" description:"Use the test network"`
	DebugLevel     string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} or subsystem=level,subsystem=level,..."`
	LogDir         string `long:"logdir" description:"Directory to log output"`
	RewardAddress  string `long:"rewardaddress" description:"Hex-encoded output script the miner's own reward should pay" required:"true"`
}

func defaultConfig() config {
	return config{
		BlockMaxWeight: maxBlockWeight,
		BlockMinTxFee:  defaultBlockMinTxFeeSatoshisPerKB,
		DebugLevel:     defaultDebugLevel,
		LogDir:         filepath.Join(defaultHomeDir, "logs"),
	}
}

func parseConfig() (*config, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	cfg.BlockMaxWeight = clampBlockMaxWeight(cfg.BlockMaxWeight)

	if cfg.BlockMinTxFee < 0 {
		return nil, errors.New("blockmintxfee may not be negative")
	}

	logFilePath := filepath.Join(cfg.LogDir, defaultLogFilename)
	logs.InitLogRotator(logFilePath)
	if err := logs.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// clampBlockMaxWeight keeps the configured ceiling within
// [4000, MAX_BLOCK_WEIGHT - 4000].
func clampBlockMaxWeight(weight int64) int64 {
	const reserve = 4000
	if weight < reserve {
		return reserve
	}
	if weight > maxBlockWeight-reserve {
		return maxBlockWeight - reserve
	}
	return weight
}

// minFeeRate turns the configured satoshis-per-KB figure into the
// selector's cross-multiply-friendly FeeRate shape.
func (c *config) minFeeRate() feerate.FeeRate {
	return feerate.FeeRate{Fee: btcutil.Amount(c.BlockMinTxFee), Size: 1000}
}
