// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs is the ambient logging backend shared by every package
// in this module: a single rotating-file-plus-stdout backend, one
// btclog.Logger per subsystem, and a debug-level string parser for the
// CLI's -debuglevel flag.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter outputs to both standard output and the write-end pipe of
// an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if rotatorInitialized {
		LogRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem. A single backend logger is created and all
// subsystem loggers created from it write to the backend. Loggers may
// be used before InitLogRotator is called — they simply write to
// stdout only until then.
var (
	backendLog = btclog.NewBackend(logWriter{})

	// LogRotator is the rotating file output. It should be closed on
	// application shutdown.
	LogRotator *rotator.Rotator

	assemblerLog = backendLog.Logger("ASMR")
	selectorLog  = backendLog.Logger("SEL ")
	mempoolLog   = backendLog.Logger("MEMP")
	stakeLog     = backendLog.Logger("STAK")
	loopLog      = backendLog.Logger("LOOP")
	cmdLog       = backendLog.Logger("CMD ")

	rotatorInitialized = false
)

// SubsystemTags is an enum of all subsystem tags.
var SubsystemTags = struct {
	ASMR, SEL, MEMP, STAK, LOOP, CMD string
}{
	ASMR: "ASMR",
	SEL:  "SEL ",
	MEMP: "MEMP",
	STAK: "STAK",
	LOOP: "LOOP",
	CMD:  "CMD ",
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	SubsystemTags.ASMR: assemblerLog,
	SubsystemTags.SEL:  selectorLog,
	SubsystemTags.MEMP: mempoolLog,
	SubsystemTags.STAK: stakeLog,
	SubsystemTags.LOOP: loopLog,
	SubsystemTags.CMD:  cmdLog,
}

// InitLogRotator initializes the logging rotator to write logs to
// logFile, creating roll files in the same directory. It must be
// called before the package-global LogRotator variable is read by
// anything other than Write.
func InitLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %s\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %s\n", err)
		os.Exit(1)
	}
	LogRotator = r
	rotatorInitialized = true
}

// Get returns the logger for a specific subsystem.
func Get(tag string) (logger btclog.Logger, ok bool) {
	logger, ok = subsystemLoggers[tag]
	return
}

// SetLogLevel sets the logging level for the given subsystem. Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for every subsystem logger.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported
// subsystem tags.
func SupportedSubsystems() []string {
	tags := make([]string, 0, len(subsystemLoggers))
	for tag := range subsystemLoggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ParseAndSetDebugLevels attempts to parse the specified debug level
// string — either a single level applied to every subsystem, or a
// comma-separated list of subsystem=level pairs — and sets the levels
// accordingly.
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := Get(subsysID); !exists {
			return fmt.Errorf("the specified subsystem [%s] is invalid -- supported subsystems %s",
				subsysID, strings.Join(SupportedSubsystems(), ", "))
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%s] is invalid", logLevel)
		}
		SetLogLevel(subsysID, logLevel)
	}
	return nil
}

func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}
