// Package faults declares the sentinel error kinds shared across the
// assembler and the staking loop. Recovery policy differs by kind:
// some are routine (StakeNotFound),
// some are logged-and-continue (SignatureFailure), and TemplateInvalid
// is always a fatal, non-recoverable fault.
package faults

import "github.com/pkg/errors"

// TemplateBuildFailure is a precondition or construction failure while
// building a template, or a wallet error during the stake search. The
// caller sees an absent template.
var TemplateBuildFailure = errors.New("block template: build failure")

// StakeNotFound means createCoinStake returned no winning proof this
// attempt. The staking loop treats this as normal and retries.
var StakeNotFound = errors.New("block template: no stake found")

// SignatureFailure means the wallet's signBlock call failed. The
// staking loop logs this and continues.
var SignatureFailure = errors.New("block template: signature failure")

// TemplateInvalid means the final self-check failed: the mempool or
// consensus rules disagree with the assembler's own bookkeeping. This
// is a programming error, not a transient condition.
var TemplateInvalid = errors.New("block template: failed final validity self-check")

// SubmissionRejected means processNewBlock rejected a completed block.
// A rejected stake is treated as a bug, not a transient condition; the
// staking loop terminates when it sees this.
var SubmissionRejected = errors.New("block template: submission rejected")
