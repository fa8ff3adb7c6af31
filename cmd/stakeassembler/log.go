// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/crowngate/stakeassembler/internal/logs"
	"github.com/crowngate/stakeassembler/internal/panics"
)

var cmdLog, _ = logs.Get(logs.SubsystemTags.CMD)
var stakLog, _ = logs.Get(logs.SubsystemTags.STAK)
var selLog, _ = logs.Get(logs.SubsystemTags.SEL)

var spawn = panics.GoroutineWrapperFunc(cmdLog)
