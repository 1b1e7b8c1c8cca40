// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package spec 定義建立 Problem / ProblemPool / Auditor 所需的設定。
package spec

import (
	"fmt"

	"github.com/zintix-labs/sacprob/errs"
	"github.com/zintix-labs/sacprob/sdk/core"
)

const (
	DefaultMaxSampleChecks = 10
	DefaultPoolSize        = 4
	maxPoolSize            = 1024
)

// ProblemSetting 包含建立一個 Problem 所需的所有設定。
//
// 種子決策順序：
//  1. Seed != 0：使用 Seed（可重現，優先於策略旗標）
//  2. UseRandomSeed：core.EntropySeed()
//  3. 其他：core.DefaultSeed
type ProblemSetting struct {
	UseRandomSeed   bool   `yaml:"use_random_seed"   json:"use_random_seed"`
	Seed            int64  `yaml:"seed"              json:"seed"`
	Engine          string `yaml:"engine"            json:"engine"`
	MaxSampleChecks int    `yaml:"max_sample_checks" json:"max_sample_checks"`
	PoolSize        int    `yaml:"pool_size"         json:"pool_size"`

	factory core.PRNGFactory
}

// DefaultProblemSetting 回傳固定種子、PCG64 的預設設定。
func DefaultProblemSetting() *ProblemSetting {
	ps := &ProblemSetting{}
	// 預設值必定通過檢查
	_ = ps.init()
	return ps
}

// Factory 回傳設定對應的 PRNG 工廠。
func (ps *ProblemSetting) Factory() core.PRNGFactory {
	if ps.factory == nil {
		return core.Default()
	}
	return ps.factory
}

// ResolveSeed 依決策順序回傳本次建立實例要用的 seed。
// 隨機策略下每次呼叫結果不同。
func (ps *ProblemSetting) ResolveSeed() int64 {
	switch {
	case ps.Seed != 0:
		return ps.Seed
	case ps.UseRandomSeed:
		return core.EntropySeed()
	default:
		return core.DefaultSeed
	}
}

// Init 套用預設值並執行檢查；以程式碼直接組裝 ProblemSetting 時呼叫。
func (ps *ProblemSetting) Init() error {
	return ps.init()
}

func (ps *ProblemSetting) init() error {
	if ps.Engine == "" {
		ps.Engine = core.EnginePCG64
	}
	if ps.MaxSampleChecks == 0 {
		ps.MaxSampleChecks = DefaultMaxSampleChecks
	}
	if ps.PoolSize == 0 {
		ps.PoolSize = DefaultPoolSize
	}
	return ps.valid()
}

// valid 執行最基本的設定檔檢查。
func (ps *ProblemSetting) valid() error {
	f, ok := core.FactoryByName(ps.Engine)
	if !ok {
		return errs.NewFatal(fmt.Sprintf("unknown engine: %q", ps.Engine))
	}
	ps.factory = f

	if ps.MaxSampleChecks < 1 {
		return errs.NewFatal(fmt.Sprintf("max_sample_checks must >= 1, got %d", ps.MaxSampleChecks))
	}
	if ps.PoolSize < 1 || ps.PoolSize > maxPoolSize {
		return errs.NewFatal(fmt.Sprintf("pool_size must be in [1,%d], got %d", maxPoolSize, ps.PoolSize))
	}
	if ps.Seed < 0 {
		return errs.NewFatal(fmt.Sprintf("seed must be non-negative, got %d", ps.Seed))
	}
	return nil
}
