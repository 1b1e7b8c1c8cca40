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

// Package core 定義 sacprob 的亂數核心。
//
// 每個 Problem 實例獨佔一個 Core；Core 不含任何鎖，也不存在全域共享的 generator。
// 同一個 Core 不可被多個 goroutine 同時使用，併發場景請讓每個 goroutine 各自持有一個實例。
package core

import (
	"math"
	"strings"
)

// RndMax 是 Core.Rnd 的上界（含）。
const RndMax = math.MaxInt32

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 要求 4 個方法而不是只有 Uint64：32-bit 原生輸出的 PRNG（PCG32）與 64-bit 原生輸出的
// PRNG（PCG64）各自有最合適的 bounded 取樣與浮點轉換路徑，交由實作決定。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作、同一版本下，New(seed) 必須是決定性的，
// 相同 seed 產生相同的初始狀態與輸出序列。這是固定種子策略下「所有實例輸出一致」的基礎。
type PRNGFactory interface {
	New(int64) PRNG
}

const (
	EnginePCG64 = "pcg64"
	EnginePCG32 = "pcg32"
)

// PCG64Factory 是預設工廠。
type PCG64Factory struct{}

func (PCG64Factory) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

// PCG32Factory 建立 64-bit 狀態、32-bit 輸出的 PCG (XSH RR)。
type PCG32Factory struct{}

func (PCG32Factory) New(seed int64) PRNG {
	return newPCG32WithSeed(seed)
}

// Default 回傳預設工廠（PCG64）。
func Default() PRNGFactory {
	return PCG64Factory{}
}

// FactoryByName 依引擎名稱取得工廠；空字串視為預設。
func FactoryByName(name string) (PRNGFactory, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EnginePCG64:
		return PCG64Factory{}, true
	case EnginePCG32:
		return PCG32Factory{}, true
	default:
		return nil, false
	}
}

// Core 封裝 PRNG，並提供取樣熱路徑所需的工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Rnd 回傳 [0, RndMax] 均勻分布的整數。
func (c *Core) Rnd() int {
	return int(c.Uint64() >> 33)
}

// IntRange 回傳 [lo, hi]（含兩端）均勻分布的整數。
// hi < lo 屬於前置條件違反，回傳 lo（熱路徑只使用哨兵值）。
func (c *Core) IntRange(lo, hi int) int {
	if hi < lo {
		return lo
	}
	span := uint(hi) - uint(lo) // 二補數下即使跨越 0 也正確
	if span == math.MaxUint {
		return int(uint(lo) + uint(c.Uint64()))
	}
	return int(uint(lo) + c.UintN(span+1))
}

// ExpFloat64 回傳參數為 1 的指數分布亂數 (0, +Inf)。
func (c *Core) ExpFloat64() float64 {
	return -math.Log(1 - c.Float64())
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
// 熱路徑中只使用哨兵值回傳
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	return src[c.IntN(len(src))]
}

// ShuffleInts 以 Fisher-Yates 對 src 就地重排。
// 所有 N! 種排列機率相等；O(N) 時間、零配置。
func (c *Core) ShuffleInts(src []int) {
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
