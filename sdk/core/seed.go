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

package core

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"
)

// DefaultSeed 是固定種子策略使用的常數（與 mt19937 的預設 seed 相同）。
// 任何以固定策略建立的實例，不論在哪個 goroutine 或行程，輸出序列都相同。
const DefaultSeed int64 = 5489

const mask63 = uint64(1<<63) - 1

var (
	// entropyCounter 是每次呼叫 EntropySeed 的實例鑑別值。
	// 同一個時鐘 tick 內在不同 goroutine 建立的實例，也會因計數不同而得到不同 seed。
	entropyCounter atomic.Uint64
	processStart   = time.Now()
)

// EntropySeed 回傳一個非負、不可預測的 seed。
//
// 來源混合：
//  1. crypto/rand 的 64 bits
//  2. 單調時鐘讀數（相對 processStart，奈秒）
//  3. 牆鐘奈秒
//  4. 行程內原子遞增計數
//
// 任一來源失效（例如 crypto/rand 讀取失敗）時，其餘來源仍足以區分同時建立的實例。
func EntropySeed() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])

	ctr := entropyCounter.Add(1)
	mono := uint64(time.Since(processStart).Nanoseconds())
	wall := uint64(time.Now().UnixNano())

	x := binary.LittleEndian.Uint64(b[:])
	x ^= splitmix64(mono)
	x ^= splitmix64(wall ^ 0xDA942042E4DD58B5)
	x ^= splitmix64(ctr * 0x9e3779b97f4a7c15)
	return int64(splitmix64(x) & mask63)
}

// DeriveSeed 由父 seed 與 stream 編號派生子 seed（SplitMix64 finalizer），
// 用於從同一個 base seed 產生互不相關的 worker 子序列。
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	return int64(splitmix64(x) & mask63)
}

// splitmix64 將輸入值混洗成新的 64-bit 狀態，用於種子展開。
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
