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

// Package sampler 提供不放回抽樣演算法。
//
// 本檔案 (index.go) 實作最小樣本抽取：部分 Fisher-Yates。
//
// 演算法：
//   - 第 i 步在尚未選取的區段 [i, n-1] 均勻抽一個位置 j，與 work[i] 交換。
//   - k 步後 work[0:k] 即為樣本，順序即抽取順序。
//
// 特性：
//   - 每一步剩餘元素被選中機率相等，C(n,k) 個子集皆可達。
//   - 時間 O(k)，不需重置 work：work 永遠是池的一個排列，重複呼叫仍然均勻。
//   - 使用 Core.IntRange（無偏 bounded 取樣），不存在取模偏差。
package sampler

import "github.com/zintix-labs/sacprob/sdk/core"

// ValidSampleSize 回報 k 是否能從大小為 n 的池中不放回抽出。
func ValidSampleSize(k, n int) bool {
	return k >= 1 && k <= n
}

// DrawIndexSample 從 work 中不放回抽出 k 個元素並附加到 dst[:0]。
//
// work 會被就地重排（仍是原集合的一個排列）；呼叫端需保證 ValidSampleSize(k, len(work))。
// 不合法的 k 回傳 nil，不會回傳部分樣本。
func DrawIndexSample(c *core.Core, work []int, k int, dst []int) []int {
	n := len(work)
	if !ValidSampleSize(k, n) {
		return nil
	}
	for i := 0; i < k; i++ {
		j := c.IntRange(i, n-1)
		work[i], work[j] = work[j], work[i]
	}
	return append(dst[:0], work[:k]...)
}
