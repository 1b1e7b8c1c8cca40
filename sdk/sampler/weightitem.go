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

// 本檔案 (weightitem.go) 實作加權不放回抽樣，用於引導式（guided）最小樣本：
// 對應點帶有品質分數（例如特徵匹配比值）時，高分者較常進入樣本，但每個樣本內仍不重複。
//
// 注意：權重為 0 的位置永不入選。
package sampler

import (
	"cmp"
	"container/heap"
	"math"
	"slices"

	"github.com/zintix-labs/sacprob/sdk/core"
)

// weightItem 封裝位置 (idx) 與隨機排序分數 (score)。
type weightItem struct {
	idx   int
	score float64
}

// weightHeap 是 Max-Heap：h[0] 為目前 K 名入選者中分數最大（最該被淘汰）者。
type weightHeap []weightItem

func (h weightHeap) Len() int { return len(h) }

// Less 反轉 container/heap 的 Min-Heap 行為，使分數大者浮到堆頂。
func (h weightHeap) Less(i, j int) bool { return h[i].score > h[j].score }

func (h weightHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *weightHeap) Push(x any) {
	*h = append(*h, x.(weightItem))
}

func (h *weightHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// ValidWeight 回報 w 是否可作為權重（有限且非負）。
func ValidWeight[T Numbers](w T) bool {
	f := float64(w)
	return f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// WeightedShuffleWithFilter 加權隨機排列，僅包含權重 > 0 的位置。
//
// 演算法：Efraimidis-Spirakis，Score_i = Exp(1) / w_i，依 Score 由小到大排序。
// 複雜度 O(N log N)。權重不合法時 panic。
func WeightedShuffleWithFilter[T Numbers](c *core.Core, weights []T) []int {
	items := make([]weightItem, 0, len(weights))
	for i, w := range weights {
		if !ValidWeight(w) {
			panic("WeightedShuffleWithFilter: invalid weight")
		}
		if w == 0 {
			continue
		}
		items = append(items, weightItem{idx: i, score: c.ExpFloat64() / float64(w)})
	}

	slices.SortFunc(items, func(a, b weightItem) int {
		return cmp.Compare(a.score, b.score)
	})

	result := make([]int, len(items))
	for i, item := range items {
		result[i] = item.idx
	}
	return result
}

// WeightedSample 加權不放回抽樣，只取前 K 個 (Efraimidis-Spirakis A-Res)。
//
// 維護容量 K 的 Max-Heap，O(N log K) 時間、O(K) 空間；在 N 很大、K 為最小樣本數（2~8）時
// 遠比全排序省。回傳順序為分數由小到大，與 WeightedShuffleWithFilter 的前 K 個一致。
//
// 有效（>0）權重少於 K 時，回傳長度會小於 K，呼叫端需自行檢查。
func WeightedSample[T Numbers](c *core.Core, weights []T, k int) []int {
	n := len(weights)
	if k <= 0 || n == 0 {
		return []int{}
	}
	k = min(k, n)

	h := make(weightHeap, 0, k)
	for i, w := range weights {
		if !ValidWeight(w) {
			panic("WeightedSample: invalid weight")
		}
		if w == 0 {
			continue
		}

		score := c.ExpFloat64() / float64(w)
		if h.Len() < k {
			heap.Push(&h, weightItem{idx: i, score: score})
		} else if score < h[0].score {
			// 直接改 root 再 Fix，比 Pop + Push 少一次 log K
			h[0] = weightItem{idx: i, score: score}
			heap.Fix(&h, 0)
		}
	}

	result := make([]int, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(weightItem).idx
	}
	return result
}
