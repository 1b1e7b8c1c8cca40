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

package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxTrackedSubsets 是子集覆蓋率追蹤的上限；C(n,k) 超過此值時不追蹤。
const MaxTrackedSubsets = 1 << 20

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// ProportionCI 以 Clopper-Pearson 精確法估計二項比例 k/n 的信賴區間。
// n == 0 時回傳 (0, [0,1])。
func ProportionCI(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// ChiSquareUniform 對 counts 做均勻分布的卡方適合度檢定。
// 回傳統計量、自由度與 p-value；總數為 0 或類別少於 2 時 p-value 為 1。
func ChiSquareUniform(counts []int) (stat float64, df int, pValue float64) {
	n := len(counts)
	if n < 2 {
		return 0, 0, 1
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0, n - 1, 1
	}
	exp := float64(total) / float64(n)
	for _, c := range counts {
		d := float64(c) - exp
		stat += d * d / exp
	}
	df = n - 1
	pValue = distuv.ChiSquared{K: float64(df)}.Survival(stat)
	return stat, df, pValue
}

// SubsetTotal 回傳 C(n,k)，以及是否在 MaxTrackedSubsets 之內（可追蹤）。
// 先以 log 檢查量級，避免大 n 時整數溢位。
func SubsetTotal(n, k int) (int, bool) {
	if n < 0 || k < 0 || k > n {
		return 0, false
	}
	if combin.LogGeneralizedBinomial(float64(n), float64(k)) > math.Log(MaxTrackedSubsets) {
		return 0, false
	}
	return combin.Binomial(n, k), true
}

// quantileCI 估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return data[0], data[0]
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := min(max(int(pLo*float64(n)), 0), n-1)
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	ui = min(max(ui, 0), n-1)
	return cp[li], cp[ui]
}

// quantilePoint 回傳經驗分位數（最近秩法）。
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	idx := min(max(int(q*float64(n)), 0), n-1)
	return cp[idx]
}

// QuantileStat 回傳 q 分位的點估計與 confidence 信賴區間。
func QuantileStat(data []float64, q, confidence float64) PointStat {
	lo, hi := quantileCI(data, q, confidence)
	return PointStat{Hat: quantilePoint(data, q), CI: CI{Lo: lo, Hi: hi}}
}
