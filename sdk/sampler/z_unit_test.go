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

package sampler

import (
	"math"
	"slices"
	"testing"

	"github.com/zintix-labs/sacprob/sdk/core"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// assertPanic 驗證函數是否如預期觸發 panic
func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, but got none", msg)
		}
	}()
	f()
}

// checkDistribution 驗證抽樣結果的分佈是否符合預期權重
func checkDistribution(t *testing.T, name string, weights []int, samples []int, tolerance float64) {
	t.Helper()
	totalW := 0
	for _, w := range weights {
		totalW += w
	}
	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}
	for i, w := range weights {
		if w == 0 {
			if counts[i] > 0 {
				t.Errorf("[%s] expected 0 samples for index %d (weight 0), got %d", name, i, counts[i])
			}
			continue
		}
		expectedProb := float64(w) / float64(totalW)
		actualProb := float64(counts[i]) / float64(len(samples))
		if diff := math.Abs(expectedProb - actualProb); diff > tolerance {
			t.Errorf("[%s] index %d: expected prob %.3f, got %.3f (diff %.3f > tol %.3f)",
				name, i, expectedProb, actualProb, diff, tolerance)
		}
	}
}

func hasDuplicate(s []int) bool {
	seen := make(map[int]struct{}, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

// -----------------------------------------------------------------------------
// Tests for DrawIndexSample
// -----------------------------------------------------------------------------

// TestDrawIndexSample_Distinct 驗證樣本不重複且皆來自池
func TestDrawIndexSample_Distinct(t *testing.T) {
	c := core.New(core.Default().New(1))
	pool := []int{10, 11, 12, 13, 14, 15, 16}
	work := slices.Clone(pool)
	var buf []int
	for i := 0; i < 10000; i++ {
		buf = DrawIndexSample(c, work, 4, buf)
		if len(buf) != 4 {
			t.Fatalf("expected 4 indices, got %d", len(buf))
		}
		if hasDuplicate(buf) {
			t.Fatalf("duplicate in sample %v", buf)
		}
		for _, v := range buf {
			if !slices.Contains(pool, v) {
				t.Fatalf("index %d not in pool", v)
			}
		}
	}
	// work 仍是原集合的排列
	got := slices.Clone(work)
	slices.Sort(got)
	if !slices.Equal(got, pool) {
		t.Fatalf("working copy lost elements: %v", work)
	}
}

// TestDrawIndexSample_InvalidSize 驗證不合法樣本數不回傳部分樣本
func TestDrawIndexSample_InvalidSize(t *testing.T) {
	c := core.New(core.Default().New(2))
	work := []int{0, 1, 2}
	if got := DrawIndexSample(c, work, 4, nil); got != nil {
		t.Fatalf("k > n must return nil, got %v", got)
	}
	if got := DrawIndexSample(c, work, 0, nil); got != nil {
		t.Fatalf("k == 0 must return nil, got %v", got)
	}
	if !ValidSampleSize(3, 3) || ValidSampleSize(-1, 3) {
		t.Fatalf("ValidSampleSize boundary mismatch")
	}
}

// TestDrawIndexSample_FirstPositionUniform 驗證第一個抽出的元素在池上均勻
func TestDrawIndexSample_FirstPositionUniform(t *testing.T) {
	c := core.New(core.Default().New(3))
	work := []int{0, 1, 2, 3}
	first := make([]int, 0, 40000)
	var buf []int
	for i := 0; i < 40000; i++ {
		buf = DrawIndexSample(c, work, 2, buf)
		first = append(first, buf[0])
	}
	checkDistribution(t, "first draw", []int{1, 1, 1, 1}, first, 0.015)
}

// -----------------------------------------------------------------------------
// Tests for WeightedSample / WeightedShuffleWithFilter
// -----------------------------------------------------------------------------

// TestWeightedSample_Basic 驗證加權 K=1 抽樣的分佈
func TestWeightedSample_Basic(t *testing.T) {
	c := core.New(core.Default().New(4))
	weights := []int{10, 10, 80}
	trials := 100000
	samples := make([]int, 0, trials)
	for i := 0; i < trials; i++ {
		res := WeightedSample(c, weights, 1)
		if len(res) > 0 {
			samples = append(samples, res[0])
		}
	}
	checkDistribution(t, "WeightedSample K=1", weights, samples, 0.01)
}

// TestWeightedSample_NoDuplicates 驗證 K 抽樣內部不重複
func TestWeightedSample_NoDuplicates(t *testing.T) {
	c := core.New(core.Default().New(5))
	weights := []float64{0.9, 0.1, 0.5, 0.7, 0.2, 0.05}
	for i := 0; i < 5000; i++ {
		got := WeightedSample(c, weights, 3)
		if len(got) != 3 || hasDuplicate(got) {
			t.Fatalf("bad weighted sample %v", got)
		}
	}
}

// TestWeightedSampleMatchesFilteredShuffle 相同 seed 下 WeightedSample 應等於過濾排列的前 K 個
func TestWeightedSampleMatchesFilteredShuffle(t *testing.T) {
	weights := []int{5, 0, 1, 4}
	const seed = 7

	order := WeightedShuffleWithFilter(core.New(core.Default().New(seed)), weights)
	got := WeightedSample(core.New(core.Default().New(seed)), weights, 2)

	if !slices.Equal(order[:2], got) {
		t.Fatalf("expected %v, got %v", order[:2], got)
	}
}

// TestWeightedSampleKExceedsPositives 有效項目少於 K 時只回傳有效項目
func TestWeightedSampleKExceedsPositives(t *testing.T) {
	got := WeightedSample(core.New(core.Default().New(11)), []int{0, 2, 0}, 5)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only index 1, got %v", got)
	}
	if got := WeightedSample(core.New(core.Default().New(13)), []int{0, 0, 0}, 3); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

// TestWeightedSample_InvalidPanics 負權重與 NaN 應 panic
func TestWeightedSample_InvalidPanics(t *testing.T) {
	c := core.New(core.Default().New(17))
	assertPanic(t, func() {
		WeightedSample(c, []int{1, -1, 2}, 2)
	}, "negative weight")
	assertPanic(t, func() {
		WeightedSample(c, []float64{1, math.NaN()}, 1)
	}, "NaN weight")
	assertPanic(t, func() {
		WeightedShuffleWithFilter(c, []float64{math.Inf(1)})
	}, "Inf weight")
}
