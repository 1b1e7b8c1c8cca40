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

package sacprob

import (
	"fmt"
	"log/slog"

	"github.com/zintix-labs/sacprob/errs"
	"github.com/zintix-labs/sacprob/logger"
	"github.com/zintix-labs/sacprob/sdk/core"
	"github.com/zintix-labs/sacprob/sdk/sampler"
	"github.com/zintix-labs/sacprob/spec"
)

// Problem 持有一個索引池、一個專屬亂數引擎，以及具體幾何問題的 Model。
//
// Problem 不是併發安全的：同一實例不可被多個 goroutine 同時使用。
// 併發時讓每個 goroutine 各自持有一個 Problem（或透過 ProblemPool 借用）。
type Problem[M any] struct {
	model   Model[M]
	checker SampleChecker // 可為 nil
	sized   Sized         // 可為 nil

	indices  []int // 目前的索引池（呼叫端輸入順序）
	shuffled []int // 抽樣用工作排列，永遠是 indices 的一個排列

	core            *core.Core
	initSeed        int64
	randomSeed      bool
	maxSampleChecks int
	log             *slog.Logger
}

// New 以預設引擎 (PCG64) 建立 Problem。
//
//   - useRandomSeed == false：使用 core.DefaultSeed，所有實例（不論 goroutine）輸出相同序列。
//   - useRandomSeed == true：使用 core.EntropySeed()，同時建立的實例也會得到互相獨立的序列。
//
// 若 m 實作 Sized，初始索引池為 0..Len()-1；否則為空，需呼叫 SetIndices。
// m 為 nil 時 panic。
func New[M any](m Model[M], useRandomSeed bool) *Problem[M] {
	seed := core.DefaultSeed
	if useRandomSeed {
		seed = core.EntropySeed()
	}
	p, err := newProblem(m, core.Default(), seed, spec.DefaultMaxSampleChecks)
	if err != nil {
		panic(err)
	}
	p.randomSeed = useRandomSeed
	return p
}

// NewWithSeed 以指定 seed 建立可重現的 Problem。m 為 nil 時 panic。
func NewWithSeed[M any](m Model[M], seed int64) *Problem[M] {
	p, err := newProblem(m, core.Default(), seed, spec.DefaultMaxSampleChecks)
	if err != nil {
		panic(err)
	}
	return p
}

// NewWithSetting 依 ProblemSetting 建立 Problem；ps 為 nil 時使用 spec.DefaultProblemSetting()。
func NewWithSetting[M any](m Model[M], ps *spec.ProblemSetting) (*Problem[M], error) {
	if ps == nil {
		ps = spec.DefaultProblemSetting()
	}
	p, err := newProblem(m, ps.Factory(), ps.ResolveSeed(), ps.MaxSampleChecks)
	if err != nil {
		return nil, err
	}
	p.randomSeed = ps.Seed == 0 && ps.UseRandomSeed
	return p, nil
}

func newProblem[M any](m Model[M], f core.PRNGFactory, seed int64, maxChecks int) (*Problem[M], error) {
	if m == nil {
		return nil, ErrNilModel
	}
	if maxChecks < 1 {
		maxChecks = spec.DefaultMaxSampleChecks
	}
	p := &Problem[M]{
		model:           m,
		core:            core.New(f.New(seed)),
		initSeed:        seed,
		maxSampleChecks: maxChecks,
		log:             logger.Silent(),
	}
	if c, ok := m.(SampleChecker); ok {
		p.checker = c
	}
	if s, ok := m.(Sized); ok {
		p.sized = s
		if err := p.SetUniformIndices(s.Len()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SetLogger 設定失敗路徑使用的 logger；nil 代表靜默。
func (p *Problem[M]) SetLogger(l *slog.Logger) {
	p.log = logger.OrSilent(l)
}

// Model 回傳綁定的 Model。
func (p *Problem[M]) Model() Model[M] {
	return p.model
}

// ============================================================
// ** 索引池 **
// ============================================================

// SetIndices 以 indices 的複本取代目前的索引池。
// 含重複索引、負值或超出 Sized 範圍時回傳錯誤，原本的池保持不變。
func (p *Problem[M]) SetIndices(indices []int) error {
	limit := -1
	if p.sized != nil {
		limit = p.sized.Len()
	}
	seen := make(map[int]struct{}, len(indices))
	for i, idx := range indices {
		if idx < 0 || (limit >= 0 && idx >= limit) {
			err := errs.WrapWithExtra(ErrIndexOutOfRange, "set indices", fmt.Sprintf("pos=%d index=%d limit=%d", i, idx, limit))
			p.log.Warn("set indices rejected", "reason", "out_of_range", "index", idx)
			return err
		}
		if _, dup := seen[idx]; dup {
			err := errs.WrapWithExtra(ErrDuplicateIndex, "set indices", fmt.Sprintf("pos=%d index=%d", i, idx))
			p.log.Warn("set indices rejected", "reason", "duplicate", "index", idx)
			return err
		}
		seen[idx] = struct{}{}
	}
	p.indices = append(p.indices[:0:0], indices...)
	p.shuffled = append(p.shuffled[:0:0], indices...)
	return nil
}

// SetUniformIndices 將索引池設為 0..n-1。
func (p *Problem[M]) SetUniformIndices(n int) error {
	if n < 0 {
		return errs.WrapWithExtra(ErrIndexOutOfRange, "set uniform indices", fmt.Sprintf("n=%d", n))
	}
	if p.sized != nil && n > p.sized.Len() {
		return errs.WrapWithExtra(ErrIndexOutOfRange, "set uniform indices", fmt.Sprintf("n=%d limit=%d", n, p.sized.Len()))
	}
	p.indices = make([]int, n)
	p.shuffled = make([]int, n)
	for i := range n {
		p.indices[i] = i
		p.shuffled[i] = i
	}
	return nil
}

// Indices 回傳目前索引池的複本。
func (p *Problem[M]) Indices() []int {
	out := make([]int, len(p.indices))
	copy(out, p.indices)
	return out
}

// PoolSize 回傳索引池大小。
func (p *Problem[M]) PoolSize() int {
	return len(p.indices)
}

// SampleSize 回傳 Model 定義的最小樣本數 k。
func (p *Problem[M]) SampleSize() int {
	return p.model.SampleSize()
}

// ============================================================
// ** 抽樣 **
// ============================================================

// DrawIndexSample 從索引池不放回抽出 k 個相異索引，依抽取順序回傳。
// k <= 0 或 k > 池大小時回傳 ErrInvalidSampleSize，不回傳部分樣本。
func (p *Problem[M]) DrawIndexSample() ([]int, error) {
	return p.DrawIndexSampleInto(nil)
}

// DrawIndexSampleInto 與 DrawIndexSample 相同，但重用 dst 的底層陣列。
func (p *Problem[M]) DrawIndexSampleInto(dst []int) ([]int, error) {
	k := p.model.SampleSize()
	if !sampler.ValidSampleSize(k, len(p.shuffled)) {
		return nil, errs.WrapWithExtra(ErrInvalidSampleSize, "draw index sample", fmt.Sprintf("k=%d pool=%d", k, len(p.shuffled)))
	}
	return sampler.DrawIndexSample(p.core, p.shuffled, k, dst), nil
}

// Samples 最多抽 MaxSampleChecks 次，回傳第一個通過 IsSampleGood 的樣本。
// Model 未實作 SampleChecker 時等同 DrawIndexSample。
func (p *Problem[M]) Samples() ([]int, error) {
	if p.checker == nil {
		return p.DrawIndexSample()
	}
	var sample []int
	for range p.maxSampleChecks {
		var err error
		sample, err = p.DrawIndexSampleInto(sample)
		if err != nil {
			return nil, err
		}
		if p.checker.IsSampleGood(sample) {
			return sample, nil
		}
	}
	p.log.Debug("no good sample", "checks", p.maxSampleChecks, "pool", len(p.indices), "k", p.model.SampleSize())
	return nil, errs.WrapWithExtra(ErrNoGoodSample, "samples", fmt.Sprintf("checks=%d", p.maxSampleChecks))
}

// DrawWeightedSample 依池中每個位置的權重不放回抽出 k 個索引（Efraimidis-Spirakis）。
//
// weights[i] 對應 Indices()[i]；權重為 0 的位置不會被抽中。
// 正權重位置少於 k 時回傳 ErrInvalidSampleSize。
func (p *Problem[M]) DrawWeightedSample(weights []float64) ([]int, error) {
	k := p.model.SampleSize()
	if len(weights) != len(p.indices) {
		return nil, errs.WrapWithExtra(ErrInvalidWeights, "draw weighted sample", fmt.Sprintf("weights=%d pool=%d", len(weights), len(p.indices)))
	}
	positive := 0
	for i, w := range weights {
		if !sampler.ValidWeight(w) {
			return nil, errs.WrapWithExtra(ErrInvalidWeights, "draw weighted sample", fmt.Sprintf("pos=%d weight=%v", i, w))
		}
		if w > 0 {
			positive++
		}
	}
	if !sampler.ValidSampleSize(k, positive) {
		return nil, errs.WrapWithExtra(ErrInvalidSampleSize, "draw weighted sample", fmt.Sprintf("k=%d positive=%d", k, positive))
	}
	pos := sampler.WeightedSample(p.core, weights, k)
	for i, v := range pos {
		pos[i] = p.indices[v]
	}
	return pos, nil
}

// ============================================================
// ** 亂數 **
// ============================================================

// Rnd 回傳 [0, core.RndMax] 均勻分布的整數。
func (p *Problem[M]) Rnd() int {
	return p.core.Rnd()
}

// RndRange 回傳 [lo, hi]（含兩端）均勻分布的整數；hi < lo 時回傳 lo。
func (p *Problem[M]) RndRange(lo, hi int) int {
	return p.core.IntRange(lo, hi)
}

// Seed 回傳建立引擎時使用的 seed，方便重現。
func (p *Problem[M]) Seed() int64 {
	return p.initSeed
}

// RandomSeed 回報是否以隨機種子策略建立。
func (p *Problem[M]) RandomSeed() bool {
	return p.randomSeed
}

// SnapshotRNG 回傳引擎目前狀態。
func (p *Problem[M]) SnapshotRNG() ([]byte, error) {
	b, err := p.core.Snapshot()
	if err != nil {
		return nil, errs.Wrap(err, "snapshot rng")
	}
	return b, nil
}

// RestoreRNG 將引擎還原到 SnapshotRNG 的狀態。
// 注意：抽樣工作排列不在快照內，需要完全重現抽樣時請同時重設索引池。
func (p *Problem[M]) RestoreRNG(state []byte) error {
	if err := p.core.Restore(state); err != nil {
		return errs.Wrap(err, "restore rng")
	}
	return nil
}

// ============================================================
// ** Model hooks **
// ============================================================

// ComputeModel 呼叫 Model.ComputeModelCoefficients，錯誤原樣傳遞。
func (p *Problem[M]) ComputeModel(sample []int) (M, error) {
	return p.model.ComputeModelCoefficients(sample)
}

// OptimizeModel 呼叫 Model.OptimizeModelCoefficients，錯誤原樣傳遞。
func (p *Problem[M]) OptimizeModel(inliers []int, model M) (M, error) {
	return p.model.OptimizeModelCoefficients(inliers, model)
}

// SelectWithinDistance 回傳整個索引池中殘差 < threshold 的索引（池順序）。
func (p *Problem[M]) SelectWithinDistance(model M, threshold float64) ([]int, error) {
	dists, err := p.model.SelectedDistancesToModel(model, p.indices, nil)
	if err != nil {
		return nil, err
	}
	if len(dists) != len(p.indices) {
		return nil, errs.Fatalf("distances length mismatch: got %d want %d", len(dists), len(p.indices))
	}
	inliers := make([]int, 0, len(dists))
	for i, d := range dists {
		if d < threshold {
			inliers = append(inliers, p.indices[i])
		}
	}
	return inliers, nil
}

// CountWithinDistance 回傳整個索引池中殘差 < threshold 的數量。
func (p *Problem[M]) CountWithinDistance(model M, threshold float64) (int, error) {
	dists, err := p.model.SelectedDistancesToModel(model, p.indices, nil)
	if err != nil {
		return 0, err
	}
	if len(dists) != len(p.indices) {
		return 0, errs.Fatalf("distances length mismatch: got %d want %d", len(dists), len(p.indices))
	}
	n := 0
	for _, d := range dists {
		if d < threshold {
			n++
		}
	}
	return n, nil
}
