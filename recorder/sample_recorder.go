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

// Package recorder 累積抽樣結果，完成後透過 Done 輸出 stats 報表。
package recorder

import (
	"fmt"
	"math/bits"

	"github.com/zintix-labs/sacprob/errs"
	"github.com/zintix-labs/sacprob/stats"
)

// maxMaskPool 是子集以 bitmask 記錄時允許的最大池大小。
const maxMaskPool = 64

// SampleRecorder 樣本紀錄員
//
// 每個 worker 持有一個 SampleRecorder（不可併發寫入），結束後以 MergeSampleRecorder 合併。
// 紀錄時只累積 int，比例與檢定留到 Done。
type SampleRecorder struct {
	Indices []int // 索引池（池順序）
	K       int   // 樣本大小

	Marginal []int          // 每個池位置出現在合法樣本中的次數
	First    []int          // 每個池位置作為第一個抽出元素的次數
	Subsets  map[uint64]int // 以池位置 bitmask 表示的子集計數；nil 代表不追蹤
	Total    int            // C(n,k)，僅追蹤時有效
	Invalid  int
	Draws    int

	pos map[int]int // index -> 池位置
}

// NewSampleRecorder 依索引池與樣本大小建立紀錄員。
func NewSampleRecorder(indices []int, k int) (*SampleRecorder, error) {
	if len(indices) == 0 {
		return nil, errs.NewFatal("sample recorder: empty pool")
	}
	if k < 1 || k > len(indices) {
		return nil, errs.NewFatal(fmt.Sprintf("sample recorder: invalid k=%d pool=%d", k, len(indices)))
	}
	s := &SampleRecorder{
		Indices:  append([]int(nil), indices...),
		K:        k,
		Marginal: make([]int, len(indices)),
		First:    make([]int, len(indices)),
		pos:      make(map[int]int, len(indices)),
	}
	for i, idx := range indices {
		if _, dup := s.pos[idx]; dup {
			return nil, errs.NewFatal(fmt.Sprintf("sample recorder: duplicate index %d", idx))
		}
		s.pos[idx] = i
	}
	if len(indices) <= maxMaskPool {
		if total, ok := stats.SubsetTotal(len(indices), k); ok {
			s.Total = total
			s.Subsets = make(map[uint64]int, min(total, 4096))
		}
	}
	return s, nil
}

// MergeSampleRecorder 合併同一索引池、同一 k 的紀錄員。
func MergeSampleRecorder(r []*SampleRecorder) (*SampleRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge sample record err : empty input")
	}
	r0 := r[0]
	s, err := NewSampleRecorder(r0.Indices, r0.K)
	if err != nil {
		return nil, err
	}
	for _, v := range r {
		if v.K != r0.K {
			return nil, errs.NewFatal("merge sample record err : different sample size")
		}
		if len(v.Indices) != len(r0.Indices) {
			return nil, errs.NewFatal("merge sample record err : different pool")
		}
		for i, idx := range v.Indices {
			if idx != r0.Indices[i] {
				return nil, errs.NewFatal("merge sample record err : different pool")
			}
		}
		s.Draws += v.Draws
		s.Invalid += v.Invalid
		for i := range v.Marginal {
			s.Marginal[i] += v.Marginal[i]
			s.First[i] += v.First[i]
		}
		if s.Subsets != nil {
			for mask, c := range v.Subsets {
				s.Subsets[mask] += c
			}
		}
	}
	return s, nil
}

// Record 以單次樣本更新統計。
// 長度不符、含重複或不在池內的樣本只計入 Invalid。
func (s *SampleRecorder) Record(sample []int) {
	s.Draws++
	if len(sample) != s.K {
		s.Invalid++
		return
	}

	var mask uint64
	useMask := len(s.Indices) <= maxMaskPool
	for i, idx := range sample {
		p, ok := s.pos[idx]
		if !ok {
			s.Invalid++
			return
		}
		if useMask {
			bit := uint64(1) << uint(p)
			if mask&bit != 0 {
				s.Invalid++
				return
			}
			mask |= bit
			continue
		}
		for _, prev := range sample[:i] {
			if prev == idx {
				s.Invalid++
				return
			}
		}
	}

	s.First[s.pos[sample[0]]]++
	for _, idx := range sample {
		s.Marginal[s.pos[idx]]++
	}
	if s.Subsets != nil && bits.OnesCount64(mask) == s.K {
		s.Subsets[mask]++
	}
}

// Done 輸出報表（尚未呼叫 stats 的 Done，由呼叫端補上耗時等資訊後再呼叫）。
func (s *SampleRecorder) Done() *stats.SampleReport {
	report := &stats.SampleReport{
		Summary: &stats.SampleSummary{
			PoolSize:   len(s.Indices),
			SampleSize: s.K,
			Draws:      s.Draws,
			Invalid:    s.Invalid,
			Workers:    1,
		},
		Marginal: &stats.MarginalReport{
			Indices:     append([]int(nil), s.Indices...),
			Counts:      append([]int(nil), s.Marginal...),
			FirstCounts: append([]int(nil), s.First...),
		},
		Coverage: &stats.CoverageReport{
			Tracked: s.Subsets != nil,
			Total:   s.Total,
			Seen:    len(s.Subsets),
		},
	}
	if s.Subsets != nil && len(s.Subsets) > 0 {
		lo, hi := int(^uint(0)>>1), 0
		for _, c := range s.Subsets {
			lo = min(lo, c)
			hi = max(hi, c)
		}
		if len(s.Subsets) < s.Total {
			lo = 0
		}
		report.Coverage.MinHits = lo
		report.Coverage.MaxHits = hi
	}
	return report
}
