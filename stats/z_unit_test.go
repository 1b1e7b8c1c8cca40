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

package stats_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/sacprob/stats"
	"gopkg.in/yaml.v3"
)

// buildSampleReport 建立一份 pool=5, k=3 的報表，邊際計數可自訂。
func buildSampleReport(counts, first []int, draws int) *stats.SampleReport {
	return &stats.SampleReport{
		Summary: &stats.SampleSummary{
			PoolSize:   5,
			SampleSize: 3,
			Draws:      draws,
			Workers:    2,
			Seconds:    0.5,
		},
		Marginal: &stats.MarginalReport{
			Indices:     []int{0, 1, 2, 3, 4},
			Counts:      counts,
			FirstCounts: first,
		},
		Coverage: &stats.CoverageReport{Tracked: true, Total: 10, Seen: 10, MinHits: 90, MaxHits: 110},
	}
}

func TestProportionCI(t *testing.T) {
	hat, ci := stats.ProportionCI(0, 100, 0.95)
	assert.Zero(t, hat)
	assert.Zero(t, ci.Lo)
	// 零事件的 CP 上界 = 1 - 0.025^(1/100)
	assert.InDelta(t, 0.0362, ci.Hi, 1e-3)

	hat, ci = stats.ProportionCI(100, 100, 0.95)
	assert.Equal(t, 1.0, hat)
	assert.Equal(t, 1.0, ci.Hi)
	assert.InDelta(t, 0.9638, ci.Lo, 1e-3)

	hat, ci = stats.ProportionCI(50, 100, 0.95)
	assert.Equal(t, 0.5, hat)
	assert.Less(t, ci.Lo, 0.5)
	assert.Greater(t, ci.Hi, 0.5)
	assert.InDelta(t, 0.5-ci.Lo, ci.Hi-0.5, 1e-6, "symmetric at p=0.5")

	_, ci = stats.ProportionCI(0, 0, 0.95)
	assert.Equal(t, stats.CI{Lo: 0, Hi: 1}, ci)
}

func TestChiSquareUniform(t *testing.T) {
	stat, df, p := stats.ChiSquareUniform([]int{100, 100, 100, 100})
	assert.Zero(t, stat)
	assert.Equal(t, 3, df)
	assert.InDelta(t, 1.0, p, 1e-12)

	stat, _, p = stats.ChiSquareUniform([]int{400, 0, 0, 0})
	assert.InDelta(t, 1200, stat, 1e-9)
	assert.Less(t, p, 1e-12)

	_, _, p = stats.ChiSquareUniform([]int{7})
	assert.Equal(t, 1.0, p)
	_, _, p = stats.ChiSquareUniform([]int{0, 0})
	assert.Equal(t, 1.0, p)
}

func TestSubsetTotal(t *testing.T) {
	n, ok := stats.SubsetTotal(5, 3)
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	n, ok = stats.SubsetTotal(64, 8)
	assert.False(t, ok, "C(64,8) exceeds MaxTrackedSubsets")
	assert.Zero(t, n)

	_, ok = stats.SubsetTotal(3, 4)
	assert.False(t, ok)
}

func TestQuantileStat(t *testing.T) {
	data := make([]float64, 101)
	for i := range data {
		data[i] = float64(100 - i)
	}
	q := stats.QuantileStat(data, 0.5, 0.95)
	assert.Equal(t, 50.0, q.Hat)
	assert.LessOrEqual(t, q.CI.Lo, q.Hat)
	assert.GreaterOrEqual(t, q.CI.Hi, q.Hat)

	assert.Equal(t, stats.PointStat{}, stats.QuantileStat(nil, 0.5, 0.95))
}

func TestSampleReportDone(t *testing.T) {
	rep := buildSampleReport([]int{600, 600, 600, 600, 600}, []int{200, 200, 200, 200, 200}, 1000)
	rep.Done()

	assert.InDelta(t, 0.6, rep.Marginal.Expected, 1e-12)
	assert.InDelta(t, 0, rep.Marginal.MaxAbsDev, 1e-12)
	assert.InDelta(t, 2000, rep.Summary.DrawsPerS, 1e-9)
	assert.InDelta(t, 1.0, rep.Coverage.Ratio, 1e-12)
	assert.True(t, rep.Uniform(0.01))
	assert.True(t, rep.MarginalWithinCI())

	skewed := buildSampleReport([]int{900, 600, 600, 450, 450}, []int{600, 100, 100, 100, 100}, 1000)
	assert.False(t, skewed.Uniform(0.01))
	assert.False(t, skewed.MarginalWithinCI())
	assert.InDelta(t, 0.3, skewed.Marginal.MaxAbsDev, 1e-12)

	bad := buildSampleReport([]int{600, 600, 600, 600, 600}, []int{200, 200, 200, 200, 200}, 1000)
	bad.Summary.Invalid = 1
	assert.False(t, bad.Uniform(0.01))
}

func TestStreamReport(t *testing.T) {
	a := []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []int32{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	c := []int32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 42}
	r := stats.NewStreamReport([][]int32{a, b, c}, []int64{1, 2, 3}, 10, 0.05)
	r.Done()

	assert.Equal(t, 10, r.Length, "shortest stream wins")
	require.Len(t, r.Pairs, 3)
	assert.Equal(t, 1, r.Pairs[0].Matches) // a-b
	assert.Equal(t, 0, r.Pairs[1].Matches) // a-c
	assert.Equal(t, 9, r.Pairs[2].Matches) // b-c
	assert.InDelta(t, 0.9, r.MaxRatio, 1e-12)
	assert.InDelta(t, 0.1, r.ChanceRatio, 1e-12)
	assert.False(t, r.Independent)

	indep := stats.NewStreamReport([][]int32{{1, 2}, {3, 4}}, nil, 0, 0)
	indep.Done()
	assert.Equal(t, stats.DefaultCoincidenceThreshold, indep.Threshold)
	assert.True(t, indep.Independent)
}

func TestRenders(t *testing.T) {
	rep := buildSampleReport([]int{600, 600, 600, 600, 600}, []int{200, 200, 200, 200, 200}, 1000)

	var js bytes.Buffer
	require.NoError(t, rep.WriteWith(&js, stats.JsonRender[stats.SampleReport]{}))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Contains(t, decoded, "Marginal")

	var ym bytes.Buffer
	require.NoError(t, rep.WriteWith(&ym, stats.YAMLRender[stats.SampleReport]{}))
	assert.Contains(t, ym.String(), "counts: [600, 600, 600, 600, 600]")
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &back))

	var tbl bytes.Buffer
	rep.WriteTable(&tbl, 1500*time.Millisecond)
	out := tbl.String()
	assert.Contains(t, out, "Sample Audit")
	assert.Contains(t, out, "1,000")
	assert.Contains(t, out, "10 / 10")
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[2:] {
		assert.True(t, strings.HasPrefix(line, "|") || strings.HasPrefix(line, "+"), line)
	}

	sr := stats.NewStreamReport([][]int32{{1, 2}, {3, 4}}, []int64{5, 6}, 1<<31, 0)
	var ss bytes.Buffer
	require.NoError(t, sr.WriteWith(&ss, stats.YAMLRender[stats.StreamReport]{}))
	assert.Contains(t, ss.String(), "independent: true")
	var st bytes.Buffer
	sr.WriteTable(&st, time.Second)
	assert.Contains(t, st.String(), "Stream Audit")
}
