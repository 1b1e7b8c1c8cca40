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

// Package stats 產出抽樣品質報表：樣本邊際分布、子集覆蓋率，以及多實例亂數串流的重合率。
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

const (
	// Confidence 是報表中所有信賴區間使用的信心水準。
	Confidence = 0.95
	// DefaultCoincidenceThreshold 是兩條獨立串流允許的最大重合比例。
	DefaultCoincidenceThreshold = 0.001
)

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// SampleReport 最小樣本抽取的品質報表
type SampleReport struct {
	Summary  *SampleSummary  `json:"Summary"`
	Marginal *MarginalReport `json:"Marginal"`
	Coverage *CoverageReport `json:"Coverage"`
	isDone   bool
}

type SampleSummary struct {
	PoolSize   int     `json:"PoolSize"`
	SampleSize int     `json:"SampleSize"`
	Draws      int     `json:"Draws"`
	Invalid    int     `json:"Invalid"` // 長度錯誤、重複或不在池內的樣本數
	Workers    int     `json:"Workers"`
	RandomSeed bool    `json:"RandomSeed"`
	Seconds    float64 `json:"Seconds"`
	DrawsPerS  float64 `json:"DrawsPerSec"`
}

// MarginalReport 每個池位置的出現統計
//
// 紀錄時只累積 int，Done() 才換算比例與檢定。
type MarginalReport struct {
	Indices     []int     `json:"Indices"`
	Counts      []int     `json:"Counts"`      // 每個索引出現在樣本中的次數
	Freq        []float64 `json:"Freq"`        // Counts / 合法樣本數
	Expected    float64   `json:"Expected"`    // k / n
	MaxAbsDev   float64   `json:"MaxAbsDev"`   // max |Freq - Expected|
	FreqCI      []CI      `json:"FreqCI"`      // 每個索引出現比例的 CP 區間
	FirstCounts []int     `json:"FirstCounts"` // 第一個抽出的索引分布
	ChiSq       float64   `json:"ChiSq"`       // FirstCounts 對均勻分布
	DF          int       `json:"DF"`
	PValue      float64   `json:"PValue"`
}

// CoverageReport 子集覆蓋率（僅在 C(n,k) <= MaxTrackedSubsets 且 n <= 64 時追蹤）
type CoverageReport struct {
	Tracked bool    `json:"Tracked"`
	Total   int     `json:"Total"` // C(n,k)
	Seen    int     `json:"Seen"`  // 實際出現過的相異子集數
	Ratio   float64 `json:"Ratio"`
	MinHits int     `json:"MinHits"` // 出現最少的子集次數（未全覆蓋時為 0）
	MaxHits int     `json:"MaxHits"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果，重複呼叫無副作用。
func (s *SampleReport) Done() {
	if s.isDone {
		return
	}
	sum, m := s.Summary, s.Marginal
	if sum.Seconds > 0 {
		sum.DrawsPerS = float64(sum.Draws) / sum.Seconds
	}
	valid := sum.Draws - sum.Invalid
	if sum.PoolSize > 0 {
		m.Expected = float64(sum.SampleSize) / float64(sum.PoolSize)
	}
	m.Freq = make([]float64, len(m.Counts))
	m.FreqCI = make([]CI, len(m.Counts))
	m.MaxAbsDev = 0
	for i, c := range m.Counts {
		hat, ci := ProportionCI(c, valid, Confidence)
		m.Freq[i] = hat
		m.FreqCI[i] = ci
		m.MaxAbsDev = max(m.MaxAbsDev, math.Abs(hat-m.Expected))
	}
	m.ChiSq, m.DF, m.PValue = ChiSquareUniform(m.FirstCounts)

	if c := s.Coverage; c != nil && c.Tracked && c.Total > 0 {
		c.Ratio = float64(c.Seen) / float64(c.Total)
	}
	s.isDone = true
}

// Uniform 回報樣本是否全部合法，且第一個抽出索引的分布在 alpha 顯著水準下不拒絕均勻。
func (s *SampleReport) Uniform(alpha float64) bool {
	s.Done()
	return s.Summary.Invalid == 0 && s.Marginal.PValue >= alpha
}

// MarginalWithinCI 回報期望比例 k/n 是否落在每個索引出現比例的信賴區間內。
func (s *SampleReport) MarginalWithinCI() bool {
	s.Done()
	e := s.Marginal.Expected
	for _, ci := range s.Marginal.FreqCI {
		if e < ci.Lo || e > ci.Hi {
			return false
		}
	}
	return true
}

func (s *SampleReport) WriteWith(w io.Writer, rep Render[SampleReport]) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 以表格輸出摘要到標準輸出。
func (s *SampleReport) StdOut(ut time.Duration) {
	s.WriteTable(os.Stdout, ut)
}

// WriteTable 以表格輸出摘要。
func (s *SampleReport) WriteTable(w io.Writer, ut time.Duration) {
	s.Done()
	fmt.Fprint(w, formatDuration(ut, s.Summary.Draws))
	keys, msg := s.fmtBasic()
	fmt.Fprintln(w, fmtTable("Sample Audit", keys, msg))
}

// StreamReport 多實例亂數串流的兩兩重合率報表
type StreamReport struct {
	Workers     int        `json:"Workers"`
	Length      int        `json:"Length"`
	RandomSeed  bool       `json:"RandomSeed"`
	Seeds       []int64    `json:"Seeds"`
	Pairs       []PairStat `json:"Pairs"`
	MaxRatio    float64    `json:"MaxRatio"`
	MedianRatio PointStat  `json:"MedianRatio"`
	ChanceRatio float64    `json:"ChanceRatio"` // 獨立均勻串流的期望重合率
	Threshold   float64    `json:"Threshold"`
	Independent bool       `json:"Independent"` // 所有 pair 的 Ratio < Threshold
	Seconds     float64    `json:"Seconds"`
	isDone      bool
}

// PairStat 一對串流的重合統計
type PairStat struct {
	A       int     `json:"A"`
	B       int     `json:"B"`
	Matches int     `json:"Matches"`
	Ratio   float64 `json:"Ratio"`
	CI      CI      `json:"CI"`
}

// NewStreamReport 比對所有串流兩兩之間在相同位置取值相等的次數。
// rangeSize 為串流值域大小（用來計算 ChanceRatio）；threshold <= 0 時使用 DefaultCoincidenceThreshold。
func NewStreamReport(streams [][]int32, seeds []int64, rangeSize float64, threshold float64) *StreamReport {
	if threshold <= 0 {
		threshold = DefaultCoincidenceThreshold
	}
	n := 0
	if len(streams) > 0 {
		n = len(streams[0])
		for _, s := range streams[1:] {
			n = min(n, len(s))
		}
	}
	r := &StreamReport{
		Workers:   len(streams),
		Length:    n,
		Seeds:     seeds,
		Threshold: threshold,
	}
	if rangeSize > 0 {
		r.ChanceRatio = 1 / rangeSize
	}
	for a := 0; a < len(streams); a++ {
		for b := a + 1; b < len(streams); b++ {
			sa, sb := streams[a][:n], streams[b][:n]
			m := 0
			for i := range sa {
				if sa[i] == sb[i] {
					m++
				}
			}
			r.Pairs = append(r.Pairs, PairStat{A: a, B: b, Matches: m})
		}
	}
	return r
}

// Done 計算每對的比例、CI 與整體判定，重複呼叫無副作用。
func (r *StreamReport) Done() {
	if r.isDone {
		return
	}
	r.MaxRatio = 0
	ratios := make([]float64, len(r.Pairs))
	for i := range r.Pairs {
		p := &r.Pairs[i]
		p.Ratio, p.CI = ProportionCI(p.Matches, r.Length, Confidence)
		ratios[i] = p.Ratio
		r.MaxRatio = max(r.MaxRatio, p.Ratio)
	}
	r.MedianRatio = QuantileStat(ratios, 0.5, Confidence)
	r.Independent = len(r.Pairs) > 0 && r.MaxRatio < r.Threshold
	r.isDone = true
}

func (r *StreamReport) WriteWith(w io.Writer, rep Render[StreamReport]) error {
	r.Done()
	return rep.Write(w, r)
}

// StdOut 以表格輸出摘要到標準輸出。
func (r *StreamReport) StdOut(ut time.Duration) {
	r.WriteTable(os.Stdout, ut)
}

// WriteTable 以表格輸出摘要。
func (r *StreamReport) WriteTable(w io.Writer, ut time.Duration) {
	r.Done()
	fmt.Fprint(w, formatDuration(ut, r.Workers*r.Length))
	p := message.NewPrinter(lang)
	msg := map[string]string{
		"Workers":      p.Sprintf("%d", r.Workers),
		"Stream Len":   p.Sprintf("%d", r.Length),
		"Random Seed":  fmt.Sprintf("%t", r.RandomSeed),
		"Pairs":        p.Sprintf("%d", len(r.Pairs)),
		"Max Ratio":    p.Sprintf("%.6f", r.MaxRatio),
		"Median Ratio": p.Sprintf("%.6f [%.6f,%.6f]", r.MedianRatio.Hat, r.MedianRatio.CI.Lo, r.MedianRatio.CI.Hi),
		"Chance Ratio": p.Sprintf("%.3g", r.ChanceRatio),
		"Threshold":    p.Sprintf("%.4f", r.Threshold),
		"Independent":  fmt.Sprintf("%t", r.Independent),
	}
	keys := []string{"Workers", "Stream Len", "Random Seed", "Pairs", "Max Ratio", "Median Ratio", "Chance Ratio", "Threshold", "Independent"}
	fmt.Fprintln(w, fmtTable("Stream Audit", keys, msg))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, draws int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	dps := int(float64(draws) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\ndps : %d draws/sec\n", sec, dps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\ndps : %d draws/sec\n", m, s, dps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\ndps : %d draws/sec\n", h, m, s, dps)
}

func (s *SampleReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	cov := "untracked"
	if c := s.Coverage; c != nil && c.Tracked {
		cov = p.Sprintf("%d / %d (%.2f%%)", c.Seen, c.Total, 100.0*c.Ratio)
	}
	basic := map[string]string{
		"Pool Size":      p.Sprintf("%d", s.Summary.PoolSize),
		"Sample Size":    p.Sprintf("%d", s.Summary.SampleSize),
		"Workers":        p.Sprintf("%d", s.Summary.Workers),
		"Total Draws":    p.Sprintf("%d", s.Summary.Draws),
		"Invalid":        p.Sprintf("%d", s.Summary.Invalid),
		"Expected Freq":  p.Sprintf("%.4f", s.Marginal.Expected),
		"Max Abs Dev":    p.Sprintf("%.4f", s.Marginal.MaxAbsDev),
		"First ChiSq":    p.Sprintf("%.3f (df=%d)", s.Marginal.ChiSq, s.Marginal.DF),
		"First P-Value":  p.Sprintf("%.4f", s.Marginal.PValue),
		"Subset Covered": cov,
	}
	keys := []string{"Pool Size", "Sample Size", "Workers", "Total Draws", "Invalid", "Expected Freq", "Max Abs Dev", "First ChiSq", "First P-Value", "Subset Covered"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
