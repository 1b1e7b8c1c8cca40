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
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/sacprob/errs"
	"github.com/zintix-labs/sacprob/logger"
	"github.com/zintix-labs/sacprob/recorder"
	"github.com/zintix-labs/sacprob/sdk/core"
	"github.com/zintix-labs/sacprob/spec"
	"github.com/zintix-labs/sacprob/stats"
	"golang.org/x/sync/errgroup"
)

// ctxCheckEvery 是 worker 迴圈檢查 ctx 取消的間隔（次數）。
const ctxCheckEvery = 1024

// Auditor 以多個平行 Problem 實例檢驗抽樣引擎的品質。
//
//   - AuditSamples：大量抽樣後檢查樣本合法性、邊際分布與子集覆蓋率。
//   - AuditStreams：比對各實例 Rnd() 串流的兩兩重合率，檢驗種子策略是否讓實例互相獨立。
type Auditor[M any] struct {
	build     ModelBuilder[M]
	ps        *spec.ProblemSetting
	seedmaker *seedMaker
	log       *slog.Logger
}

// NewAuditor 建立 Auditor；ps 為 nil 時使用預設設定。
func NewAuditor[M any](build ModelBuilder[M], ps *spec.ProblemSetting, log *slog.Logger) (*Auditor[M], error) {
	if build == nil {
		return nil, errs.NewFatal("nil model builder")
	}
	if ps == nil {
		ps = spec.DefaultProblemSetting()
	}
	return &Auditor[M]{
		build:     build,
		ps:        ps,
		seedmaker: seedMakerFor(ps),
		log:       logger.OrSilent(log).With("component", "auditor"),
	}, nil
}

// AuditSamples 啟動 workers 個實例，各自抽 draws 個最小樣本，合併後回傳報表與用時。
// 每個實例的 seed 由 seedMaker 派生，固定種子策略下整份報表可重現。
func (a *Auditor[M]) AuditSamples(ctx context.Context, workers int, draws int, showpb bool) (*stats.SampleReport, time.Duration, error) {
	if workers < 1 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if draws < 1 {
		return nil, 0, errs.NewWarn("draws must > 0")
	}

	probs := make([]*Problem[M], workers)
	recs := make([]*recorder.SampleRecorder, workers)
	for i := range workers {
		p, err := a.newProblem(a.seedmaker.next())
		if err != nil {
			return nil, 0, err
		}
		r, err := recorder.NewSampleRecorder(p.indices, p.SampleSize())
		if err != nil {
			return nil, 0, errs.WrapWithExtra(ErrInvalidSampleSize, "audit samples", err.Error())
		}
		probs[i], recs[i] = p, r
	}

	a.log.Info("audit samples start", "workers", workers, "draws", draws, "pool", probs[0].PoolSize(), "k", probs[0].SampleSize())
	bar := newBar(workers*draws, showpb)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		p, r := probs[i], recs[i]
		g.Go(func() error {
			var sample []int
			var err error
			for d := 0; d < draws; d++ {
				if d%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return errs.NewWarn("audit samples canceled: " + err.Error())
					}
				}
				sample, err = p.DrawIndexSampleInto(sample)
				if err != nil {
					return err
				}
				r.Record(sample)
				bar.Increment()
			}
			return nil
		})
	}
	err := g.Wait()
	used := time.Since(start)
	bar.Finish()
	if err != nil {
		a.log.Warn("audit samples failed", "err", err)
		return nil, used, err
	}

	merged, err := recorder.MergeSampleRecorder(recs)
	if err != nil {
		return nil, used, err
	}
	report := merged.Done()
	report.Summary.Workers = workers
	report.Summary.RandomSeed = probs[0].RandomSeed()
	report.Summary.Seconds = used.Seconds()
	report.Done()

	a.log.Info("audit samples done", "draws", report.Summary.Draws, "invalid", report.Summary.Invalid, "p_value", report.Marginal.PValue, "used", used)
	return report, used, nil
}

// AuditStreams 啟動 workers 個實例，各自產生 n 個 Rnd() 值並計算兩兩重合率。
//
// 實例依設定的種子策略建立（與 NewWithSetting 相同）：固定策略下所有串流完全一致（重合率 1），
// 隨機策略下重合率應接近 1/(RndMax+1)，遠低於 stats.DefaultCoincidenceThreshold。
func (a *Auditor[M]) AuditStreams(ctx context.Context, workers int, n int) (*stats.StreamReport, time.Duration, error) {
	if workers < 2 {
		return nil, 0, errs.NewWarn("stream audit needs at least 2 workers")
	}
	if n < 1 {
		return nil, 0, errs.NewWarn("stream length must > 0")
	}

	streams := make([][]int32, workers)
	seeds := make([]int64, workers)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		g.Go(func() error {
			// 實例在各自的 goroutine 內建立，模擬每條執行緒各持一個 Problem 的用法。
			p, err := a.newProblem(a.ps.ResolveSeed())
			if err != nil {
				return err
			}
			seeds[i] = p.Seed()
			out := make([]int32, n)
			for j := range out {
				if j%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return errs.NewWarn("audit streams canceled: " + err.Error())
					}
				}
				out[j] = int32(p.Rnd())
			}
			streams[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, time.Since(start), err
	}
	used := time.Since(start)

	report := stats.NewStreamReport(streams, seeds, float64(core.RndMax)+1, 0)
	report.RandomSeed = a.ps.Seed == 0 && a.ps.UseRandomSeed
	report.Seconds = used.Seconds()
	report.Done()

	a.log.Info("audit streams done", "workers", workers, "n", n, "max_ratio", report.MaxRatio, "independent", report.Independent)
	return report, used, nil
}

func (a *Auditor[M]) newProblem(seed int64) (*Problem[M], error) {
	m, err := a.build()
	if err != nil {
		return nil, errs.Wrap(err, "build model")
	}
	p, err := newProblem(m, a.ps.Factory(), seed, a.ps.MaxSampleChecks)
	if err != nil {
		return nil, err
	}
	p.randomSeed = a.ps.Seed == 0 && a.ps.UseRandomSeed
	return p, nil
}

func newBar(total int, show bool) *pb.ProgressBar {
	bar := pb.New(total)
	if !show {
		bar.SetWriter(io.Discard)
	}
	return bar.Start()
}
