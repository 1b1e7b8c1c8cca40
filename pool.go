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
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/sacprob/errs"
	"github.com/zintix-labs/sacprob/logger"
	"github.com/zintix-labs/sacprob/spec"
)

const brokenBacklog = 100

// ProblemPool 管理一組互相獨立的 Problem 實例，讓多個 goroutine 安全地共用同一份（唯讀）資料集。
//
// 兩個通道管理實例生命週期：
//  1. pool：健康且可用的實例，供 Do() 借出 / 歸還。
//  2. broken：hook panic 或回傳 Fatal 的實例，送往此處等待丟棄。
//
// 每個實例有自己的 seed（由 seedMaker 派生），因此從不共享亂數狀態。
// 實例被淘汰時會立即補上一個新實例以維持容量。
type ProblemPool[M any] struct {
	build     ModelBuilder[M]
	ps        *spec.ProblemSetting
	seedMaker *seedMaker
	log       *slog.Logger

	pool          chan *Problem[M] // 可用實例
	broken        chan *Problem[M] // 淘汰實例
	done          chan struct{}    // 關閉訊號：關閉後不再允許借出/歸還/補充
	closeOnce     sync.Once
	poolsize      int
	rebuild       atomic.Int32 // 補充次數
	inflight      atomic.Int32 // 借出中
	panics        atomic.Int32 // panic 次數
	fatals        atomic.Int32 // fatal 次數（實例狀態不可信）
	closeReason   atomic.Value // string
	closeInflight atomic.Int32 // 關閉當下 inflight（快照）
	closeAvail    atomic.Int32 // 關閉當下 len(pool)（快照）
	closeBroken   atomic.Int32 // 關閉當下 len(broken)（快照）
}

// NewProblemPool 建立容量為 ps.PoolSize 的實例池；ps 為 nil 時使用預設設定。
// 預先建立所有實例，任一建立失敗即回傳錯誤。
func NewProblemPool[M any](build ModelBuilder[M], ps *spec.ProblemSetting, log *slog.Logger) (*ProblemPool[M], error) {
	if build == nil {
		return nil, errs.NewFatal("nil model builder")
	}
	if ps == nil {
		ps = spec.DefaultProblemSetting()
	}
	n := max(1, ps.PoolSize)
	p := &ProblemPool[M]{
		build:     build,
		ps:        ps,
		seedMaker: seedMakerFor(ps),
		log:       logger.OrSilent(log).With("component", "problem_pool"),
		pool:      make(chan *Problem[M], n),
		broken:    make(chan *Problem[M], brokenBacklog),
		done:      make(chan struct{}),
		poolsize:  n,
	}
	p.closeReason.Store("")
	p.closeInflight.Store(-1)
	p.closeAvail.Store(-1)
	p.closeBroken.Store(-1)

	for i := 0; i < n; i++ {
		prob, err := p.newProblem()
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("build problem %d", i))
		}
		p.pool <- prob
	}
	p.log.Info("problem pool ready", "size", n, "engine", ps.Engine, "random_seed", ps.UseRandomSeed)
	return p, nil
}

func (p *ProblemPool[M]) newProblem() (*Problem[M], error) {
	m, err := p.build()
	if err != nil {
		return nil, err
	}
	prob, err := newProblem(m, p.ps.Factory(), p.seedMaker.next(), p.ps.MaxSampleChecks)
	if err != nil {
		return nil, err
	}
	prob.randomSeed = p.seedMaker.random
	return prob, nil
}

// Do 借出一個實例並執行 fn，結束後歸還。
//
//   - ctx 取消時回傳 Warn，不借出任何實例。
//   - fn panic 或回傳 Fatal 時，該實例被淘汰並補上新實例；panic 轉為 Fatal 回傳。
//   - 一般錯誤（Warn/Log，例如 ErrDegenerateModel）原樣回傳，實例照常歸還。
//
// fn 不可在返回後繼續持有 *Problem。
func (p *ProblemPool[M]) Do(ctx context.Context, fn func(*Problem[M]) error) (err error) {
	var prob *Problem[M]
	select {
	case <-p.done:
		return errs.NewFatal("problem pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		return errs.NewWarn("problem pool borrow canceled: " + ctx.Err().Error())
	case prob = <-p.pool:
		p.inflight.Add(1)
	}

	if prob == nil {
		return errs.NewFatal("problem pool got nil problem")
	}

	var isPanic bool

	defer func() {
		p.inflight.Add(-1)
		if r := recover(); r != nil {
			isPanic = true
			p.panics.Add(1)
			err = errs.NewFatal(fmt.Sprintf("problem hook panic : %v", r))
		}

		if p.Closed() {
			return
		}

		if isPanic || errs.IsFatal(err) {
			if !isPanic {
				p.fatals.Add(1)
			}
			p.log.Warn("problem retired", "panic", isPanic, "err", err, "seed", prob.Seed())

			select {
			case p.broken <- prob:
			default:
				// broken 滿代表連續故障：進入關閉狀態讓上層接管。
				p.closeWithReason("overwhelmed_by_failures")
				if err == nil {
					err = errs.NewFatal("problem pool overwhelmed by failures")
				}
				return
			}

			fresh, buildErr := p.newProblem()
			p.rebuild.Add(1)
			if buildErr != nil {
				err = errs.Wrap(buildErr, "problem rebuild failed")
				p.closeWithReason("rebuild_failed")
				return
			}

			select {
			case <-p.done:
			case p.pool <- fresh:
			}
			return
		}

		select {
		case <-p.done:
		case p.pool <- prob:
		}
	}()

	err = fn(prob)
	return err
}

// Close 進入關閉狀態，之後所有 Do() 直接回傳錯誤。
func (p *ProblemPool[M]) Close() {
	p.closeWithReason("closed")
}

// Closed 回報是否已關閉。
func (p *ProblemPool[M]) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeWithReason 進入關閉狀態並記錄原因，reason 只會寫入一次。
func (p *ProblemPool[M]) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		p.closeInflight.Store(p.inflight.Load())
		p.closeAvail.Store(int32(len(p.pool)))
		p.closeBroken.Store(int32(len(p.broken)))
		close(p.done)
		p.log.Info("problem pool closed", "reason", reason, "rebuild", p.rebuild.Load(), "panics", p.panics.Load())
	})
}

func (p *ProblemPool[M]) PoolSize() int {
	return p.poolsize
}

func (p *ProblemPool[M]) ClosedReason() string {
	if v := p.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ProblemPoolMetrics 是拉取式觀測快照。
// Available / BrokenBacklog 來自 len(chan)，高併發下為近似值。
type ProblemPoolMetrics struct {
	PoolSize      int    `json:"pool_size"`
	Available     int    `json:"available"`
	Inflight      int    `json:"inflight"`
	BrokenBacklog int    `json:"broken_backlog"`
	Rebuild       int    `json:"rebuild"`
	Panics        int    `json:"panics"`
	Fatals        int    `json:"fatals"`
	Closed        bool   `json:"closed"`
	CloseReason   string `json:"close_reason"`

	CloseInflight int `json:"close_inflight"` // -1 表示尚未關閉
	CloseAvail    int `json:"close_avail"`    // -1 表示尚未關閉
	CloseBroken   int `json:"close_broken"`   // -1 表示尚未關閉
}

// Metrics 回傳目前的觀測快照。
func (p *ProblemPool[M]) Metrics() ProblemPoolMetrics {
	return ProblemPoolMetrics{
		PoolSize:      p.poolsize,
		Available:     len(p.pool),
		Inflight:      int(p.inflight.Load()),
		BrokenBacklog: len(p.broken),
		Rebuild:       int(p.rebuild.Load()),
		Panics:        int(p.panics.Load()),
		Fatals:        int(p.fatals.Load()),
		Closed:        p.Closed(),
		CloseReason:   p.ClosedReason(),
		CloseInflight: int(p.closeInflight.Load()),
		CloseAvail:    int(p.closeAvail.Load()),
		CloseBroken:   int(p.closeBroken.Load()),
	}
}
