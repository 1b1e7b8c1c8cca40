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

// Package sacprob 是 RANSAC 類穩健估計的問題核心：索引池管理、不放回最小樣本抽取，以及每個實例專屬的亂數引擎。
//
// 外層的 RANSAC 迴圈（迭代上限、停止條件、最佳假設紀錄）不在此套件內；
// 它反覆呼叫 DrawIndexSample / Samples 取得樣本，交給 Model hook 計算假設，再以 SelectWithinDistance 評分。
//
// 併發模型：每個 goroutine 持有自己的 Problem（或向 ProblemPool 借用），實例之間不共享任何可變狀態，
// 因此不需要鎖。同一個 Problem 被多個 goroutine 同時呼叫屬於未定義行為。
//
// 種子策略：
//
//	New(m, false)  // core.DefaultSeed：所有實例輸出相同序列，可重現
//	New(m, true)   // core.EntropySeed()：同時建立的實例也互相獨立
//	NewWithSeed(m, seed)
//	NewWithSetting(m, ps) // 由 spec.ProblemSetting 決定引擎與種子
package sacprob
