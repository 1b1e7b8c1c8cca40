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

import "github.com/zintix-labs/sacprob/errs"

// 哨兵錯誤。回傳時一律以 errs.WrapWithExtra 包裝並附上上下文，請以 errors.Is 比對。
var (
	// ErrInvalidSampleSize：k <= 0 或 k > 池大小。以相同參數重試必定再次失敗。
	ErrInvalidSampleSize = errs.NewWarn("invalid sample size")
	// ErrDuplicateIndex：SetIndices 收到重複索引，原本的池保持不變。
	ErrDuplicateIndex = errs.NewWarn("duplicate index")
	// ErrIndexOutOfRange：索引為負，或超出 Sized 模型的資料集大小。
	ErrIndexOutOfRange = errs.NewWarn("index out of range")
	// ErrDegenerateModel：由 Model hook 回報，Problem 原樣傳遞。
	ErrDegenerateModel = errs.NewWarn("degenerate model")
	// ErrNoGoodSample：Samples 在 MaxSampleChecks 次內找不到通過 IsSampleGood 的樣本。
	ErrNoGoodSample = errs.NewWarn("no good sample")
	// ErrInvalidWeights：權重長度與池不符，或含有負值/NaN/Inf。
	ErrInvalidWeights = errs.NewWarn("invalid weights")
	// ErrNilModel：建立 Problem 時未提供 Model。
	ErrNilModel = errs.NewFatal("nil model")
)
