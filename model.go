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

// Model 是具體幾何問題需實作的 hook 集合，M 為模型係數型別（對 Problem 不透明）。
//
// 所有方法皆為純計算：除了回傳值外不應有副作用。數值失敗必須以 error 回報，
// 不可回傳無效係數；無法擬合時請回傳 ErrDegenerateModel（或包裝它）。
type Model[M any] interface {
	// SampleSize 回傳計算一個假設所需的最小對應數 k。
	SampleSize() int
	// ComputeModelCoefficients 由最小樣本計算模型。
	ComputeModelCoefficients(sample []int) (M, error)
	// OptimizeModelCoefficients 以較大的 inlier 集合精修模型。
	OptimizeModelCoefficients(inliers []int, model M) (M, error)
	// SelectedDistancesToModel 計算 indices 中每個對應到模型的殘差，結果附加到 dst[:0]。
	SelectedDistancesToModel(model M, indices []int, dst []float64) ([]float64, error)
}

// SampleChecker 是可選能力：在計算模型前快速排除退化樣本（例如三點共線）。
type SampleChecker interface {
	IsSampleGood(sample []int) bool
}

// Sized 是可選能力：回報資料集大小。
// 實作時 New 會以 0..Len()-1 作為初始索引池，SetIndices 也會檢查索引範圍。
type Sized interface {
	Len() int
}

// ModelBuilder 為 ProblemPool / Auditor 建立每個實例專屬的 Model。
// 資料集本身可以共享（唯讀），但回傳的 Model 不可持有跨實例的可變狀態。
type ModelBuilder[M any] func() (Model[M], error)
