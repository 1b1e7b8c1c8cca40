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

// Package plane 提供 3D 平面擬合的 sacprob.Model 實作。
//
// 模型係數 Coefficients{a, b, c, d} 表示平面 a*x + b*y + c*z + d = 0，
// 其中 (a, b, c) 為單位法向量。
package plane

import (
	"fmt"
	"math"

	"github.com/zintix-labs/sacprob"
	"github.com/zintix-labs/sacprob/errs"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	sampleSize = 3
	// epsilon 是判定共線／重合時，相對於邊長平方乘積的門檻。
	epsilon = 1e-12
)

// Coefficients 平面係數 {a, b, c, d}
type Coefficients [4]float64

// Normal 回傳單位法向量。
func (c Coefficients) Normal() r3.Vec {
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}
}

// Distance 回傳點到平面的距離（非負）。
func (c Coefficients) Distance(p r3.Vec) float64 {
	return math.Abs(r3.Dot(c.Normal(), p) + c[3])
}

// Model 以唯讀點雲為資料集的平面模型；可被多個 Problem 共享。
type Model struct {
	points []r3.Vec
}

var (
	_ sacprob.Model[Coefficients] = (*Model)(nil)
	_ sacprob.SampleChecker       = (*Model)(nil)
	_ sacprob.Sized               = (*Model)(nil)
)

// New 建立平面模型；points 不會被複製，呼叫端在擬合期間不可修改。
func New(points []r3.Vec) *Model {
	return &Model{points: points}
}

func (m *Model) Len() int {
	return len(m.points)
}

func (m *Model) SampleSize() int {
	return sampleSize
}

// IsSampleGood 排除重合點與三點共線。
func (m *Model) IsSampleGood(sample []int) bool {
	if len(sample) != sampleSize || !m.inRange(sample) {
		return false
	}
	_, ok := m.normal(sample)
	return ok
}

// ComputeModelCoefficients 以三點求平面。退化時回傳 sacprob.ErrDegenerateModel。
func (m *Model) ComputeModelCoefficients(sample []int) (Coefficients, error) {
	if len(sample) != sampleSize {
		return Coefficients{}, errs.WrapWithExtra(sacprob.ErrInvalidSampleSize, "plane fit", fmt.Sprintf("got %d points", len(sample)))
	}
	if !m.inRange(sample) {
		return Coefficients{}, errs.WrapWithExtra(sacprob.ErrIndexOutOfRange, "plane fit", fmt.Sprintf("sample=%v len=%d", sample, len(m.points)))
	}
	n, ok := m.normal(sample)
	if !ok {
		return Coefficients{}, errs.WrapWithExtra(sacprob.ErrDegenerateModel, "plane fit", fmt.Sprintf("sample=%v", sample))
	}
	p0 := m.points[sample[0]]
	return Coefficients{n.X, n.Y, n.Z, -r3.Dot(n, p0)}, nil
}

// OptimizeModelCoefficients 以 inliers 做最小平方平面（SVD，最小奇異值對應的右奇異向量為法向量）。
// inliers 少於 3 點時原樣回傳 model。法向量方向與輸入 model 保持同側。
func (m *Model) OptimizeModelCoefficients(inliers []int, model Coefficients) (Coefficients, error) {
	if len(inliers) < sampleSize {
		return model, nil
	}
	if !m.inRange(inliers) {
		return model, errs.WrapWithExtra(sacprob.ErrIndexOutOfRange, "plane refine", fmt.Sprintf("len=%d", len(m.points)))
	}

	var c r3.Vec
	for _, i := range inliers {
		c = r3.Add(c, m.points[i])
	}
	c = r3.Scale(1/float64(len(inliers)), c)

	a := mat.NewDense(len(inliers), 3, nil)
	for r, i := range inliers {
		d := r3.Sub(m.points[i], c)
		a.Set(r, 0, d.X)
		a.Set(r, 1, d.Y)
		a.Set(r, 2, d.Z)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return model, errs.WrapWithExtra(sacprob.ErrDegenerateModel, "plane refine", "svd failed")
	}
	vals := svd.Values(nil)
	// 第二大奇異值近零代表 inliers 共線，平面不唯一。
	if vals[0] == 0 || vals[1] <= vals[0]*1e-9 {
		return model, errs.WrapWithExtra(sacprob.ErrDegenerateModel, "plane refine", "inliers are collinear")
	}
	var v mat.Dense
	svd.VTo(&v)
	n := r3.Unit(r3.Vec{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)})
	if r3.Dot(n, model.Normal()) < 0 {
		n = r3.Scale(-1, n)
	}
	return Coefficients{n.X, n.Y, n.Z, -r3.Dot(n, c)}, nil
}

// SelectedDistancesToModel 計算 indices 中每點到平面的距離，結果附加到 dst[:0]。
func (m *Model) SelectedDistancesToModel(model Coefficients, indices []int, dst []float64) ([]float64, error) {
	if !m.inRange(indices) {
		return nil, errs.WrapWithExtra(sacprob.ErrIndexOutOfRange, "plane distances", fmt.Sprintf("len=%d", len(m.points)))
	}
	dst = dst[:0]
	for _, i := range indices {
		dst = append(dst, model.Distance(m.points[i]))
	}
	return dst, nil
}

func (m *Model) inRange(indices []int) bool {
	for _, i := range indices {
		if i < 0 || i >= len(m.points) {
			return false
		}
	}
	return true
}

// normal 回傳三點平面的單位法向量；重合或共線時 ok == false。
func (m *Model) normal(sample []int) (r3.Vec, bool) {
	p0, p1, p2 := m.points[sample[0]], m.points[sample[1]], m.points[sample[2]]
	v1, v2 := r3.Sub(p1, p0), r3.Sub(p2, p0)
	l1, l2 := r3.Norm2(v1), r3.Norm2(v2)
	if l1 == 0 || l2 == 0 {
		return r3.Vec{}, false
	}
	n := r3.Cross(v1, v2)
	if r3.Norm2(n) <= epsilon*l1*l2 {
		return r3.Vec{}, false
	}
	return r3.Unit(n), true
}
