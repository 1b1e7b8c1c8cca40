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

package plane_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/sacprob"
	"github.com/zintix-labs/sacprob/models/plane"
	"gonum.org/v1/gonum/spatial/r3"
)

// z = 0.5x + 0.25y + 1 的格點，外加兩個離群點（索引 25、26）。
func tiltedCloud() []r3.Vec {
	pts := make([]r3.Vec, 0, 27)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			x, y := float64(i), float64(j)
			pts = append(pts, r3.Vec{X: x, Y: y, Z: 0.5*x + 0.25*y + 1})
		}
	}
	pts = append(pts, r3.Vec{X: 1, Y: 1, Z: 9}, r3.Vec{X: 3, Y: 0, Z: -7})
	return pts
}

func TestComputeModelCoefficients(t *testing.T) {
	m := plane.New(tiltedCloud())
	c, err := m.ComputeModelCoefficients([]int{0, 4, 20})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, r3.Norm(c.Normal()), 1e-12)
	d, err := m.SelectedDistancesToModel(c, []int{0, 6, 12, 18, 24, 25}, nil)
	require.NoError(t, err)
	for _, v := range d[:5] {
		assert.InDelta(t, 0, v, 1e-9)
	}
	assert.Greater(t, d[5], 1.0)
}

func TestDegenerateSamples(t *testing.T) {
	pts := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 0}, {Y: 1}}
	m := plane.New(pts)

	_, err := m.ComputeModelCoefficients([]int{0, 1, 2}) // 共線
	assert.True(t, errors.Is(err, sacprob.ErrDegenerateModel))
	_, err = m.ComputeModelCoefficients([]int{0, 3, 4}) // 重合點
	assert.True(t, errors.Is(err, sacprob.ErrDegenerateModel))
	_, err = m.ComputeModelCoefficients([]int{0, 1, 9})
	assert.True(t, errors.Is(err, sacprob.ErrIndexOutOfRange))

	assert.False(t, m.IsSampleGood([]int{0, 1, 2}))
	assert.False(t, m.IsSampleGood([]int{0, 3, 4}))
	assert.True(t, m.IsSampleGood([]int{0, 1, 4}))
}

func TestOptimizeModelCoefficients(t *testing.T) {
	m := plane.New(tiltedCloud())
	rough := plane.Coefficients{0, 0, 1, -2} // z = 2

	inliers := make([]int, 25)
	for i := range inliers {
		inliers[i] = i
	}
	c, err := m.OptimizeModelCoefficients(inliers, rough)
	require.NoError(t, err)

	// 法向量 ∝ (0.5, 0.25, -1)，與 rough 同側 (z > 0)
	want := r3.Unit(r3.Vec{X: -0.5, Y: -0.25, Z: 1})
	assert.InDelta(t, 1.0, r3.Dot(want, c.Normal()), 1e-9)
	assert.InDelta(t, 0, c.Distance(r3.Vec{X: 2, Y: 2, Z: 2.5}), 1e-9)

	same, err := m.OptimizeModelCoefficients([]int{0, 1}, rough)
	require.NoError(t, err)
	assert.Equal(t, rough, same)

	_, err = m.OptimizeModelCoefficients([]int{0, 1, 2, 3}, rough) // 同一列，共線
	assert.True(t, errors.Is(err, sacprob.ErrDegenerateModel))
}

// 以 Problem 驅動一個最簡單的 RANSAC 迴圈，確認 hook 與抽樣的整合。
func TestPlaneWithProblem(t *testing.T) {
	m := plane.New(tiltedCloud())
	p := sacprob.NewWithSeed[plane.Coefficients](m, 42)
	require.Equal(t, 27, p.PoolSize())

	best, bestN := plane.Coefficients{}, -1
	for range 50 {
		s, err := p.Samples()
		if err != nil {
			continue
		}
		c, err := p.ComputeModel(s)
		if err != nil {
			continue
		}
		n, err := p.CountWithinDistance(c, 1e-6)
		require.NoError(t, err)
		if n > bestN {
			best, bestN = c, n
		}
	}
	require.Equal(t, 25, bestN)

	inliers, err := p.SelectWithinDistance(best, 1e-6)
	require.NoError(t, err)
	assert.NotContains(t, inliers, 25)
	assert.NotContains(t, inliers, 26)

	refined, err := p.OptimizeModel(inliers, best)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(refined[3]))
	assert.InDelta(t, 1.0, math.Abs(r3.Dot(best.Normal(), refined.Normal())), 1e-9)
}
