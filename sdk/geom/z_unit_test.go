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

package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/neutrace/sdk/rng"
)

func TestRotationInverse(t *testing.T) {
	tests := []struct{ phx, phy, phz float64 }{
		{0, 0, 0},
		{0.3, 0, 0},
		{0, -1.2, 0},
		{0, 0, math.Pi / 2},
		{0.7, 2.1, -0.4},
	}
	v := NewCoords(1.5, -2, 0.25)
	for _, tt := range tests {
		r := SetRotation(tt.phx, tt.phy, tt.phz)
		back := r.Transpose().Apply(r.Apply(v))
		assert.InDelta(t, v.X, back.X, 1e-12)
		assert.InDelta(t, v.Y, back.Y, 1e-12)
		assert.InDelta(t, v.Z, back.Z, 1e-12)

		id := r.Mul(r.Transpose())
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1
				}
				assert.InDelta(t, want, id[i][j], 1e-12)
			}
		}
	}
}

func TestRotationMulOrder(t *testing.T) {
	t1 := SetRotation(0.2, 0, 0)
	t2 := SetRotation(0, 0.5, 0)
	v := NewCoords(0.1, 0.2, 0.3)
	combined := t1.Mul(t2).Apply(v)
	stepwise := t1.Apply(t2.Apply(v))
	assert.InDelta(t, stepwise.X, combined.X, 1e-14)
	assert.InDelta(t, stepwise.Y, combined.Y, 1e-14)
	assert.InDelta(t, stepwise.Z, combined.Z, 1e-14)
}

func TestProductsRoundBeforeSumming(t *testing.T) {
	// (1+e)(1-e) 捨入後恰為 1；若乘加被合併則會留下 -e²
	e := math.Ldexp(1, -30)
	a := Rotation{{1 + e, -1, 0}, {0, 1, 0}, {0, 0, 1}}
	b := Rotation{{1 - e, 0, 0}, {1, 1, 0}, {0, 0, 1}}
	require.Equal(t, 0.0, a.Mul(b)[0][0])
	require.Equal(t, 0.0, a.Apply(NewCoords(1-e, 1, 0)).X)
	require.Equal(t, 0.0, ScalarProd(NewCoords(1+e, -1, 0), NewCoords(1-e, 1, 0)))

	r := SetRotation(0.3, -1.1, 2.7)
	n := float64(r[0][0]*r[0][0]) + float64(r[0][1]*r[0][1]) + float64(r[0][2]*r[0][2])
	require.Equal(t, n, r.Mul(r.Transpose())[0][0])
	require.InDelta(t, 1, n, 1e-14)
}

func TestCoordsChange(t *testing.T) {
	r := SetRotation(0, 0, math.Pi/2)
	pos, vel := CoordsChange(NewCoords(1, 2, 3), r, NewCoords(1, 0, 0), NewCoords(0, 0, 2))
	assert.InDelta(t, 1, pos.X, 1e-12)
	assert.InDelta(t, 1, pos.Y, 1e-12)
	assert.InDelta(t, 3, pos.Z, 1e-12)
	assert.Equal(t, NewCoords(0, 0, 2), vel)
}

func TestSphereIntersect(t *testing.T) {
	for _, d := range []float64{2, 5, 10} {
		for _, r := range []float64{0.5, 1} {
			t0, t1, ok := SphereIntersect(NewCoords(0, 0, -d), NewCoords(0, 0, 1), r)
			require.True(t, ok)
			assert.InDelta(t, d-r, t0, 1e-12)
			assert.InDelta(t, d+r, t1, 1e-12)
		}
	}
	if _, _, ok := SphereIntersect(NewCoords(0, 5, -10), NewCoords(0, 0, 1), 1); ok {
		t.Fatalf("expected miss")
	}
	if _, _, ok := SphereIntersect(NewCoords(0, 0, -10), Coords{}, 1); ok {
		t.Fatalf("zero velocity must not intersect")
	}
}

func TestBoxIntersect(t *testing.T) {
	tIn, tOut, ok := BoxIntersect(NewCoords(0, 0, -10), NewCoords(0, 0, 1), NewCoords(1, 1, 1))
	require.True(t, ok)
	assert.Equal(t, 9.0, tIn)
	assert.Equal(t, 11.0, tOut)

	tIn, tOut, ok = BoxIntersect(NewCoords(0, 0, 10), NewCoords(0, 0, -2), NewCoords(1, 1, 1))
	require.True(t, ok)
	assert.Equal(t, 4.5, tIn)
	assert.Equal(t, 5.5, tOut)

	if _, _, ok := BoxIntersect(NewCoords(3, 0, -10), NewCoords(0, 0, 1), NewCoords(1, 1, 1)); ok {
		t.Fatalf("expected miss beside the box")
	}
	// 從盒面上出發：t=0 的面不算命中，只剩一個面
	if _, _, ok := BoxIntersect(NewCoords(0, 0, -1), NewCoords(0, 0, 1), NewCoords(1, 1, 1)); ok {
		t.Fatalf("single plane hit must fail")
	}
}

func TestCylinderIntersect(t *testing.T) {
	t0, t1, hit := CylinderIntersect(NewCoords(-5, 0, 0), NewCoords(1, 0, 0), 1, 2)
	require.True(t, hit.Valid())
	assert.Equal(t, CylinderSide, hit)
	assert.Equal(t, 4.0, t0)
	assert.Equal(t, 6.0, t1)

	t0, t1, hit = CylinderIntersect(NewCoords(-5, 1.5, 0), NewCoords(1, -0.1, 0), 1, 2)
	require.True(t, hit.Valid())
	assert.True(t, hit.Has(EnterTop))
	assert.False(t, hit.Has(ExitBottom))
	assert.InDelta(t, 5, t0, 1e-9)
	assert.InDelta(t, 6, t1, 1e-9)

	if _, _, hit := CylinderIntersect(NewCoords(-5, 3, 0), NewCoords(1, 0, 0), 1, 2); hit.Valid() {
		t.Fatalf("expected miss above the cylinder")
	}
	if _, _, hit := CylinderIntersect(NewCoords(-5, 0, 3), NewCoords(1, 0, 0), 1, 2); hit.Valid() {
		t.Fatalf("expected miss beside the cylinder")
	}
	if _, _, hit := CylinderIntersect(NewCoords(0, -5, 0), NewCoords(0, 1, 0), 1, 2); hit.Valid() {
		t.Fatalf("axial velocity is degenerate")
	}
}

func TestPlaneIntersectG(t *testing.T) {
	dt, hit := PlaneIntersectG(0, 2, -4)
	assert.Equal(t, PlaneLinear, hit)
	assert.Equal(t, 2.0, dt)

	_, hit = PlaneIntersectG(0, 0, 1)
	assert.Equal(t, PlaneMiss, hit)

	dt, hit = PlaneIntersectG(1, -3, 2)
	assert.Equal(t, PlaneRoot2, hit)
	assert.Equal(t, 1.0, dt)

	dt, hit = PlaneIntersectG(0.5, 0, -2)
	assert.Equal(t, PlaneRoot2, hit)
	assert.Equal(t, -2.0, dt)

	_, hit = PlaneIntersectG(1, 0, 1)
	assert.Equal(t, PlaneMiss, hit)
}

func TestVectorHelpers(t *testing.T) {
	assert.Equal(t, NewCoords(0, 0, 1), VecProd(NewCoords(1, 0, 0), NewCoords(0, 1, 0)))
	assert.Equal(t, Coords{}, NormalVec(Coords{}))
	for _, v := range []Coords{{1, 2, 3}, {3, 2, 1}, {2, 1, 3}, {0, 0, 5}} {
		n := NormalVec(v)
		assert.InDelta(t, 0, ScalarProd(n, v), 1e-12)
		assert.InDelta(t, 1, Norm(n), 1e-12)
	}
	r := Rotate(NewCoords(1, 0, 0), math.Pi/2, NewCoords(0, 0, 2))
	assert.InDelta(t, 0, r.X, 1e-12)
	assert.InDelta(t, 1, r.Y, 1e-12)
}

func TestRandVecTargetCircle(t *testing.T) {
	s := rng.New(rng.KindLagged, 42)
	target := NewCoords(0, 0, 10)
	radius := 1.0
	cos0 := math.Sqrt(100 / (radius*radius + 100))
	for i := 0; i < 5000; i++ {
		d, omega := RandVecTargetCircle(s, target, radius)
		assert.InDelta(t, 2*math.Pi*(1-cos0), omega, 1e-15)
		assert.InDelta(t, 10, Norm(d), 1e-9)
		c := ScalarProd(d, target) / (Norm(d) * Norm(target))
		require.GreaterOrEqual(t, c, cos0-1e-12)
	}
	d, omega := RandVecTargetCircle(s, Coords{}, 0)
	assert.Equal(t, 4*math.Pi, omega)
	assert.InDelta(t, 1, Norm(d), 1e-12)
}

func TestRandVecTargetRect(t *testing.T) {
	s := rng.New(rng.KindMT, 3)
	target := NewCoords(0, 0, 1)
	w, h := 0.2, 0.1
	for i := 0; i < 2000; i++ {
		d, omega := RandVecTargetRect(s, target, w, h)
		assert.InDelta(t, 2*math.Abs(w*math.Sin(h/2)), omega, 1e-15)
		assert.InDelta(t, 1, Norm(d), 1e-12)
		require.Greater(t, d.Z, math.Cos(math.Hypot(w, h)))
	}
	_, omega := RandVecTargetRect(s, target, 0, h)
	assert.Equal(t, 4*math.Pi, omega)
}
