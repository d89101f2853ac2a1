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

import "math"

// Rotation 為 3x3 正交旋轉矩陣。值型別：Mul 的結果不可能與輸入別名。
type Rotation [3][3]float64

// Identity 單位矩陣。
func Identity() Rotation {
	return Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// SetRotation 依序繞 x、y、z 軸旋轉 phx、phy、phz（弧度）。
func SetRotation(phx, phy, phz float64) Rotation {
	cx, sx := math.Cos(phx), math.Sin(phx)
	cy, sy := math.Cos(phy), math.Sin(phy)
	cz, sz := math.Cos(phz), math.Sin(phz)
	var t Rotation
	t[0][0] = cy * cz
	t[0][1] = float64(float64(sx*sy)*cz) + float64(cx*sz)
	t[0][2] = float64(sx*sz) - float64(float64(cx*sy)*cz)
	t[1][0] = -cy * sz
	t[1][1] = float64(cx*cz) - float64(float64(sx*sy)*sz)
	t[1][2] = float64(sx*cz) + float64(float64(cx*sy)*sz)
	t[2][0] = sy
	t[2][1] = -sx * cy
	t[2][2] = cx * cy
	return t
}

// dot 回傳 a·b；每個乘積先以 float64 轉型捨入，不合併成 FMA。
func dot(a0, a1, a2, b0, b1, b2 float64) float64 {
	return float64(a0*b0) + float64(a1*b1) + float64(a2*b2)
}

// Mul 回傳 t·t2：套用結果等同先套用 t2 再套用 t。
func (t Rotation) Mul(t2 Rotation) Rotation {
	var t3 Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t3[i][j] = dot(t[i][0], t[i][1], t[i][2], t2[0][j], t2[1][j], t2[2][j])
		}
	}
	return t3
}

// Transpose 即反旋轉。
func (t Rotation) Transpose() Rotation {
	var r Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = t[j][i]
		}
	}
	return r
}

// Apply 回傳 t·a。
func (t Rotation) Apply(a Coords) Coords {
	return Coords{
		X: dot(t[0][0], t[0][1], t[0][2], a.X, a.Y, a.Z),
		Y: dot(t[1][0], t[1][1], t[1][2], a.X, a.Y, a.Z),
		Z: dot(t[2][0], t[2][1], t[2][2], a.X, a.Y, a.Z),
	}
}

// CoordsChange 將位置與速度換到新座標系：位置先旋轉再平移 origin，速度只旋轉。
func CoordsChange(origin Coords, t Rotation, pos, vel Coords) (Coords, Coords) {
	return t.Apply(pos).Add(origin), t.Apply(vel)
}

// ChangePolarisation 自旋只旋轉。
func ChangePolarisation(t Rotation, s Coords) Coords {
	return t.Apply(s)
}
