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

// Package geom 提供粒子傳輸所需的向量、旋轉、幾何交點與方向取樣。
//
// 所有函式皆為純函式（取樣函式除外，它們只消耗傳入的亂數串流），
// 數值運算順序刻意固定，以維持與既有模擬輸出逐位元一致。
package geom

import "math"

// Coords 為三維向量（位置、速度或自旋）。
type Coords struct {
	X, Y, Z float64
}

// NewCoords 建立向量。
func NewCoords(x, y, z float64) Coords { return Coords{X: x, Y: y, Z: z} }

// Get 拆回三個分量。
func (a Coords) Get() (x, y, z float64) { return a.X, a.Y, a.Z }

func (a Coords) Add(b Coords) Coords { return Coords{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func (a Coords) Sub(b Coords) Coords { return Coords{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Coords) Neg() Coords { return Coords{-a.X, -a.Y, -a.Z} }

// Scale 回傳 k*a。
func (a Coords) Scale(k float64) Coords { return Coords{k * a.X, k * a.Y, k * a.Z} }

// ScalarProd 內積。
func ScalarProd(a, b Coords) float64 { return dot(a.X, a.Y, a.Z, b.X, b.Y, b.Z) }

// VecProd 外積 a × b。
func VecProd(a, b Coords) Coords {
	return Coords{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Norm 向量長度。
func Norm(a Coords) float64 { return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z) }

// Rotate 以 Rodrigues 公式將 v 繞 axis 旋轉 phi。axis 長度為 0 時不正規化。
func Rotate(v Coords, phi float64, axis Coords) Coords {
	a := axis
	if n := Norm(a); n != 0 {
		a = Coords{a.X / n, a.Y / n, a.Z / n}
	}
	vp := ScalarProd(v, a)
	par := a.Scale(vp)
	perp := v.Sub(par)
	b := VecProd(a, perp)
	c, s := math.Cos(phi), math.Sin(phi)
	perp = Coords{perp.X*c + b.X*s, perp.Y*c + b.Y*s, perp.Z*c + b.Z*s}
	return par.Add(perp)
}

// NormalVec 回傳垂直於 v 的單位向量，以 v 絕對值最小的軸為基準；零向量回傳零向量。
func NormalVec(v Coords) Coords {
	if v.X == 0 && v.Y == 0 && v.Z == 0 {
		return Coords{}
	}
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	if ax < ay {
		if ax < az {
			l := math.Sqrt(v.Z*v.Z + v.Y*v.Y)
			return Coords{0, v.Z / l, -v.Y / l}
		}
	} else if ay < az {
		l := math.Sqrt(v.Z*v.Z + v.X*v.X)
		return Coords{v.Z / l, 0, -v.X / l}
	}
	l := math.Sqrt(v.Y*v.Y + v.X*v.X)
	return Coords{v.Y / l, -v.X / l, 0}
}
