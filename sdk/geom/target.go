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

// Uniform 為方向取樣所需的亂數能力，*rng.Stream 即滿足。
type Uniform interface {
	Rand0Max(max float64) float64
	RandPM1() float64
}

// perpAxis 取得與目標方向垂直、通常為垂直方向的旋轉軸。
func perpAxis(i Coords) Coords {
	if i.X == 0 && i.Z == 0 {
		return Coords{1, 0, 0}
	}
	return Coords{-i.Z, 0, i.X}
}

// RandVecTargetCircle 在指向 target、半徑 radius 的圓盤所張立體角內均勻取方向。
// radius 為 0 時於全 4π 取樣；radius 為負時反轉錐的方向。
// 回傳的方向長度等於 |target|（全空間時為 1）。
func RandVecTargetCircle(u Uniform, target Coords, radius float64) (dir Coords, solidAngle float64) {
	var theta, phi float64
	var n, i Coords
	if radius == 0 {
		theta = math.Acos(1 - u.Rand0Max(2))
		phi = u.Rand0Max(2 * math.Pi)
		solidAngle = 4 * math.Pi
		n = Coords{1, 0, 0}
		i = Coords{0, 1, 0}
	} else {
		i = target
		l2 := i.X*i.X + i.Y*i.Y + i.Z*i.Z
		cos0 := math.Sqrt(l2 / (radius*radius + l2))
		if radius < 0 {
			cos0 *= -1
		}
		solidAngle = 2 * math.Pi * (1 - cos0)
		theta = math.Acos(1 - u.Rand0Max(1-cos0))
		phi = u.Rand0Max(2 * math.Pi)
		n = perpAxis(i)
	}
	axis := VecProd(i, n)
	t := Rotate(i, theta, axis)
	return Rotate(t, phi, i), solidAngle
}

// RandVecTargetRect 在以 target 為中心、角寬 width x 角高 height（弧度）的矩形內取方向。
// 任一邊為 0 時退化為全 4π 取樣。
func RandVecTargetRect(u Uniform, target Coords, width, height float64) (dir Coords, solidAngle float64) {
	if height == 0 || width == 0 {
		return RandVecTargetCircle(u, Coords{}, 0)
	}
	solidAngle = 2 * math.Abs(width*math.Sin(height/2))
	theta := width * u.RandPM1() / 2
	phi := height * u.RandPM1() / 2
	n := perpAxis(target)
	axis := VecProd(target, n)
	t := Rotate(target, phi, n)
	return Rotate(t, theta, axis), solidAngle
}
