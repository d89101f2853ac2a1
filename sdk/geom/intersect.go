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

// CylinderHit 為圓柱交點旗標，bit0 表示有效交點。
type CylinderHit uint8

const (
	CylinderMiss CylinderHit = 0
	CylinderSide CylinderHit = 1
	// EnterTop 進入點被夾在上蓋 (y=+h/2)。
	EnterTop CylinderHit = 2
	// EnterBottom 進入點被夾在下蓋 (y=-h/2)。
	EnterBottom CylinderHit = 4
	// ExitTop 離開點被夾在上蓋。
	ExitTop CylinderHit = 8
	// ExitBottom 離開點被夾在下蓋。
	ExitBottom CylinderHit = 16
)

// Valid 回傳是否為有效交點。
func (h CylinderHit) Valid() bool { return h&CylinderSide != 0 }

// Has 檢查旗標。
func (h CylinderHit) Has(flag CylinderHit) bool { return h&flag != 0 }

// PlaneHit 為重力彎曲軌跡與平面交點的根類型。
type PlaneHit uint8

const (
	PlaneMiss PlaneHit = iota
	// PlaneRoot1 採用 (-B+√D)/2A。
	PlaneRoot1
	// PlaneRoot2 採用 (-B-√D)/2A。
	PlaneRoot2
	// PlaneLinear 加速度與平面平行，採用線性解 -C/B。
	PlaneLinear
)

// 加速度分量小於此值視為與平面平行。
const planeLinearEps = 1e-10

// BoxIntersect 計算射線與軸對齊盒（中心在原點，半邊長 half）的進出時間。
//
// 速度分量為 0 的軸不計算；交點需嚴格落在另外兩軸範圍內；
// 計算出時間恰為 0 的面視為未命中。命中少於兩面時 ok=false。
func BoxIntersect(pos, vel, half Coords) (tIn, tOut float64, ok bool) {
	var t [6]float64
	x, y, z := pos.Get()
	vx, vy, vz := vel.Get()
	hx, hy, hz := half.Get()

	inYZ := func(tt float64) bool {
		yi, zi := y+tt*vy, z+tt*vz
		return yi > -hy && yi < hy && zi > -hz && zi < hz
	}
	inXZ := func(tt float64) bool {
		xi, zi := x+tt*vx, z+tt*vz
		return xi > -hx && xi < hx && zi > -hz && zi < hz
	}
	inXY := func(tt float64) bool {
		xi, yi := x+tt*vx, y+tt*vy
		return xi > -hx && xi < hx && yi > -hy && yi < hy
	}

	if vx != 0 {
		if tt := -(hx + x) / vx; inYZ(tt) {
			t[0] = tt
		}
		if tt := (hx - x) / vx; inYZ(tt) {
			t[1] = tt
		}
	}
	if vy != 0 {
		if tt := -(hy + y) / vy; inXZ(tt) {
			t[2] = tt
		}
		if tt := (hy - y) / vy; inXZ(tt) {
			t[3] = tt
		}
	}
	if vz != 0 {
		if tt := -(hz + z) / vz; inXY(tt) {
			t[4] = tt
		}
		if tt := (hz - z) / vz; inXY(tt) {
			t[5] = tt
		}
	}

	var a, b float64
	count := 0
	for _, ti := range t {
		if ti == 0 {
			continue
		}
		if count == 0 {
			a = ti
		} else {
			b = ti
		}
		count++
	}
	if count < 2 {
		return 0, 0, false
	}
	if a < b {
		return a, b, true
	}
	return b, a, true
}

// CylinderIntersect 計算射線與 y 軸向圓柱（半徑 r、高 h、中心在原點）的交點。
// vx=vz=0（平行軸向）視為無交點。
func CylinderIntersect(pos, vel Coords, r, h float64) (t0, t1 float64, hit CylinderHit) {
	x, y, z := pos.Get()
	vx, vy, vz := vel.Get()
	if vx == 0 && vz == 0 {
		return 0, 0, CylinderMiss
	}
	d := (2*vx*x+2*vz*z)*(2*vx*x+2*vz*z) - 4*(vx*vx+vz*vz)*(x*x+z*z-r*r)
	if d < 0 {
		return 0, 0, CylinderMiss
	}
	tIn := (-(2*vz*z + 2*vx*x) - math.Sqrt(d)) / (2 * (vz*vz + vx*vx))
	tOut := (-(2*vz*z + 2*vx*x) + math.Sqrt(d)) / (2 * (vz*vz + vx*vx))
	yIn := vy*tIn + y
	yOut := vy*tOut + y

	if (yIn > h/2 && yOut > h/2) || (yIn < -h/2 && yOut < -h/2) {
		return 0, 0, CylinderMiss
	}
	hit = CylinderSide
	if yIn > h/2 {
		tIn = ((h / 2) - y) / vy
		hit |= EnterTop
	} else if yIn < -h/2 {
		tIn = ((-h / 2) - y) / vy
		hit |= EnterBottom
	}
	if yOut > h/2 {
		tOut = ((h / 2) - y) / vy
		hit |= ExitTop
	} else if yOut < -h/2 {
		tOut = ((-h / 2) - y) / vy
		hit |= ExitBottom
	}
	return tIn, tOut, hit
}

// SphereIntersect 計算射線與中心在原點、半徑 r 的球交點；零速度視為無交點。
func SphereIntersect(pos, vel Coords, r float64) (t0, t1 float64, ok bool) {
	v := math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z)
	if v == 0 {
		return 0, 0, false
	}
	a := v * v
	b := 2 * (pos.X*vel.X + pos.Y*vel.Y + pos.Z*vel.Z)
	c := pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z - r*r
	d := b*b - 4*a*c
	if d < 0 {
		return 0, 0, false
	}
	d = math.Sqrt(d)
	return (-b - d) / (2 * a), (-b + d) / (2 * a), true
}

// PlaneIntersectG 解 A t² + B t + C = 0（A = n·g/2, B = n·v, C = n·(r-W)）。
// 有加速度時取較接近無加速度解 -C/B 的根。
func PlaneIntersectG(a, b, c float64) (dt float64, hit PlaneHit) {
	var dt0 float64
	if b != 0 {
		dt0 = -c / b
	}
	if math.Abs(a) < planeLinearEps {
		if b != 0 {
			return dt0, PlaneLinear
		}
		return 0, PlaneMiss
	}
	d := b*b - 4*a*c
	if d < 0 {
		return 0, PlaneMiss
	}
	sd := math.Sqrt(d)
	dt1 := (-b + sd) / 2 / a
	dt2 := (-b - sd) / 2 / a
	if b != 0 {
		if math.Abs(dt0-dt1) < math.Abs(dt0-dt2) {
			return dt1, PlaneRoot1
		}
		return dt2, PlaneRoot2
	}
	if dt1 <= dt2 {
		return dt1, PlaneRoot1
	}
	return dt2, PlaneRoot2
}
