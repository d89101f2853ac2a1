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

// Package particle 定義單一粒子（中子）的狀態與可暫存多個狀態的 Bank。
package particle

import "github.com/zintix-labs/neutrace/sdk/geom"

// Stride 為 Bank 中每筆紀錄的浮點數個數。
const Stride = 11

// 紀錄內欄位順序：[p, x, y, z, vx, vy, vz, t, sx, sy, sz]。
const (
	idxP = iota
	idxX
	idxY
	idxZ
	idxVX
	idxVY
	idxVZ
	idxT
	idxSX
	idxSY
	idxSZ
)

// State 為單一粒子的 11 個實數狀態。
type State struct {
	P          float64 // 統計權重
	X, Y, Z    float64
	VX, VY, VZ float64
	T          float64
	SX, SY, SZ float64
}

// Default 回傳每次試驗的起始狀態：原點、速度 (0,0,1)、t=0、自旋 (0,1,0)、權重 1。
func Default() State {
	return State{P: 1, VZ: 1, SY: 1}
}

func (s State) Pos() geom.Coords  { return geom.NewCoords(s.X, s.Y, s.Z) }
func (s State) Vel() geom.Coords  { return geom.NewCoords(s.VX, s.VY, s.VZ) }
func (s State) Spin() geom.Coords { return geom.NewCoords(s.SX, s.SY, s.SZ) }

func (s *State) SetPos(c geom.Coords)  { s.X, s.Y, s.Z = c.Get() }
func (s *State) SetVel(c geom.Coords)  { s.VX, s.VY, s.VZ = c.Get() }
func (s *State) SetSpin(c geom.Coords) { s.SX, s.SY, s.SZ = c.Get() }

// CoordsChange 把位置、速度、自旋換到元件座標系。
func (s *State) CoordsChange(origin geom.Coords, t geom.Rotation) {
	pos, vel := geom.CoordsChange(origin, t, s.Pos(), s.Vel())
	s.SetPos(pos)
	s.SetVel(vel)
	s.SetSpin(geom.ChangePolarisation(t, s.Spin()))
}

// PropDT 在加速度 g 下傳遞 dt 時間。
func (s *State) PropDT(dt float64, g geom.Coords) {
	s.X += s.VX*dt + g.X*dt*dt/2
	s.Y += s.VY*dt + g.Y*dt*dt/2
	s.Z += s.VZ*dt + g.Z*dt*dt/2
	s.VX += g.X * dt
	s.VY += g.Y * dt
	s.VZ += g.Z * dt
	s.T += dt
}

// PropPlane 傳遞到法向量 normal、通過 point 的平面；無未來交點時回傳 false 且狀態不變。
func (s *State) PropPlane(normal, point, g geom.Coords) bool {
	a := geom.ScalarProd(normal, g) / 2
	b := geom.ScalarProd(normal, s.Vel())
	c := geom.ScalarProd(normal, s.Pos().Sub(point))
	dt, hit := geom.PlaneIntersectG(a, b, c)
	if hit == geom.PlaneMiss || dt < 0 {
		return false
	}
	s.PropDT(dt, g)
	return true
}

// Absorb 權重歸零，表示此軌跡不再貢獻統計。
func (s *State) Absorb() { s.P = 0 }

// Absorbed 回傳軌跡是否已被吸收。
func (s State) Absorbed() bool { return s.P == 0 }
