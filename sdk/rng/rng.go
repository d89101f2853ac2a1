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

// Package rng 提供粒子傳輸模擬使用的兩種可重現亂數串流。
//
// 兩種來源（lagged / mt）在相同 seed 下輸出序列必須與既有模擬結果逐位元一致，
// 因此演算法、常數與整數溢位行為都不得調整。
package rng

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/zintix-labs/neutrace/errs"
)

// Source 定義原始 32-bit 亂數來源。
type Source interface {
	// Uint32 回傳下一個原始整數，範圍 [0, Max()]。
	Uint32() uint32
	// Max 回傳 Uint32 可能的最大值。
	Max() uint32
	// Seed 重新播種。
	Seed(seed uint32)
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原內部狀態。
	Restore([]byte) error
}

// Kind 為亂數來源種類。
type Kind uint8

const (
	KindLagged Kind = iota
	KindMT
)

func (k Kind) String() string {
	switch k {
	case KindMT:
		return "mt"
	default:
		return "lagged"
	}
}

// ParseKind 解析設定中的來源名稱，空字串為預設的 lagged。
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lagged", "default":
		return KindLagged, nil
	case "mt", "mersenne", "mt19937":
		return KindMT, nil
	}
	return KindLagged, errs.Configf("unknown random generator: %q", name)
}

// NewSource 建立尚未播種的來源。
func NewSource(k Kind) Source {
	if k == KindMT {
		return NewMT()
	}
	return NewLagged()
}

// Stream 是每次模擬唯一的亂數串流，由 run context 持有。
// 除了均勻分佈外，也負責常態分佈的隱藏相位狀態（一次產生兩個變量，第二個留給下一次呼叫）。
type Stream struct {
	src  Source
	kind Kind
	span float64 // Max()+1

	phase      uint8
	v1, v2, ss float64
}

// New 以指定來源與 seed 建立 Stream。
func New(k Kind, seed uint32) *Stream {
	src := NewSource(k)
	src.Seed(seed)
	return Wrap(k, src)
}

// Wrap 以既有來源建立 Stream（不重新播種）。
func Wrap(k Kind, src Source) *Stream {
	return &Stream{src: src, kind: k, span: float64(src.Max()) + 1}
}

// Kind 回傳來源種類。
func (s *Stream) Kind() Kind { return s.kind }

// Seed 重新播種並清除常態分佈快取。
func (s *Stream) Seed(seed uint32) {
	s.src.Seed(seed)
	s.phase = 0
	s.v1, s.v2, s.ss = 0, 0, 0
}

// Uint32 回傳原始整數。
func (s *Stream) Uint32() uint32 { return s.src.Uint32() }

// Max 回傳原始整數上界。
func (s *Stream) Max() uint32 { return s.src.Max() }

// Rand01 回傳 [0,1) 均勻亂數。
func (s *Stream) Rand01() float64 {
	return float64(s.src.Uint32()) / s.span
}

// Rand0Max 回傳 [0,max) 均勻亂數。
func (s *Stream) Rand0Max(max float64) float64 {
	return float64(s.src.Uint32()) / (s.span / max)
}

// RandPM1 回傳 [-1,1) 均勻亂數。
func (s *Stream) RandPM1() float64 {
	return float64(s.src.Uint32())/(s.span/2) - 1
}

// RandNorm 回傳標準常態亂數（polar Box-Muller，拒絕 s>=1 與 s==0）。
func (s *Stream) RandNorm() float64 {
	var x float64
	if s.phase == 0 {
		for {
			u1 := s.Rand01()
			u2 := s.Rand01()
			s.v1 = 2*u1 - 1
			s.v2 = 2*u2 - 1
			s.ss = s.v1*s.v1 + s.v2*s.v2
			if !(s.ss >= 1 || s.ss == 0) {
				break
			}
		}
		x = s.v1 * math.Sqrt(-2*math.Log(s.ss)/s.ss)
	} else {
		x = s.v2 * math.Sqrt(-2*math.Log(s.ss)/s.ss)
	}
	s.phase = 1 - s.phase
	return x
}

// Snapshot 序列化：kind(1) phase(1) v1 v2 s(各 8) + 來源狀態。
func (s *Stream) Snapshot() ([]byte, error) {
	inner, err := s.src.Snapshot()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, 26+len(inner))
	b = append(b, byte(s.kind), s.phase)
	b = binary.BigEndian.AppendUint64(b, math.Float64bits(s.v1))
	b = binary.BigEndian.AppendUint64(b, math.Float64bits(s.v2))
	b = binary.BigEndian.AppendUint64(b, math.Float64bits(s.ss))
	return append(b, inner...), nil
}

// Restore 還原 Snapshot 的內容，來源種類不符時回傳錯誤。
func (s *Stream) Restore(data []byte) error {
	if len(data) < 26 {
		return errs.NewFatal("rng snapshot too short")
	}
	if Kind(data[0]) != s.kind {
		return errs.Fatalf("rng snapshot kind mismatch: have %s, snapshot %s", s.kind, Kind(data[0]))
	}
	if err := s.src.Restore(data[26:]); err != nil {
		return errs.Wrap(err, "rng restore failed")
	}
	s.phase = data[1]
	s.v1 = math.Float64frombits(binary.BigEndian.Uint64(data[2:10]))
	s.v2 = math.Float64frombits(binary.BigEndian.Uint64(data[10:18]))
	s.ss = math.Float64frombits(binary.BigEndian.Uint64(data[18:26]))
	return nil
}
