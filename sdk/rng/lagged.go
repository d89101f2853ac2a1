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

package rng

import (
	"encoding/binary"

	"github.com/zintix-labs/neutrace/errs"
)

const (
	laggedDeg = 31
	laggedSep = 3
	// LaggedMax 為 lagged 來源的輸出上界。
	LaggedMax uint32 = 0x7fffffff
)

// 未播種時使用的固定初始表。
var laggedTable = [laggedDeg]int32{
	-1726662223, 379960547, 1735697613, 1040273694, 1313901226,
	1627687941, -179304937, -2073333483, 1780058412, -1989503057,
	-615974602, 344556628, 939512070, -1249116260, 1507946756,
	-812545463, 154635395, 1388815473, -1926676823, 525320961,
	-1009028674, 968117788, -123449607, 1284210865, 435012392,
	-2017506339, -911064859, -370259173, 1132637927, 1398500161,
	-205601318,
}

// Lagged 為 31 字加法延遲費氏產生器（分隔 3）。
// 狀態為 int32，加法依二補數溢位繞回。
type Lagged struct {
	state [laggedDeg]int32
	f, r  int
}

// NewLagged 建立以固定表初始化、尚未播種的產生器。
func NewLagged() *Lagged {
	return &Lagged{state: laggedTable, f: laggedSep, r: 0}
}

// Max 回傳 0x7fffffff。
func (l *Lagged) Max() uint32 { return LaggedMax }

// Seed 以 16807 乘法同餘（Schrage 分解）填表，再丟棄 310 個輸出。
// seed 為 0 時以 1 取代。
func (l *Lagged) Seed(seed uint32) {
	l.state[0] = int32(seed)
	if seed == 0 {
		l.state[0] = 1
	}
	for i := 1; i < laggedDeg; i++ {
		prev := int64(l.state[i-1])
		hi := prev / 127773
		lo := prev % 127773
		test := 16807*lo - 2836*hi
		if test < 0 {
			test += 2147483647
		}
		l.state[i] = int32(test)
	}
	l.f = laggedSep
	l.r = 0
	for i := 0; i < 10*laggedDeg; i++ {
		l.Uint32()
	}
}

// Uint32 回傳 [0, 0x7fffffff] 的整數。
func (l *Lagged) Uint32() uint32 {
	l.state[l.f] += l.state[l.r]
	out := uint32(l.state[l.f]>>1) & LaggedMax
	l.f++
	if l.f >= laggedDeg {
		l.f = 0
		l.r++
	} else {
		l.r++
		if l.r >= laggedDeg {
			l.r = 0
		}
	}
	return out
}

// Snapshot 序列化 f, r 與 31 個狀態字。
func (l *Lagged) Snapshot() ([]byte, error) {
	b := make([]byte, 0, 2+4*laggedDeg)
	b = append(b, byte(l.f), byte(l.r))
	for _, v := range l.state {
		b = binary.BigEndian.AppendUint32(b, uint32(v))
	}
	return b, nil
}

// Restore 還原 Snapshot。
func (l *Lagged) Restore(data []byte) error {
	if len(data) != 2+4*laggedDeg {
		return errs.Fatalf("lagged snapshot size %d, want %d", len(data), 2+4*laggedDeg)
	}
	f, r := int(data[0]), int(data[1])
	if f >= laggedDeg || r >= laggedDeg {
		return errs.NewFatal("lagged snapshot pointer out of range")
	}
	for i := range l.state {
		l.state[i] = int32(binary.BigEndian.Uint32(data[2+4*i:]))
	}
	l.f, l.r = f, r
	return nil
}
