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
	mtN         = 624
	mtM         = 397
	mtMatrixA   = 0x9908b0df
	mtUpperMask = 0x80000000
	mtLowerMask = 0x7fffffff
	mtTemperB   = 0x9d2c5680
	mtTemperC   = 0xefc60000

	// mtDefaultSeed 用於未播種即取值的情況。
	mtDefaultSeed = 4357
	// MTMax 為 MT 來源的輸出上界。
	MTMax uint32 = 0xffffffff
)

// MT 為 624 字的 Mersenne Twister，播種使用 69069 線性同餘填表。
type MT struct {
	mt  [mtN]uint32
	mti int
}

// NewMT 建立尚未播種的產生器；第一次取值時自動以 4357 播種。
func NewMT() *MT {
	return &MT{mti: mtN + 1}
}

// Max 回傳 0xffffffff。
func (m *MT) Max() uint32 { return MTMax }

// Seed 以 mt[i] = 69069*mt[i-1] 填表。種子 0 會使整張表為 0，改用 4357。
func (m *MT) Seed(seed uint32) {
	if seed == 0 {
		seed = mtDefaultSeed
	}
	m.mt[0] = seed
	for i := 1; i < mtN; i++ {
		m.mt[i] = 69069 * m.mt[i-1]
	}
	m.mti = mtN
}

func (m *MT) generate() {
	mag01 := [2]uint32{0, mtMatrixA}
	var y uint32
	kk := 0
	for ; kk < mtN-mtM; kk++ {
		y = (m.mt[kk] & mtUpperMask) | (m.mt[kk+1] & mtLowerMask)
		m.mt[kk] = m.mt[kk+mtM] ^ (y >> 1) ^ mag01[y&1]
	}
	for ; kk < mtN-1; kk++ {
		y = (m.mt[kk] & mtUpperMask) | (m.mt[kk+1] & mtLowerMask)
		m.mt[kk] = m.mt[kk+(mtM-mtN)] ^ (y >> 1) ^ mag01[y&1]
	}
	y = (m.mt[mtN-1] & mtUpperMask) | (m.mt[0] & mtLowerMask)
	m.mt[mtN-1] = m.mt[mtM-1] ^ (y >> 1) ^ mag01[y&1]
	m.mti = 0
}

// Uint32 回傳 tempered 後的 32-bit 整數。
func (m *MT) Uint32() uint32 {
	if m.mti >= mtN {
		if m.mti == mtN+1 {
			m.Seed(mtDefaultSeed)
		}
		m.generate()
	}
	y := m.mt[m.mti]
	m.mti++
	y ^= y >> 11
	y ^= (y << 7) & mtTemperB
	y ^= (y << 15) & mtTemperC
	y ^= y >> 18
	return y
}

// Snapshot 序列化 mti 與 624 個狀態字。
func (m *MT) Snapshot() ([]byte, error) {
	b := make([]byte, 0, 4+4*mtN)
	b = binary.BigEndian.AppendUint32(b, uint32(m.mti))
	for _, v := range m.mt {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return b, nil
}

// Restore 還原 Snapshot。
func (m *MT) Restore(data []byte) error {
	if len(data) != 4+4*mtN {
		return errs.Fatalf("mt snapshot size %d, want %d", len(data), 4+4*mtN)
	}
	mti := int(binary.BigEndian.Uint32(data))
	if mti > mtN+1 {
		return errs.NewFatal("mt snapshot index out of range")
	}
	for i := range m.mt {
		m.mt[i] = binary.BigEndian.Uint32(data[4+4*i:])
	}
	m.mti = mti
	return nil
}
