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

package particle

import "github.com/zintix-labs/neutrace/errs"

// initialSlots 為 Bank 第一次配置的槽數，之後每次加倍。
const initialSlots = 32

// Bank 以 Stride 為步距的扁平陣列暫存多個粒子狀態（例如每個元件入口的狀態）。
type Bank struct {
	data []float64
}

// NewBank 建立可容納 slots 個狀態的 Bank。
func NewBank(slots int) *Bank {
	if slots < 0 {
		slots = 0
	}
	return &Bank{data: make([]float64, slots*Stride)}
}

// Len 回傳可用槽數。
func (b *Bank) Len() int { return len(b.data) / Stride }

// Grow 確保第 index 槽存在；容量從 32 開始，不足時加倍。
func (b *Bank) Grow(index int) {
	if index < 0 || index < b.Len() {
		return
	}
	n := b.Len()
	if n == 0 {
		n = initialSlots
	}
	for n <= index {
		n *= 2
	}
	data := make([]float64, n*Stride)
	copy(data, b.data)
	b.data = data
}

func (b *Bank) check(index int) error {
	if index < 0 || index >= b.Len() {
		return errs.Fatalf("particle bank index %d out of range [0,%d)", index, b.Len())
	}
	return nil
}

// Save 將 s 寫入第 index 槽。
func (b *Bank) Save(index int, s State) error {
	if err := b.check(index); err != nil {
		return err
	}
	rec := b.data[index*Stride : (index+1)*Stride]
	rec[idxP] = s.P
	rec[idxX], rec[idxY], rec[idxZ] = s.X, s.Y, s.Z
	rec[idxVX], rec[idxVY], rec[idxVZ] = s.VX, s.VY, s.VZ
	rec[idxT] = s.T
	rec[idxSX], rec[idxSY], rec[idxSZ] = s.SX, s.SY, s.SZ
	return nil
}

// Restore 讀回第 index 槽。
func (b *Bank) Restore(index int) (State, error) {
	if err := b.check(index); err != nil {
		return State{}, err
	}
	rec := b.data[index*Stride : (index+1)*Stride]
	return State{
		P: rec[idxP],
		X: rec[idxX], Y: rec[idxY], Z: rec[idxZ],
		VX: rec[idxVX], VY: rec[idxVY], VZ: rec[idxVZ],
		T:  rec[idxT],
		SX: rec[idxSX], SY: rec[idxSY], SZ: rec[idxSZ],
	}, nil
}

// Raw 回傳第 index 槽的底層切片（與 Bank 共用記憶體）。
func (b *Bank) Raw(index int) ([]float64, error) {
	if err := b.check(index); err != nil {
		return nil, err
	}
	return b.data[index*Stride : (index+1)*Stride], nil
}
