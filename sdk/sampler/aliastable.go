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

// Package sampler 提供離散分佈的 O(1) 加權抽樣（Vose alias method）。
//
// 用於從表列光譜或其他直方圖形式的分佈中取樣：先以 alias table 選出區間，
// 再由呼叫端在區間內均勻取值。
package sampler

import (
	"math"

	"github.com/zintix-labs/neutrace/errs"
)

// Numbers 為可作為權重的數值型別。
type Numbers interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Uniform 為抽樣所需的亂數能力，*rng.Stream 即滿足。
type Uniform interface {
	Rand01() float64
}

// AliasTable 為建好的別名表。
//
//   - Prob[i]：選到槽位 i 時保留 i 本身的機率（0..1）。
//   - Aliases[i]：未保留時改取的索引。
//
// 建表 O(N)，每次抽樣固定使用 2 個亂數。
type AliasTable struct {
	Prob    []float64
	Aliases []int
	Size    int
	Total   float64
}

// BuildAliasTable 由非負權重建表；權重不需正規化，但總和必須為正且有限。
func BuildAliasTable[T Numbers](weights []T) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return nil, errs.Configf("alias table: no weights")
	}
	total := 0.0
	for i, w := range weights {
		f := float64(w)
		if f < 0 || math.IsNaN(f) {
			return nil, errs.Configf("alias table: invalid weight %v at %d", f, i)
		}
		total += f
	}
	if total == 0 || math.IsInf(total, 0) {
		return nil, errs.Configf("alias table: total weight must be positive and finite, got %v", total)
	}

	prob := make([]float64, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		// 縮放到平均為 1
		prob[i] = float64(w) * float64(n) / total
		aliases[i] = i
		if prob[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - 1
		if prob[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	// 剩下的只差捨入誤差
	for _, i := range large {
		prob[i] = 1
	}
	for _, i := range small {
		prob[i] = 1
	}

	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: total}, nil
}

// Pick 抽出一個索引。
func (at *AliasTable) Pick(u Uniform) int {
	idx := int(u.Rand01() * float64(at.Size))
	if idx >= at.Size {
		idx = at.Size - 1
	}
	if u.Rand01() < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
