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

package stats

import "math"

// Accumulator 累積加權樣本：N 事件數、P1 權重和、P2 權重平方和。
type Accumulator struct {
	N  float64 `json:"N"`
	P1 float64 `json:"P"`
	P2 float64 `json:"P2"`
}

// Add 加入一個權重 w 的事件。
func (a *Accumulator) Add(w float64) {
	a.N++
	a.P1 += w
	a.P2 += w * w
}

// Merge 併入另一個累積器。
func (a *Accumulator) Merge(o Accumulator) {
	a.N += o.N
	a.P1 += o.P1
	a.P2 += o.P2
}

// Error 回傳 EstimateError(N, P1, P2)。
func (a Accumulator) Error() float64 {
	return EstimateError(a.N, a.P1, a.P2)
}

// EstimateError 估計強度 P1 的統計誤差。
//
// N <= 1 時回傳 P1 本身；否則為 sqrt(N/(N-1) * |P2 - (P1/N)^2|)。
// 此公式與既有模擬輸出一致，數值上須逐位元重現，不可改寫成其他變異數估計。
func EstimateError(n, p1, p2 float64) float64 {
	if n <= 1 {
		return p1
	}
	pmean := p1 / n
	n1 := n - 1
	return math.Sqrt((n / n1) * math.Abs(p2-pmean*pmean))
}
