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

import (
	"math"

	"github.com/zintix-labs/neutrace/errs"
)

// Histogram 為 0D/1D/2D/3D 偵測器的累積陣列。
//
// M、N、P 為宣告維度；任一為負值表示輸出時交換 x/y 軸（資料仍為列優先存放）。
// Counts、Sum、Sum2 長度皆為 |M|*|N|*|P|，分別對應事件數、權重和、權重平方和。
type Histogram struct {
	Name     string `json:"Name"`
	Title    string `json:"Title"`
	Filename string `json:"Filename"`

	M int `json:"M"`
	N int `json:"N"`
	P int `json:"P"`

	XLabel string `json:"XLabel"`
	YLabel string `json:"YLabel"`
	ZLabel string `json:"ZLabel"`
	XVar   string `json:"XVar"`
	YVar   string `json:"YVar"`
	ZVar   string `json:"ZVar"`

	X1 float64 `json:"X1"`
	X2 float64 `json:"X2"`
	Y1 float64 `json:"Y1"`
	Y2 float64 `json:"Y2"`
	Z1 float64 `json:"Z1"`
	Z2 float64 `json:"Z2"`

	Counts []float64 `json:"Counts"`
	Sum    []float64 `json:"Sum"`
	Sum2   []float64 `json:"Sum2"`
}

// New0D 建立單一累積器的偵測器。
func New0D(name, title string) *Histogram {
	return newHistogram(name, title, 1, 1, 1)
}

// New1D 建立 bins 個區間、範圍 [x1,x2) 的一維偵測器。
func New1D(name, title string, bins int, x1, x2 float64) *Histogram {
	h := newHistogram(name, title, bins, 1, 1)
	h.X1, h.X2 = x1, x2
	return h
}

// New2D 建立 nx*ny 的二維偵測器。
func New2D(name, title string, nx, ny int, x1, x2, y1, y2 float64) *Histogram {
	h := newHistogram(name, title, nx, ny, 1)
	h.X1, h.X2, h.Y1, h.Y2 = x1, x2, y1, y2
	return h
}

// New3D 建立 nx*ny*nz 的三維偵測器。
func New3D(name, title string, nx, ny, nz int, x1, x2, y1, y2, z1, z2 float64) *Histogram {
	h := newHistogram(name, title, nx, ny, nz)
	h.X1, h.X2, h.Y1, h.Y2, h.Z1, h.Z2 = x1, x2, y1, y2, z1, z2
	return h
}

func newHistogram(name, title string, m, n, p int) *Histogram {
	h := &Histogram{Name: name, Title: title, M: m, N: n, P: p}
	size := h.Size()
	h.Counts = make([]float64, size)
	h.Sum = make([]float64, size)
	h.Sum2 = make([]float64, size)
	return h
}

// WithLabels 設定座標軸標籤，回傳自身以便鏈式呼叫。
func (h *Histogram) WithLabels(x, y, z string) *Histogram {
	h.XLabel, h.YLabel, h.ZLabel = x, y, z
	return h
}

// WithVars 設定座標變數名稱。
func (h *Histogram) WithVars(x, y, z string) *Histogram {
	h.XVar, h.YVar, h.ZVar = x, y, z
	return h
}

// WithFile 設定輸出檔名。
func (h *Histogram) WithFile(name string) *Histogram {
	h.Filename = name
	return h
}

// Size 回傳元素個數。
func (h *Histogram) Size() int {
	return iabs(h.M) * iabs(h.N) * iabs(h.P)
}

// Dim 依非 1 的維度數回傳 0..3。
func (h *Histogram) Dim() int {
	d := 0
	for _, v := range []int{h.M, h.N, h.P} {
		if iabs(v) > 1 {
			d++
		}
	}
	return d
}

// Transposed 回傳輸出時是否需交換 x/y 軸。
func (h *Histogram) Transposed() bool {
	return h.M < 0 || h.N < 0 || h.P < 0
}

// Index 回傳 (i,j,k) 在陣列中的位置；越界回傳 -1。
func (h *Histogram) Index(i, j, k int) int {
	m, n, p := iabs(h.M), iabs(h.N), iabs(h.P)
	if i < 0 || i >= m || j < 0 || j >= n || k < 0 || k >= p {
		return -1
	}
	return (i*n+j)*p + k
}

// AddAt 直接累加到第 idx 個元素。
func (h *Histogram) AddAt(idx int, w float64) {
	h.Counts[idx]++
	h.Sum[idx] += w
	h.Sum2[idx] += w * w
}

// Fill 依座標落點累加權重；座標不足或落在範圍外回傳 false。
func (h *Histogram) Fill(w float64, coords ...float64) bool {
	m, n, p := iabs(h.M), iabs(h.N), iabs(h.P)
	i, j, k := 0, 0, 0
	var ok bool
	if m > 1 {
		if len(coords) < 1 {
			return false
		}
		if i, ok = bin(coords[0], h.X1, h.X2, m); !ok {
			return false
		}
	}
	if n > 1 {
		if len(coords) < 2 {
			return false
		}
		if j, ok = bin(coords[1], h.Y1, h.Y2, n); !ok {
			return false
		}
	}
	if p > 1 {
		if len(coords) < 3 {
			return false
		}
		if k, ok = bin(coords[2], h.Z1, h.Z2, p); !ok {
			return false
		}
	}
	h.AddAt(h.Index(i, j, k), w)
	return true
}

// Total 回傳全部元素的累積總和。
func (h *Histogram) Total() Accumulator {
	var a Accumulator
	for idx := range h.Sum {
		a.N += h.Counts[idx]
		a.P1 += h.Sum[idx]
		a.P2 += h.Sum2[idx]
	}
	return a
}

// Merge 併入同形狀的偵測器。
func (h *Histogram) Merge(o *Histogram) error {
	if o.M != h.M || o.N != h.N || o.P != h.P {
		return errs.Fatalf("histogram %s shape mismatch: %dx%dx%d vs %dx%dx%d", h.Name, h.M, h.N, h.P, o.M, o.N, o.P)
	}
	for idx := range h.Sum {
		h.Counts[idx] += o.Counts[idx]
		h.Sum[idx] += o.Sum[idx]
		h.Sum2[idx] += o.Sum2[idx]
	}
	return nil
}

// Reset 清空所有累積值。
func (h *Histogram) Reset() {
	clear(h.Counts)
	clear(h.Sum)
	clear(h.Sum2)
}

// Clone 深拷貝，用於在安全點發佈快照。
func (h *Histogram) Clone() *Histogram {
	c := *h
	c.Counts = append([]float64(nil), h.Counts...)
	c.Sum = append([]float64(nil), h.Sum...)
	c.Sum2 = append([]float64(nil), h.Sum2...)
	return &c
}

func bin(v, lo, hi float64, n int) (int, bool) {
	if hi == lo || math.IsNaN(v) {
		return 0, false
	}
	i := int(math.Floor((v - lo) * float64(n) / (hi - lo)))
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
