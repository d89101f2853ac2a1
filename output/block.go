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

package output

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zintix-labs/neutrace/format"
	"github.com/zintix-labs/neutrace/stats"
)

// Block 為一個待輸出的資料區塊。
//
// Counts、Sum、Sum2 為列優先存放的 N、P、P2 陣列，可為 nil（該部分不輸出）。
// M、N、P 任一為負值時輸出會交換 x/y 軸。
type Block struct {
	Component string
	Title     string
	Filename  string

	M, N, P int

	XLabel, YLabel, ZLabel string
	XVar, YVar, ZVar       string

	X1, X2, Y1, Y2, Z1, Z2 float64

	Counts, Sum, Sum2 []float64
}

// Block0D 建立單一累積值的區塊（不產生資料檔）。
func Block0D(component, title string, a stats.Accumulator) Block {
	return Block{
		Component: component,
		Title:     title,
		M:         1, N: 1, P: 1,
		XLabel: "I",
		XVar:   "I",
		Counts: []float64{a.N},
		Sum:    []float64{a.P1},
		Sum2:   []float64{a.P2},
	}
}

// Block1D 建立 n 個區間的一維區塊；y 範圍固定為 0 以使用交錯格式。
func Block1D(component, title, xlabel, ylabel, xvar string, x1, x2 float64, n int, p0, p1, p2 []float64, file string) Block {
	return Block{
		Component: component,
		Title:     title,
		Filename:  file,
		M:         n, N: 1, P: 1,
		XLabel: xlabel, YLabel: ylabel, ZLabel: "Intensity",
		XVar: xvar, YVar: "(I,I_err)", ZVar: "I",
		X1: x1, X2: x2,
		Counts: p0, Sum: p1, Sum2: p2,
	}
}

// Block2D 建立 m*n 的二維區塊；座標變數取標籤前兩個位元組。
func Block2D(component, title, xlabel, ylabel string, x1, x2, y1, y2 float64, m, n int, p0, p1, p2 []float64, file string) Block {
	return Block{
		Component: component,
		Title:     title,
		Filename:  file,
		M:         m, N: n, P: 1,
		XLabel: xlabel, YLabel: ylabel, ZLabel: "Intensity",
		XVar: shortVar(xlabel, "x "), YVar: shortVar(ylabel, "y "), ZVar: "I",
		X1: x1, X2: x2, Y1: y1, Y2: y2,
		Counts: p0, Sum: p1, Sum2: p2,
	}
}

// Block3D 建立 m*n*p 的三維區塊。
func Block3D(component, title, xlabel, ylabel, zlabel, xvar, yvar, zvar string,
	x1, x2, y1, y2, z1, z2 float64, m, n, p int, p0, p1, p2 []float64, file string) Block {
	return Block{
		Component: component,
		Title:     title,
		Filename:  file,
		M:         m, N: n, P: p,
		XLabel: xlabel, YLabel: ylabel, ZLabel: zlabel,
		XVar: xvar, YVar: yvar, ZVar: zvar,
		X1: x1, X2: x2, Y1: y1, Y2: y2, Z1: z1, Z2: z2,
		Counts: p0, Sum: p1, Sum2: p2,
	}
}

func shortVar(label, def string) string {
	if label == "" {
		return def
	}
	if len(label) > 2 {
		return label[:2]
	}
	return label
}

// FromHistogram 依偵測器維度選擇對應的區塊形式。
func FromHistogram(h *stats.Histogram) Block {
	m, n, p := iabs(h.M), iabs(h.N), iabs(h.P)
	switch {
	case m*n*p == 1:
		return Block0D(h.Name, h.Title, h.Total())
	case n == 1 && p == 1:
		return Block1D(h.Name, h.Title, h.XLabel, h.YLabel, h.XVar, h.X1, h.X2, h.M, h.Counts, h.Sum, h.Sum2, h.Filename)
	case p == 1:
		return Block2D(h.Name, h.Title, h.XLabel, h.YLabel, h.X1, h.X2, h.Y1, h.Y2, h.M, h.N, h.Counts, h.Sum, h.Sum2, h.Filename)
	}
	return Block3D(h.Name, h.Title, h.XLabel, h.YLabel, h.ZLabel, h.XVar, h.YVar, h.ZVar,
		h.X1, h.X2, h.Y1, h.Y2, h.Z1, h.Z2, h.M, h.N, h.P, h.Counts, h.Sum, h.Sum2, h.Filename)
}

func (b *Block) size() int { return b.M * b.N * b.P }

// index 回傳輸出第 j 列第 i 欄的元素位置。
func (b *Block) index(i, j int, transposed bool) int {
	if transposed {
		return i + j*b.M
	}
	return i*b.N*b.P + j
}

func at(a []float64, idx int) float64 {
	if a == nil {
		return 0
	}
	return a[idx]
}

// totals 依輸出順序加總；缺少 N 時每格計 1，缺少 P2 時以 P*P 代替。
func (b *Block) totals(transposed bool) stats.Accumulator {
	var acc stats.Accumulator
	for j := 0; j < b.N*b.P; j++ {
		for i := 0; i < b.M; i++ {
			idx := b.index(i, j, transposed)
			v := at(b.Sum, idx)
			if b.Counts != nil {
				acc.N += b.Counts[idx]
			} else {
				acc.N++
			}
			acc.P1 += v
			if b.Sum2 != nil {
				acc.P2 += b.Sum2[idx]
			} else {
				acc.P2 += v * v
			}
		}
	}
	return acc
}

type part uint8

const (
	partNcount part = iota
	partData
	partErrors
)

func (p part) String() string {
	switch p {
	case partData:
		return "data"
	case partErrors:
		return "errors"
	}
	return "ncount"
}

type stage uint8

const (
	stageFull stage = iota
	stageBegin
	stageEnd
)

type blockCtx struct {
	b          *Block
	transposed bool
	single     bool
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// DetectorOut 輸出一個偵測器：描述檔中的 component/data 區段、資料檔，
// 以及主輸出上的 0D 摘要行。回傳權重總和。
func (e *Engine) DetectorOut(b Block) float64 {
	transposed := false
	if b.M < 0 || b.N < 0 || b.P < 0 || e.d.IsBinary() {
		transposed = true
		b.X1, b.X2, b.Y1, b.Y2 = b.Y1, b.Y2, b.X1, b.X2
		b.XLabel, b.YLabel = b.YLabel, b.XLabel
		b.XVar, b.YVar = b.YVar, b.XVar
		b.M, b.N = iabs(b.N), iabs(b.M)
		b.P = iabs(b.P)
	}

	f := e.sim
	simname := e.SimPath()
	pre := &prefix{}
	e.section(f, false, pre, b.Component, "component", simname, 3)
	e.section(f, false, pre, b.Filename, "data", b.Component, 4)
	e.data(f, pre.s, &blockCtx{b: &b, transposed: transposed, single: e.cfg.SingleFile})
	e.section(f, true, pre, b.Filename, "data", b.Component, 4)
	e.section(f, true, pre, b.Component, "component", simname, 3)

	acc := b.totals(transposed)
	e.DetectorLine(b.Component, acc, b.Filename)
	return acc.P1
}

// DetectorLine 在主輸出寫一行 0D 摘要。
func (e *Engine) DetectorLine(name string, a stats.Accumulator, file string) {
	line := fmt.Sprintf("Detector: %s_I=%s %s_ERR=%s %s_N=%s",
		name, g(a.P1), name, g(a.Error()), name, g(a.N))
	if file != "" {
		line += " \"" + file + "\""
	}
	_, _ = fmt.Fprintln(e.cfg.Out, line)
}

// data 依序輸出 data、errors、ncount；McStas 一維資料只輸出交錯的 data。
func (e *Engine) data(f *sink, pre string, c *blockCtx) {
	b := c.b
	if b.size() == 0 || b.Sum == nil {
		return
	}
	if e.datablock(f, pre, b.Component, partData, stageFull, c) {
		return
	}
	if b.Counts != nil && b.Sum2 != nil {
		e.datablock(f, pre, b.Component, partErrors, stageFull, c)
		e.datablock(f, pre, b.Component, partNcount, stageFull, c)
	}
}

func (e *Engine) blockArgs(pre, vparent string, b *Block) []any {
	return []any{
		pre, vparent, b.Title, b.Filename,
		b.XLabel, format.ValidName(b.XLabel),
		b.YLabel, format.ValidName(b.YLabel),
		b.ZLabel, format.ValidName(b.ZLabel),
		b.XVar, b.YVar, b.ZVar,
		b.M, b.N, b.P,
		b.X1, b.X2, b.Y1, b.Y2, b.Z1, b.Z2,
	}
}

// datablock 輸出單一部分（data/errors/ncount）並回傳是否為 McStas 一維交錯格式。
//
// stageFull 時，多檔模式會另開資料檔（data 覆寫、其餘附加），並在檔內遞迴寫入
// stageBegin/stageEnd 的標頭；單檔模式則直接寫入 f。
func (e *Engine) datablock(f *sink, pre, parent string, pt part, st stage, c *blockCtx) bool {
	d := e.d
	b := c.b
	var begin, end string
	var src []float64
	switch pt {
	case partData:
		begin, end, src = d.BeginData, d.EndData, b.Sum
	case partErrors:
		begin, end, src = d.BeginErrors, d.EndErrors, b.Sum2
	default:
		begin, end, src = d.BeginNcount, d.EndNcount, b.Counts
	}
	present := src != nil
	is1d := b.Y1 == 0 && b.Y2 == 0 && d.IsMcStas()
	size := b.size()

	vparent := format.ValidName(parent)
	if !d.IsMcStas() && b.Filename != "" {
		vparent = format.ValidName(b.Filename)
	}
	args := e.blockArgs(pre, vparent, b)

	if pt == partData && st != stageEnd && f != nil {
		e.infoData(f, pre, vparent, b, c.transposed)
	}
	if st != stageEnd && f != nil {
		f.render(begin, args...)
	}

	var out *sink
	sec := ""
	if !c.single && st == stageFull {
		out = e.newFile(b.Filename, pt != partData)
		if d.Family == format.FamilyIDL && f != nil {
			f.str("'external'")
		}
		if out != nil && !d.DataOnly {
			if pt == partData {
				e.header(out, false, d.DataPrefix(), b.Filename, vparent)
			}
			e.datablock(out, d.DataPrefix(), vparent, pt, stageBegin, c)
		}
	} else if st == stageFull {
		if d.IsMcStas() && size > 1 && f != nil {
			switch {
			case is1d:
				sec = fmt.Sprintf("array_1d(%d)", b.M)
			case b.P == 1:
				sec = fmt.Sprintf("array_2d(%d,%d)", b.M, b.N)
			default:
				sec = fmt.Sprintf("array_3d(%d,%d,%d)", b.M, b.N, b.P)
			}
			f.printf("%sbegin %s\n", pre, sec)
		}
		out = f
	}

	if st == stageFull && out != nil && present {
		if d.IsBinary() {
			e.writeBinary(out, pt, b, src)
		} else {
			e.writeText(out, pt, b, c.transposed, is1d, out == f, pre)
		}
	}

	if st != stageBegin && f != nil {
		f.render(end, args...)
	}

	if !c.single && st == stageFull {
		if out != nil {
			if out != f && !d.DataOnly {
				e.datablock(out, d.DataPrefix(), vparent, pt, stageEnd, c)
				if (pt == partData && is1d) || pt == partNcount || b.Counts == nil || b.Sum2 == nil {
					e.header(out, true, d.DataPrefix(), b.Filename, vparent)
				}
			}
			e.closeFile(out)
		}
	} else if st == stageFull && sec != "" {
		f.printf("%send %s\n", pre, sec)
	}
	return is1d
}

// writeText 輸出文字資料：每列 n*p 之一，欄為 m；一維交錯格式每筆一行 "x I E N"。
func (e *Engine) writeText(out *sink, pt part, b *Block, transposed, is1d, embedded bool, pre string) {
	d := e.d
	size := b.size()
	rowPre := ""
	if embedded {
		rowPre = pre
	}
	full := b.Counts != nil && b.Sum != nil && b.Sum2 != nil
	for j := 0; j < b.N*b.P; j++ {
		if !is1d {
			out.str(rowPre)
		}
		for i := 0; i < b.M; i++ {
			idx := b.index(i, j, transposed)
			n, v, e2 := at(b.Counts, idx), at(b.Sum, idx), at(b.Sum2, idx)
			if full {
				e2 = stats.EstimateError(n, v, e2)
			}
			if is1d {
				if size > 1 {
					x := b.X1 + (b.X2-b.X1)*float64(idx)/float64(size)
					out.str(rowPre + g(x) + " " + g(v) + " " + g(e2) + " " + g(n) + "\n")
				}
				continue
			}
			value := v
			switch pt {
			case partNcount:
				value = n
			case partErrors:
				value = e2
			}
			out.str(g(value))
			if d.ListSeparated() && (i+1)*(j+1) < size {
				out.str(",")
			} else {
				out.str(" ")
			}
		}
		if !is1d {
			out.str(d.EOL())
		}
	}
}

// writeBinary 以小端序寫出原始陣列；errors 部分經誤差估計轉換。
func (e *Engine) writeBinary(out *sink, pt part, b *Block, src []float64) {
	size := b.size()
	full := b.Counts != nil && b.Sum != nil && b.Sum2 != nil
	value := func(i int) float64 {
		if pt == partErrors && full {
			return stats.EstimateError(b.Counts[i], b.Sum[i], b.Sum2[i])
		}
		return src[i]
	}
	var buf []byte
	if e.d.Encoding == format.BinaryFloat {
		buf = make([]byte, 0, 4*size)
		for i := 0; i < size; i++ {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(value(i))))
		}
	} else {
		buf = make([]byte, 0, 8*size)
		for i := 0; i < size; i++ {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(value(i)))
		}
	}
	if _, err := out.Write(buf); err != nil {
		e.log.Warn("error writing binary data", "path", out.path, "part", pt.String(), "err", err)
	}
}

// infoData 輸出資料區塊的描述標籤：型別、變數、統計量與範圍。
func (e *Engine) infoData(f *sink, pre, parent string, b *Block, transposed bool) {
	m, n, p := b.M, b.N, b.P
	if f == nil || m*n*p == 0 {
		return
	}
	x1, x2, y1, y2, z1, z2 := b.X1, b.X2, b.Y1, b.Y2, b.Z1, b.Z2

	var sumXZ, sumYZ, sumZ, sumX2Z, sumY2Z, minZ, maxZ float64
	var fmonX, smonX, fmonY, smonY, meanZ, nsum, p2sum float64
	if b.Sum != nil {
		minZ = b.Sum[0]
		maxZ = minZ
		for j := 0; j < n*p; j++ {
			for i := 0; i < m; i++ {
				idx := b.index(i, j, transposed)
				x := x1 + (float64(i)+0.5)/float64(m)*(x2-x1)
				y := y1 + (float64(j)+0.5)/float64(n)/float64(p)*(y2-y1)
				z := b.Sum[idx]
				sumXZ += x * z
				sumYZ += y * z
				sumZ += z
				sumX2Z += x * x * z
				sumY2Z += y * y * z
				maxZ = math.Max(maxZ, z)
				minZ = math.Min(minZ, z)
				if b.Counts != nil {
					nsum += b.Counts[idx]
				} else {
					nsum++
				}
				if b.Sum2 != nil {
					p2sum += b.Sum2[idx]
				} else {
					p2sum += z * z
				}
			}
		}
		if sumZ != 0 {
			fmonX = sumXZ / sumZ
			fmonY = sumYZ / sumZ
			smonX = math.Sqrt(sumX2Z/sumZ - fmonX*fmonX)
			smonY = math.Sqrt(sumY2Z/sumZ - fmonY*fmonY)
			meanZ = sumZ / float64(n) / float64(m) / float64(p)
		}
	}

	var typ, statsTag string
	switch {
	case m*n*p == 1:
		typ = "array_0d"
	case n == 1 || m == 1:
		if m == 1 {
			m, n = n, 1
		}
		typ = fmt.Sprintf("array_1d(%d)", m)
		statsTag = "X0=" + g(fmonX) + "; dX=" + g(smonX) + ";"
	default:
		if p == 1 {
			typ = fmt.Sprintf("array_2d(%d, %d)", m, n)
		} else {
			typ = fmt.Sprintf("array_3d(%d, %d, %d)", m, n, p)
		}
		statsTag = "X0=" + g(fmonX) + "; dX=" + g(smonX) + "; Y0=" + g(fmonY) + "; dY=" + g(smonY) + ";"
	}

	c := b.XVar
	if b.ZVar != "" {
		c = b.ZVar
	} else if b.YVar != "" {
		c = b.YVar
	}
	vars := c + " " + c + "_err N"
	if m == 1 || n == 1 {
		vars = b.XVar + " " + c + " " + c + "_err N"
	}
	run, ncount := e.cfg.Progress()

	comp := "parent"
	if e.d.IsMcStas() {
		comp = "component"
	}
	e.tag(f, pre, parent, "type", typ)
	e.tag(f, pre, parent, comp, parent)
	e.tag(f, pre, parent, "title", b.Title)
	e.tag(f, pre, parent, "variables", vars)
	e.tag(f, pre, parent, "ratio", g(run)+"/"+g(ncount))
	if b.Filename != "" {
		e.tag(f, pre, parent, "filename", b.Filename)
		e.tag(f, pre, parent, "format", e.d.Name)
	} else {
		e.tag(f, pre, parent, "filename", "")
	}

	if b.Sum != nil {
		signal := ""
		if n*m*p > 1 {
			signal = "Min=" + g(minZ) + "; Max=" + g(maxZ) + "; Mean= " + g(meanZ) + ";"
			if y1 == 0 && y2 == 0 {
				y1, y2 = minZ, maxZ
			} else if z1 == 0 && z2 == 0 {
				z1, z2 = minZ, maxZ
			}
		}
		e.tag(f, pre, parent, "statistics", statsTag)
		e.tag(f, pre, parent, "signal", signal)
		e.tag(f, pre, parent, "values", g(sumZ)+" "+g(stats.EstimateError(nsum, sumZ, p2sum))+" "+g(nsum))
	}

	limField, limits := "xylimits", "0 0 0 0 0 0"
	if n*m > 1 {
		e.tag(f, pre, parent, "xvar", b.XVar)
		e.tag(f, pre, parent, "yvar", b.YVar)
		e.tag(f, pre, parent, "xlabel", b.XLabel)
		e.tag(f, pre, parent, "ylabel", b.YLabel)
		if (n == 1 || m == 1) && e.d.IsMcStas() {
			limField, limits = "xlimits", g(x1)+" "+g(x2)
		} else {
			e.tag(f, pre, parent, "zvar", b.ZVar)
			e.tag(f, pre, parent, "zlabel", b.ZLabel)
			limits = g(x1) + " " + g(x2) + " " + g(y1) + " " + g(y2) + " " + g(z1) + " " + g(z2)
		}
	}
	e.tag(f, pre, parent, limField, limits)
}
