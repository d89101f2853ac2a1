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
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat/distuv"
)

var lang language.Tag = language.English

// z95 為雙尾 95% 常態分位數。
var z95 = distuv.UnitNormal.Quantile(0.975)

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// Summary 單一偵測器的 0D 摘要（與輸出檔的 Detector 行同值）。
type Summary struct {
	Name      string  `json:"Name"`
	Dim       int     `json:"Dim"`
	Events    float64 `json:"N"`
	Intensity float64 `json:"I"`
	Error     float64 `json:"Err"`
	CI        CI      `json:"CI95"`
	Filename  string  `json:"Filename,omitempty"`
}

// RunReport 一次模擬的摘要報告。
type RunReport struct {
	Instrument string    `json:"Instrument"`
	Generator  string    `json:"Generator"`
	Seed       int64     `json:"Seed"`
	Requested  int64     `json:"Requested"`
	Completed  int64     `json:"Completed"`
	Detectors  []Summary `json:"Detectors"`
}

// Summarize 由累積總和計算摘要。
func (h *Histogram) Summarize() Summary {
	a := h.Total()
	return NewSummary(h.Name, h.Dim(), a, h.Filename)
}

// NewSummary 以累積器建立摘要；誤差使用 EstimateError。
func NewSummary(name string, dim int, a Accumulator, filename string) Summary {
	e := a.Error()
	return Summary{
		Name:      name,
		Dim:       dim,
		Events:    a.N,
		Intensity: a.P1,
		Error:     e,
		CI:        CI{Lo: a.P1 - z95*math.Abs(e), Hi: a.P1 + z95*math.Abs(e)},
		Filename:  filename,
	}
}

// Progress 回傳完成比例（0..1），Requested 為 0 時回傳 0。
func (r *RunReport) Progress() float64 {
	if r.Requested == 0 {
		return 0
	}
	return float64(r.Completed) / float64(r.Requested)
}

func (r *RunReport) WriteWith(w io.Writer, rep RunReportRender) error {
	return rep.Write(w, r)
}

// StdOut 以表格輸出摘要與耗時。
func (r *RunReport) StdOut(w io.Writer, ut time.Duration) {
	fmt.Fprint(w, formatDuration(ut, r.Completed))
	keys, msg := r.fmtBasic()
	fmt.Fprintln(w, fmtTable(r.Instrument, keys, msg))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, trials int64) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	tps := int64(float64(trials) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\ntps : %d trials/sec\n", sec, tps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\ntps : %d trials/sec\n", m, s, tps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\ntps : %d trials/sec\n", h, m, s, tps)
}

func (r *RunReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Generator": r.Generator,
		"Seed":      fmt.Sprintf("%d", r.Seed),
		"Trials":    p.Sprintf("%d / %d", r.Completed, r.Requested),
		"Progress":  p.Sprintf("%.2f %%", 100*r.Progress()),
	}
	keys := []string{"Generator", "Seed", "Trials", "Progress"}
	for _, d := range r.Detectors {
		k := "Detector " + d.Name
		basic[k] = p.Sprintf("I=%.6g ± %.3g (N=%d)", d.Intensity, d.Error, int64(d.Events))
		keys = append(keys, k)
	}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := runewidth.StringWidth(title) - 3
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
