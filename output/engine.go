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

// Package output 將偵測器累積結果依選定的方言輸出成模擬描述檔與資料檔。
//
// 一次存檔（Save）的流程：開啟描述檔並寫入儀器與模擬區段、逐一輸出偵測器、
// 最後寫入頁尾並關閉。每個偵測器同時在主輸出寫一行 0D 摘要。
package output

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/format"
)

// DefaultSimName 為描述檔預設的基礎名稱。
const DefaultSimName = "mcstas"

// Param 為一個已格式化的儀器參數。
type Param struct {
	Name  string
	Type  string
	Value string
}

// SimInfo 為描述檔中儀器與模擬區段的內容。
type SimInfo struct {
	Instrument   string
	Source       string
	Params       []Param
	TraceEnabled bool
	DefaultMain  bool
	Embedded     bool
	Trace        bool
	Gravitation  bool
	// Seed 為 0 代表未由使用者指定，不輸出 Seed 標籤。
	Seed int64
}

// Config 為輸出引擎設定。零值欄位使用預設值。
type Config struct {
	Dir        string
	SimName    string
	SingleFile bool
	Disabled   bool
	Compress   Compression

	// Out 為 0D 摘要行的輸出（預設 os.Stdout）。
	Out    io.Writer
	Logger *slog.Logger
	Now    func() time.Time
	User   string
	// Progress 回傳目前已完成與要求的試驗次數。
	Progress func() (run, ncount float64)
}

// Engine 是單次執行的輸出上下文；不可並行使用。
type Engine struct {
	d     format.Dialect
	cfg   Config
	info  SimInfo
	log   *slog.Logger
	start time.Time
	sim   *sink
	err   error
}

// New 建立輸出引擎；開始時間取自 cfg.Now。
func New(d format.Dialect, cfg Config, info SimInfo) *Engine {
	if cfg.SimName == "" {
		cfg.SimName = DefaultSimName
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.User == "" {
		host, _ := os.Hostname()
		cfg.User = os.Getenv("USER") + " on " + host
	}
	if cfg.Progress == nil {
		cfg.Progress = func() (float64, float64) { return 0, 0 }
	}
	lg := cfg.Logger
	if lg == nil {
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		d:     d,
		cfg:   cfg,
		info:  info,
		log:   lg,
		start: cfg.Now(),
	}
}

// Dialect 回傳使用中的方言。
func (e *Engine) Dialect() format.Dialect { return e.d }

// Start 回傳執行開始時間。
func (e *Engine) Start() time.Time { return e.start }

// SetInfo 替換描述檔內容（例如續跑後種子改變）。
func (e *Engine) SetInfo(info SimInfo) { e.info = info }

// SimPath 回傳描述檔在標籤中使用的名稱（目錄/基礎名稱，不含副檔名）。
func (e *Engine) SimPath() string {
	dir := e.cfg.Dir
	if dir == "" {
		dir = "."
	}
	return dir + string(filepath.Separator) + e.cfg.SimName
}

// InfoFileName 回傳描述檔檔名：基礎名稱不含 '.' 時附加方言副檔名。
func (e *Engine) InfoFileName() string {
	if strings.Contains(e.cfg.SimName, ".") {
		return e.cfg.SimName
	}
	return e.cfg.SimName + "." + e.d.Extension
}

// FilePath 回傳檔名實際寫入的路徑（含目錄與壓縮副檔名）。
func (e *Engine) FilePath(name string) string {
	p := name
	if dir := e.cfg.Dir; dir != "" {
		sep := string(filepath.Separator)
		if strings.HasSuffix(dir, sep) || strings.HasPrefix(name, sep) {
			p = dir + name
		} else {
			p = dir + sep + name
		}
	}
	return p + e.cfg.Compress.Suffix()
}

func (e *Engine) newFile(name string, appendMode bool) *sink {
	if name == "" || e.cfg.Disabled {
		return nil
	}
	path := e.FilePath(name)
	s, err := openSink(path, appendMode, e.cfg.Compress)
	if err != nil {
		e.log.Warn("could not open output file", "path", path, "err", err)
		return nil
	}
	return s
}

// closeFile 關閉資料檔並記錄第一個錯誤。
func (e *Engine) closeFile(s *sink) {
	if err := s.close(); err != nil {
		e.log.Warn("could not write output file", "path", s.path, "err", err)
		if e.err == nil {
			e.err = errs.Resourcef("write %s: %v", s.path, err)
		}
	}
}

// OpenSimInfo 建立描述檔並寫入頁首、儀器區段與模擬區段。
// 停用輸出或無法開檔時不做任何事（開檔失敗會記錄警告）。
func (e *Engine) OpenSimInfo() {
	if e.cfg.Disabled || e.sim != nil {
		return
	}
	s := e.newFile(e.InfoFileName(), false)
	if s == nil {
		return
	}
	e.sim = s
	e.simInfoHead(s)
}

// WriteInfo 將描述檔內容（不含偵測器）寫到 w，用於 --info。
func (e *Engine) WriteInfo(w io.Writer) error {
	prev := e.sim
	e.sim = newSink(w, "")
	e.simInfoHead(e.sim)
	err := e.CloseSimInfo()
	e.sim = prev
	return err
}

func (e *Engine) simInfoHead(s *sink) {
	pre := &prefix{}
	root := e.d.Root()
	simname := e.SimPath()
	instr := e.info.Instrument

	e.header(s, false, pre.s, simname, root)
	e.section(s, false, pre, instr, "instrument", root, 1)
	e.infoInstrument(s, pre, instr)
	if e.d.IsMcStas() {
		e.section(s, true, pre, instr, "instrument", root, 1)
	}
	e.section(s, false, pre, simname, "simulation", instr, 2)
	e.infoSimulation(s, pre, simname)
	if e.d.IsMcStas() {
		e.section(s, true, pre, simname, "simulation", instr, 2)
	}
}

// CloseSimInfo 寫入頁尾並關閉描述檔，回傳本次存檔中第一個寫入錯誤。
func (e *Engine) CloseSimInfo() error {
	if s := e.sim; s != nil {
		pre := &prefix{s: "  "}
		simname := e.SimPath()
		if !e.d.IsMcStas() {
			e.section(s, true, pre, simname, "simulation", e.info.Instrument, 2)
			e.section(s, true, pre, e.info.Instrument, "instrument", e.d.Root(), 1)
		}
		e.header(s, true, pre.s, simname, e.d.Root())
		e.closeFile(s)
		e.sim = nil
	}
	err := e.err
	e.err = nil
	return err
}

// Save 完整輸出一次：描述檔加上所有資料區塊。
func (e *Engine) Save(blocks ...Block) error {
	e.OpenSimInfo()
	for i := range blocks {
		e.DetectorOut(blocks[i])
	}
	return e.CloseSimInfo()
}

// HeaderOut 將單一資料區塊的標頭寫到呼叫端提供的 w（不含資料）。
func (e *Engine) HeaderOut(w io.Writer, b Block) error {
	s := newSink(w, "")
	pre := ""
	if e.d.IsMcStas() {
		pre = "# "
	}
	instr := e.info.Instrument
	e.header(s, false, pre, instr, "mcstas")
	e.infoInstrument(s, &prefix{s: pre}, instr)
	b.Counts, b.Sum, b.Sum2 = nil, nil, nil
	e.datablock(s, pre, b.Component, partData, stageFull, &blockCtx{b: &b, single: true})
	e.header(s, true, pre, instr, "mcstas")
	return s.close()
}

func ctime(t time.Time) string { return t.Format(time.ANSIC) }

// header 輸出頁首或頁尾；頁首使用開始時間，頁尾使用目前時間。
func (e *Engine) header(s *sink, footer bool, pre, name, parent string) {
	if s == nil {
		return
	}
	tmpl := e.d.Header
	date := e.start
	if footer {
		tmpl = e.d.Footer
		date = e.cfg.Now()
	}
	if tmpl == "" {
		return
	}
	vparent := "root"
	if parent != "" {
		vparent = format.ValidName(parent)
	}
	s.render(tmpl,
		pre,
		e.info.Instrument+" ("+e.info.Source+")",
		name,
		e.d.Name,
		ctime(date),
		e.cfg.User,
		vparent,
		date.Unix())
}

// tag 輸出一組標籤/值。
func (e *Engine) tag(s *sink, pre, section, name, value string) {
	if s == nil || e.d.AssignTag == "" {
		return
	}
	if e.d.StripQuotes() {
		value = strings.Map(func(r rune) rune {
			if r == '"' || r == '\'' {
				return ' '
			}
			return r
		}, value)
	}
	s.render(e.d.AssignTag, pre, format.ValidName(section), name, value)
}

// section 輸出區段開始或結束；name 為空時略過。
func (e *Engine) section(s *sink, end bool, pre *prefix, name, typ, parent string, level int) {
	if s == nil {
		return
	}
	tmpl := e.d.BeginSection
	if end {
		tmpl = e.d.EndSection
	}
	if tmpl == "" || name == "" {
		return
	}
	vparent := "root"
	if parent != "" {
		vparent = format.ValidName(parent)
	}
	if end {
		pre.outdent()
	}
	s.render(tmpl, pre.s, typ, name, format.ValidName(name), parent, vparent, level)
	if !end {
		pre.indent()
		e.tag(s, pre.s, name, "name", name)
		if parent != "" {
			e.tag(s, pre.s, name, "parent", parent)
		}
	}
}

func yesno(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (e *Engine) infoInstrument(s *sink, pre *prefix, name string) {
	if s == nil {
		return
	}
	var b strings.Builder
	for _, p := range e.info.Params {
		if len(p.Name) > 200 {
			break
		}
		b.WriteString(" " + p.Name + "(" + p.Type + ")")
		if b.Len() > 1024 {
			break
		}
	}
	e.tag(s, pre.s, name, "Parameters", b.String())
	e.tag(s, pre.s, name, "Source", e.info.Source)
	e.tag(s, pre.s, name, "Trace_enabled", yesno(e.info.TraceEnabled))
	e.tag(s, pre.s, name, "Default_main", yesno(e.info.DefaultMain))
	e.tag(s, pre.s, name, "Embedded_runtime", yesno(e.info.Embedded))
}

func (e *Engine) infoSimulation(s *sink, pre *prefix, name string) {
	if s == nil {
		return
	}
	run, ncount := e.cfg.Progress()
	e.tag(s, pre.s, name, "Date", ctime(e.cfg.Now()))
	if run == 0 || run == ncount {
		e.tag(s, pre.s, name, "Ncount", g(ncount))
	} else {
		e.tag(s, pre.s, name, "Ncount", g(run)+"/"+g(ncount))
	}
	e.tag(s, pre.s, name, "Trace", yesno(e.info.Trace))
	e.tag(s, pre.s, name, "Gravitation", yesno(e.info.Gravitation))
	if e.info.Seed != 0 {
		e.tag(s, pre.s, name, "Seed", formatInt(e.info.Seed))
	}
	if e.d.IsMcStas() {
		for _, p := range e.info.Params {
			s.printf("%sParam: %s=%s\n", pre.s, p.Name, p.Value)
		}
		return
	}
	e.section(s, false, pre, "parameters", "parameters", name, 3)
	for _, p := range e.info.Params {
		e.tag(s, pre.s, "parameters", p.Name, p.Value)
	}
	e.section(s, true, pre, "parameters", "parameters", name, 3)
}
