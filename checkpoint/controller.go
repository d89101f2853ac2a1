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

// Package checkpoint 實作執行中的中斷控制：回報進度、存檔後續跑、存檔結束與立即中止。
//
// 請求可由任何 goroutine 送出（訊號轉發、HTTP 監控），除 Abort 外都只在試驗之間的
// 安全點由 Check 處理，不會打斷進行中的試驗。
package checkpoint

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/logger"
)

// 結束碼。
const (
	ExitAbort = 255
	ExitFatal = 137
)

// State 為控制器狀態。
type State uint32

const (
	Running State = iota
	Saving
	Terminating
	Aborting
)

func (s State) String() string {
	switch s {
	case Saving:
		return "saving"
	case Terminating:
		return "terminating"
	case Aborting:
		return "aborting"
	}
	return "running"
}

// Request 為中斷請求種類。
type Request uint8

const (
	Report Request = iota + 1
	Save
	Terminate
	Abort
)

func (r Request) String() string {
	switch r {
	case Report:
		return "report"
	case Save:
		return "save"
	case Terminate:
		return "terminate"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// ParseRequest 解析 report/save/terminate/abort。
func ParseRequest(s string) (Request, error) {
	for _, r := range []Request{Report, Save, Terminate, Abort} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, errs.Warnf("unknown checkpoint request %q", s)
}

// Post 為一筆請求與其來源描述（例如 "Signal 10 SIGUSR1 (Display info)"）。
type Post struct {
	Req    Request
	Origin string
}

// Status 為橫幅中顯示的執行狀態。
type Status struct {
	Instrument string
	Source     string
	Run        float64
	NCount     float64
}

// Config 為控制器設定；零值欄位使用預設值。
type Config struct {
	Out    io.Writer
	Logger *slog.Logger
	Now    func() time.Time
	// Exit 預設為 os.Exit，測試時可替換。
	Exit   func(code int)
	Queue  int
	Status func() Status
	// Save 在 Save 請求時於安全點呼叫。
	Save func() error
}

// Controller 管理中斷請求佇列與狀態轉換。
type Controller struct {
	cfg Config
	log *slog.Logger
	pid int

	state    atomic.Uint32
	pending  atomic.Int32
	handling atomic.Bool
	queue    chan Post
	stage    atomic.Value
	outMu    sync.Mutex
}

func New(cfg Config) *Controller {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	if cfg.Queue <= 0 {
		cfg.Queue = 16
	}
	if cfg.Status == nil {
		cfg.Status = func() Status { return Status{} }
	}
	lg := cfg.Logger
	if lg == nil {
		lg = logger.Discard()
	}
	c := &Controller{cfg: cfg, log: lg, pid: os.Getpid(), queue: make(chan Post, cfg.Queue)}
	c.stage.Store("main (Start)")
	return c
}

// State 回傳目前狀態。
func (c *Controller) State() State { return State(c.state.Load()) }

// Pending 回傳尚未處理的請求數。
func (c *Controller) Pending() int { return int(c.pending.Load()) }

// SetBreakpoint 記錄目前執行位置，顯示於橫幅。
func (c *Controller) SetBreakpoint(where string) { c.stage.Store(where) }

// Breakpoint 回傳目前執行位置。
func (c *Controller) Breakpoint() string { return c.stage.Load().(string) }

// Post 送出請求。Abort 在呼叫端 goroutine 立即處理；其餘排入佇列，佇列滿時回傳警告。
func (c *Controller) Post(p Post) error {
	if p.Req == Abort {
		c.abort(p)
		return errs.New(errs.Fatal, "simulation aborted").WithKind(errs.KindInterrupt)
	}
	select {
	case c.queue <- p:
		c.pending.Add(1)
		return nil
	default:
		c.log.Warn("checkpoint queue full, request dropped", "req", p.Req.String(), "origin", p.Origin)
		return errs.Warnf("checkpoint queue full: %s dropped", p.Req).WithKind(errs.KindInterrupt)
	}
}

// Check 於安全點處理所有排隊中的請求；回傳 stop=true 代表應結束迴圈並正常收尾。
func (c *Controller) Check() (stop bool) {
	if c.pending.Load() == 0 {
		return false
	}
	for {
		select {
		case p := <-c.queue:
			c.pending.Add(-1)
			if c.serve(p) {
				return true
			}
		default:
			return false
		}
	}
}

func (c *Controller) serve(p Post) (stop bool) {
	// report/save 在其他請求處理中仍照常執行，只有結束類請求視為無法恢復
	if c.handling.CompareAndSwap(false, true) {
		defer c.handling.Store(false)
	} else if p.Req != Report && p.Req != Save {
		c.fatal(p)
		return true
	}

	c.banner(p)
	c.log.Info("checkpoint request", "req", p.Req.String(), "origin", p.Origin, "breakpoint", c.Breakpoint())
	switch p.Req {
	case Report:
		c.printf("# neutrace: Resuming simulation (continue)\n")
	case Save:
		c.state.CompareAndSwap(uint32(Running), uint32(Saving))
		c.printf("# neutrace: Saving data and resume simulation (continue)\n")
		if c.cfg.Save != nil {
			if err := c.cfg.Save(); err != nil {
				c.log.Warn("checkpoint save failed", "err", err)
			}
		}
		c.state.CompareAndSwap(uint32(Saving), uint32(Running))
	case Terminate:
		c.state.Store(uint32(Terminating))
		c.printf("# neutrace: Finishing simulation (save results and exit)\n")
		return true
	}
	return false
}

func (c *Controller) abort(p Post) {
	if !c.handling.CompareAndSwap(false, true) {
		c.fatal(p)
		return
	}
	defer c.handling.Store(false)
	c.state.Store(uint32(Aborting))
	c.banner(p)
	c.log.Error("simulation aborted", "origin", p.Origin, "breakpoint", c.Breakpoint())
	c.printf("# neutrace: Simulation stop (abort)\n")
	c.cfg.Exit(ExitAbort)
}

// fatal 處理在請求處理中又收到的 terminate/abort：不做任何收尾直接結束。
func (c *Controller) fatal(p Post) {
	c.state.Store(uint32(Aborting))
	c.printf("\n# neutrace: [pid %d] %s detected\n# Fatal : unrecoverable loop while handling an interruption\n", c.pid, p.Origin)
	c.log.Error("re-entrant interruption", "req", p.Req.String(), "origin", p.Origin)
	c.cfg.Exit(ExitFatal)
}

func (c *Controller) banner(p Post) {
	st := c.cfg.Status()
	progress := "(0 %)"
	if st.NCount != 0 {
		progress = fmt.Sprintf("%.2f %% (%10.1f/%10.1f)", 100*st.Run/st.NCount, st.Run, st.NCount)
	}
	c.printf("\n# neutrace: [pid %d] %s detected\n"+
		"# Simulation: %s (%s) \n"+
		"# Breakpoint: %s %s\n"+
		"# Date      : %s\n",
		c.pid, p.Origin, st.Instrument, st.Source, c.Breakpoint(), progress, c.cfg.Now().Format(time.ANSIC))
}

func (c *Controller) printf(format string, a ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintf(c.cfg.Out, format, a...)
}
