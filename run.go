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

package neutrace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/neutrace/checkpoint"
	"github.com/zintix-labs/neutrace/config"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/logger"
	"github.com/zintix-labs/neutrace/output"
	"github.com/zintix-labs/neutrace/sdk/geom"
	"github.com/zintix-labs/neutrace/sdk/particle"
	"github.com/zintix-labs/neutrace/sdk/rng"
	"github.com/zintix-labs/neutrace/stats"
)

// Gravity 為開啟重力時使用的加速度（m/s^2，-y 方向）。
var Gravity = geom.NewCoords(0, -9.81, 0)

// defaultPublishEvery 為發布偵測器摘要的試驗間隔。
const defaultPublishEvery int64 = 1 << 14

// Options 為 Run 的執行環境；零值欄位使用預設值。
type Options struct {
	// Out 為偵測器摘要行與中斷橫幅的輸出（預設 os.Stdout）。
	Out    io.Writer
	Logger *slog.Logger
	Now    func() time.Time
	// Exit 傳給 checkpoint 控制器（預設 os.Exit）。
	Exit func(code int)
	// StatePath 非空時，每次存檔同時寫入續跑狀態檔。
	StatePath string
	// PublishEvery 為發布摘要給監控端的試驗間隔。
	PublishEvery int64
	// ProgressOut 為進度條輸出（預設 os.Stderr），僅在設定開啟進度條時使用。
	ProgressOut io.Writer
}

// Progress 為監控端讀取的執行進度。
type Progress struct {
	Instrument string  `json:"instrument"`
	State      string  `json:"state"`
	Breakpoint string  `json:"breakpoint"`
	Run        int64   `json:"run"`
	NCount     int64   `json:"ncount"`
	Pending    int     `json:"pending"`
	Elapsed    float64 `json:"elapsed_sec"`
	Done       bool    `json:"done"`
}

// Run 為一次模擬的執行上下文，取代全域狀態。
// 試驗迴圈本身是單執行緒；Progress、Report、Post 可由其他 goroutine 呼叫。
type Run struct {
	cfg    *config.RunConfig
	res    config.Resolved
	opt    Options
	instr  Instrument
	info   Info
	params *config.Params
	log    *slog.Logger

	seed    int64
	seedSet bool
	rng     *rng.Stream
	gravity geom.Coords
	bank    *particle.Bank

	detectors []*stats.Histogram
	engine    *output.Engine
	ctrl      *checkpoint.Controller

	ncount  int64
	run     atomic.Int64
	started atomic.Int64
	done    atomic.Bool
	pub     atomic.Pointer[stats.RunReport]
}

// New 驗證設定、解析參數、建立亂數串流與輸出引擎，最後呼叫 instr.Init。
func New(instr Instrument, cfg *config.RunConfig, opt Options) (*Run, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	res, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if opt.Out == nil {
		opt.Out = os.Stdout
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Logger == nil {
		opt.Logger = logger.Discard()
	}
	if opt.PublishEvery <= 0 {
		opt.PublishEvery = defaultPublishEvery
	}
	if opt.ProgressOut == nil {
		opt.ProgressOut = os.Stderr
	}

	info := instr.Info()
	params := config.NewParams(info.Params...)
	if err := params.Apply(cfg.Params); err != nil {
		return nil, err
	}
	if err := params.Check(); err != nil {
		return nil, err
	}

	r := &Run{
		cfg:    cfg,
		res:    res,
		opt:    opt,
		instr:  instr,
		info:   info,
		params: params,
		log:    opt.Logger.With("instrument", info.Name),
		bank:   particle.NewBank(0),
		ncount: cfg.NCount,
	}
	if cfg.Seed != nil {
		r.seed, r.seedSet = *cfg.Seed, true
	} else {
		r.seed = timeSeed(opt.Now())
	}
	r.rng = rng.New(res.RNG, uint32(r.seed))
	if cfg.Gravitation {
		r.gravity = Gravity
	}

	ocfg := cfg.OutputConfig(res)
	ocfg.Out = opt.Out
	ocfg.Logger = r.log
	ocfg.Now = opt.Now
	ocfg.Progress = func() (float64, float64) {
		return float64(r.run.Load()), float64(r.ncount)
	}
	r.engine = output.New(res.Dialect, ocfg, r.simInfo())

	r.ctrl = checkpoint.New(checkpoint.Config{
		Out:    opt.Out,
		Logger: r.log,
		Now:    opt.Now,
		Exit:   opt.Exit,
		Status: r.status,
		Save:   r.Save,
	})

	if err := instr.Init(r); err != nil {
		return nil, errs.Wrap(err, "instrument init failed")
	}
	r.publish()
	return r, nil
}

// timeSeed 以時間產生非零種子。
func timeSeed(t time.Time) int64 {
	s := int64(uint32(t.Unix()) ^ uint32(t.Nanosecond()))
	if s == 0 {
		s = 1
	}
	return s
}

func (r *Run) simInfo() output.SimInfo {
	si := output.SimInfo{
		Instrument:   r.info.Name,
		Source:       r.info.Source,
		Params:       r.params.Table(),
		TraceEnabled: r.info.TraceEnabled,
		DefaultMain:  r.info.DefaultMain,
		Embedded:     r.info.Embedded,
		Trace:        r.cfg.Trace,
		Gravitation:  r.cfg.Gravitation,
	}
	if r.seedSet {
		si.Seed = r.seed
	}
	return si
}

func (r *Run) status() checkpoint.Status {
	return checkpoint.Status{
		Instrument: r.info.Name,
		Source:     r.info.Source,
		Run:        float64(r.run.Load()),
		NCount:     float64(r.ncount),
	}
}

// ============================================================
// ** 儀器使用的存取方法 **
// ============================================================

// Monitor 註冊偵測器並回傳同一個指標。
func (r *Run) Monitor(h *stats.Histogram) *stats.Histogram {
	r.detectors = append(r.detectors, h)
	return h
}

// Detectors 回傳已註冊的偵測器。
func (r *Run) Detectors() []*stats.Histogram { return r.detectors }

func (r *Run) RNG() *rng.Stream                   { return r.rng }
func (r *Run) Params() *config.Params             { return r.params }
func (r *Run) Bank() *particle.Bank               { return r.bank }
func (r *Run) Gravity() geom.Coords               { return r.gravity }
func (r *Run) Tracing() bool                      { return r.cfg.Trace }
func (r *Run) Logger() *slog.Logger               { return r.log }
func (r *Run) Engine() *output.Engine             { return r.engine }
func (r *Run) Controller() *checkpoint.Controller { return r.ctrl }

// Seed 回傳實際使用的種子。
func (r *Run) Seed() int64 { return r.seed }

// Completed 回傳已完成的試驗數。
func (r *Run) Completed() int64 { return r.run.Load() }

// Breakpoint 記錄目前所在位置，供中斷橫幅顯示。
func (r *Run) Breakpoint(where string) { r.ctrl.SetBreakpoint(where) }

// ============================================================
// ** 執行 **
// ============================================================

// Execute 執行試驗迴圈直到完成、被終止或 ctx 取消，接著呼叫 Finally。
// ctx 取消等同於收到 Terminate 請求。
func (r *Run) Execute(ctx context.Context) (*stats.RunReport, error) {
	r.started.Store(r.opt.Now().UnixNano())
	remain := r.ncount - r.run.Load()
	if remain < 0 {
		remain = 0
	}
	bar := pb.New64(remain)
	if !r.cfg.Progress {
		bar.SetWriter(io.Discard)
	} else {
		bar.SetWriter(r.opt.ProgressOut)
	}
	bar.Start()

	r.ctrl.SetBreakpoint("main (Trace)")
	canceled := false
	for r.run.Load() < r.ncount {
		if !canceled && ctx.Err() != nil {
			canceled = true
			_ = r.ctrl.Post(checkpoint.Post{Req: checkpoint.Terminate, Origin: "context canceled"})
		}
		p := particle.Default()
		if err := r.instr.Trace(r, &p); err != nil {
			bar.Finish()
			return nil, errs.Wrap(err, "trace failed")
		}
		n := r.run.Add(1)
		bar.Increment()
		if n%r.opt.PublishEvery == 0 {
			r.publish()
		}
		if r.ctrl.Check() {
			break
		}
	}
	bar.Finish()
	r.ctrl.SetBreakpoint("main (End)")
	return r.Finally()
}

// Finally 呼叫儀器的 Finalizer、做最後一次存檔並回傳報告。
func (r *Run) Finally() (*stats.RunReport, error) {
	var ferr error
	if f, ok := r.instr.(Finalizer); ok {
		ferr = f.Finally(r)
	}
	err := errors.Join(ferr, r.Save())
	r.done.Store(true)
	rep := r.publish()
	return rep, err
}

// Save 將描述檔與所有偵測器輸出一次；設定 StatePath 時一併寫入續跑狀態。
// 可重複呼叫，每次都覆寫前一次的內容。
func (r *Run) Save() error {
	blocks := make([]output.Block, 0, len(r.detectors))
	for _, h := range r.detectors {
		blocks = append(blocks, output.FromHistogram(h))
	}
	err := r.engine.Save(blocks...)
	if r.opt.StatePath != "" {
		snap, serr := r.Snapshot()
		if serr == nil {
			serr = checkpoint.WriteFile(r.opt.StatePath, snap)
		}
		if serr != nil {
			r.log.Warn("could not write checkpoint state", "path", r.opt.StatePath, "err", serr)
			err = errors.Join(err, serr)
		}
	}
	r.publish()
	return err
}

// WriteInfo 將描述檔內容輸出到 w（不執行模擬）。
func (r *Run) WriteInfo(w io.Writer) error { return r.engine.WriteInfo(w) }

// Post 轉送中斷請求給控制器。
func (r *Run) Post(p checkpoint.Post) error { return r.ctrl.Post(p) }

// ============================================================
// ** 監控端讀取 **
// ============================================================

// Report 回傳最近一次發布的摘要（不可修改）。
func (r *Run) Report() *stats.RunReport { return r.pub.Load() }

// Progress 回傳目前進度。
func (r *Run) Progress() Progress {
	p := Progress{
		Instrument: r.info.Name,
		State:      r.ctrl.State().String(),
		Breakpoint: r.ctrl.Breakpoint(),
		Run:        r.run.Load(),
		NCount:     r.ncount,
		Pending:    r.ctrl.Pending(),
		Done:       r.done.Load(),
	}
	if st := r.started.Load(); st != 0 {
		p.Elapsed = r.opt.Now().Sub(time.Unix(0, st)).Seconds()
	}
	return p
}

// Elapsed 回傳自 Execute 開始的時間。
func (r *Run) Elapsed() time.Duration {
	st := r.started.Load()
	if st == 0 {
		return 0
	}
	return r.opt.Now().Sub(time.Unix(0, st))
}

// publish 僅在試驗迴圈的 goroutine 上呼叫。
func (r *Run) publish() *stats.RunReport {
	rep := &stats.RunReport{
		Instrument: r.info.Name,
		Generator:  r.res.RNG.String(),
		Seed:       r.seed,
		Requested:  r.ncount,
		Completed:  r.run.Load(),
		Detectors:  make([]stats.Summary, 0, len(r.detectors)),
	}
	for _, h := range r.detectors {
		rep.Detectors = append(rep.Detectors, h.Summarize())
	}
	r.pub.Store(rep)
	return rep
}
