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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/zintix-labs/neutrace"
	"github.com/zintix-labs/neutrace/config"
	"github.com/zintix-labs/neutrace/demo"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/logger"
	"github.com/zintix-labs/neutrace/sdk/perf"
	"github.com/zintix-labs/neutrace/server"
	"github.com/zintix-labs/neutrace/server/svrcfg"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type options struct {
	configPath string
	ncount     int64
	seed       int64
	dir        string
	file       string
	format     string
	dataOnly   bool
	noOutput   bool
	gravity    bool
	trace      bool
	generator  string
	compress   string
	progress   bool
	monitor    string
	logMode    string
	info       bool
	state      string
	resume     string
	pprofMode  string
	pprofDir   string
	params     []string

	set map[string]bool
}

func (o *options) given(names ...string) bool {
	for _, n := range names {
		if o.set[n] {
			return true
		}
	}
	return false
}

// countValue 接受 1e6 之類的浮點寫法，但值必須是正整數。
type countValue int64

func (v *countValue) String() string { return strconv.FormatInt(int64(*v), 10) }

func (v *countValue) Set(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if f < 1 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return fmt.Errorf("must be a positive integer")
	}
	*v = countValue(f)
	return nil
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	o := &options{ncount: config.DefaultNCount, set: map[string]bool{}}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.configPath, "config", "", "run config file (yaml, json, ini); default is the embedded demo config")
	for _, n := range []string{"n", "ncount"} {
		fs.Var((*countValue)(&o.ncount), n, "number of trials (1e6 accepted)")
	}
	for _, n := range []string{"s", "seed"} {
		fs.Int64Var(&o.seed, n, 0, "random seed (non-zero)")
	}
	for _, n := range []string{"d", "dir"} {
		fs.StringVar(&o.dir, n, "", "output directory (must not exist)")
	}
	for _, n := range []string{"f", "file"} {
		fs.StringVar(&o.file, n, "", "write all detectors into this single file")
	}
	fs.StringVar(&o.format, "format", "", "output format: McStas, Scilab, Matlab, IDL, Python, XML (append _binary or _float for binary data)")
	for _, n := range []string{"a", "data-only"} {
		fs.BoolVar(&o.dataOnly, n, false, "data files without text headers")
	}
	fs.BoolVar(&o.noOutput, "no-output-files", false, "do not write any data files")
	for _, n := range []string{"g", "gravitation"} {
		fs.BoolVar(&o.gravity, n, false, "enable gravitation")
	}
	for _, n := range []string{"t", "trace"} {
		fs.BoolVar(&o.trace, n, false, "enable trace mode")
	}
	fs.StringVar(&o.generator, "gen", "", "random generator: lagged, mt")
	fs.StringVar(&o.compress, "compress", "", "data file compression: none, gzip, zstd")
	fs.BoolVar(&o.progress, "progress", false, "show progress bar")
	fs.StringVar(&o.monitor, "monitor", "", "serve the HTTP run monitor on this address")
	fs.StringVar(&o.logMode, "log", "", "log mode: dev, prod, silence")
	for _, n := range []string{"i", "info"} {
		fs.BoolVar(&o.info, n, false, "print the simulation description and exit")
	}
	fs.StringVar(&o.state, "state", "", "write resumable checkpoint state to this file on every save")
	fs.StringVar(&o.resume, "resume", "", "resume from a checkpoint state file")
	fs.StringVar(&o.pprofMode, "p", "", "pprof: '', cpu, heap, allocs")
	fs.StringVar(&o.pprofDir, "pprof-dir", perf.DefaultDir, "pprof output directory")

	if err := fs.Parse(args); err != nil {
		return nil, errs.Configf("%v", err)
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.params = fs.Args()
	return o, nil
}

// apply 只覆寫命令列明確指定的欄位。
func (o *options) apply(c *config.RunConfig) error {
	if o.given("n", "ncount") {
		c.NCount = o.ncount
	}
	if o.given("s", "seed") {
		seed := o.seed
		c.Seed = &seed
	}
	if o.given("d", "dir") {
		c.Dir = o.dir
	}
	if o.given("f", "file") {
		c.File = o.file
	}
	if o.given("format") {
		c.Format = o.format
	}
	if o.given("a", "data-only") {
		c.DataOnly = o.dataOnly
	}
	if o.given("no-output-files") {
		c.NoOutputFiles = o.noOutput
	}
	if o.given("g", "gravitation") {
		c.Gravitation = o.gravity
	}
	if o.given("t", "trace") {
		c.Trace = o.trace
	}
	if o.given("gen") {
		c.Generator = o.generator
	}
	if o.given("compress") {
		c.Compress = o.compress
	}
	if o.given("progress") {
		c.Progress = o.progress
	}
	if o.given("monitor") {
		c.Monitor = o.monitor
	}
	if o.given("log") {
		c.Log = o.logMode
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	for _, kv := range o.params {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return errs.Configf("invalid instrument parameter %q (expected name=value)", kv)
		}
		c.Params[name] = val
	}
	return nil
}

func loadConfig(o *options) (*config.RunConfig, error) {
	var c *config.RunConfig
	var err error
	if o.configPath != "" {
		c, err = config.Load(o.configPath)
	} else {
		c, err = demo.Config()
	}
	if err != nil {
		return nil, err
	}
	return c, o.apply(c)
}

// realMain 回傳結束碼：設定錯誤為 1。
func realMain(args []string, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return 1
	}
	err = perf.Run(o.pprofDir, o.pprofMode, func() error {
		return execute(o, stdout, stderr)
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func execute(o *options, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	mode, err := logger.ParseMode(cfg.Log)
	if err != nil {
		return err
	}
	var log *slog.Logger
	if cfg.Monitor != "" {
		ah := logger.NewAsyncHandler(logger.Handler(mode, stderr), 1024)
		defer ah.Close()
		log = slog.New(ah)
	} else {
		log = slog.New(logger.Handler(mode, stderr))
	}

	opt := neutrace.Options{Out: stdout, Logger: log, StatePath: o.state, ProgressOut: stderr}
	if o.info {
		cfg.NoOutputFiles = true
		r, err := demo.New(cfg, opt)
		if err != nil {
			return err
		}
		return r.WriteInfo(stdout)
	}

	if err := prepareDir(cfg, o.resume != ""); err != nil {
		return err
	}
	r, err := demo.New(cfg, opt)
	if err != nil {
		return err
	}
	if o.resume != "" {
		if err := r.Resume(o.resume); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := watchSignals(r, log)
	defer stop()

	if cfg.Monitor != "" {
		go func() {
			scfg := &svrcfg.SvrCfg{Log: log, Addr: cfg.Monitor, Run: r}
			if err := server.Run(ctx, scfg); err != nil {
				log.Error("monitor stopped", "err", err)
			}
		}()
	}

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "%s[INSTRUMENT:%s] [NCOUNT:%d] [SEED:%d] [GEN:%s] [FORMAT:%s]%s\n",
		green, r.Progress().Instrument, cfg.NCount, r.Seed(), r.RNG().Kind(), r.Engine().Dialect().Name, reset)

	rep, err := r.Execute(ctx)
	if rep != nil {
		rep.StdOut(stdout, r.Elapsed())
	}
	return err
}

// prepareDir 建立輸出目錄；續跑時允許沿用既有目錄。
func prepareDir(c *config.RunConfig, resuming bool) error {
	if resuming && c.Dir != "" {
		if st, err := os.Stat(c.Dir); err == nil && st.IsDir() {
			return nil
		}
	}
	return c.PrepareDir()
}
