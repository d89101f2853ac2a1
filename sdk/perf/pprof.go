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

// Package perf 以 runtime/pprof 包裝一次模擬執行，輸出 cpu/heap/allocs profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/neutrace/errs"
)

// DefaultDir 為 profile 預設寫入目錄。
const DefaultDir = "build/profiling"

// Modes 為支援的 profile 種類。
var Modes = []string{"cpu", "heap", "allocs"}

// Valid 回傳 mode 是否可用；空字串代表不做 profiling。
func Valid(mode string) bool {
	if mode == "" {
		return true
	}
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Run 依 mode 執行 exe 並把 profile 寫到 dir/<mode>.pprof；mode 為空時只執行 exe。
// 回傳 exe 的錯誤，profile 寫入失敗時回傳 Resource 錯誤。
func Run(dir, mode string, exe func() error) error {
	if !Valid(mode) {
		return errs.Configf("unknown pprof mode %q", mode)
	}
	if mode == "" {
		return exe()
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Resourcef("create profiling dir %s: %v", dir, err)
	}
	path := filepath.Join(dir, mode+".pprof")

	if mode == "cpu" {
		return cpu(path, exe)
	}
	runErr := exe()
	if mode == "heap" {
		// 讓快照只含存活物件
		runtime.GC()
	}
	if err := writeProfile(path, mode); err != nil {
		return err
	}
	return runErr
}

func cpu(path string, exe func() error) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Resourcef("create %s: %v", path, err)
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Resourcef("start cpu profile: %v", err)
	}
	defer pprof.StopCPUProfile()
	return exe()
}

func writeProfile(path, name string) error {
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.Resourcef("profile %s not available", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Resourcef("create %s: %v", path, err)
	}
	defer f.Close()
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Resourcef("write %s profile: %v", name, err)
	}
	return nil
}
