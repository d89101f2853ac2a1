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

// Package config 載入與驗證一次模擬執行的設定。
//
// 支援 YAML（未知欄位視為錯誤）、JSON 與 INI（gcfg）三種格式；
// 命令列旗標在載入後覆寫檔案中的值。
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/format"
	"github.com/zintix-labs/neutrace/output"
	"github.com/zintix-labs/neutrace/sdk/rng"
	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"
)

// DefaultNCount 為未指定時的試驗次數。
const DefaultNCount int64 = 1_000_000

// RunConfig 為一次執行的完整設定。
type RunConfig struct {
	// Seed 為 nil 代表未指定（由時間產生，描述檔不輸出 Seed）；指定時不得為 0。
	Seed          *int64            `yaml:"seed,omitempty" json:"seed,omitempty"`
	NCount        int64             `yaml:"ncount" json:"ncount"`
	Dir           string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	File          string            `yaml:"file,omitempty" json:"file,omitempty"`
	Format        string            `yaml:"format,omitempty" json:"format,omitempty"`
	DataOnly      bool              `yaml:"data_only,omitempty" json:"data_only,omitempty"`
	NoOutputFiles bool              `yaml:"no_output_files,omitempty" json:"no_output_files,omitempty"`
	Gravitation   bool              `yaml:"gravitation,omitempty" json:"gravitation,omitempty"`
	Trace         bool              `yaml:"trace,omitempty" json:"trace,omitempty"`
	Generator     string            `yaml:"generator,omitempty" json:"generator,omitempty"`
	Compress      string            `yaml:"compress,omitempty" json:"compress,omitempty"`
	Progress      bool              `yaml:"progress,omitempty" json:"progress,omitempty"`
	Monitor       string            `yaml:"monitor,omitempty" json:"monitor,omitempty"`
	Log           string            `yaml:"log,omitempty" json:"log,omitempty"`
	Params        map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Default 回傳預設設定。
func Default() *RunConfig {
	return &RunConfig{
		NCount:    DefaultNCount,
		Format:    "McStas",
		Generator: "lagged",
		Params:    map[string]string{},
	}
}

// Resolved 為驗證後可直接使用的設定值。
type Resolved struct {
	Dialect  format.Dialect
	RNG      rng.Kind
	Compress output.Compression
}

// Validate 檢查設定並解析方言、亂數產生器與壓縮方式；錯誤皆為致命設定錯誤。
func (c *RunConfig) Validate() (Resolved, error) {
	var r Resolved
	// 產生器只取種子的低 32 位元
	if c.Seed != nil && uint32(*c.Seed) == 0 {
		return r, errs.Configf("seed must be non-zero modulo 2^32, got %d", *c.Seed)
	}
	if c.NCount <= 0 {
		return r, errs.Configf("ncount must be > 0, got %d", c.NCount)
	}
	d, err := format.Use(c.Format, c.DataOnly)
	if err != nil {
		return r, err
	}
	k, err := rng.ParseKind(c.Generator)
	if err != nil {
		return r, err
	}
	cp, err := output.ParseCompression(c.Compress)
	if err != nil {
		return r, err
	}
	r.Dialect, r.RNG, r.Compress = d, k, cp
	return r, nil
}

// SingleFile 回傳是否將所有區塊寫入描述檔（指定 file 時）。
func (c *RunConfig) SingleFile() bool { return c.File != "" }

// SimName 回傳描述檔基礎名稱。
func (c *RunConfig) SimName() string {
	if c.File != "" {
		return c.File
	}
	return output.DefaultSimName
}

// OutputConfig 依設定建立輸出引擎設定（其餘欄位由呼叫端補上）。
func (c *RunConfig) OutputConfig(r Resolved) output.Config {
	return output.Config{
		Dir:        c.Dir,
		SimName:    c.SimName(),
		SingleFile: c.SingleFile(),
		Disabled:   c.NoOutputFiles,
		Compress:   r.Compress,
	}
}

// PrepareDir 建立輸出目錄；目錄已存在視為錯誤，避免覆寫先前的結果。
func (c *RunConfig) PrepareDir() error {
	if c.Dir == "" || c.NoOutputFiles {
		return nil
	}
	if err := os.Mkdir(c.Dir, 0o777); err != nil {
		return errs.Configf("unable to create directory '%s' (maybe the directory already exists?): %v", c.Dir, err)
	}
	return nil
}

// Load 依副檔名讀取設定檔並套用到預設值上。
func Load(path string) (*RunConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configf("read config %s: %v", path, err)
	}
	return Parse(b, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// Parse 以指定格式（yaml、yml、json、ini、cfg）解析設定內容。
func Parse(b []byte, kind string) (*RunConfig, error) {
	c := Default()
	switch kind {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, errs.Configf("yaml config: %v", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return nil, errs.Configf("json config: %v", err)
		}
	case "ini", "cfg", "gcfg":
		if err := parseINI(b, c); err != nil {
			return nil, err
		}
	default:
		return nil, errs.Configf("unsupported config format %q", kind)
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	return c, nil
}

// iniFile 為 INI 設定的結構：[run] 區段與每個參數一個 [param "name"] 子區段。
type iniFile struct {
	Run struct {
		Seed          int64
		Ncount        int64
		Dir           string
		File          string
		Format        string
		DataOnly      bool `gcfg:"data-only"`
		NoOutputFiles bool `gcfg:"no-output-files"`
		Gravitation   bool
		Trace         bool
		Generator     string
		Compress      string
		Progress      bool
		Monitor       string
		Log           string
	}
	Param map[string]*struct {
		Value string
	}
}

func parseINI(b []byte, c *RunConfig) error {
	var f iniFile
	f.Run.Ncount = c.NCount
	f.Run.Format = c.Format
	f.Run.Generator = c.Generator
	if err := gcfg.ReadStringInto(&f, string(b)); err != nil {
		return errs.Configf("ini config: %v", err)
	}
	r := f.Run
	if r.Seed != 0 {
		seed := r.Seed
		c.Seed = &seed
	}
	c.NCount = r.Ncount
	c.Dir, c.File, c.Format = r.Dir, r.File, r.Format
	c.DataOnly, c.NoOutputFiles = r.DataOnly, r.NoOutputFiles
	c.Gravitation, c.Trace = r.Gravitation, r.Trace
	c.Generator, c.Compress = r.Generator, r.Compress
	c.Progress, c.Monitor, c.Log = r.Progress, r.Monitor, r.Log
	c.Params = make(map[string]string, len(f.Param))
	for name, p := range f.Param {
		if p != nil {
			c.Params[name] = p.Value
		}
	}
	return nil
}
