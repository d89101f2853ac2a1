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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/neutrace/errs"
)

// Compression 為資料檔的壓縮方式。
type Compression uint8

const (
	CompressNone Compression = iota
	CompressGzip
	CompressZstd
)

// ParseCompression 解析設定字串；空字串與 "none" 代表不壓縮。
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressNone, nil
	case "gzip", "gz":
		return CompressGzip, nil
	case "zstd", "zst":
		return CompressZstd, nil
	}
	return CompressNone, errs.Configf("unknown compression: %q", s)
}

// Suffix 回傳壓縮檔附加的副檔名。
func (c Compression) Suffix() string {
	switch c {
	case CompressGzip:
		return ".gz"
	case CompressZstd:
		return ".zst"
	}
	return ""
}

// sink 為一個輸出串流；記住第一個寫入錯誤，之後的寫入全部忽略。
type sink struct {
	path    string
	bw      *bufio.Writer
	closers []io.Closer
	err     error
}

func newSink(w io.Writer, path string) *sink {
	return &sink{path: path, bw: bufio.NewWriter(w)}
}

func openSink(path string, appendMode bool, c Compression) (*sink, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	s := &sink{path: path}
	var w io.Writer = f
	switch c {
	case CompressGzip:
		gz := gzip.NewWriter(f)
		w = gz
		s.closers = append(s.closers, gz)
	case CompressZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		w = zw
		s.closers = append(s.closers, zw)
	}
	s.closers = append(s.closers, f)
	s.bw = bufio.NewWriter(w)
	return s, nil
}

func (s *sink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.bw.Write(p)
	s.err = err
	return n, err
}

func (s *sink) str(v string) {
	if s.err != nil {
		return
	}
	_, s.err = s.bw.WriteString(v)
}

func (s *sink) printf(format string, a ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.bw, format, a...)
}

// render 以方言樣板輸出；空樣板略過，未使用索引參數的樣板原樣寫出。
func (s *sink) render(tmpl string, args ...any) {
	if tmpl == "" {
		return
	}
	if !strings.Contains(tmpl, "%[") {
		s.str(strings.ReplaceAll(tmpl, "%%", "%"))
		return
	}
	s.printf(tmpl, args...)
}

// close 依序 flush 並關閉所有層；回傳第一個錯誤。
func (s *sink) close() error {
	err := s.err
	if ferr := s.bw.Flush(); err == nil {
		err = ferr
	}
	for _, c := range s.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	s.closers = nil
	return err
}

// g 等同 C 的 %g；非有限值依 C 寫成 nan、inf、-inf。
func g(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

// prefix 為各區段共用的縮排字串，開始區段後加兩格、結束區段前減兩格。
type prefix struct{ s string }

func (p *prefix) indent() { p.s += "  " }

func (p *prefix) outdent() {
	if len(p.s) <= 2 {
		p.s = ""
		return
	}
	p.s = p.s[:len(p.s)-2]
}
