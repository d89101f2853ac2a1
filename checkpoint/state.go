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

package checkpoint

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/stats"
)

// SnapshotVersion 為目前的狀態檔版本。
const SnapshotVersion = 1

// MaxSnapshotBytes 為讀取狀態檔時允許的最大壓縮後長度。
const MaxSnapshotBytes = 1 << 30

var magic = []byte("NTCK")

// Snapshot 為續跑所需的完整狀態：計數、亂數產生器內部狀態、偵測器累積值與儀器自訂狀態。
type Snapshot struct {
	Version    int                `json:"version"`
	Instrument string             `json:"instrument"`
	Seed       int64              `json:"seed"`
	SeedSet    bool               `json:"seed_set"`
	Run        int64              `json:"run"`
	NCount     int64              `json:"ncount"`
	Generator  string             `json:"generator"`
	RNG        []byte             `json:"rng"`
	Params     map[string]string  `json:"params,omitempty"`
	Detectors  []*stats.Histogram `json:"detectors"`
	State      []byte             `json:"state,omitempty"`
	SavedAt    time.Time          `json:"saved_at"`
}

// Encode 將狀態編碼為 magic || uvarint(len) || zstd(json)。
func Encode(s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errs.Wrap(err, "marshal snapshot failed")
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errs.Wrap(err, "zstd encoder")
	}
	payload := enc.EncodeAll(raw, nil)
	_ = enc.Close()

	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))
	out := make([]byte, 0, len(magic)+n+len(payload))
	out = append(out, magic...)
	out = append(out, hdr[:n]...)
	return append(out, payload...), nil
}

// Read 自 r 讀取一個狀態框；maxBytes 限制壓縮後長度。
func Read(r io.Reader, maxBytes uint64) (*Snapshot, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, errs.Wrap(err, "read snapshot header failed")
	}
	if !bytes.Equal(head, magic) {
		return nil, errs.NewWarn("not a checkpoint file")
	}
	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errs.Wrap(err, "read snapshot length failed")
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.NewWarn("snapshot exceeds size limit")
	}
	payload := make([]byte, ln)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, errs.Wrap(err, "truncated snapshot")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.Wrap(err, "zstd decoder")
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, errs.Wrap(err, "decompress snapshot failed")
	}
	s := new(Snapshot)
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, errs.Wrap(err, "unmarshal snapshot failed")
	}
	if s.Version != SnapshotVersion {
		return nil, errs.Warnf("unsupported snapshot version %d", s.Version)
	}
	return s, nil
}

// Write 將狀態寫入 w。
func Write(w io.Writer, s *Snapshot) error {
	b, err := Encode(s)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return errs.Wrap(err, "write snapshot failed")
	}
	return nil
}

// WriteFile 先寫暫存檔再改名，確保中途失敗不會留下半個狀態檔。
func WriteFile(path string, s *Snapshot) error {
	b, err := Encode(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return errs.Resourcef("create checkpoint: %v", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errs.Resourcef("write checkpoint: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Resourcef("close checkpoint: %v", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.Resourcef("rename checkpoint: %v", err)
	}
	return nil
}

// ReadFile 讀取 WriteFile 寫出的狀態檔。
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Resourcef("open checkpoint: %v", err)
	}
	defer f.Close()
	return Read(f, MaxSnapshotBytes)
}
