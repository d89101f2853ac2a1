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

// Package logger 組裝執行期使用的 slog.Logger。
//
// 主輸出（stdout）保留給偵測器摘要與中斷訊息，診斷記錄一律寫到 stderr。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zintix-labs/neutrace/errs"
)

// Mode 決定記錄格式與等級。
type Mode uint8

const (
	ModeDev Mode = iota
	ModeProd
	ModeSilence
)

func (m Mode) String() string {
	switch m {
	case ModeProd:
		return "prod"
	case ModeSilence:
		return "silence"
	}
	return "dev"
}

// ParseMode 解析設定檔中的 log 欄位；空字串為 dev。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev", "text":
		return ModeDev, nil
	case "prod", "json":
		return ModeProd, nil
	case "silence", "silent", "off":
		return ModeSilence, nil
	}
	return ModeDev, errs.Configf("unknown log mode %q", s)
}

// New 以 mode 的預設值建立寫到 stderr 的 logger。
func New(mode Mode) *slog.Logger {
	return slog.New(Handler(mode, os.Stderr))
}

// Handler 建立 mode 對應的 handler：dev 為文字 Debug 等級，prod 為 JSON Info 等級。
func Handler(mode Mode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Discard 回傳丟棄所有記錄的 logger。
func Discard() *slog.Logger {
	return slog.New(Handler(ModeSilence, nil))
}

// NewAsync 建立非阻塞 logger；呼叫端結束前需呼叫 Close 以送出緩衝中的記錄。
func NewAsync(mode Mode, buf int) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(Handler(mode, os.Stderr), buf)
	return slog.New(ah), ah
}
