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

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : 錯誤分級，讓 CLI / HTTP 邊界決定要中止、略過或僅紀錄。
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

// Kind : 錯誤來源分類，與 ErrLevel 正交。
type Kind uint8

const (
	KindNone Kind = iota
	// KindConfig 參數、格式、種子等設定錯誤，一律致命。
	KindConfig
	// KindResource 檔案或目錄無法開啟/建立。
	KindResource
	// KindInterrupt 中斷處理流程本身的錯誤（例如重入）。
	KindInterrupt
	// KindNumeric 數值邊界情況，通常只出現在 Extra 上下文。
	KindNumeric
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

var kindMap = map[Kind]string{
	KindNone:      "",
	KindConfig:    "config",
	KindResource:  "resource",
	KindInterrupt: "interrupt",
	KindNumeric:   "numeric",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

func (k Kind) String() string {
	if str, ok := kindMap[k]; ok {
		return str
	}
	return ""
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端追加的上下文；Cause 串接下層錯誤；
// ErrLv 為嚴重度；Kind 為來源分類。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 實作 error 介面。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s", ErrLv(e.ErrLv))
	if e.Kind != KindNone {
		base += " kind=" + e.Kind.String()
	}
	base += " " + e.Message
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 讓同 Kind 的哨兵錯誤可以用 errors.Is 比對。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Message == e.Message && t.Kind == e.Kind && t.ErrLv == e.ErrLv
}

func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

// Configf 建立致命的設定錯誤（未知格式、seed 為 0、參數缺漏）。
func Configf(format string, a ...any) *E {
	e := Fatalf(format, a...)
	e.Kind = KindConfig
	return e
}

// Resourcef 建立可略過的資源錯誤（檔案無法開啟）。
func Resourcef(format string, a ...any) *E {
	e := Warnf(format, a...)
	e.Kind = KindResource
	return e
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// WithKind 設定分類並回傳自身，方便鏈式呼叫。
func (e *E) WithKind(k Kind) *E {
	e.Kind = k
	return e
}

// Wrap 以訊息包裝底層錯誤。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，沿用其 ErrLv 與 Kind。
//   - 否則（標準庫或三方錯誤）一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	kind := KindNone
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		kind = e.Kind
	}
	r := New(errLv, msg)
	r.Kind = kind
	r.Cause = cause
	return r
}

// WrapWithExtra 同 Wrap，另外附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// IsFatal 判斷錯誤鏈中最外層的 *E 是否為致命。非 *E 的錯誤視為致命。
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	e, ok := AsErr(err)
	if !ok {
		return true
	}
	return e.ErrLv == Fatal
}

// KindOf 回傳錯誤鏈中最外層 *E 的分類。
func KindOf(err error) Kind {
	if e, ok := AsErr(err); ok {
		return e.Kind
	}
	return KindNone
}
