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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/neutrace/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
//   - ctx timeout/cancel   → 504/408
//   - 中斷佇列已滿（Warn）    → 429
//   - errs.Warn            → 400
//   - errs.Fatal           → 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	var e *errs.E
	if errors.As(err, &e) {
		switch e.ErrLv {
		case errs.Warn:
			if errs.KindOf(err) == errs.KindInterrupt {
				return http.StatusTooManyRequests
			}
			return http.StatusBadRequest
		case errs.Fatal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// Errs 以 JSON {"error": "..."} 回寫錯誤。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Log 只記錄值得注意的錯誤：請求層級問題為 Warn，伺服器錯誤為 Error。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		log.Warn(msg, slog.Any("err", err))
	} else if status >= 500 && status < 600 {
		log.Error(msg, slog.Any("err", err))
	}
}
