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

// Package app 管理監控服務的生命週期：啟動所有 Component，並在 ctx 結束或任一元件出錯時關閉。
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ShutdownTimeout 為優雅關閉的期限。
const ShutdownTimeout = 5 * time.Second

type App struct {
	comps []Component
	log   *slog.Logger
}

// NewWith 建立 App 並註冊元件。
func NewWith(log *slog.Logger, comps ...Component) *App {
	a := &App{log: log}
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// Run 並行啟動所有元件並阻塞。
//   - ctx 結束：優雅關閉後回傳 nil。
//   - 任一元件返回：優雅關閉後回傳其錯誤（http.ErrServerClosed 視為正常）。
//
// 訊號不在這裡處理，由呼叫端轉成 ctx 或中斷請求。
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	a.shutdown(ShutdownTimeout)
	return err
}

func (a *App) shutdown(td time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), td)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil && a.log != nil {
			a.log.Warn("shutdown failed", slog.Any("err", err))
		}
	}
}
