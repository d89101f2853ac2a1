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

// Package server 組裝執行監控服務：驗證設定、註冊路由並啟動 HTTP 服務。
package server

import (
	"context"
	"fmt"
	"os"

	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/server/api"
	"github.com/zintix-labs/neutrace/server/app"
	"github.com/zintix-labs/neutrace/server/netsvr"
	"github.com/zintix-labs/neutrace/server/svrcfg"
)

// Run 以內建的 chi 服務監聽 sCfg.Addr，阻塞直到 ctx 結束或服務出錯。
func Run(ctx context.Context, sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(ctx, sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 與 Run 相同，但使用呼叫端提供的服務。
func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		return err
	}
	if svr == nil {
		return errs.NewFatal("svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return errs.NewFatal("default server is not ready")
	}
	api.RegisterRoutes(svr, sCfg)

	addr := ""
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		addr = s.Address()
	}
	sCfg.Log.Info("monitor listening", "addr", addr)
	return app.NewWith(sCfg.Log, svr).Run(ctx)
}
