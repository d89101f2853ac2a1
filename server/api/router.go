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

package api

import (
	"log/slog"

	v1 "github.com/zintix-labs/neutrace/server/api/v1"
	"github.com/zintix-labs/neutrace/server/netsvr"
	"github.com/zintix-labs/neutrace/server/netsvr/middleware"
	"github.com/zintix-labs/neutrace/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與 v1 監控路由。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	registerMiddleware(svr, sCfg.Log)
	registerV1API(svr, sCfg)
}

func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression)
}

func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	m := v1.NewMonitorHandler(sCfg)
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/status", m.Status)
		vOne.Get("/detectors", m.Detectors)
		vOne.Post("/checkpoint/{req}", m.Checkpoint)
		vOne.Get("/ws", m.Stream)
	})
}
