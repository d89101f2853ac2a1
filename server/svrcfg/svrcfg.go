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

package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/neutrace"
	"github.com/zintix-labs/neutrace/checkpoint"
	"github.com/zintix-labs/neutrace/errs"
	"github.com/zintix-labs/neutrace/logger"
	"github.com/zintix-labs/neutrace/stats"
)

// DefaultTick 為 websocket 進度推送間隔。
const DefaultTick = time.Second

// Monitored 為監控端可讀取的執行；*neutrace.Run 實作此介面。
// 方法必須可由其他 goroutine 安全呼叫。
type Monitored interface {
	Progress() neutrace.Progress
	Report() *stats.RunReport
	Post(checkpoint.Post) error
}

var _ Monitored = (*neutrace.Run)(nil)

type SvrCfg struct {
	Log  *slog.Logger
	Addr string
	Tick time.Duration
	Run  Monitored
}

func (sc *SvrCfg) Valid() error {
	if sc.Log == nil {
		sc.Log = logger.Discard()
	}
	if sc.Tick <= 0 {
		sc.Tick = DefaultTick
	}
	if sc.Run == nil {
		return errs.Configf("monitored run is required")
	}
	return nil
}
