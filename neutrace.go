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

// Package neutrace 為粒子傳輸模擬的執行核心：以單一試驗迴圈驅動儀器，
// 在安全點處理中斷請求，並透過 output 輸出偵測器結果。
package neutrace

import (
	"github.com/zintix-labs/neutrace/config"
	"github.com/zintix-labs/neutrace/sdk/particle"
)

// Info 描述一個儀器。
type Info struct {
	Name   string
	Source string
	Params []config.ParamDef

	TraceEnabled bool
	DefaultMain  bool
	Embedded     bool
}

// Instrument 為可被 Run 驅動的儀器。
//
// Init 在建立 Run 時呼叫一次，用來讀取參數並以 Run.Monitor 註冊偵測器；
// Trace 處理一個粒子，從 particle.Default() 開始。
type Instrument interface {
	Info() Info
	Init(r *Run) error
	Trace(r *Run, p *particle.State) error
}

// Finalizer 可選：在最後一次存檔前呼叫。
type Finalizer interface {
	Finally(r *Run) error
}

// Stateful 可選：監視器以外需要隨狀態檔續跑的儀器狀態（例如計數器）。
type Stateful interface {
	SaveState() ([]byte, error)
	RestoreState(data []byte) error
}
